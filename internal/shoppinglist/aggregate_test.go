package shoppinglist

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	t.Run("SumsSameNameAndUnit", func(t *testing.T) {
		got := Aggregate([]IngredientLine{
			{Name: "flour", MeasurementUnit: "g", Amount: 300},
			{Name: "flour", MeasurementUnit: "g", Amount: 200},
		})
		require.Len(t, got, 1)
		assert.Equal(t, AggregatedLine{Name: "flour", MeasurementUnit: "g", TotalAmount: 500}, got[0])
	})

	t.Run("KeepsDifferentUnitsApart", func(t *testing.T) {
		got := Aggregate([]IngredientLine{
			{Name: "sugar", MeasurementUnit: "g", Amount: 100},
			{Name: "sugar", MeasurementUnit: "tbsp", Amount: 2},
			{Name: "sugar", MeasurementUnit: "g", Amount: 50},
		})
		assert.Equal(t, []AggregatedLine{
			{Name: "sugar", MeasurementUnit: "g", TotalAmount: 150},
			{Name: "sugar", MeasurementUnit: "tbsp", TotalAmount: 2},
		}, got)
	})

	t.Run("CaseSensitiveNames", func(t *testing.T) {
		got := Aggregate([]IngredientLine{
			{Name: "tomato", MeasurementUnit: "g", Amount: 200},
			{Name: "Tomato", MeasurementUnit: "g", Amount: 100},
		})
		// Byte order puts upper case first.
		assert.Equal(t, []AggregatedLine{
			{Name: "Tomato", MeasurementUnit: "g", TotalAmount: 100},
			{Name: "tomato", MeasurementUnit: "g", TotalAmount: 200},
		}, got)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		got := Aggregate(nil)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("NonPositiveAmountsPassThrough", func(t *testing.T) {
		got := Aggregate([]IngredientLine{
			{Name: "salt", MeasurementUnit: "g", Amount: 5},
			{Name: "salt", MeasurementUnit: "g", Amount: -7},
			{Name: "pepper", MeasurementUnit: "g", Amount: 0},
		})
		assert.Equal(t, []AggregatedLine{
			{Name: "pepper", MeasurementUnit: "g", TotalAmount: 0},
			{Name: "salt", MeasurementUnit: "g", TotalAmount: -2},
		}, got)
	})

	t.Run("SortedByName", func(t *testing.T) {
		got := Aggregate([]IngredientLine{
			{Name: "молоко", MeasurementUnit: "мл", Amount: 1},
			{Name: "milk", MeasurementUnit: "ml", Amount: 1},
			{Name: "butter", MeasurementUnit: "g", Amount: 1},
			{Name: "apple", MeasurementUnit: "pcs", Amount: 1},
		})
		assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Name < got[j].Name }))
		assert.Equal(t, "apple", got[0].Name)
		assert.Equal(t, "молоко", got[len(got)-1].Name)
	})
}

func TestAggregateOrderIndependent(t *testing.T) {
	lines := []IngredientLine{
		{Name: "milk", MeasurementUnit: "ml", Amount: 500},
		{Name: "egg", MeasurementUnit: "шт.", Amount: 2},
		{Name: "milk", MeasurementUnit: "ml", Amount: 250},
		{Name: "milk", MeasurementUnit: "l", Amount: 1},
		{Name: "flour", MeasurementUnit: "g", Amount: 120},
		{Name: "egg", MeasurementUnit: "шт.", Amount: 3},
		{Name: "Flour", MeasurementUnit: "g", Amount: 10},
	}
	want := Aggregate(lines)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]IngredientLine(nil), lines...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, Aggregate(shuffled), "shuffle %d", i)
	}
}
