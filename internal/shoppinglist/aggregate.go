// Package shoppinglist merges the ingredient lines of a user's cart recipes
// and renders them as a shopping list.
package shoppinglist

import "sort"

// IngredientLine is one ingredient occurrence inside one cart recipe.
type IngredientLine struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// AggregatedLine is a single row of the shopping list.
type AggregatedLine struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	TotalAmount     int    `json:"total_amount"`
}

type lineKey struct {
	name string
	unit string
}

// Aggregate collapses lines sharing the exact (name, unit) pair into one row
// and sums their amounts. Names and units are compared byte for byte, so
// "tomato" and "Tomato" stay apart, as do "g" and "kg". Amounts are summed
// as given, including zero or negative values.
//
// Rows are ordered by name, then unit, so the result does not depend on the
// order of the input.
func Aggregate(lines []IngredientLine) []AggregatedLine {
	totals := make(map[lineKey]int, len(lines))
	for _, l := range lines {
		totals[lineKey{name: l.Name, unit: l.MeasurementUnit}] += l.Amount
	}

	out := make([]AggregatedLine, 0, len(totals))
	for k, total := range totals {
		out = append(out, AggregatedLine{
			Name:            k.name,
			MeasurementUnit: k.unit,
			TotalAmount:     total,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].MeasurementUnit < out[j].MeasurementUnit
	})
	return out
}
