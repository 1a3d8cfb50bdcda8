package shoppinglist

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const dateLayout = "2006-01-02"

// FormatOptions tweaks how FormatReportWith renders a list.
type FormatOptions struct {
	// EmptyMessage, when set, replaces the whole document if there are
	// neither products nor recipes to show.
	EmptyMessage string
}

// Report is a shopping list ready to be rendered.
type Report struct {
	GeneratedOn time.Time
	Lines       []AggregatedLine
	Recipes     []string
}

// NewReport aggregates lines and pairs them with the cart's recipe names.
func NewReport(lines []IngredientLine, recipes []string, generatedOn time.Time) *Report {
	return &Report{
		GeneratedOn: generatedOn,
		Lines:       Aggregate(lines),
		Recipes:     recipes,
	}
}

// Text renders the report with the default layout.
func (r *Report) Text() string {
	return FormatReport(r.Lines, r.Recipes, r.GeneratedOn)
}

// FormatReport renders the shopping list document:
//
//	Shopping list for 2024-03-01:
//	Products:
//	1. Egg – 2 шт.
//	2. Milk – 750 ml
//
//	Recipes:
//	- Pancakes
//
// Rows are numbered in the order given. Empty sections keep their headers.
func FormatReport(lines []AggregatedLine, recipes []string, generatedOn time.Time) string {
	return FormatReportWith(FormatOptions{}, lines, recipes, generatedOn)
}

// FormatReportWith is FormatReport with rendering options.
func FormatReportWith(opts FormatOptions, lines []AggregatedLine, recipes []string, generatedOn time.Time) string {
	if opts.EmptyMessage != "" && len(lines) == 0 && len(recipes) == 0 {
		return opts.EmptyMessage
	}

	var b strings.Builder
	b.WriteString("Shopping list for ")
	b.WriteString(generatedOn.Format(dateLayout))
	b.WriteString(":\nProducts:")
	for i, l := range lines {
		b.WriteByte('\n')
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(CapitalizeFirst(l.Name))
		b.WriteString(" – ")
		b.WriteString(strconv.Itoa(l.TotalAmount))
		b.WriteByte(' ')
		b.WriteString(l.MeasurementUnit)
	}
	b.WriteString("\n\nRecipes:")
	for _, name := range recipes {
		b.WriteString("\n- ")
		b.WriteString(name)
	}
	return b.String()
}

// CapitalizeFirst upper-cases only the first rune of s and leaves the rest untouched.
func CapitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
