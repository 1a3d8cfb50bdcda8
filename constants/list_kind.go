package constants

import "strings"

// ListKind tells which user list a recipe belongs to.
type ListKind string

// Stable values (store these exact strings in DB).
const (
	ListKindFavorite     ListKind = "favorite"
	ListKindShoppingCart ListKind = "shopping_cart"
)

var allListKinds = []ListKind{ListKindFavorite, ListKindShoppingCart}

// AsStringSlice returns every list kind as a string.
func AsStringSlice() []string {
	result := make([]string, len(allListKinds))
	for i, k := range allListKinds {
		result[i] = string(k)
	}
	return result
}

// ParseListKind maps user input to a ListKind.
func ParseListKind(input string) (ListKind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]ListKind{
		"favorites":     ListKindFavorite,
		"favourite":     ListKindFavorite,
		"cart":          ListKindShoppingCart,
		"shopping_list": ListKindShoppingCart,
	}
	if k, ok := synonyms[normalized]; ok {
		return k, true
	}
	for _, k := range allListKinds {
		if normalized == string(k) {
			return k, true
		}
	}
	return "", false
}
