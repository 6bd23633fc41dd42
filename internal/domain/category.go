package domain

import "strings"

type Category string

const (
	CategoryFoodService       Category = "food_service"
	CategoryPublicInstitution Category = "public_institution"
	CategoryRetail            Category = "retail"
	CategoryOther             Category = "other"
)

// DefaultMarkerColor is used for empty or unrecognized categories.
const DefaultMarkerColor = "gray"

type CategoryInfo struct {
	Key   Category `json:"key"`
	Label string   `json:"label"`
	Color string   `json:"color"`
	// Aliases are legacy labels seen in older sheets.
	Aliases []string `json:"-"`
}

// Categories is the one table shared by the form, the map and the charts.
var Categories = []CategoryInfo{
	{Key: CategoryFoodService, Label: "음식점", Color: "red", Aliases: []string{"🍽️ 음식점", "🍴 음식점", "restaurant"}},
	{Key: CategoryPublicInstitution, Label: "공공기관", Color: "blue", Aliases: []string{"🏛️ 공공기관", "public"}},
	{Key: CategoryRetail, Label: "상점", Color: "orange", Aliases: []string{"🛒 상점", "🏪 상점", "store", "shop"}},
	{Key: CategoryOther, Label: "기타", Color: "green", Aliases: []string{"📍 기타", "❓ 기타"}},
}

var categoryIndex = func() map[string]CategoryInfo {
	m := make(map[string]CategoryInfo, len(Categories)*4)
	for _, c := range Categories {
		m[string(c.Key)] = c
		m[c.Label] = c
		for _, a := range c.Aliases {
			m[a] = c
		}
	}
	return m
}()

// LookupCategory resolves a key, label or legacy alias.
func LookupCategory(s string) (CategoryInfo, bool) {
	c, ok := categoryIndex[strings.TrimSpace(s)]
	return c, ok
}

// MarkerColor returns the marker color for a category value, gray when unknown.
func MarkerColor(category string) string {
	if c, ok := LookupCategory(category); ok {
		return c.Color
	}
	return DefaultMarkerColor
}

// CategoryLabel returns the display label, or the value itself when unknown.
func CategoryLabel(category string) string {
	if c, ok := LookupCategory(category); ok {
		return c.Label
	}
	return category
}
