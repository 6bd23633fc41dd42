package app

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"kiosk_mapping/internal/domain"
)

/********** alias registry (single source of truth) **********/

var columnAliases = map[string][]string{
	domain.FieldTimestamp: {"timestamp", "Timestamp", "time", "submitted_at"},
	domain.FieldReporter:  {"reporter", "name", "Name", "Reporter"},
	domain.FieldCategory:  {"category", "Category"},
	domain.FieldLatitude:  {"latitude", "Latitude", "lat"},
	domain.FieldLongitude: {"longitude", "Longitude", "lon", "lng"},
	domain.FieldPlaceName: {"place_name", "Place Name", "place"},
	domain.FieldHeight:    {"kiosk_max_height", "Kiosk Max Height", "height"},
	domain.FieldLanguages: {"foreign_language_support", "Foreign Language Support", "languages"},
}

// sourceToCanonical inverts columnAliases.
var sourceToCanonical = func() map[string]string {
	m := make(map[string]string, 32)
	for canon, aliases := range columnAliases {
		for _, a := range aliases {
			m[a] = canon
		}
	}
	return m
}()

// CanonicalColumn maps a source column name to its canonical field name.
// Unrecognized names are returned unchanged.
func CanonicalColumn(name string) string {
	if c, ok := sourceToCanonical[strings.TrimSpace(name)]; ok {
		return c
	}
	return name
}

// renameColumns returns a copy of row keyed by canonical names.
// When two source columns map to one field the first non-empty one wins, in sorted source-name order.
func renameColumns(row domain.RawRow) map[string]any {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(row))
	for _, k := range keys {
		c := CanonicalColumn(k)
		if prev, ok := out[c]; ok && !isBlank(prev) {
			continue
		}
		out[c] = row[k]
	}
	return out
}

/********** tiny helpers **********/

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// toText renders a scalar cell the way a spreadsheet would display it.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// getFloatFlexible coerces float64/int/int64/json.Number/string ("8,0" included) to a finite number.
func getFloatFlexible(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// getHeight is getFloatFlexible restricted to non-negative measurements.
func getHeight(v any) *float64 {
	f := getFloatFlexible(v)
	if f == nil || *f < 0 {
		return nil
	}
	return f
}

// normalizeCategory maps known labels and aliases to the category key.
func normalizeCategory(v any) string {
	s := strings.TrimSpace(toText(v))
	if c, ok := domain.LookupCategory(s); ok {
		return string(c.Key)
	}
	return s
}

func formatFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
