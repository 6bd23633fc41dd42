package app

import (
	"fmt"
	"strings"

	"kiosk_mapping/internal/domain"
)

// Map defaults for the marker view.
const (
	DefaultMapLat  = 37.4973
	DefaultMapLon  = 126.9100
	DefaultMapZoom = 17

	// the form pre-fills a slightly different point
	DefaultFormLat = 37.4973
	DefaultFormLon = 126.9092
)

// MapMarkers keeps records that have both coordinates and tags each with its category color.
// The input slice is not modified.
func MapMarkers(records []domain.Record) []domain.Marker {
	out := make([]domain.Marker, 0, len(records))
	for _, r := range records {
		if !r.HasCoords() {
			continue
		}
		out = append(out, domain.Marker{
			Lat:      *r.Latitude,
			Lon:      *r.Longitude,
			Category: r.Category,
			Color:    domain.MarkerColor(r.Category),
			Tooltip:  tooltip(r),
		})
	}
	return out
}

func tooltip(r domain.Record) string {
	height := "-"
	if r.HeightCM != nil {
		height = formatFloat(r.HeightCM) + "cm"
	}
	langs := r.Languages
	if langs == "" {
		langs = "-"
	}
	lines := []string{
		fmt.Sprintf("분류: %s", domain.CategoryLabel(r.Category)),
		fmt.Sprintf("장소: %s", r.PlaceName),
		fmt.Sprintf("최대 높이: %s", height),
		fmt.Sprintf("외국어 지원: %s", langs),
		fmt.Sprintf("기록자: %s", r.Reporter),
	}
	return strings.Join(lines, "\n")
}
