package domain

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// RecordStore is the external tabular store holding observations.
// Append must be atomic per call; ReadAll returns a snapshot good for one rendering pass.
type RecordStore interface {
	ReadAll(ctx context.Context) ([]RawRow, error)
	Append(ctx context.Context, o Observation) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ValidationError lists every form field that failed validation.
type ValidationError struct {
	Fields map[string]string // field -> reason
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// Submission is what the form surface hands over. Nil numbers are unset.
type Submission struct {
	Reporter  string   `json:"reporter"`
	Category  string   `json:"category"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	PlaceName string   `json:"place_name"`
	HeightCM  *float64 `json:"kiosk_max_height"`
	Languages []string `json:"foreign_language_support"`
}

// Read models

type Marker struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
	Tooltip  string  `json:"tooltip"`
}

type HeightBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Label string  `json:"label"`
	Count int     `json:"count"`
	// Open marks an edge bucket that also holds every height beyond it.
	Open bool `json:"open,omitempty"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Count    int    `json:"count"`
}

type LanguageCount struct {
	Languages string  `json:"languages"`
	Count     int     `json:"count"`
	Percent   float64 `json:"percent"`
}

type Stats struct {
	Total      int             `json:"total"`
	Empty      bool            `json:"empty"`
	Heights    []HeightBucket  `json:"heights"`
	Categories []CategoryCount `json:"categories"`
	Languages  []LanguageCount `json:"languages"`
}

// HeightBins configures the fixed-width histogram over kiosk_max_height.
type HeightBins struct {
	Min   float64
	Max   float64
	Width float64
}

var DefaultHeightBins = HeightBins{Min: 120, Max: 200, Width: 10}

// MaxHeightCM is the tallest kiosk a submission may report (10 m).
// Stored rows are not checked against it; the histogram folds outliers instead.
const MaxHeightCM = 1000
