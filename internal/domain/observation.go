package domain

import "time"

// TimestampLayout is how submission times are written to the store.
const TimestampLayout = "2006-01-02 15:04:05"

// Canonical field names, in export order.
const (
	FieldTimestamp = "timestamp"
	FieldReporter  = "reporter"
	FieldCategory  = "category"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldPlaceName = "place_name"
	FieldHeight    = "kiosk_max_height"
	FieldLanguages = "foreign_language_support"
)

var CanonicalFields = []string{
	FieldTimestamp,
	FieldReporter,
	FieldCategory,
	FieldLatitude,
	FieldLongitude,
	FieldPlaceName,
	FieldHeight,
	FieldLanguages,
}

// StoreColumns is the header of the shared sheet; appended rows follow this order.
var StoreColumns = []string{
	"timestamp",
	"category",
	"latitude",
	"longitude",
	"Place Name",
	"Kiosk Max Height",
	"Foreign Language Support",
	"name",
}

// RawRow is one loosely-typed row as returned by a RecordStore, keyed by source column name.
type RawRow map[string]any

// Observation is a validated submission ready to be appended.
type Observation struct {
	Timestamp time.Time
	Reporter  string
	Category  Category
	Latitude  float64
	Longitude float64
	PlaceName string
	HeightCM  float64
	Languages string // normalized, or LanguageNone
}

// Row returns the 8 scalar fields in StoreColumns order.
func (o Observation) Row() []any {
	return []any{
		o.Timestamp.Format(TimestampLayout),
		string(o.Category),
		o.Latitude,
		o.Longitude,
		o.PlaceName,
		o.HeightCM,
		o.Languages,
		o.Reporter,
	}
}

// Record is one normalized row. Nil numeric fields are missing.
type Record struct {
	Timestamp string            `json:"timestamp"`
	Reporter  string            `json:"reporter"`
	Category  string            `json:"category"`
	Latitude  *float64          `json:"latitude"`
	Longitude *float64          `json:"longitude"`
	PlaceName string            `json:"place_name"`
	HeightCM  *float64          `json:"kiosk_max_height"`
	Languages string            `json:"foreign_language_support"`
	Extra     map[string]string `json:"extra,omitempty"`

	// LanguagesSet is false when the source row had no language column at all.
	LanguagesSet bool `json:"-"`
}

// HasCoords reports whether both coordinates survived coercion.
func (r Record) HasCoords() bool { return r.Latitude != nil && r.Longitude != nil }

// Snapshot is the immutable result of one full store read.
type Snapshot struct {
	Rows     []RawRow  `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s Snapshot) Empty() bool { return len(s.Rows) == 0 }
