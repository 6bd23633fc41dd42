package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"kiosk_mapping/internal/domain"
)

func valF64(n sql.NullFloat64) any {
	if !n.Valid {
		return nil
	}
	return n.Float64
}

func valStr(n sql.NullString) any {
	if !n.Valid {
		return nil
	}
	return n.String
}

// Repo is a RecordStore over the observations table.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, o domain.Observation) error {
	_, err := r.db.ExecContext(ctx, insertObservationSQL,
		o.Timestamp.Format(domain.TimestampLayout), // wall clock, as the sheet keeps it
		o.Reporter,
		string(o.Category),
		o.Latitude,
		o.Longitude,
		o.PlaceName,
		o.HeightCM,
		o.Languages,
	)
	if err != nil {
		return fmt.Errorf("%w: insert observation: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ReadAll returns every row keyed by canonical field name. NULL columns come back as nil.
func (r *Repo) ReadAll(ctx context.Context) ([]domain.RawRow, error) {
	rows, err := r.db.QueryContext(ctx, selectObservationsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: select observations: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := []domain.RawRow{}
	for rows.Next() {
		var (
			ts                 sql.NullTime
			reporter, category sql.NullString
			place, languages   sql.NullString
			lat, lon, height   sql.NullFloat64
		)
		if err := rows.Scan(&ts, &reporter, &category, &lat, &lon, &place, &height, &languages); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		row := domain.RawRow{
			domain.FieldTimestamp: "",
			domain.FieldReporter:  valStr(reporter),
			domain.FieldCategory:  valStr(category),
			domain.FieldLatitude:  valF64(lat),
			domain.FieldLongitude: valF64(lon),
			domain.FieldPlaceName: valStr(place),
			domain.FieldHeight:    valF64(height),
			domain.FieldLanguages: valStr(languages),
		}
		if ts.Valid {
			row[domain.FieldTimestamp] = ts.Time.Format(domain.TimestampLayout)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
