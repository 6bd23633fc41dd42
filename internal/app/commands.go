package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"

	"kiosk_mapping/internal/domain"
)

type SubmissionService struct {
	store  domain.RecordStore
	loader *SnapshotLoader
	clock  clockwork.Clock
}

// NewSubmissionService wires the write path. loader may be nil when no snapshot memo is in use.
func NewSubmissionService(s domain.RecordStore, l *SnapshotLoader, clock clockwork.Clock) *SubmissionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SubmissionService{store: s, loader: l, clock: clock}
}

// Submit validates the form, stamps the system time and appends exactly one row.
// A failed append is returned as-is; it is never retried.
func (s *SubmissionService) Submit(ctx context.Context, sub domain.Submission) (domain.Observation, error) {
	obs, err := Validate(sub)
	if err != nil {
		return domain.Observation{}, err
	}
	obs.Timestamp = s.clock.Now()

	if err := s.store.Append(ctx, obs); err != nil {
		return domain.Observation{}, fmt.Errorf("append observation: %w", err)
	}

	// the next page view must see this row
	if s.loader != nil {
		s.loader.Invalidate(ctx)
	}
	return obs, nil
}

// Validate checks every required field and returns an Observation without a timestamp.
func Validate(sub domain.Submission) (domain.Observation, error) {
	bad := map[string]string{}

	reporter := strings.TrimSpace(sub.Reporter)
	if reporter == "" {
		bad[domain.FieldReporter] = "required"
	}
	place := strings.TrimSpace(sub.PlaceName)
	if place == "" {
		bad[domain.FieldPlaceName] = "required"
	}

	var category domain.Category
	switch c, ok := domain.LookupCategory(sub.Category); {
	case strings.TrimSpace(sub.Category) == "":
		bad[domain.FieldCategory] = "required"
	case !ok:
		bad[domain.FieldCategory] = "unknown category"
	default:
		category = c.Key
	}

	checkFloat := func(field string, p *float64, lo, hi float64) float64 {
		if p == nil {
			bad[field] = "required"
			return 0
		}
		if *p < lo || *p > hi {
			bad[field] = fmt.Sprintf("must be between %g and %g", lo, hi)
		}
		return *p
	}
	lat := checkFloat(domain.FieldLatitude, sub.Latitude, -90, 90)
	lon := checkFloat(domain.FieldLongitude, sub.Longitude, -180, 180)
	height := checkFloat(domain.FieldHeight, sub.HeightCM, 0, domain.MaxHeightCM)

	for _, l := range sub.Languages {
		tag := strings.TrimSpace(l)
		if tag == "" || domain.IsNoneLanguage(tag) {
			continue
		}
		if !domain.IsKnownLanguage(domain.CanonicalLanguage(tag)) {
			bad[domain.FieldLanguages] = fmt.Sprintf("unknown language %q", l)
			break
		}
	}

	if len(bad) > 0 {
		return domain.Observation{}, &domain.ValidationError{Fields: bad}
	}
	return domain.Observation{
		Reporter:  reporter,
		Category:  category,
		Latitude:  lat,
		Longitude: lon,
		PlaceName: place,
		HeightCM:  height,
		Languages: JoinLanguages(sub.Languages),
	}, nil
}
