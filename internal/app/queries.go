package app

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"kiosk_mapping/internal/domain"
)

// snapshotKey is the cache key of the memoized full read.
const snapshotKey = "snapshot:observations:v1"

// SnapshotLoader reads the store once per rendering pass, optionally memoized for ttl.
type SnapshotLoader struct {
	store domain.RecordStore
	cache domain.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewSnapshotLoader returns a loader; a nil cache or a zero ttl disables memoization.
func NewSnapshotLoader(s domain.RecordStore, c domain.Cache, ttl time.Duration) *SnapshotLoader {
	return &SnapshotLoader{store: s, cache: c, ttl: ttl, now: time.Now}
}

func (l *SnapshotLoader) memoized() bool { return l.cache != nil && l.ttl >= time.Second }

// LoadSnapshot never fails: a store error is logged and yields an empty snapshot.
func (l *SnapshotLoader) LoadSnapshot(ctx context.Context) domain.Snapshot {
	if l.memoized() {
		var snap domain.Snapshot
		ok, err := l.cache.Get(ctx, snapshotKey, &snap)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot cache get failed")
		}
		if ok {
			return snap
		}
	}

	rows, err := l.store.ReadAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("record store read failed; rendering empty dataset")
		return domain.Snapshot{Rows: []domain.RawRow{}, LoadedAt: l.now()}
	}
	snap := domain.Snapshot{Rows: copyRows(rows), LoadedAt: l.now()}

	if l.memoized() {
		if err := l.cache.Set(ctx, snapshotKey, snap, int(l.ttl.Seconds())); err != nil {
			log.Warn().Err(err).Msg("snapshot cache set failed")
		}
	}
	return snap
}

// Invalidate drops the memoized snapshot so the next read sees fresh appends.
func (l *SnapshotLoader) Invalidate(ctx context.Context) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Del(ctx, snapshotKey); err != nil {
		log.Warn().Err(err).Msg("snapshot cache del failed")
	}
}

// copyRows detaches the snapshot from the store's backing maps.
func copyRows(in []domain.RawRow) []domain.RawRow {
	out := make([]domain.RawRow, len(in))
	for i, r := range in {
		c := make(domain.RawRow, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

type DashboardService struct {
	loader *SnapshotLoader
	bins   domain.HeightBins
}

func NewDashboardService(l *SnapshotLoader, bins domain.HeightBins) *DashboardService {
	return &DashboardService{loader: l, bins: bins}
}

func (s *DashboardService) records(ctx context.Context) []domain.Record {
	return Normalize(s.loader.LoadSnapshot(ctx).Rows)
}

func (s *DashboardService) Records(ctx context.Context) []domain.Record {
	return s.records(ctx)
}

func (s *DashboardService) Markers(ctx context.Context) []domain.Marker {
	return MapMarkers(s.records(ctx))
}

func (s *DashboardService) Stats(ctx context.Context) domain.Stats {
	return ComputeStats(s.records(ctx), s.bins)
}

// Summary returns the total number of records in the store.
func (s *DashboardService) Summary(ctx context.Context) int {
	return len(s.loader.LoadSnapshot(ctx).Rows)
}

// Export writes the BOM-prefixed CSV download to w.
func (s *DashboardService) Export(ctx context.Context, w io.Writer) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	return EncodeCSV(w, s.records(ctx))
}
