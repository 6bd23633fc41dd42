package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"kiosk_mapping/internal/domain"
)

// ImportResult counts what happened to each decoded record.
type ImportResult struct {
	Appended int
	Invalid  int
	Failed   int
}

// ToObservation revalidates an exported record. The original timestamp is kept.
func ToObservation(rec domain.Record) (domain.Observation, error) {
	sub := domain.Submission{
		Reporter:  rec.Reporter,
		Category:  rec.Category,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		PlaceName: rec.PlaceName,
		HeightCM:  rec.HeightCM,
	}
	if rec.Languages != "" && !domain.IsNoneLanguage(rec.Languages) {
		sub.Languages = strings.Split(rec.Languages, ",")
	}
	obs, err := Validate(sub)

	ts, terr := time.ParseInLocation(domain.TimestampLayout, strings.TrimSpace(rec.Timestamp), time.Local)
	if terr != nil {
		fields := map[string]string{domain.FieldTimestamp: "must look like " + domain.TimestampLayout}
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			for f, r := range ve.Fields {
				fields[f] = r
			}
		}
		return domain.Observation{}, &domain.ValidationError{Fields: fields}
	}
	if err != nil {
		return domain.Observation{}, err
	}
	obs.Timestamp = ts
	return obs, nil
}

// Importer appends previously exported records with at most workers appends in flight.
type Importer struct {
	store   domain.RecordStore
	workers int64
	observe func(outcome string)
}

// NewImporter returns an Importer. observe, when non-nil, is told the outcome of every record.
func NewImporter(s domain.RecordStore, workers int, observe func(string)) *Importer {
	if workers < 1 {
		workers = 1
	}
	if observe == nil {
		observe = func(string) {}
	}
	return &Importer{store: s, workers: int64(workers), observe: observe}
}

// Import never retries a failed append; the failure is counted and logged.
func (im *Importer) Import(ctx context.Context, records []domain.Record) (ImportResult, error) {
	sem := semaphore.NewWeighted(im.workers)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		res ImportResult
	)
	count := func(outcome string, n *int) {
		mu.Lock()
		*n++
		mu.Unlock()
		im.observe(outcome)
	}

	for i, rec := range records {
		obs, err := ToObservation(rec)
		if err != nil {
			log.Warn().Int("record", i+1).Err(err).Msg("skipping invalid record")
			count("invalid", &res.Invalid)
			continue
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return res, err
		}

		wg.Add(1)
		go func(n int, o domain.Observation) {
			defer wg.Done()
			defer sem.Release(1)

			if err := im.store.Append(ctx, o); err != nil {
				log.Warn().Int("record", n).Err(err).Msg("append failed")
				count("failed", &res.Failed)
				return
			}
			count("ok", &res.Appended)
		}(i+1, obs)
	}

	wg.Wait()
	return res, nil
}
