package app

import (
	"fmt"
	"math"
	"sort"

	"github.com/cockroachdb/apd/v3"

	"kiosk_mapping/internal/domain"
)

// ComputeStats runs the three independent aggregations over one record set.
func ComputeStats(records []domain.Record, bins domain.HeightBins) domain.Stats {
	return domain.Stats{
		Total:      len(records),
		Empty:      len(records) == 0,
		Heights:    HeightDistribution(records, bins),
		Categories: CategoryDistribution(records),
		Languages:  LanguageDistribution(records),
	}
}

// MaxExtraHeightBins caps how many bins out-of-range heights may add on each side.
// Heights further out fold into the outermost bin, which is then marked Open.
const MaxExtraHeightBins = 3

// HeightDistribution buckets non-missing heights into half-open [low, low+width) bins.
// Every configured bin is returned, in ascending order. Heights outside the configured
// range add up to MaxExtraHeightBins bins at either end, so counts always sum to the
// number of heights.
func HeightDistribution(records []domain.Record, bins domain.HeightBins) []domain.HeightBucket {
	if bins.Width <= 0 || bins.Max <= bins.Min {
		bins = domain.DefaultHeightBins
	}
	n := int(math.Ceil((bins.Max - bins.Min) / bins.Width))
	minK, maxK := -MaxExtraHeightBins, n-1+MaxExtraHeightBins

	counts := make(map[int]int, n)
	lo, hi := 0, n-1
	openLo, openHi := false, false
	for _, r := range records {
		if r.HeightCM == nil {
			continue
		}
		// clamp in float space; huge stored values must not overflow int
		f := math.Floor((*r.HeightCM - bins.Min) / bins.Width)
		var k int
		switch {
		case math.IsNaN(f):
			continue
		case f < float64(minK):
			k, openLo = minK, true
		case f > float64(maxK):
			k, openHi = maxK, true
		default:
			k = int(f)
		}
		counts[k]++
		if k < lo {
			lo = k
		}
		if k > hi {
			hi = k
		}
	}

	out := make([]domain.HeightBucket, 0, hi-lo+1)
	for k := lo; k <= hi; k++ {
		low := bins.Min + float64(k)*bins.Width
		high := low + bins.Width
		b := domain.HeightBucket{
			Low:   low,
			High:  high,
			Label: fmt.Sprintf("%s - %s", formatFloat(&low), formatFloat(&high)),
			Count: counts[k],
		}
		switch {
		case k == minK && openLo:
			b.Open = true
			b.Label = "< " + formatFloat(&high)
		case k == maxK && openHi:
			b.Open = true
			b.Label = ">= " + formatFloat(&low)
		}
		out = append(out, b)
	}
	return out
}

// CategoryDistribution counts records per category, most frequent first.
// Ties keep first-seen order. Records without a category are skipped.
func CategoryDistribution(records []domain.Record) []domain.CategoryCount {
	keys, counts := valueCounts(records, func(r domain.Record) (string, bool) {
		return r.Category, r.Category != ""
	})
	out := make([]domain.CategoryCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.CategoryCount{
			Category: k,
			Label:    domain.CategoryLabel(k),
			Color:    domain.MarkerColor(k),
			Count:    counts[k],
		})
	}
	return out
}

// LanguageDistribution counts records per normalized language value, most frequent first.
// domain.LanguageNone is its own bucket; rows that had no language column are skipped.
func LanguageDistribution(records []domain.Record) []domain.LanguageCount {
	keys, counts := valueCounts(records, func(r domain.Record) (string, bool) {
		return r.Languages, r.LanguagesSet
	})
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]domain.LanguageCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.LanguageCount{
			Languages: k,
			Count:     counts[k],
			Percent:   sharePercent(counts[k], total),
		})
	}
	return out
}

// sharePercent is count/total in percent, rounded half-up to one decimal place.
// Decimal arithmetic keeps 1/8 at 12.5 instead of drifting through binary floats.
func sharePercent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp

	var q apd.Decimal
	if _, err := ctx.Quo(&q, apd.New(int64(count)*100, 0), apd.New(int64(total), 0)); err != nil {
		return 0
	}
	if _, err := ctx.Quantize(&q, &q, -1); err != nil {
		return 0
	}
	f, err := q.Float64()
	if err != nil {
		return 0
	}
	return f
}

// valueCounts returns keys sorted by descending count (stable on first-seen order) and their counts.
func valueCounts(records []domain.Record, key func(domain.Record) (string, bool)) ([]string, map[string]int) {
	counts := make(map[string]int, 8)
	order := make([]string, 0, 8)
	for _, r := range records {
		k, ok := key(r)
		if !ok {
			continue
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return order, counts
}
