package app

import (
	"sort"
	"strings"

	"kiosk_mapping/internal/domain"
)

// NormalizeLanguages sorts and de-duplicates a comma separated tag list.
// Legacy tags are mapped to their canonical names and an empty selection becomes domain.LanguageNone.
func NormalizeLanguages(s string) string {
	seen := make(map[string]struct{}, 4)
	tags := make([]string, 0, 4)
	for _, part := range strings.Split(s, ",") {
		t := strings.TrimSpace(part)
		if domain.IsNoneLanguage(t) {
			continue
		}
		t = domain.CanonicalLanguage(t)
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return domain.LanguageNone
	}
	sort.Strings(tags)
	return strings.Join(tags, domain.LanguageSeparator)
}

// JoinLanguages normalizes a multi-select value from the form.
func JoinLanguages(selected []string) string {
	return NormalizeLanguages(strings.Join(selected, ","))
}

// Normalize turns raw store rows into typed records, one per input row.
func Normalize(rows []domain.RawRow) []domain.Record {
	out := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, normalizeRow(row))
	}
	return out
}

func normalizeRow(row domain.RawRow) domain.Record {
	cols := renameColumns(row)

	rec := domain.Record{
		Timestamp: strings.TrimSpace(toText(cols[domain.FieldTimestamp])),
		Reporter:  strings.TrimSpace(toText(cols[domain.FieldReporter])),
		Category:  normalizeCategory(cols[domain.FieldCategory]),
		Latitude:  getFloatFlexible(cols[domain.FieldLatitude]),
		Longitude: getFloatFlexible(cols[domain.FieldLongitude]),
		PlaceName: toText(cols[domain.FieldPlaceName]),
		HeightCM:  getHeight(cols[domain.FieldHeight]),
	}

	if v, ok := cols[domain.FieldLanguages]; ok && v != nil {
		rec.LanguagesSet = true
		if s, isStr := v.(string); isStr {
			rec.Languages = NormalizeLanguages(s)
		} else {
			// non-string cells pass through untouched
			rec.Languages = toText(v)
		}
	}

	for k, v := range cols {
		if isCanonical(k) || isBlank(v) {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string, 2)
		}
		rec.Extra[k] = toText(v)
	}
	return rec
}

func isCanonical(name string) bool {
	_, ok := columnAliases[name]
	return ok
}
