package app

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"

	"kiosk_mapping/internal/domain"
)

const (
	ExportFilename    = "kiosk_data.csv"
	ExportContentType = "text/csv; charset=utf-8"
)

// utf8BOM prefixes downloads so spreadsheet apps detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodeCSV writes records as CSV: canonical columns first, then extra columns by name.
// An empty record set produces a header-only document.
func EncodeCSV(w io.Writer, records []domain.Record) error {
	extras := extraColumns(records)
	header := append(append([]string{}, domain.CanonicalFields...), extras...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		row := []string{
			r.Timestamp,
			r.Reporter,
			r.Category,
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			r.PlaceName,
			formatFloat(r.HeightCM),
			r.Languages,
		}
		for _, k := range extras {
			row = append(row, r.Extra[k])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeCSV reads a document produced by EncodeCSV (optionally BOM-prefixed) back into records.
// Empty extra cells are dropped; unparsable numbers become missing.
func DecodeCSV(r io.Reader) ([]domain.Record, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	out := []domain.Record{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		out = append(out, decodeRow(header, row))
	}
	return out, nil
}

func decodeRow(header, row []string) domain.Record {
	var rec domain.Record
	for i, name := range header {
		if i >= len(row) {
			break
		}
		v := row[i]
		switch CanonicalColumn(name) {
		case domain.FieldTimestamp:
			rec.Timestamp = v
		case domain.FieldReporter:
			rec.Reporter = v
		case domain.FieldCategory:
			rec.Category = v
		case domain.FieldLatitude:
			rec.Latitude = getFloatFlexible(v)
		case domain.FieldLongitude:
			rec.Longitude = getFloatFlexible(v)
		case domain.FieldPlaceName:
			rec.PlaceName = v
		case domain.FieldHeight:
			rec.HeightCM = getHeight(v)
		case domain.FieldLanguages:
			if v != "" {
				rec.Languages = v
				rec.LanguagesSet = true
			}
		default:
			if v == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string, 2)
			}
			rec.Extra[name] = v
		}
	}
	return rec
}

func extraColumns(records []domain.Record) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Extra {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
