// internal/adapters/http_server/handlers.go
package httpserver

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"kiosk_mapping/internal/adapters/observability"
	"kiosk_mapping/internal/app"
	"kiosk_mapping/internal/domain"
)

type Handlers struct {
	Dash   *app.DashboardService
	Submit *app.SubmissionService
}

type problem struct {
	Type          string            `json:"type"`
	Title         string            `json:"title"`
	Status        int               `json:"status"`
	Detail        string            `json:"detail,omitempty"`
	InvalidFields map[string]string `json:"invalid_fields,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/form", h.getForm)
	s.mux.Post("/v1/observations", h.postObservation)
	s.mux.Get("/v1/observations", h.listObservations)
	s.mux.Get("/v1/map/markers", h.getMarkers)
	s.mux.Get("/v1/stats", h.getStats)
	s.mux.Get("/v1/stats/summary", h.getSummary)
	s.mux.Get("/v1/export", h.export)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemJSON(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemJSON(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v as JSON with a weak ETag, answering 304 when the client already has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any, name string) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("handler", name).Msg("failed to write body")
	}
}

// ---- read side ----

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type formResponse struct {
	Categories []domain.CategoryInfo `json:"categories"`
	Languages  []string              `json:"languages"`
	None       string                `json:"none"`
	Defaults   point                 `json:"defaults"`
}

func (h *Handlers) getForm(w http.ResponseWriter, r *http.Request) {
	writeCached(w, r, formResponse{
		Categories: domain.Categories,
		Languages:  domain.Languages,
		None:       domain.LanguageNone,
		Defaults:   point{Lat: app.DefaultFormLat, Lon: app.DefaultFormLon},
	}, "getForm")
}

type recordsResponse struct {
	Total   int             `json:"total"`
	Empty   bool            `json:"empty"`
	Records []domain.Record `json:"records"`
}

func (h *Handlers) listObservations(w http.ResponseWriter, r *http.Request) {
	recs := h.Dash.Records(r.Context())
	observability.SetSnapshotRows(len(recs))
	writeCached(w, r, recordsResponse{Total: len(recs), Empty: len(recs) == 0, Records: recs}, "listObservations")
}

type markersResponse struct {
	Center  point           `json:"center"`
	Zoom    int             `json:"zoom"`
	Markers []domain.Marker `json:"markers"`
}

func (h *Handlers) getMarkers(w http.ResponseWriter, r *http.Request) {
	writeCached(w, r, markersResponse{
		Center:  point{Lat: app.DefaultMapLat, Lon: app.DefaultMapLon},
		Zoom:    app.DefaultMapZoom,
		Markers: h.Dash.Markers(r.Context()),
	}, "getMarkers")
}

func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	st := h.Dash.Stats(r.Context())
	observability.SetSnapshotRows(st.Total)
	writeCached(w, r, st, "getStats")
}

type summaryResponse struct {
	Total int  `json:"total"`
	Empty bool `json:"empty"`
}

func (h *Handlers) getSummary(w http.ResponseWriter, r *http.Request) {
	n := h.Dash.Summary(r.Context())
	writeCached(w, r, summaryResponse{Total: n, Empty: n == 0}, "getSummary")
}

func (h *Handlers) export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Dash.Export(r.Context(), &buf); err != nil {
		log.Error().Err(err).Msg("export encode failed")
		writeProblem(w, http.StatusInternalServerError, "Export Failed", "could not encode CSV")
		return
	}
	w.Header().Set("Content-Type", app.ExportContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+app.ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("failed to write export body")
	}
}

// ---- write side ----

type observationResponse struct {
	Timestamp string  `json:"timestamp"`
	Reporter  string  `json:"reporter"`
	Category  string  `json:"category"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PlaceName string  `json:"place_name"`
	HeightCM  float64 `json:"kiosk_max_height"`
	Languages string  `json:"foreign_language_support"`
}

func (h *Handlers) postObservation(w http.ResponseWriter, r *http.Request) {
	sub, bad, err := decodeSubmission(w, r)
	if err != nil {
		observability.ObserveSubmission("invalid")
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if len(bad) > 0 {
		// report unparsable numbers together with any other missing fields
		if _, verr := app.Validate(sub); verr != nil {
			var ve *domain.ValidationError
			if errors.As(verr, &ve) {
				for f, reason := range ve.Fields {
					if _, dup := bad[f]; !dup {
						bad[f] = reason
					}
				}
			}
		}
		observability.ObserveSubmission("invalid")
		writeInvalid(w, bad)
		return
	}

	obs, err := h.Submit.Submit(r.Context(), sub)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			observability.ObserveSubmission("invalid")
			writeInvalid(w, ve.Fields)
			return
		}
		observability.ObserveSubmission("store_error")
		log.Error().Err(err).Msg("submission append failed")
		writeProblem(w, http.StatusBadGateway, "Store Unavailable", "the observation was not saved; please submit again")
		return
	}
	observability.ObserveSubmission("ok")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(observationResponse{
		Timestamp: obs.Timestamp.Format(domain.TimestampLayout),
		Reporter:  obs.Reporter,
		Category:  string(obs.Category),
		Latitude:  obs.Latitude,
		Longitude: obs.Longitude,
		PlaceName: obs.PlaceName,
		HeightCM:  obs.HeightCM,
		Languages: obs.Languages,
	}); err != nil {
		log.Error().Err(err).Msg("failed to write postObservation body")
	}
}

func writeInvalid(w http.ResponseWriter, fields map[string]string) {
	writeProblemJSON(w, problem{
		Type:          "about:blank",
		Title:         "Invalid Submission",
		Status:        http.StatusUnprocessableEntity,
		Detail:        "one or more fields are missing or invalid",
		InvalidFields: fields,
	})
}

// decodeSubmission reads a JSON body, or form fields named after the canonical columns.
// bad collects numeric form fields that did not parse.
func decodeSubmission(w http.ResponseWriter, r *http.Request) (domain.Submission, map[string]string, error) {
	var sub domain.Submission
	bad := map[string]string{}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		if err := dec.Decode(&sub); err != nil {
			return sub, nil, errors.New("body must be a JSON submission")
		}
		return sub, bad, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		return sub, nil, errors.New("body must be form-encoded")
	}
	sub.Reporter = r.PostForm.Get(domain.FieldReporter)
	sub.Category = r.PostForm.Get(domain.FieldCategory)
	sub.PlaceName = r.PostForm.Get(domain.FieldPlaceName)

	num := func(field string) *float64 {
		v := strings.TrimSpace(r.PostForm.Get(field))
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			bad[field] = "must be a number"
			return nil
		}
		return &f
	}
	sub.Latitude = num(domain.FieldLatitude)
	sub.Longitude = num(domain.FieldLongitude)
	sub.HeightCM = num(domain.FieldHeight)

	// multi-select arrives as repeated keys; a single comma-joined value is accepted too
	for _, v := range r.PostForm[domain.FieldLanguages] {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				sub.Languages = append(sub.Languages, tag)
			}
		}
	}
	return sub, bad, nil
}
