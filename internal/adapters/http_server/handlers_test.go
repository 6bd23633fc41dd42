package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	server "kiosk_mapping/internal/adapters/http_server"
	"kiosk_mapping/internal/app"
	"kiosk_mapping/internal/domain"
)

// ---- fakes ----

type memStore struct {
	rows      []domain.RawRow
	appendErr error
	appends   int
}

func (m *memStore) ReadAll(ctx context.Context) ([]domain.RawRow, error) {
	return m.rows, nil
}

func (m *memStore) Append(ctx context.Context, o domain.Observation) error {
	m.appends++
	if m.appendErr != nil {
		return m.appendErr
	}
	row := domain.RawRow{}
	for i, v := range o.Row() {
		row[domain.StoreColumns[i]] = v
	}
	m.rows = append(m.rows, row)
	return nil
}

func newTestServer(t *testing.T, store *memStore) http.Handler {
	t.Helper()
	loader := app.NewSnapshotLoader(store, nil, 0)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 11, 2, 10, 11, 12, 0, time.UTC))
	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Dash:   app.NewDashboardService(loader, domain.DefaultHeightBins),
		Submit: app.NewSubmissionService(store, loader, clock),
	})
	return srv.Mux()
}

type problemBody struct {
	Status        int               `json:"status"`
	InvalidFields map[string]string `json:"invalid_fields"`
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &memStore{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	if rr.Code != 200 || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestPostObservation_JSONThenStats(t *testing.T) {
	store := &memStore{}
	h := newTestServer(t, store)

	body := `{"reporter":"10000 Hong","category":"retail","latitude":37.4973,"longitude":126.9092,` +
		`"place_name":"Mart","kiosk_max_height":150,"foreign_language_support":["Japanese","English"]}`
	req := httptest.NewRequest("POST", "/v1/observations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["timestamp"] != "2024-11-02 10:11:12" || got["foreign_language_support"] != "English, Japanese" {
		t.Fatalf("unexpected response: %v", got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/stats", nil))
	var st domain.Stats
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.Total != 1 || st.Empty {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if len(st.Categories) != 1 || st.Categories[0].Category != "retail" || st.Categories[0].Color != "orange" {
		t.Fatalf("unexpected categories: %+v", st.Categories)
	}
}

func TestPostObservation_FormInvalid(t *testing.T) {
	store := &memStore{}
	h := newTestServer(t, store)

	form := url.Values{}
	form.Set("reporter", "Kim")
	form.Set("category", "상점")
	form.Set("latitude", "north")
	form.Set("longitude", "126.9")
	req := httptest.NewRequest("POST", "/v1/observations", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type: %s", ct)
	}
	var p problemBody
	_ = json.Unmarshal(rr.Body.Bytes(), &p)
	if p.InvalidFields["latitude"] != "must be a number" {
		t.Fatalf("latitude: %+v", p.InvalidFields)
	}
	for _, f := range []string{"place_name", "kiosk_max_height"} {
		if _, ok := p.InvalidFields[f]; !ok {
			t.Fatalf("expected %s in invalid fields: %+v", f, p.InvalidFields)
		}
	}
	if store.appends != 0 {
		t.Fatalf("nothing may be written on validation failure")
	}
}

func TestPostObservation_FormValidMultiSelect(t *testing.T) {
	store := &memStore{}
	h := newTestServer(t, store)

	form := url.Values{}
	form.Set("reporter", "Kim")
	form.Set("category", "public_institution")
	form.Set("latitude", "37.5")
	form.Set("longitude", "126.9")
	form.Set("place_name", "City Hall")
	form.Set("kiosk_max_height", "171")
	form.Add("foreign_language_support", "Spanish")
	form.Add("foreign_language_support", "English")
	req := httptest.NewRequest("POST", "/v1/observations", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := store.rows[0]["Foreign Language Support"]; got != "English, Spanish" {
		t.Fatalf("languages: %v", got)
	}
}

func TestPostObservation_StoreFailure(t *testing.T) {
	store := &memStore{appendErr: errors.New("quota")}
	h := newTestServer(t, store)

	body := `{"reporter":"Kim","category":"other","latitude":1,"longitude":2,"place_name":"x","kiosk_max_height":100}`
	req := httptest.NewRequest("POST", "/v1/observations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if store.appends != 1 {
		t.Fatalf("expected exactly one append attempt, got %d", store.appends)
	}
}

func TestGetStats_ETag(t *testing.T) {
	store := &memStore{rows: []domain.RawRow{{"category": "retail", "Kiosk Max Height": 150}}}
	h := newTestServer(t, store)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/stats", nil))
	etag := rr.Header().Get("ETag")
	if rr.Code != 200 || !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("status %d etag %q", rr.Code, etag)
	}

	req := httptest.NewRequest("GET", "/v1/stats", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr.Code)
	}
}

func TestGetMarkers_SkipsMissingCoords(t *testing.T) {
	store := &memStore{rows: []domain.RawRow{
		{"category": "음식점", "latitude": 37.5, "longitude": 126.9, "Place Name": "Cafe"},
		{"category": "retail", "latitude": "", "longitude": 126.9},
	}}
	h := newTestServer(t, store)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/map/markers", nil))
	var got struct {
		Center  struct{ Lat, Lon float64 }
		Zoom    int
		Markers []domain.Marker
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Zoom != app.DefaultMapZoom || got.Center.Lat != app.DefaultMapLat {
		t.Fatalf("unexpected view: %+v", got)
	}
	if len(got.Markers) != 1 || got.Markers[0].Color != "red" {
		t.Fatalf("unexpected markers: %+v", got.Markers)
	}
}

func TestExport_Download(t *testing.T) {
	store := &memStore{rows: []domain.RawRow{{"category": "other", "name": "Park"}}}
	h := newTestServer(t, store)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/export", nil))
	if rr.Code != 200 {
		t.Fatalf("status %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="kiosk_data.csv"` {
		t.Fatalf("content disposition: %s", cd)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("content type: %s", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\xEF\xBB\xBFtimestamp,reporter")) {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestGetSummary_Empty(t *testing.T) {
	h := newTestServer(t, &memStore{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/stats/summary", nil))
	if strings.TrimSpace(rr.Body.String()) != `{"total":0,"empty":true}` {
		t.Fatalf("unexpected summary: %s", rr.Body.String())
	}
}
