//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"kiosk_mapping/internal/app"
	"kiosk_mapping/internal/domain"
	mysqlrepo "kiosk_mapping/internal/storage/mysql"
)

// ---------- small helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=kiosk"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/kiosk?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------

func TestRepo_MySQL_AppendAndReadAll(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	rows, err := repo.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll empty: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(rows))
	}

	obs := []domain.Observation{
		{
			Timestamp: time.Date(2024, 11, 2, 10, 11, 12, 0, time.UTC),
			Reporter:  "20001 김민수",
			Category:  domain.CategoryPublicInstitution,
			Latitude:  37.4973,
			Longitude: 126.9092,
			PlaceName: "구청",
			HeightCM:  171.5,
			Languages: "English, Spanish",
		},
		{
			Timestamp: time.Date(2024, 11, 2, 11, 0, 0, 0, time.UTC),
			Reporter:  "20002 Lee",
			Category:  domain.CategoryRetail,
			Latitude:  37.5,
			Longitude: 126.91,
			PlaceName: "Mart",
			HeightCM:  140,
			Languages: domain.LanguageNone,
		},
	}
	for _, o := range obs {
		if err := repo.Append(ctx, o); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	rows, err = repo.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	recs := app.Normalize(rows)
	if recs[0].Timestamp != "2024-11-02 10:11:12" || recs[0].Reporter != "20001 김민수" {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}
	if recs[0].HeightCM == nil || *recs[0].HeightCM != 171.5 {
		t.Fatalf("height lost: %+v", recs[0])
	}
	if recs[1].Category != "retail" || recs[1].Languages != domain.LanguageNone {
		t.Fatalf("unexpected second record: %+v", recs[1])
	}

	st := app.ComputeStats(recs, domain.DefaultHeightBins)
	if st.Total != 2 || len(st.Categories) != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestRepo_MySQL_NullColumnsAreMissing(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	if _, err := db.Exec(`INSERT INTO observations (submitted_at, reporter, category, place_name)
		VALUES ('2024-11-03 09:00:00', 'Park', 'other', 'Library')`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := repo.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	recs := app.Normalize(rows)
	if len(recs) != 1 || recs[0].HasCoords() || recs[0].HeightCM != nil {
		t.Fatalf("NULL columns must normalize to missing: %+v", recs)
	}
	if len(app.MapMarkers(recs)) != 0 {
		t.Fatalf("records without coordinates must not be mapped")
	}
}
