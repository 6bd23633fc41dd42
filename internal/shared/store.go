package shared

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"kiosk_mapping/internal/adapters/sheets"
	"kiosk_mapping/internal/domain"
	mysqlrepo "kiosk_mapping/internal/storage/mysql"
)

// OpenStore builds the RecordStore named by STORE_BACKEND. The returned func releases it.
func OpenStore(ctx context.Context, cfg Config) (domain.RecordStore, func(), error) {
	switch cfg.StoreBackend {
	case BackendSheets:
		cl, err := sheets.New(cfg.SheetsBase, cfg.SheetsID, cfg.SheetsRange, cfg.SheetsToken, cfg.SheetsRPS)
		if err != nil {
			return nil, nil, fmt.Errorf("sheets client: %w", err)
		}
		log.Info().Str("range", cfg.SheetsRange).Msg("using sheets record store")
		return cl, func() {}, nil

	case BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		repo := mysqlrepo.New(db)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := repo.Ping(pctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		return repo, func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}
