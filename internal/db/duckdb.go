// Package db keeps a DuckDB copy of the loaded households so they can be
// inspected with ad-hoc SQL.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-survey/internal/filter"
)

// Config holds database configuration. An empty DataDir opens an in-memory
// database.
type Config struct {
	DataDir    string
	DBName     string
	Extensions []string
}

// Open opens the DuckDB database and loads the configured extensions.
// Extension failures are logged and ignored.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, eris.Wrap(err, "db: create duckdb directory")
		}
		dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "db: open duckdb")
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "db: ping duckdb")
	}

	for _, ext := range cfg.Extensions {
		if _, err := conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			zap.L().Warn("duckdb extension unavailable", zap.String("extension", ext), zap.Error(err))
		}
	}
	return conn, nil
}

const householdsDDL = `CREATE OR REPLACE TABLE households (
	fid        DOUBLE,
	id_rumah   VARCHAR,
	kelurahan  VARCHAR,
	alamat     VARCHAR,
	jumlah_pen DOUBLE,
	jenis_baha VARCHAR,
	ventilasi  VARCHAR,
	tier       VARCHAR,
	lon        DOUBLE,
	lat        DOUBLE
)`

// MirrorHouseholds replaces the households table with records.
func MirrorHouseholds(ctx context.Context, conn *sql.DB, records []filter.Record) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "db: begin mirror")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, householdsDDL); err != nil {
		return eris.Wrap(err, "db: create households")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO households VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "db: prepare insert")
	}
	defer stmt.Close()

	for _, r := range records {
		var lon, lat sql.NullFloat64
		if r.Geometry != nil {
			c := r.Geometry.Bound().Center()
			lon = sql.NullFloat64{Float64: c.Lon(), Valid: true}
			lat = sql.NullFloat64{Float64: c.Lat(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			nullNumber(r, filter.FieldFID),
			r.Attr(filter.FieldHouseID),
			r.Attr(filter.FieldVillage),
			r.Attr(filter.FieldAddress),
			nullNumber(r, filter.FieldOccupants),
			r.Attr(filter.FieldFuel),
			r.Attr(filter.FieldVentilation),
			string(filter.TierOf(r)),
			lon, lat,
		); err != nil {
			return eris.Wrapf(err, "db: insert household %s", r.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "db: commit mirror")
	}
	return nil
}

func nullNumber(r filter.Record, field string) sql.NullFloat64 {
	v, ok := r.Number(field)
	return sql.NullFloat64{Float64: v, Valid: ok}
}
