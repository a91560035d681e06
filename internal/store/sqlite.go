package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fra-atlas/fra-dss/internal/dss"
	"github.com/fra-atlas/fra-dss/internal/model"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dss_runs (
	id          TEXT PRIMARY KEY,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	claimants   INTEGER NOT NULL,
	settlements INTEGER NOT NULL,
	dropped     INTEGER NOT NULL DEFAULT 0,
	excluded    INTEGER NOT NULL DEFAULT 0,
	config_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dss_recommendations (
	claim_id                    INTEGER PRIMARY KEY,
	run_id                      TEXT NOT NULL REFERENCES dss_runs(id),
	claimant_name               TEXT NOT NULL DEFAULT '',
	age                         INTEGER,
	gender                      TEXT NOT NULL DEFAULT '',
	state                       TEXT NOT NULL,
	district                    TEXT NOT NULL DEFAULT '',
	block_tehsil                TEXT NOT NULL DEFAULT '',
	gram_panchayat              TEXT NOT NULL DEFAULT '',
	village                     TEXT NOT NULL,
	category                    TEXT NOT NULL DEFAULT '',
	tax_payer                   TEXT NOT NULL DEFAULT '',
	claim_type                  TEXT NOT NULL DEFAULT '',
	status_of_claim             TEXT NOT NULL DEFAULT '',
	annual_income               REAL NOT NULL,
	jal_jeevan_mission_priority REAL NOT NULL,
	dajgua_priority             REAL NOT NULL,
	mgnrega_priority            REAL NOT NULL,
	pm_kisan_priority           REAL NOT NULL,
	pmay_priority               REAL NOT NULL,
	updated_at                  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dss_settlement_stats (
	run_id                      TEXT NOT NULL REFERENCES dss_runs(id),
	state                       TEXT NOT NULL,
	district                    TEXT NOT NULL,
	village                     TEXT NOT NULL,
	avg_distance_meters         REAL NOT NULL,
	claimant_count              INTEGER NOT NULL,
	percent_agri                REAL NOT NULL,
	avg_annual_income           REAL NOT NULL,
	percent_insecure_tenure     REAL NOT NULL,
	dist_norm                   REAL NOT NULL,
	count_norm                  REAL NOT NULL,
	agri_norm                   REAL NOT NULL,
	income_norm                 REAL NOT NULL,
	tenure_norm                 REAL NOT NULL,
	jal_jeevan_mission_priority REAL NOT NULL,
	dajgua_priority             REAL NOT NULL,
	mgnrega_priority            REAL NOT NULL,
	PRIMARY KEY (run_id, state, district, village)
);

CREATE INDEX IF NOT EXISTS idx_dss_runs_created_at ON dss_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_dss_recommendations_run_id ON dss_recommendations(run_id);
CREATE INDEX IF NOT EXISTS idx_dss_settlement_stats_key ON dss_settlement_stats(state, district, village);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// placeholders returns "?, ?, ..." for n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func upsertSQL(table string, columns []string, conflict string) string {
	set := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != conflict {
			set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table, strings.Join(columns, ", "), placeholders(len(columns)), conflict, strings.Join(set, ", "))
}

func (s *SQLiteStore) SaveRun(ctx context.Context, res *dss.Result) error {
	run := newRun(res)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO dss_runs (id, created_at, claimants, settlements, dropped, excluded, config_hash) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Claimants, run.Settlements, run.Dropped, run.Excluded, run.ConfigHash,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	upsert, err := tx.PrepareContext(ctx, upsertSQL("dss_recommendations", recommendationColumns, "claim_id"))
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare recommendation upsert")
	}
	defer upsert.Close()
	for i := range res.Rows {
		if _, err := upsert.ExecContext(ctx, recommendationValues(run.ID, &res.Rows[i], run.CreatedAt)...); err != nil {
			return eris.Wrapf(err, "sqlite: upsert recommendation %d", res.Rows[i].ClaimID)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO dss_settlement_stats (%s) VALUES (%s)",
		strings.Join(settlementColumns, ", "), placeholders(len(settlementColumns))))
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare settlement insert")
	}
	defer insert.Close()
	for i := range res.Settlements {
		if _, err := insert.ExecContext(ctx, settlementValues(run.ID, &res.Settlements[i])...); err != nil {
			return eris.Wrapf(err, "sqlite: insert settlement %s", res.Settlements[i].Key)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit run")
	}

	zap.L().Info("sqlite: saved run",
		zap.String("run_id", run.ID),
		zap.Int("rows", len(res.Rows)),
		zap.Int("settlements", len(res.Settlements)),
	)
	return nil
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*model.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, runSelect+` ORDER BY created_at DESC, rowid DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest run")
	}
	return r, nil
}

func (s *SQLiteStore) GetResult(ctx context.Context, claimID int64) (*model.ResultRow, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx, resultSelect+` WHERE claim_id = ?`, claimID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get result %d", claimID)
	}
	return r, nil
}

func (s *SQLiteStore) GetSettlementStats(ctx context.Context, key model.SettlementKey) (*model.SettlementPriority, error) {
	sp, err := scanSettlement(s.db.QueryRowContext(ctx, settlementSelect+`
		JOIN dss_runs r ON r.id = dss_settlement_stats.run_id
		WHERE state = ? AND district = ? AND village = ?
		ORDER BY r.created_at DESC, r.rowid DESC LIMIT 1`,
		key.State, key.District, key.Village,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get settlement stats %s", key)
	}
	return sp, nil
}

func (s *SQLiteStore) Summary(ctx context.Context) (*model.Summary, error) {
	sum, err := scanSummary(s.db.QueryRowContext(ctx, summarySelect))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summary")
	}

	run, err := s.LatestRun(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		sum.LatestRun = run
	}
	return sum, nil
}
