package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fra-atlas/fra-dss/internal/db"
	"github.com/fra-atlas/fra-dss/internal/dss"
	"github.com/fra-atlas/fra-dss/internal/model"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. The store does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS dss_runs (
	id          TEXT PRIMARY KEY,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	claimants   INTEGER NOT NULL,
	settlements INTEGER NOT NULL,
	dropped     INTEGER NOT NULL DEFAULT 0,
	excluded    INTEGER NOT NULL DEFAULT 0,
	config_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dss_recommendations (
	claim_id                    BIGINT PRIMARY KEY,
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
	annual_income               DOUBLE PRECISION NOT NULL,
	jal_jeevan_mission_priority DOUBLE PRECISION NOT NULL,
	dajgua_priority             DOUBLE PRECISION NOT NULL,
	mgnrega_priority            DOUBLE PRECISION NOT NULL,
	pm_kisan_priority           DOUBLE PRECISION NOT NULL,
	pmay_priority               DOUBLE PRECISION NOT NULL,
	updated_at                  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dss_settlement_stats (
	run_id                      TEXT NOT NULL REFERENCES dss_runs(id),
	state                       TEXT NOT NULL,
	district                    TEXT NOT NULL,
	village                     TEXT NOT NULL,
	avg_distance_meters         DOUBLE PRECISION NOT NULL,
	claimant_count              INTEGER NOT NULL,
	percent_agri                DOUBLE PRECISION NOT NULL,
	avg_annual_income           DOUBLE PRECISION NOT NULL,
	percent_insecure_tenure     DOUBLE PRECISION NOT NULL,
	dist_norm                   DOUBLE PRECISION NOT NULL,
	count_norm                  DOUBLE PRECISION NOT NULL,
	agri_norm                   DOUBLE PRECISION NOT NULL,
	income_norm                 DOUBLE PRECISION NOT NULL,
	tenure_norm                 DOUBLE PRECISION NOT NULL,
	jal_jeevan_mission_priority DOUBLE PRECISION NOT NULL,
	dajgua_priority             DOUBLE PRECISION NOT NULL,
	mgnrega_priority            DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, state, district, village)
);

CREATE INDEX IF NOT EXISTS idx_dss_runs_created_at ON dss_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_dss_recommendations_run_id ON dss_recommendations(run_id);
CREATE INDEX IF NOT EXISTS idx_dss_settlement_stats_key ON dss_settlement_stats(state, district, village);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var recommendationsUpsert = db.UpsertConfig{
	Table:        "dss_recommendations",
	Columns:      recommendationColumns,
	ConflictKeys: []string{"claim_id"},
}

func (s *PostgresStore) SaveRun(ctx context.Context, res *dss.Result) error {
	run := newRun(res)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO dss_runs (id, created_at, claimants, settlements, dropped, excluded, config_hash) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.CreatedAt, run.Claimants, run.Settlements, run.Dropped, run.Excluded, run.ConfigHash,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	rows := make([][]any, len(res.Rows))
	for i := range res.Rows {
		rows[i] = recommendationValues(run.ID, &res.Rows[i], run.CreatedAt)
	}
	if _, err := db.UpsertTx(ctx, tx, recommendationsUpsert, rows); err != nil {
		return eris.Wrap(err, "postgres: upsert recommendations")
	}

	stats := make([][]any, len(res.Settlements))
	for i := range res.Settlements {
		stats[i] = settlementValues(run.ID, &res.Settlements[i])
	}
	if _, err := db.CopyFrom(ctx, tx, "dss_settlement_stats", settlementColumns, stats); err != nil {
		return eris.Wrap(err, "postgres: copy settlement stats")
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit run")
	}

	zap.L().Info("postgres: saved run",
		zap.String("run_id", run.ID),
		zap.Int("rows", len(rows)),
		zap.Int("settlements", len(stats)),
	)
	return nil
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*model.Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, runSelect+` ORDER BY created_at DESC, id DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest run")
	}
	return r, nil
}

func (s *PostgresStore) GetResult(ctx context.Context, claimID int64) (*model.ResultRow, error) {
	r, err := scanResult(s.pool.QueryRow(ctx, resultSelect+` WHERE claim_id = $1`, claimID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get result %d", claimID)
	}
	return r, nil
}

func (s *PostgresStore) GetSettlementStats(ctx context.Context, key model.SettlementKey) (*model.SettlementPriority, error) {
	sp, err := scanSettlement(s.pool.QueryRow(ctx, settlementSelect+`
		JOIN dss_runs r ON r.id = dss_settlement_stats.run_id
		WHERE state = $1 AND district = $2 AND village = $3
		ORDER BY r.created_at DESC, r.id DESC LIMIT 1`,
		key.State, key.District, key.Village,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get settlement stats %s", key)
	}
	return sp, nil
}

func (s *PostgresStore) Summary(ctx context.Context) (*model.Summary, error) {
	sum, err := scanSummary(s.pool.QueryRow(ctx, summarySelect))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summary")
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
