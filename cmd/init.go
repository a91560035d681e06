package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"

	"github.com/fra-atlas/fra-dss/internal/claims"
	"github.com/fra-atlas/fra-dss/internal/config"
	"github.com/fra-atlas/fra-dss/internal/db"
	"github.com/fra-atlas/fra-dss/internal/geo"
	"github.com/fra-atlas/fra-dss/internal/store"
)

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "fra-dss.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// initSource returns the configured claim source and a function releasing
// whatever it holds open.
func initSource(ctx context.Context, c *config.Config) (claims.Source, func(), error) {
	switch c.Source.Kind {
	case "postgres":
		pool, err := db.Connect(ctx, c.SourceDatabaseURL())
		if err != nil {
			return nil, nil, eris.Wrap(err, "connect claims database")
		}
		return claims.NewPostgresSource(pool), pool.Close, nil
	case "csv", "xlsx":
		return claims.NewFileSource(c.Source.Path), func() {}, nil
	default:
		return nil, nil, eris.Errorf("unsupported claim source: %s", c.Source.Kind)
	}
}

// loadManifest reads a YAML manifest, or builds the default one when path is
// a directory of feature files.
func loadManifest(path string) (*geo.Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stat feature manifest %s", path)
	}
	if info.IsDir() {
		return geo.DefaultManifest(path), nil
	}
	return geo.LoadManifest(path)
}
