package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Features FeaturesConfig `yaml:"features" mapstructure:"features"`
	DSS      DSSConfig      `yaml:"dss" mapstructure:"dss"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the result store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SourceConfig configures where claimant records are read from.
type SourceConfig struct {
	Kind        string `yaml:"kind" mapstructure:"kind"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Path is the claims export read by the csv and xlsx kinds.
	Path string `yaml:"path" mapstructure:"path"`
}

// FeaturesConfig configures the per-region geographic feature collections.
type FeaturesConfig struct {
	Manifest string `yaml:"manifest" mapstructure:"manifest"`
	// Strict rejects claimants whose region has no feature collection
	// instead of excluding them from the run.
	Strict   bool `yaml:"strict" mapstructure:"strict"`
	Parallel bool `yaml:"parallel" mapstructure:"parallel"`
}

// DSSConfig holds the scoring constants and composite weights.
type DSSConfig struct {
	ProtectedCategory  string  `yaml:"protected_category" mapstructure:"protected_category"`
	IncomeThreshold    float64 `yaml:"income_threshold" mapstructure:"income_threshold"`
	AgricultureLandUse string  `yaml:"agriculture_land_use" mapstructure:"agriculture_land_use"`
	ApprovedStatus     string  `yaml:"approved_status" mapstructure:"approved_status"`

	JalJeevanMission WeightsConfig `yaml:"jal_jeevan_mission" mapstructure:"jal_jeevan_mission"`
	DAJGUA           WeightsConfig `yaml:"dajgua" mapstructure:"dajgua"`
	MGNREGA          WeightsConfig `yaml:"mgnrega" mapstructure:"mgnrega"`
}

// WeightsConfig holds the weights of one settlement-level composite index.
// IncomeNeed weights (1 - normalized income).
type WeightsConfig struct {
	Distance    float64 `yaml:"distance" mapstructure:"distance"`
	Count       float64 `yaml:"count" mapstructure:"count"`
	Agriculture float64 `yaml:"agriculture" mapstructure:"agriculture"`
	IncomeNeed  float64 `yaml:"income_need" mapstructure:"income_need"`
	Tenure      float64 `yaml:"tenure" mapstructure:"tenure"`
}

// OutputConfig configures the result sink.
type OutputConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
	// RateLimit is the allowed requests per second across all clients;
	// zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FRADSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fra-dss.db")
	v.SetDefault("source.kind", "postgres")
	v.SetDefault("source.database_url", "")
	v.SetDefault("source.path", "")
	v.SetDefault("features.manifest", "features.yaml")
	v.SetDefault("features.strict", false)
	v.SetDefault("features.parallel", false)
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("dss.protected_category", "ST")
	v.SetDefault("dss.income_threshold", 250000)
	v.SetDefault("dss.agriculture_land_use", "Agriculture")
	v.SetDefault("dss.approved_status", "Approved")
	v.SetDefault("dss.jal_jeevan_mission.distance", 0.5)
	v.SetDefault("dss.jal_jeevan_mission.count", 0.3)
	v.SetDefault("dss.jal_jeevan_mission.agriculture", 0.2)
	v.SetDefault("dss.dajgua.income_need", 0.5)
	v.SetDefault("dss.dajgua.tenure", 0.5)
	v.SetDefault("dss.mgnrega.income_need", 0.6)
	v.SetDefault("dss.mgnrega.agriculture", 0.4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks that the fields required by the given command mode are set.
// Modes: "score", "serve", "recommend", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	storeRequired := false
	switch mode {
	case "score":
		switch c.Source.Kind {
		case "postgres":
			if c.SourceDatabaseURL() == "" {
				errs = append(errs, "source.database_url is required for postgres source")
			}
		case "csv", "xlsx":
			if c.Source.Path == "" {
				errs = append(errs, "source.path is required for "+c.Source.Kind+" source")
			}
		default:
			errs = append(errs, "source.kind must be postgres, csv, or xlsx")
		}
		if c.Features.Manifest == "" {
			errs = append(errs, "features.manifest is required")
		}
		switch c.Output.Format {
		case "csv", "xlsx", "table":
		default:
			errs = append(errs, "output.format must be csv, xlsx, or table")
		}
	case "serve":
		storeRequired = true
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "recommend", "migrate":
		storeRequired = true
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if storeRequired {
		switch c.Store.Driver {
		case "postgres", "sqlite":
		default:
			errs = append(errs, "store.driver must be postgres or sqlite")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SourceDatabaseURL returns the claims database URL, falling back to the
// store URL when the source does not set its own and the store is postgres.
func (c *Config) SourceDatabaseURL() string {
	if c.Source.DatabaseURL != "" {
		return c.Source.DatabaseURL
	}
	if c.Store.Driver == "postgres" {
		return c.Store.DatabaseURL
	}
	return ""
}
