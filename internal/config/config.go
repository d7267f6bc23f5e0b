// Package config loads application configuration with viper and sets up
// the global zap logger.
package config

import (
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ReconcileConfig holds the matching, merge, and imputation parameters.
type ReconcileConfig struct {
	ZipK                    int     `yaml:"zip_k" mapstructure:"zip_k"`
	ZipMaxDistanceMeters    float64 `yaml:"zip_max_distance_m" mapstructure:"zip_max_distance_m"`
	RatingK                 int     `yaml:"rating_k" mapstructure:"rating_k"`
	TypeK                   int     `yaml:"type_k" mapstructure:"type_k"`
	MatchThreshold          int     `yaml:"match_threshold" mapstructure:"match_threshold"`
	NameSimilarityThreshold float64 `yaml:"name_similarity_threshold" mapstructure:"name_similarity_threshold"`
	CoordinateMatchMeters   float64 `yaml:"coordinate_match_m" mapstructure:"coordinate_match_m"`
	RatingOffset            float64 `yaml:"rating_offset" mapstructure:"rating_offset"`
	IncludeInactive         bool    `yaml:"include_inactive" mapstructure:"include_inactive"`
	DefaultClinicType       string  `yaml:"default_clinic_type" mapstructure:"default_clinic_type"`
	Standardize             bool    `yaml:"standardize" mapstructure:"standardize"`
	StrictValidation        bool    `yaml:"strict_validation" mapstructure:"strict_validation"`
	Workers                 int     `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate rejects parameter values no run can use.
func (c ReconcileConfig) Validate() error {
	switch {
	case c.ZipK < 1:
		return eris.Errorf("config: reconcile.zip_k must be at least 1, got %d", c.ZipK)
	case c.RatingK < 1:
		return eris.Errorf("config: reconcile.rating_k must be at least 1, got %d", c.RatingK)
	case c.TypeK < 1:
		return eris.Errorf("config: reconcile.type_k must be at least 1, got %d", c.TypeK)
	case c.ZipMaxDistanceMeters <= 0:
		return eris.Errorf("config: reconcile.zip_max_distance_m must be positive, got %g", c.ZipMaxDistanceMeters)
	case c.CoordinateMatchMeters <= 0:
		return eris.Errorf("config: reconcile.coordinate_match_m must be positive, got %g", c.CoordinateMatchMeters)
	case c.NameSimilarityThreshold < 0 || c.NameSimilarityThreshold > 1:
		return eris.Errorf("config: reconcile.name_similarity_threshold must be within [0, 1], got %g", c.NameSimilarityThreshold)
	case c.MatchThreshold < 0 || c.MatchThreshold > 100:
		return eris.Errorf("config: reconcile.match_threshold must be within [0, 100], got %d", c.MatchThreshold)
	case c.RatingOffset < 0 || c.RatingOffset > model.MaxRating-model.MinRating:
		return eris.Errorf("config: reconcile.rating_offset out of range: %g", c.RatingOffset)
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "clinics.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("reconcile.zip_k", 3)
	v.SetDefault("reconcile.zip_max_distance_m", 5000)
	v.SetDefault("reconcile.rating_k", 5)
	v.SetDefault("reconcile.type_k", 3)
	v.SetDefault("reconcile.match_threshold", 50)
	v.SetDefault("reconcile.name_similarity_threshold", 0.75)
	v.SetDefault("reconcile.coordinate_match_m", 50)
	v.SetDefault("reconcile.rating_offset", 0.1)
	v.SetDefault("reconcile.include_inactive", true)
	v.SetDefault("reconcile.default_clinic_type", model.TypePrimaryCare)
	v.SetDefault("reconcile.standardize", true)
	v.SetDefault("reconcile.strict_validation", false)
	v.SetDefault("reconcile.workers", runtime.NumCPU())

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
	if err := cfg.Reconcile.Validate(); err != nil {
		return nil, err
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
