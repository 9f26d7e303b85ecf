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
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Execute   ExecuteConfig   `yaml:"execute" mapstructure:"execute"`
	Conflict  ConflictConfig  `yaml:"conflict" mapstructure:"conflict"`
	Letterbox LetterboxConfig `yaml:"letterbox" mapstructure:"letterbox"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig holds the Immich server connection settings.
type ServerConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// ExecuteConfig configures the execution pipeline.
type ExecuteConfig struct {
	RequestsPerSec int    `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	MaxConcurrent  int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	BackupDir      string `yaml:"backup_dir" mapstructure:"backup_dir"`
	ForceDelete    bool   `yaml:"force_delete" mapstructure:"force_delete"`
	SkipConflicted bool   `yaml:"skip_conflicted" mapstructure:"skip_conflicted"`
	PreserveAlbums bool   `yaml:"preserve_albums" mapstructure:"preserve_albums"`
}

// ConflictConfig tunes conflict detection.
type ConflictConfig struct {
	CaptureTimeToleranceSecs int `yaml:"capture_time_tolerance_secs" mapstructure:"capture_time_tolerance_secs"`
}

// LetterboxConfig configures crop-pair detection.
type LetterboxConfig struct {
	Make     string `yaml:"make" mapstructure:"make"`
	Model    string `yaml:"model" mapstructure:"model"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// StoreConfig configures the local run-history store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("IMMICH_DEDUPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The empty server defaults matter: AutomaticEnv only resolves
	// keys viper already knows, so without them env-only credentials would
	// never be read.
	v.SetDefault("server.url", "")
	v.SetDefault("server.api_key", "")
	v.SetDefault("execute.requests_per_sec", 10)
	v.SetDefault("execute.max_concurrent", 5)
	v.SetDefault("execute.backup_dir", "./backups")
	v.SetDefault("execute.force_delete", false)
	v.SetDefault("execute.skip_conflicted", false)
	v.SetDefault("execute.preserve_albums", false)
	v.SetDefault("conflict.capture_time_tolerance_secs", 10)
	v.SetDefault("letterbox.make", "Apple")
	v.SetDefault("letterbox.model", "iPhone")
	v.SetDefault("letterbox.page_size", 1000)
	v.SetDefault("store.path", "./immich-dedupe.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks the configuration for a command mode. "remote" covers
// every command that talks to the Immich server; "local" covers commands
// that only touch the run-history store.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "remote":
		if c.Server.URL == "" {
			problems = append(problems, "server.url is required (set IMMICH_DEDUPE_SERVER_URL or config.yaml)")
		}
		if c.Server.APIKey == "" {
			problems = append(problems, "server.api_key is required (set IMMICH_DEDUPE_SERVER_API_KEY or config.yaml)")
		}
	case "local":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Execute.RequestsPerSec < 1 || c.Execute.RequestsPerSec > 100 {
		problems = append(problems, "execute.requests_per_sec must be between 1 and 100")
	}
	if c.Execute.MaxConcurrent < 1 || c.Execute.MaxConcurrent > 50 {
		problems = append(problems, "execute.max_concurrent must be between 1 and 50")
	}
	if c.Conflict.CaptureTimeToleranceSecs < 0 {
		problems = append(problems, "conflict.capture_time_tolerance_secs must be >= 0")
	}
	if c.Letterbox.PageSize < 1 || c.Letterbox.PageSize > 5000 {
		problems = append(problems, "letterbox.page_size must be between 1 and 5000")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
