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
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// EnrichConfig configures the enrichment run itself.
type EnrichConfig struct {
	KeyColumn string `yaml:"key_column" mapstructure:"key_column"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	OutDir    string `yaml:"out_dir" mapstructure:"out_dir"`
}

// SourcesConfig configures the lookup source chain.
type SourcesConfig struct {
	// CatalogPath points at a YAML catalog overriding the built-in sources.
	CatalogPath string  `yaml:"catalog_path" mapstructure:"catalog_path"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	Attempts    int     `yaml:"attempts" mapstructure:"attempts"`
	DelayMS     int     `yaml:"delay_ms" mapstructure:"delay_ms"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ScrapeRPS   float64 `yaml:"scrape_rps" mapstructure:"scrape_rps"`

	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// FetchConfig configures remote input downloads.
type FetchConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the run-history HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("enrich.key_column", "barcode")
	v.SetDefault("enrich.batch_size", 25)
	v.SetDefault("enrich.out_dir", ".")
	v.SetDefault("sources.user_agent", "catalog-enrich/1.0 (catalog@smith-pharmacy.example)")
	v.SetDefault("sources.attempts", 2)
	v.SetDefault("sources.delay_ms", 1000)
	v.SetDefault("sources.timeout_secs", 10)
	v.SetDefault("sources.scrape_rps", 1.0)
	v.SetDefault("sources.breaker_threshold", 5)
	v.SetDefault("sources.breaker_reset_secs", 30)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "catalog-enrich.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
