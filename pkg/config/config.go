package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/pkg/util"
)

// APIKeyEnv is the environment variable holding the price API credential.
const APIKeyEnv = "FMP_API_KEY"

type Config struct {
	Environment string `yaml:"environment" default:"dev"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"log"`
	Data struct {
		Symbol      string `yaml:"symbol" validate:"required"`
		StartDate   string `yaml:"start_date" validate:"required"`
		EndDate     string `yaml:"end_date" validate:"required"`
		RawDataPath string `yaml:"raw_data_path" validate:"required"`
		Source      string `yaml:"source" default:"fmp" validate:"oneof=fmp clickhouse"`
	} `yaml:"data"`
	FMP struct {
		APIKey    string        `yaml:"-"`
		BaseURL   string        `yaml:"base_url" default:"https://financialmodelingprep.com"`
		Timeout   time.Duration `yaml:"timeout" default:"30s"`
		RateLimit int           `yaml:"rate_limit" default:"5" validate:"gt=0"`
	} `yaml:"fmp"`
	Features struct {
		VolatilityWindow int `yaml:"volatility_window" default:"20" validate:"gte=2"`
		MAFast           int `yaml:"ma_fast" default:"9" validate:"gte=0"`
		MASlow           int `yaml:"ma_slow" default:"21" validate:"gte=0"`
	} `yaml:"features"`
	Model struct {
		NStates        int     `yaml:"n_states" default:"4" validate:"gte=2"`
		CovarianceType string  `yaml:"covariance_type" default:"full" validate:"oneof=full diag diagonal"`
		MaxIter        int     `yaml:"max_iter" default:"500" validate:"gte=1"`
		Tolerance      float64 `yaml:"tolerance" default:"0.0001" validate:"gt=0"`
		Seed           int64   `yaml:"seed" default:"42"`
	} `yaml:"model"`
	Backtesting struct {
		AnnualTradingDays int `yaml:"annual_trading_days" default:"252" validate:"gt=0"`
	} `yaml:"backtesting"`
	Cache struct {
		Redis struct {
			Enabled  bool          `yaml:"enabled"`
			Addr     string        `yaml:"addr" default:"localhost:6379"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db"`
			Prefix   string        `yaml:"prefix" default:"regime"`
			TTL      time.Duration `yaml:"ttl" default:"24h"`

			PoolSize     int           `yaml:"pool_size" default:"4" validate:"gt=0"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"1" validate:"gte=0"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"regime"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		Table       string        `yaml:"table" default:"daily_bars"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"regime.reports"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		MaxAttempts  int           `yaml:"max_attempts" default:"1" validate:"gte=1"`
	} `yaml:"kafka"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.FMP.APIKey = os.Getenv(APIKeyEnv)
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Data.Symbol = v
	}
	if v := os.Getenv("RAW_DATA_PATH"); v != "" {
		c.Data.RawDataPath = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, c.Validate()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	from, ok := util.ParseDate(c.Data.StartDate)
	if !ok {
		return fmt.Errorf("data.start_date %q is not a YYYY-MM-DD date", c.Data.StartDate)
	}
	to, ok := util.ParseDate(c.Data.EndDate)
	if !ok {
		return fmt.Errorf("data.end_date %q is not a YYYY-MM-DD date", c.Data.EndDate)
	}
	if from.After(to) {
		return fmt.Errorf("data.start_date must be <= data.end_date")
	}
	if c.Features.MAFast > 0 && c.Features.MASlow > 0 && c.Features.MAFast >= c.Features.MASlow {
		return fmt.Errorf("features.ma_fast must be < features.ma_slow")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// DateRange returns the parsed start and end dates.
func (c *Config) DateRange() (time.Time, time.Time) {
	from, _ := util.ParseDate(c.Data.StartDate)
	to, _ := util.ParseDate(c.Data.EndDate)
	return from, to
}

// TrendEnabled reports whether both moving averages are configured.
func (c *Config) TrendEnabled() bool {
	return c.Features.MAFast > 0 && c.Features.MASlow > 0
}

// RequireAPIKey fails when the FMP source is selected without a key.
func (c *Config) RequireAPIKey() error {
	if c.Data.Source == "fmp" && c.FMP.APIKey == "" {
		return errs.Configurationf("ERR_API_KEY_MISSING", "%s is not set", APIKeyEnv)
	}
	return nil
}
