// Package config holds the explicit engine configuration passed to the harness, the scanner
// and the CLI. Defaults match the documented design constants.
package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-ensemble/internal/version"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"gopkg.in/yaml.v3"
)

// PolygonAPIKeyEnv overrides Provider.APIKey when set.
const PolygonAPIKeyEnv = "POLYGON_API_KEY"

type Config struct {
	// Version is the engine version the file was written for. Empty skips the check.
	Version  string   `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,description=Engine version the file was written for e.g. v0.3.0"`
	Universe []string `yaml:"universe" json:"universe" default:"[\"BTCUSDT\",\"ETHUSDT\",\"SOLUSDT\",\"BNBUSDT\",\"XRPUSDT\"]" validate:"required,min=1,dive,required" jsonschema:"title=Universe,description=Instruments to backtest and scan,minItems=1"`
	Interval string   `yaml:"interval" json:"interval" default:"1h" validate:"required" jsonschema:"title=Interval,description=Bar interval e.g. 1h or 1d"`
	// BarLimit is the number of bars fetched per instrument
	BarLimit int             `yaml:"bar_limit" json:"bar_limit" default:"1000" validate:"min=100" jsonschema:"title=Bar Limit,minimum=100"`
	Provider provider.Config `yaml:"provider" json:"provider"`
	Storage  StorageConfig   `yaml:"storage" json:"storage"`
	// Workers bounds concurrent market data requests and per-instrument backtests
	Workers        int            `yaml:"workers" json:"workers" default:"4" validate:"min=1,max=64" jsonschema:"minimum=1,maximum=64"`
	RequestTimeout time.Duration  `yaml:"request_timeout" json:"request_timeout" default:"15s" validate:"min=0"`
	Backtest       BacktestConfig `yaml:"backtest" json:"backtest"`
	Scanner        ScannerConfig  `yaml:"scanner" json:"scanner"`
	LogLevel       string         `yaml:"log_level" json:"log_level" default:"info" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

type StorageConfig struct {
	// Path of the DuckDB file, ":memory:" for an ephemeral store
	Path string `yaml:"path" json:"path" default:"ensemble.duckdb" validate:"required"`
}

type BacktestConfig struct {
	SplitRatio float64 `yaml:"split_ratio" json:"split_ratio" default:"0.7" validate:"gt=0,lt=1" jsonschema:"exclusiveMinimum=0,exclusiveMaximum=1"`
	// PurgeGap is the number of bars skipped between train and test
	PurgeGap int `yaml:"purge_gap" json:"purge_gap" default:"5" validate:"min=0"`
	MinBars  int `yaml:"min_bars" json:"min_bars" default:"200" validate:"min=100"`
}

type ScannerConfig struct {
	MinBars  int           `yaml:"min_bars" json:"min_bars" default:"80" validate:"min=61"`
	MinAgree int           `yaml:"min_agree" json:"min_agree" default:"3" validate:"min=1,max=8"`
	MinScore float64       `yaml:"min_score" json:"min_score" default:"0.25" validate:"gte=0,lte=1"`
	Expiry   time.Duration `yaml:"expiry" json:"expiry" default:"96h" validate:"gt=0"`
}

// Default returns the configuration with every default applied.
func Default() Config {
	var cfg Config

	// defaults only fails on malformed tags
	if err := defaults.Set(&cfg); err != nil {
		panic(err)
	}

	return cfg
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
// POLYGON_API_KEY is applied after the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config %s", path)
		}

		if err := version.CheckConfig(version.GetVersion(), cfg.Version); err != nil {
			return Config{}, err
		}
	}

	if key := os.Getenv(PolygonAPIKeyEnv); key != "" {
		cfg.Provider.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the struct tags and the interval.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if _, err := provider.ParseInterval(c.Interval); err != nil {
		return err
	}

	return nil
}

// ParsedInterval returns the validated interval.
func (c Config) ParsedInterval() provider.Interval {
	return provider.Interval(c.Interval)
}

// Symbols returns the universe upper-cased and trimmed.
func (c Config) Symbols() []string {
	out := make([]string, 0, len(c.Universe))
	for _, s := range c.Universe {
		out = append(out, strings.ToUpper(strings.TrimSpace(s)))
	}

	return out
}

// Schema returns the JSON schema of Config.
func Schema() (string, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	schema := r.Reflect(&Config{})
	schema.Title = "argo-ensemble-config"
	schema.Description = "Configuration of the signal ensemble and walk-forward backtest engine"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}
