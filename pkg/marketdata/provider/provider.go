package provider

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
	ProviderPolygon ProviderType = "polygon"
	ProviderParquet ProviderType = "parquet"
)

// Provider fetches bars and quotes for the engine.
type Provider interface {
	// FetchBars returns the most recent limit bars of symbol, oldest first.
	// An instrument with no data returns an ErrCodeNoDataFound error.
	FetchBars(ctx context.Context, symbol string, interval Interval, limit int) (types.BarSeries, error)
	// LatestPrices returns the last traded price per symbol. Symbols without a quote are absent.
	LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Config selects and configures a provider.
type Config struct {
	Type ProviderType `yaml:"type" json:"type" default:"binance" validate:"required,oneof=binance polygon parquet" jsonschema:"enum=binance,enum=polygon,enum=parquet"`
	// APIKey is required by polygon. Falls back to the POLYGON_API_KEY environment variable.
	APIKey string `yaml:"api_key" json:"api_key,omitempty" validate:"required_if=Type polygon"`
	// BaseURL overrides the binance REST endpoint.
	BaseURL string `yaml:"base_url" json:"base_url,omitempty" validate:"omitempty,url"`
	// Dir holds one <SYMBOL>.parquet file per instrument for the parquet provider.
	Dir string `yaml:"dir" json:"dir,omitempty" validate:"required_if=Type parquet"`
}

// NewMarketDataProvider creates a new market data provider based on the config type.
func NewMarketDataProvider(config Config) (Provider, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProvider, "invalid provider config", err)
	}

	switch config.Type {
	case ProviderBinance:
		return NewBinanceClient(config.BaseURL)
	case ProviderPolygon:
		return NewPolygonClient(config.APIKey)
	case ProviderParquet:
		return NewParquetProvider(config.Dir)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", config.Type)
	}
}

// checkBar rejects bars carrying NaN or infinite prices or volume.
func checkBar(symbol string, bar types.Bar) error {
	for _, v := range [...]float64{bar.Open, bar.High, bar.Low, bar.Close, bar.Volume} {
		if !finite(v) {
			return errors.Newf(errors.ErrCodeMarketDataParseFailed,
				"non-finite value in bar of %s at %s", symbol, bar.Time.Format("2006-01-02T15:04:05Z"))
		}
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
