package provider

import (
	"testing"

	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ProviderRegistryTestSuite struct {
	suite.Suite
}

func TestProviderRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(ProviderRegistryTestSuite))
}

func (suite *ProviderRegistryTestSuite) TestGetSupportedProviders() {
	suite.Equal([]string{"binance", "parquet", "polygon"}, GetSupportedProviders())
}

func (suite *ProviderRegistryTestSuite) TestGetProviderInfo() {
	info, err := GetProviderInfo("polygon")
	suite.NoError(err)
	suite.Equal("Polygon.io", info.DisplayName)
	suite.True(info.RequiresAuth)

	info, err = GetProviderInfo("binance")
	suite.NoError(err)
	suite.False(info.RequiresAuth)
	suite.NotEmpty(info.Description)
}

func (suite *ProviderRegistryTestSuite) TestGetProviderInfo_InvalidProvider() {
	_, err := GetProviderInfo("invalid")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
	suite.Contains(err.Error(), "unsupported provider")
}

func (suite *ProviderRegistryTestSuite) TestNewMarketDataProvider() {
	p, err := NewMarketDataProvider(Config{Type: ProviderBinance})
	suite.NoError(err)
	suite.IsType(&BinanceClient{}, p)

	p, err = NewMarketDataProvider(Config{Type: ProviderPolygon, APIKey: "key"})
	suite.NoError(err)
	suite.IsType(&PolygonClient{}, p)

	p, err = NewMarketDataProvider(Config{Type: ProviderParquet, Dir: suite.T().TempDir()})
	suite.NoError(err)
	suite.IsType(&ParquetProvider{}, p)
}

func (suite *ProviderRegistryTestSuite) TestNewMarketDataProvider_Invalid() {
	tests := []struct {
		name   string
		config Config
	}{
		{"missing type", Config{}},
		{"unknown type", Config{Type: "kraken"}},
		{"polygon without key", Config{Type: ProviderPolygon}},
		{"parquet without dir", Config{Type: ProviderParquet}},
		{"bad base url", Config{Type: ProviderBinance, BaseURL: "not a url"}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := NewMarketDataProvider(tc.config)
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
		})
	}
}
