package provider

import (
	"sort"

	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// ProviderInfo contains metadata about a market data provider.
type ProviderInfo struct {
	Name         string `json:"name" yaml:"name"`
	DisplayName  string `json:"displayName" yaml:"display_name"`
	Description  string `json:"description" yaml:"description"`
	RequiresAuth bool   `json:"requiresAuth" yaml:"requires_auth"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderBinance: {
		Name:         string(ProviderBinance),
		DisplayName:  "Binance",
		Description:  "Cryptocurrency exchange with klines for spot trading pairs",
		RequiresAuth: false,
	},
	ProviderPolygon: {
		Name:         string(ProviderPolygon),
		DisplayName:  "Polygon.io",
		Description:  "US stock market aggregates and last trades",
		RequiresAuth: true,
	},
	ProviderParquet: {
		Name:         string(ProviderParquet),
		DisplayName:  "Parquet snapshot",
		Description:  "Offline replay of a directory written by the snapshot command",
		RequiresAuth: false,
	},
}

// GetSupportedProviders returns the names of all providers, sorted.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}

	return info, nil
}
