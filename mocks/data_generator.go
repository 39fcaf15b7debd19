package mocks

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-ensemble/internal/types"
)

// DataGenerator generates synthetic bar series for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// Symbol is the instrument symbol (e.g., "BTCUSDT")
	Symbol string
	// StartTime is the time of the first bar
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per bar)
	Volatility float64
	// Trend is the total drift over the series (-0.5 to 0.5 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       time.Hour,
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.01,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates a bar series following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) types.BarSeries {
	bars := make([]types.Bar, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a standard normal draw
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		close := open * (1 + config.Volatility*z + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := g.rng.Float64() * config.Volatility * open * 0.5
		lowExtension := g.rng.Float64() * config.Volatility * open * 0.5

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension

		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return types.BarSeries{
		Symbol:   config.Symbol,
		Interval: intervalLabel(config.Interval),
		Bars:     bars,
	}
}

func intervalLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	default:
		return fmt.Sprintf("%dm", d/time.Minute)
	}
}

// GenerateUniverse generates one series per symbol with slightly varied price and volatility.
func (g *DataGenerator) GenerateUniverse(symbols []string, baseConfig GeneratorConfig) map[string]types.BarSeries {
	out := make(map[string]types.BarSeries, len(symbols))

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		out[symbol] = g.Generate(config)
	}

	return out
}

// RisingSeries builds a steady uptrend: two bars up 0.9%, one bar down 1.0%,
// with volume growing 3% per bar.
func RisingSeries(symbol string, count int) types.BarSeries {
	bars := make([]types.Bar, count)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := 100.0

	for i := 0; i < count; i++ {
		close := prev

		switch {
		case i == 0:
		case i%3 == 2:
			close = prev * 0.99
		default:
			close = prev * 1.009
		}

		bars[i] = shapedBar(start.Add(time.Duration(i)*time.Hour), prev, close, 1000*math.Pow(1.03, float64(i)))
		prev = close
	}

	return types.BarSeries{Symbol: symbol, Interval: "1h", Bars: bars}
}

// FlatSeries builds a range-bound series alternating between 100.2 and 99.8 with
// constant volume. Wicks alternate so that directional movement cancels out.
func FlatSeries(symbol string, count int) types.BarSeries {
	bars := make([]types.Bar, count)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := 100.0

	for i := 0; i < count; i++ {
		bar := types.Bar{Time: start.Add(time.Duration(i) * time.Hour), Open: prev, Volume: 10000}

		if i%2 == 0 {
			bar.Close, bar.High, bar.Low = 100.2, 100.4, 99.7
		} else {
			bar.Close, bar.High, bar.Low = 99.8, 100.3, 99.6
		}

		bars[i] = bar
		prev = bar.Close
	}

	return types.BarSeries{Symbol: symbol, Interval: "1h", Bars: bars}
}

func shapedBar(t time.Time, open, close, volume float64) types.Bar {
	return types.Bar{
		Time:   t,
		Open:   open,
		High:   math.Max(open, close) * 1.002,
		Low:    math.Min(open, close) * 0.998,
		Close:  close,
		Volume: volume,
	}
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
