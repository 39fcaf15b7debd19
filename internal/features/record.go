package features

import "github.com/rxtech-lab/argo-ensemble/internal/types"

// Record is the fixed 32-field feature vector of one bar.
// Flags are stored as 0 or 1.
type Record struct {
	// Index is the bar index the record was extracted at
	Index int

	// momentum
	RSI14         float64
	RSI7          float64
	RSISlope      float64
	MACDHist      float64
	MACDHistSlope float64
	StochK        float64
	RSIOfRSI      float64
	ROC5          float64

	// trend
	EMA9x21Cross  float64
	EMA21x50Cross float64
	PriceVsEMA50  float64
	ADX           float64
	DIDiff        float64
	Slope10       float64

	// volatility
	ATRPct         float64
	BBWidth        float64
	BBPosition     float64
	BBSqueeze      float64
	KeltnerSqueeze float64
	RealizedVol    float64

	// volume
	VolumeRatio   float64
	VolumeChange3 float64
	OBVSlope      float64
	OBVDivergence float64
	MFI           float64
	VWAPDistance  float64

	// structure
	HigherLows       float64
	LowerHighs       float64
	RangeCompression float64
	RSIDivergence    float64
	NearSupport      float64
	BodyWickRatio    float64
}

var names = []string{
	"rsi_14", "rsi_7", "rsi_slope", "macd_hist", "macd_hist_slope", "stoch_k", "rsi_of_rsi", "roc_5",
	"ema_9_21_cross", "ema_21_50_cross", "price_vs_ema50", "adx", "di_diff", "slope_10",
	"atr_pct", "bb_width", "bb_position", "bb_squeeze", "keltner_squeeze", "realized_vol",
	"volume_ratio", "volume_change_3", "obv_slope", "obv_divergence", "mfi", "vwap_distance",
	"higher_lows", "lower_highs", "range_compression", "rsi_divergence", "near_support", "body_wick_ratio",
}

// Names returns the ordered feature names.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)

	return out
}

// Values returns the feature values in the order of Names.
func (r Record) Values() []float64 {
	return []float64{
		r.RSI14, r.RSI7, r.RSISlope, r.MACDHist, r.MACDHistSlope, r.StochK, r.RSIOfRSI, r.ROC5,
		r.EMA9x21Cross, r.EMA21x50Cross, r.PriceVsEMA50, r.ADX, r.DIDiff, r.Slope10,
		r.ATRPct, r.BBWidth, r.BBPosition, r.BBSqueeze, r.KeltnerSqueeze, r.RealizedVol,
		r.VolumeRatio, r.VolumeChange3, r.OBVSlope, r.OBVDivergence, r.MFI, r.VWAPDistance,
		r.HigherLows, r.LowerHighs, r.RangeCompression, r.RSIDivergence, r.NearSupport, r.BodyWickRatio,
	}
}

// Snapshot returns an immutable named copy of the record.
func (r Record) Snapshot() types.FeaturesSnapshot {
	values := r.Values()
	out := make(types.FeaturesSnapshot, len(names))

	for i, name := range names {
		out[i] = types.FeatureValue{Name: name, Value: values[i]}
	}

	return out
}

// Has reports whether a flag feature is set.
func Has(flag float64) bool {
	return flag > 0.5
}

func flag(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
