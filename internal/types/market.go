package types

import "time"

// Bar is one OHLCV observation at a fixed interval.
type Bar struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// BarSeries holds the bars of one instrument, oldest first.
// A series is treated as immutable once fetched for a run.
type BarSeries struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Interval string `json:"interval" yaml:"interval"`
	Bars     []Bar  `json:"bars" yaml:"bars"`
}

// Len returns the number of bars.
func (s BarSeries) Len() int {
	return len(s.Bars)
}

// Last returns the most recent bar. Callers must check Len first.
func (s BarSeries) Last() Bar {
	return s.Bars[len(s.Bars)-1]
}

func (s BarSeries) Opens() []float64 {
	return s.column(func(b Bar) float64 { return b.Open })
}

func (s BarSeries) Highs() []float64 {
	return s.column(func(b Bar) float64 { return b.High })
}

func (s BarSeries) Lows() []float64 {
	return s.column(func(b Bar) float64 { return b.Low })
}

func (s BarSeries) Closes() []float64 {
	return s.column(func(b Bar) float64 { return b.Close })
}

func (s BarSeries) Volumes() []float64 {
	return s.column(func(b Bar) float64 { return b.Volume })
}

func (s BarSeries) column(pick func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = pick(b)
	}

	return out
}
