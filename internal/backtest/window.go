package backtest

import (
	"math"

	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// Window is the chronological train/test split of one series. Both segments are
// half-open ranges of bar indices and TestStart is at least TrainEnd plus the purge gap.
type Window struct {
	TrainStart int `json:"train_start" yaml:"train_start"`
	TrainEnd   int `json:"train_end" yaml:"train_end"`
	TestStart  int `json:"test_start" yaml:"test_start"`
	TestEnd    int `json:"test_end" yaml:"test_end"`
}

// Split places the split index at floor(n*ratio), starts training after the warm-up
// and starts testing purge bars after the split.
func Split(n int, ratio float64, purge, warmUp int) (Window, error) {
	if ratio <= 0 || ratio >= 1 {
		return Window{}, errors.Newf(errors.ErrCodeBacktestWindowInvalid, "split ratio must be in (0,1), got %v", ratio)
	}

	if purge < 0 {
		return Window{}, errors.Newf(errors.ErrCodeBacktestWindowInvalid, "purge gap must not be negative, got %d", purge)
	}

	split := int(math.Floor(float64(n) * ratio))
	w := Window{
		TrainStart: warmUp,
		TrainEnd:   split,
		TestStart:  split + purge,
		TestEnd:    n,
	}

	if w.TrainStart >= w.TrainEnd {
		return Window{}, errors.Newf(errors.ErrCodeBacktestWindowInvalid,
			"train segment [%d,%d) is empty for %d bars", w.TrainStart, w.TrainEnd, n)
	}

	if w.TestStart >= w.TestEnd {
		return Window{}, errors.Newf(errors.ErrCodeBacktestWindowInvalid,
			"test segment [%d,%d) is empty for %d bars", w.TestStart, w.TestEnd, n)
	}

	return w, nil
}

// SplitIndex is the first bar not available to training.
func (w Window) SplitIndex() int {
	return w.TrainEnd
}

// PurgeGap is the number of bars skipped between the segments.
func (w Window) PurgeGap() int {
	return w.TestStart - w.TrainEnd
}
