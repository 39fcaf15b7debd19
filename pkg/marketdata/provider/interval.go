package provider

import (
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// Interval is a bar interval in exchange notation, e.g. "1h".
type Interval string

const (
	IntervalOneMinute      Interval = "1m"
	IntervalFiveMinutes    Interval = "5m"
	IntervalFifteenMinutes Interval = "15m"
	IntervalThirtyMinutes  Interval = "30m"
	IntervalOneHour        Interval = "1h"
	IntervalTwoHours       Interval = "2h"
	IntervalFourHours      Interval = "4h"
	IntervalTwelveHours    Interval = "12h"
	IntervalOneDay         Interval = "1d"
	IntervalOneWeek        Interval = "1w"
)

var intervalDurations = map[Interval]time.Duration{
	IntervalOneMinute:      time.Minute,
	IntervalFiveMinutes:    5 * time.Minute,
	IntervalFifteenMinutes: 15 * time.Minute,
	IntervalThirtyMinutes:  30 * time.Minute,
	IntervalOneHour:        time.Hour,
	IntervalTwoHours:       2 * time.Hour,
	IntervalFourHours:      4 * time.Hour,
	IntervalTwelveHours:    12 * time.Hour,
	IntervalOneDay:         24 * time.Hour,
	IntervalOneWeek:        7 * 24 * time.Hour,
}

// ParseInterval validates s.
func ParseInterval(s string) (Interval, error) {
	interval := Interval(s)
	if _, ok := intervalDurations[interval]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %q", s)
	}

	return interval, nil
}

// Duration is the length of one bar.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

func (i Interval) String() string {
	return string(i)
}

// Multiplier is the polygon aggregate multiplier.
func (i Interval) Multiplier() int {
	switch i {
	case IntervalFiveMinutes:
		return 5
	case IntervalFifteenMinutes:
		return 15
	case IntervalThirtyMinutes:
		return 30
	case IntervalTwoHours:
		return 2
	case IntervalFourHours:
		return 4
	case IntervalTwelveHours:
		return 12
	default:
		return 1
	}
}

// Timespan is the polygon aggregate unit.
func (i Interval) Timespan() models.Timespan {
	switch i {
	case IntervalOneMinute, IntervalFiveMinutes, IntervalFifteenMinutes, IntervalThirtyMinutes:
		return models.Minute
	case IntervalOneHour, IntervalTwoHours, IntervalFourHours, IntervalTwelveHours:
		return models.Hour
	case IntervalOneWeek:
		return models.Week
	default:
		return models.Day
	}
}
