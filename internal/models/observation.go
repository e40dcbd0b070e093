package models

import (
	"errors"
	"fmt"
	"time"
)

type Period string

const (
	PeriodLatestHour   Period = "latest-hour"
	PeriodLatestDay    Period = "latest-day"
	PeriodLatestMonths Period = "latest-months"
)

// Periods lists the accepted periods in display order.
var Periods = []Period{PeriodLatestHour, PeriodLatestDay, PeriodLatestMonths}

func ParsePeriod(s string) (Period, error) {
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

type ObservationPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series holds the points returned for one parameter, station and period,
// in the order the provider returned them.
type Series struct {
	StationKey   string             `json:"stationKey"`
	ParameterKey string             `json:"parameterKey"`
	Period       Period             `json:"period"`
	Points       []ObservationPoint `json:"points"`
}

// ErrNoData is the cause recorded when a station answered but had nothing usable.
var ErrNoData = errors.New("no data found")

// NoData explains why a probe produced no series.
type NoData struct {
	StationKey string
	Cause      error
}

func (n *NoData) Error() string {
	return fmt.Sprintf("station %s: %v", n.StationKey, n.Cause)
}

func (n *NoData) Unwrap() error {
	return n.Cause
}

// SeriesResult is either a non-empty Series or a NoData marker, never both.
type SeriesResult struct {
	Series  *Series
	Missing *NoData
}

func Found(series *Series) SeriesResult {
	if series == nil || len(series.Points) == 0 {
		key := ""
		if series != nil {
			key = series.StationKey
		}
		return Missing(key, ErrNoData)
	}
	return SeriesResult{Series: series}
}

func Missing(stationKey string, cause error) SeriesResult {
	if cause == nil {
		cause = ErrNoData
	}
	return SeriesResult{Missing: &NoData{StationKey: stationKey, Cause: cause}}
}

// HasData reports whether the result carries a usable series.
func (r SeriesResult) HasData() bool {
	return r.Series != nil && len(r.Series.Points) > 0
}
