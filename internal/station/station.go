package station

import (
	"context"

	"github.com/bbernstein/metobs/internal/models"
)

// StationLister lists the stations that report a parameter.
type StationLister interface {
	ListStations(ctx context.Context, parameterKey string) ([]models.Station, error)
}

// ObservationFetcher probes one station for a series.
type ObservationFetcher interface {
	FetchObservations(ctx context.Context, parameterKey, stationKey string, period models.Period) models.SeriesResult
}

// Provider is the part of the remote data client the resolver depends on.
type Provider interface {
	StationLister
	ObservationFetcher
}

// Recorder receives resolver events. Implementations must be safe for concurrent use.
type Recorder interface {
	RecordProbe(parameterKey string, found bool)
	RecordResolution(parameterKey string, found bool, attempts int)
}

type nopRecorder struct{}

func (nopRecorder) RecordProbe(string, bool)           {}
func (nopRecorder) RecordResolution(string, bool, int) {}
