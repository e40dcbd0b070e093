package station

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/models"
)

// MaxAttempts bounds how many stations are probed for one resolution.
const MaxAttempts = 50

// Resolver finds the nearest station that has data for a parameter and period.
type Resolver struct {
	provider    Provider
	recorder    Recorder
	maxAttempts int
}

type ResolverOption func(*Resolver)

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) ResolverOption {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

func NewResolver(provider Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provider:    provider,
		recorder:    nopRecorder{},
		maxAttempts: MaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve probes stations in order of increasing distance from site until one
// returns a non-empty series. Probe failures count as "no data" and never
// abort the search; only running out of attempts or candidates does.
func (r *Resolver) Resolve(ctx context.Context, site models.Site, parameterKey string, period models.Period) models.SearchResult {
	logger := log.With().
		Str("site", site.ID).
		Str("parameter", parameterKey).
		Str("period", string(period)).
		Logger()

	candidates, err := r.provider.ListStations(ctx, parameterKey)
	if err != nil {
		logger.Warn().Err(err).Msg("Listing stations failed, treating as empty station set")
		candidates = nil
	}

	excluded := make(map[string]struct{}, len(candidates))
	var attempted []string

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		candidates = withoutExcluded(candidates, excluded)

		nearest, distance, ok := Nearest(candidates, site.Latitude, site.Longitude)
		if !ok {
			logger.Debug().Int("attempts", attempt).Msg("Station set exhausted")
			break
		}

		attempted = append(attempted, nearest.Name)
		excluded[nearest.Key] = struct{}{}

		result := r.provider.FetchObservations(ctx, parameterKey, nearest.Key, period)
		r.recorder.RecordProbe(parameterKey, result.HasData())

		if result.HasData() {
			logger.Info().
				Str("station_key", nearest.Key).
				Str("station_name", nearest.Name).
				Float64("distance_km", distance).
				Int("points", len(result.Series.Points)).
				Strs("attempted", attempted).
				Msg("Resolved nearest station with data")
			r.recorder.RecordResolution(parameterKey, true, len(attempted))

			station := nearest
			return models.SearchResult{
				Station:   &station,
				Distance:  distance,
				Series:    result.Series,
				Attempted: attempted,
			}
		}

		var reason error = models.ErrNoData
		if result.Missing != nil {
			reason = result.Missing
		}
		logger.Debug().
			Str("station_key", nearest.Key).
			Float64("distance_km", distance).
			AnErr("reason", reason).
			Msg("No data at station, trying next nearest")
	}

	logger.Info().Strs("attempted", attempted).Msg("No station with data found")
	r.recorder.RecordResolution(parameterKey, false, len(attempted))
	return models.NotFound()
}

// Nearest returns the station closest to (lat, lon). Equidistant stations are
// ordered by key so the choice does not depend on listing order.
func Nearest(stations []models.Station, lat, lon float64) (models.Station, float64, bool) {
	if len(stations) == 0 {
		return models.Station{}, 0, false
	}

	best := stations[0]
	bestDistance := Distance(lat, lon, best.Latitude, best.Longitude)
	for _, s := range stations[1:] {
		d := Distance(lat, lon, s.Latitude, s.Longitude)
		if d < bestDistance || (d == bestDistance && s.Key < best.Key) {
			best, bestDistance = s, d
		}
	}
	return best, bestDistance, true
}

func withoutExcluded(stations []models.Station, excluded map[string]struct{}) []models.Station {
	if len(excluded) == 0 {
		return stations
	}
	kept := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if _, skip := excluded[s.Key]; !skip {
			kept = append(kept, s)
		}
	}
	return kept
}
