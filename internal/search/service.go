package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/models"
	"github.com/bbernstein/metobs/internal/notify"
	"github.com/bbernstein/metobs/internal/series"
	"github.com/bbernstein/metobs/internal/sites"
	"github.com/bbernstein/metobs/internal/station"
)

// Provider is the remote data client as seen by the service.
type Provider interface {
	ListParameters(ctx context.Context) ([]models.Parameter, error)
	station.Provider
}

// Resolver finds the nearest station with data.
type Resolver interface {
	Resolve(ctx context.Context, site models.Site, parameterKey string, period models.Period) models.SearchResult
}

// Query is one search request as entered by a user.
type Query struct {
	SiteID    string
	Parameter string
	Period    string
}

// Report is everything a presenter needs to show a search result.
type Report struct {
	RequestID string
	Query     Query
	Site      models.Site
	Parameter models.Parameter
	Period    models.Period
	Result    models.SearchResult
	// Table is the full series, newest first.
	Table []models.ObservationPoint
	// Chart is the part of the series to plot, in provider order.
	Chart []models.ObservationPoint
}

// ChartTitle is the heading drawn on the chart.
func (r *Report) ChartTitle() string {
	return fmt.Sprintf("Parameter: %s and period: %s", r.Query.Parameter, r.Period)
}

type Service struct {
	sites     *sites.Table
	provider  Provider
	resolver  Resolver
	publisher notify.Publisher
	newID     func() string
}

type Option func(*Service)

func WithResolver(resolver Resolver) Option {
	return func(s *Service) {
		s.resolver = resolver
	}
}

func WithPublisher(publisher notify.Publisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// NewService wires the search service. Without WithResolver it resolves
// against provider with no metrics attached.
func NewService(table *sites.Table, provider Provider, opts ...Option) *Service {
	s := &Service{
		sites:     table,
		provider:  provider,
		publisher: notify.NopPublisher{},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = station.NewResolver(provider)
	}
	return s
}

func (s *Service) Sites() []models.Site {
	return s.sites.All()
}

func (s *Service) Parameters(ctx context.Context) ([]models.Parameter, error) {
	params, err := s.provider.ListParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing parameters: %w", err)
	}
	return params, nil
}

func (s *Service) Stations(ctx context.Context, parameterKey string) ([]models.Station, error) {
	stations, err := s.provider.ListStations(ctx, parameterKey)
	if err != nil {
		return nil, fmt.Errorf("listing stations for parameter %s: %w", parameterKey, err)
	}
	return stations, nil
}

// Describe returns the parameter with the given key, or nil when there is none.
func (s *Service) Describe(ctx context.Context, parameterKey string) (*models.Parameter, error) {
	params, err := s.Parameters(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		if p.Key == parameterKey {
			return &p, nil
		}
	}
	return nil, nil
}

// FindParameter matches text against the parameter list: an exact key, then
// an exact label, then a label containing text. A containment match must be
// unique.
func (s *Service) FindParameter(ctx context.Context, text string) (models.Parameter, error) {
	params, err := s.Parameters(ctx)
	if err != nil {
		return models.Parameter{}, err
	}
	return matchParameter(params, text)
}

func matchParameter(params []models.Parameter, text string) (models.Parameter, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Parameter{}, &UnknownParameterError{Text: text}
	}

	for _, p := range params {
		if p.Key == text {
			return p, nil
		}
	}
	for _, p := range params {
		if p.Label() == text {
			return p, nil
		}
	}

	var matches []models.Parameter
	for _, p := range params {
		if strings.Contains(p.Label(), text) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		return models.Parameter{}, &UnknownParameterError{Text: text}
	case 1:
		return matches[0], nil
	default:
		candidates := make([]string, len(matches))
		for i, p := range matches {
			candidates[i] = p.Label()
		}
		return models.Parameter{}, &UnknownParameterError{Text: text, Candidates: candidates}
	}
}

// Search validates q, resolves the nearest station with data and prepares
// the series for display. A search that finds nothing is not an error; the
// report's Result is then NotFound.
func (s *Service) Search(ctx context.Context, q Query) (*Report, error) {
	period, err := models.ParsePeriod(strings.TrimSpace(q.Period))
	if err != nil {
		return nil, &InvalidPeriodError{Period: q.Period}
	}

	site, ok := s.sites.Lookup(strings.TrimSpace(q.SiteID))
	if !ok {
		return nil, &UnknownSiteError{SiteID: q.SiteID}
	}

	parameter, err := s.FindParameter(ctx, q.Parameter)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RequestID: s.newID(),
		Query:     q,
		Site:      site,
		Parameter: parameter,
		Period:    period,
	}

	logger := log.With().
		Str("request_id", report.RequestID).
		Str("site", site.ID).
		Str("parameter", parameter.Key).
		Str("period", string(period)).
		Logger()
	logger.Debug().Msg("Starting search")

	report.Result = s.resolver.Resolve(ctx, site, parameter.Key, period)
	if report.Result.Found() {
		points := report.Result.Series.Points
		report.Table = series.SortDescending(points)
		report.Chart = series.ChartWindow(points, period)
	}

	if err := s.publisher.PublishSearch(ctx, eventFor(report)); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish search event")
	}

	logger.Info().
		Bool("found", report.Result.Found()).
		Int("attempts", len(report.Result.Attempted)).
		Msg("Search completed")
	return report, nil
}

func eventFor(r *Report) notify.SearchEvent {
	event := notify.SearchEvent{
		RequestID: r.RequestID,
		Site:      r.Site.ID,
		Parameter: r.Parameter.Key,
		Period:    string(r.Period),
		Attempted: r.Result.Attempted,
		Found:     r.Result.Found(),
		Timestamp: time.Now().UTC(),
	}
	if event.Attempted == nil {
		event.Attempted = []string{}
	}
	if r.Result.Found() {
		event.Station = r.Result.Station.Name
		event.DistanceKm = r.Result.Distance
		event.Points = len(r.Result.Series.Points)
	}
	return event
}
