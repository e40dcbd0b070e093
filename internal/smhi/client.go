package smhi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/models"
	"github.com/bbernstein/metobs/pkg/http/client"
)

const apiVersion = "latest"

// Endpoint names used for metrics labels.
const (
	EndpointParameters   = "parameters"
	EndpointStations     = "stations"
	EndpointObservations = "observations"
)

// Request outcomes used for metrics labels.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeStatus   = "status"
	OutcomeError    = "error"
	OutcomeInvalid  = "invalid"
)

// RequestRecorder observes upstream requests.
type RequestRecorder interface {
	RecordRequest(endpoint, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, string, time.Duration) {}

// Client reads parameters, stations and observation series from the SMHI
// meteorological observations API.
type Client struct {
	httpClient client.Interface
	// observationClient serves observation requests. Defaults to httpClient.
	observationClient client.Interface
	recorder          RequestRecorder
}

type Option func(*Client)

// WithObservationClient sends FetchObservations through httpClient instead of
// the listing client.
func WithObservationClient(httpClient client.Interface) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.observationClient = httpClient
		}
	}
}

func NewClient(httpClient client.Interface, recorder RequestRecorder, opts ...Option) *Client {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	c := &Client{
		httpClient:        httpClient,
		observationClient: httpClient,
		recorder:          recorder,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListParameters returns every parameter the API publishes.
func (c *Client) ListParameters(ctx context.Context) ([]models.Parameter, error) {
	path := fmt.Sprintf("/api/version/%s.json", apiVersion)

	var payload versionResponse
	found, err := c.getJSON(ctx, c.httpClient, EndpointParameters, path, &payload)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newStatusError("parameter list not found", http.StatusNotFound)
	}

	index := make(map[string]int, len(payload.Resource))
	parameters := make([]models.Parameter, 0, len(payload.Resource))
	for _, r := range payload.Resource {
		p := models.Parameter{Key: r.Key, Title: r.Title, Summary: r.Summary}
		if i, dup := index[r.Key]; dup {
			parameters[i] = p
			continue
		}
		index[r.Key] = len(parameters)
		parameters = append(parameters, p)
	}

	log.Debug().Int("parameter_count", len(parameters)).Msg("Fetched parameter list from SMHI")
	return parameters, nil
}

// ListStations returns the stations reporting parameterKey. An unknown
// parameter yields an empty list.
func (c *Client) ListStations(ctx context.Context, parameterKey string) ([]models.Station, error) {
	path := fmt.Sprintf("/api/version/%s/parameter/%s.json", apiVersion, url.PathEscape(parameterKey))

	var payload parameterResponse
	found, err := c.getJSON(ctx, c.httpClient, EndpointStations, path, &payload)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Debug().Str("parameter", parameterKey).Msg("Unknown parameter, no stations")
		return []models.Station{}, nil
	}

	index := make(map[string]int, len(payload.Station))
	stations := make([]models.Station, 0, len(payload.Station))
	for _, s := range payload.Station {
		st := models.Station{
			Key:       s.Key,
			Name:      s.Name,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
		}
		if i, dup := index[s.Key]; dup {
			stations[i] = st
			continue
		}
		index[s.Key] = len(stations)
		stations = append(stations, st)
	}

	log.Debug().Str("parameter", parameterKey).Int("station_count", len(stations)).Msg("Fetched station list from SMHI")
	return stations, nil
}

// FetchObservations returns the series for one station. Every failure mode,
// including an empty answer, is reported as NoData rather than an error.
func (c *Client) FetchObservations(ctx context.Context, parameterKey, stationKey string, period models.Period) models.SeriesResult {
	path := fmt.Sprintf("/api/version/%s/parameter/%s/station/%s/period/%s/data.json",
		apiVersion, url.PathEscape(parameterKey), url.PathEscape(stationKey), url.PathEscape(string(period)))

	var payload dataResponse
	found, err := c.getJSON(ctx, c.observationClient, EndpointObservations, path, &payload)
	if err != nil {
		return models.Missing(stationKey, err)
	}
	if !found {
		return models.Missing(stationKey, models.ErrNoData)
	}

	points := make([]models.ObservationPoint, 0, len(payload.Value))
	index := make(map[int64]int, len(payload.Value))
	for _, v := range payload.Value {
		p := models.ObservationPoint{
			Time:  time.UnixMilli(v.Date).UTC(),
			Value: math.RoundToEven(float64(v.Value)),
		}
		if i, dup := index[v.Date]; dup {
			points[i] = p
			continue
		}
		index[v.Date] = len(points)
		points = append(points, p)
	}

	if len(points) == 0 {
		return models.Missing(stationKey, models.ErrNoData)
	}

	log.Debug().
		Str("parameter", parameterKey).
		Str("station", stationKey).
		Str("period", string(period)).
		Int("points", len(points)).
		Msg("Fetched observations from SMHI")

	return models.Found(&models.Series{
		StationKey:   stationKey,
		ParameterKey: parameterKey,
		Period:       period,
		Points:       points,
	})
}

// getJSON fetches path and decodes it into v. It reports found=false for a
// 404 and an APIError for any other failure.
func (c *Client) getJSON(ctx context.Context, httpClient client.Interface, endpoint, path string, v interface{}) (found bool, err error) {
	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		c.recorder.RecordRequest(endpoint, outcome, time.Since(start))
	}()

	resp, err := httpClient.Get(ctx, path)
	if err != nil {
		outcome = OutcomeError
		return false, NewAPIError("requesting "+path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		outcome = OutcomeNotFound
		return false, nil
	}
	if !resp.OK() {
		outcome = OutcomeStatus
		return false, newStatusError("unexpected response for "+path, resp.StatusCode)
	}

	if err := json.Unmarshal(resp.Body, v); err != nil {
		outcome = OutcomeInvalid
		return false, NewAPIError("decoding "+path, err)
	}

	return true, nil
}
