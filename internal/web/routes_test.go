package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/metobs/internal/models"
	"github.com/bbernstein/metobs/internal/search"
	"github.com/bbernstein/metobs/internal/smhi"
)

type fakeService struct {
	sites      []models.Site
	parameters []models.Parameter
	paramErr   error
	stations   []models.Station
	report     *search.Report
	searchErr  error

	stationKeys []string
	queries     []search.Query
}

func (f *fakeService) Sites() []models.Site { return f.sites }

func (f *fakeService) Parameters(ctx context.Context) ([]models.Parameter, error) {
	return f.parameters, f.paramErr
}

func (f *fakeService) Stations(ctx context.Context, parameterKey string) ([]models.Station, error) {
	f.stationKeys = append(f.stationKeys, parameterKey)
	return f.stations, nil
}

func (f *fakeService) Describe(ctx context.Context, parameterKey string) (*models.Parameter, error) {
	if f.paramErr != nil {
		return nil, f.paramErr
	}
	for _, p := range f.parameters {
		if p.Key == parameterKey {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeService) Search(ctx context.Context, q search.Query) (*search.Report, error) {
	f.queries = append(f.queries, q)
	return f.report, f.searchErr
}

var (
	falsterbo = models.Station{Key: "52350", Name: "Falsterbo A", Latitude: 55.3837, Longitude: 12.8167}
	byvind    = models.Parameter{Key: "21", Title: "Byvind", Summary: "max, 1 gång/tim"}
)

func foundReport() *search.Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []models.ObservationPoint{
		{Time: start, Value: 4},
		{Time: start.Add(time.Hour), Value: -3},
		{Time: start.Add(2 * time.Hour), Value: 6},
	}
	station := falsterbo
	return &search.Report{
		RequestID: "req-1",
		Query:     search.Query{SiteID: "Malmö Hamn", Parameter: "Byvind", Period: "latest-day"},
		Site:      models.Site{ID: "Malmö Hamn", Latitude: 55.615, Longitude: 12.988},
		Parameter: byvind,
		Period:    models.PeriodLatestDay,
		Result: models.SearchResult{
			Station:   &station,
			Distance:  27.9,
			Series:    &models.Series{StationKey: station.Key, Points: points},
			Attempted: []string{"Malmö A", "Falsterbo A"},
		},
		Table: []models.ObservationPoint{points[2], points[1], points[0]},
		Chart: points,
	}
}

func newTestServer(svc *fakeService, opts ...Option) *Server {
	if svc.sites == nil {
		svc.sites = []models.Site{{ID: "Malmö Hamn", Latitude: 55.615, Longitude: 12.988}}
	}
	if svc.parameters == nil {
		svc.parameters = []models.Parameter{byvind}
	}
	return New(svc, opts...)
}

func do(t *testing.T, s *Server, req *http.Request) (int, string) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHomeAndForms(t *testing.T) {
	s := newTestServer(&fakeService{})

	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "/get_weather_data")

	status, body = do(t, s, httptest.NewRequest(http.MethodGet, "/get_weather_data", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<option value="Malmö Hamn">`)
	assert.Contains(t, body, `<option value="Byvind, max, 1 gång/tim">`)
	assert.Contains(t, body, `<option value="latest-months">`)

	status, body = do(t, s, httptest.NewRequest(http.MethodGet, "/stations", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `name="parameter"`)
}

func TestWeatherForm_ProviderDownStillRenders(t *testing.T) {
	s := newTestServer(&fakeService{paramErr: smhi.NewAPIError("requesting", errors.New("timeout"))})

	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/get_weather_data", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "site_id")
}

func TestWeatherData_Found(t *testing.T) {
	svc := &fakeService{report: foundReport()}
	s := newTestServer(svc)

	status, body := do(t, s, postForm("/get_weather_data", url.Values{
		"site_id":                {"Malmö Hamn"},
		"weather_parameter_text": {"Byvind"},
		"period":                 {"latest-day"},
	}))

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []search.Query{{SiteID: "Malmö Hamn", Parameter: "Byvind", Period: "latest-day"}}, svc.queries)
	assert.Contains(t, body, "Following weather stations were asked for data: Malmö A, Falsterbo A")
	assert.Contains(t, body, "Closest weather station with data: Falsterbo A")
	assert.Contains(t, body, "Distance to weather station: 28 Km")
	assert.Contains(t, body, `src="data:image/png;base64,`)

	newest := strings.Index(body, "2024-01-01 02:00:00")
	oldest := strings.Index(body, "2024-01-01 00:00:00")
	require.NotEqual(t, -1, newest)
	assert.Less(t, newest, oldest)
}

func TestWeatherData_NoChartForSinglePoint(t *testing.T) {
	report := foundReport()
	report.Chart = report.Chart[:1]
	s := newTestServer(&fakeService{report: report})

	status, body := do(t, s, postForm("/get_weather_data", url.Values{
		"site_id":                {"Malmö Hamn"},
		"weather_parameter_text": {"Byvind"},
		"period":                 {"latest-day"},
	}))

	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "<img")
	assert.Contains(t, body, "Falsterbo A")
}

func TestWeatherData_NotFound(t *testing.T) {
	report := foundReport()
	report.Result = models.NotFound()
	s := newTestServer(&fakeService{report: report})

	status, body := do(t, s, postForm("/get_weather_data", url.Values{
		"site_id":                {"Malmö Hamn"},
		"weather_parameter_text": {"Byvind"},
		"period":                 {"latest-hour"},
	}))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "No data available", body)
}

func TestWeatherData_BadInput(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		err      error
		wantBody string
	}{
		{
			name:     "missing parameter text",
			form:     url.Values{"site_id": {"Malmö Hamn"}, "period": {"latest-day"}},
			wantBody: "weather_parameter_text is required",
		},
		{
			name:     "unknown period",
			form:     url.Values{"site_id": {"Malmö Hamn"}, "weather_parameter_text": {"x"}, "period": {"latest-week"}},
			wantBody: "period must be one of",
		},
		{
			name:     "unknown site",
			form:     url.Values{"site_id": {"Atlantis"}, "weather_parameter_text": {"x"}, "period": {"latest-day"}},
			err:      &search.UnknownSiteError{SiteID: "Atlantis"},
			wantBody: `unknown site "Atlantis"`,
		},
		{
			name:     "ambiguous parameter",
			form:     url.Values{"site_id": {"Malmö Hamn"}, "weather_parameter_text": {"Luft"}, "period": {"latest-day"}},
			err:      &search.UnknownParameterError{Text: "Luft", Candidates: []string{"a", "b"}},
			wantBody: "ambiguous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeService{searchErr: tt.err})

			status, body := do(t, s, postForm("/get_weather_data", tt.form))
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, body, tt.wantBody)
		})
	}
}

func TestParameters(t *testing.T) {
	s := newTestServer(&fakeService{})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		status, body := do(t, s, httptest.NewRequest(method, "/parameters", nil))
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "<td>Byvind, max, 1 gång/tim</td>")
	}
}

func TestParameters_ProviderDown(t *testing.T) {
	s := newTestServer(&fakeService{paramErr: smhi.NewAPIError("requesting", errors.New("timeout"))})

	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/parameters", nil))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "weather data provider unavailable", body)
}

func TestStations(t *testing.T) {
	svc := &fakeService{stations: []models.Station{falsterbo}}
	s := newTestServer(svc)

	status, body := do(t, s, postForm("/stations", url.Values{"parameter": {"21"}}))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"21"}, svc.stationKeys)
	assert.Contains(t, body, "<td>Byvind</td>")
	assert.Contains(t, body, "<td>52350</td><td>Falsterbo A</td>")

	status, _ = do(t, s, postForm("/stations", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMapView(t *testing.T) {
	svc := &fakeService{stations: []models.Station{falsterbo}}
	s := newTestServer(svc)

	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/mapview", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"infobox":"52350_Falsterbo A"`)

	status, _ = do(t, s, postForm("/mapview", url.Values{"parameter": {"1"}}))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"21", "1"}, svc.stationKeys)
}

func TestAPISearch(t *testing.T) {
	svc := &fakeService{report: foundReport()}
	s := newTestServer(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/search?site=Malm%C3%B6+Hamn&parameter=21&period=latest-day", nil)
	status, body := do(t, s, req)
	require.Equal(t, http.StatusOK, status)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "search", got["responseType"])
	assert.Equal(t, true, got["found"])
	assert.Equal(t, 27.9, got["distanceKm"])
	assert.Len(t, got["points"], 3)
	assert.Equal(t, "Malmö Hamn", svc.queries[0].SiteID)
}

func TestAPISearch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
	}{
		{name: "missing site", query: "parameter=21&period=latest-day", wantStatus: http.StatusBadRequest},
		{name: "unknown site", query: "site=x&parameter=21&period=latest-day", err: &search.UnknownSiteError{SiteID: "x"}, wantStatus: http.StatusNotFound},
		{name: "provider down", query: "site=x&parameter=21&period=latest-day", err: smhi.NewAPIError("requesting", errors.New("eof")), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeService{searchErr: tt.err})

			status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/search?"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, status)

			var got map[string]string
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			assert.Equal(t, "error", got["responseType"])
			assert.NotEmpty(t, got["error"])
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "metobs_resolutions_total 1\n")
	})
	s := newTestServer(&fakeService{}, WithMetricsHandler(metrics))

	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","service":"metobs"}`, body)

	status, body = do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "metobs_resolutions_total 1")
}

func TestMetricsRouteIsOptional(t *testing.T) {
	s := newTestServer(&fakeService{})

	status, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPanicIsRecovered(t *testing.T) {
	s := newTestServer(&fakeService{})
	s.App().Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	status, body := do(t, s, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal Server Error", body)
}
