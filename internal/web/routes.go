package web

import (
	"errors"
	"fmt"
	"html"
	"html/template"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/api"
	"github.com/bbernstein/metobs/internal/chart"
	"github.com/bbernstein/metobs/internal/models"
	"github.com/bbernstein/metobs/internal/search"
	"github.com/bbernstein/metobs/internal/smhi"
	"github.com/bbernstein/metobs/internal/web/views"
)

const (
	// defaultMapParameter is wind gust, shown on the map before a parameter is chosen.
	defaultMapParameter = "21"
	mapCenterLat        = 55.6658722
	mapCenterLng        = 12.574319
	mapZoom             = 7

	noDataMessage = "No data available"
)

// weatherForm is the body of POST /get_weather_data.
type weatherForm struct {
	SiteID        string `form:"site_id" validate:"required"`
	ParameterText string `form:"weather_parameter_text" validate:"required"`
	Period        string `form:"period" validate:"required,oneof=latest-hour latest-day latest-months"`
}

type parameterForm struct {
	Parameter string `form:"parameter" validate:"required"`
}

func (s *Server) registerRoutes() {
	s.app.Get("/", s.home)
	s.app.Get("/get_weather_data", s.weatherForm)
	s.app.Post("/get_weather_data", s.weatherData)
	s.app.Get("/parameters", s.parameters)
	s.app.Post("/parameters", s.parameters)
	s.app.Get("/stations", s.stationsForm)
	s.app.Post("/stations", s.stations)
	s.app.Get("/mapview", s.mapView)
	s.app.Post("/mapview", s.mapView)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "metobs",
		})
	})
	if s.metrics != nil {
		s.app.Get("/metrics", s.metricsHandler())
	}

	apiGroup := s.app.Group("/api")
	apiGroup.Get("/search", s.apiSearch)
}

func render(c *fiber.Ctx, name string, data interface{}) error {
	c.Type("html", "utf-8")
	return views.Render(c, name, data)
}

func (s *Server) home(c *fiber.Ctx) error {
	return render(c, views.Home, nil)
}

func (s *Server) weatherForm(c *fiber.Ctx) error {
	params, err := s.service.Parameters(c.UserContext())
	if err != nil {
		// the form still works without suggestions
		log.Warn().Err(err).Msg("Could not list parameters for the search form")
	}

	return render(c, views.WeatherForm, views.WeatherFormData{
		Sites:      s.service.Sites(),
		Parameters: params,
		Periods:    models.Periods,
	})
}

func (s *Server) weatherData(c *fiber.Ctx) error {
	var form weatherForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form body")
	}
	form.SiteID = strings.TrimSpace(form.SiteID)
	form.ParameterText = strings.TrimSpace(form.ParameterText)
	if err := api.Validate(form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	report, err := s.service.Search(c.UserContext(), search.Query{
		SiteID:    form.SiteID,
		Parameter: form.ParameterText,
		Period:    form.Period,
	})
	if err != nil {
		return pageError(err)
	}

	if !report.Result.Found() {
		return c.SendString(noDataMessage)
	}

	data := views.WeatherResultData{
		Site:          report.Site.ID,
		Parameter:     form.ParameterText,
		StationsAsked: "Following weather stations were asked for data: " + strings.Join(report.Result.Attempted, ", "),
		Station:       "Closest weather station with data: " + report.Result.Station.Name,
		Distance:      fmt.Sprintf("Distance to weather station: %.0f Km", math.RoundToEven(report.Result.Distance)),
		ChartTitle:    report.ChartTitle(),
		Rows:          report.Table,
	}

	url, err := chart.Render(report.Chart, "Time", "Value", data.ChartTitle)
	switch {
	case err == nil:
		data.Chart = template.URL(url)
	case errors.Is(err, chart.ErrNotEnoughPoints):
		log.Debug().Int("points", len(report.Chart)).Msg("Too few points to chart")
	default:
		log.Error().Err(err).Str("request_id", report.RequestID).Msg("Chart rendering failed")
	}

	return render(c, views.WeatherResult, data)
}

func (s *Server) parameters(c *fiber.Ctx) error {
	params, err := s.service.Parameters(c.UserContext())
	if err != nil {
		return pageError(err)
	}
	return render(c, views.Parameters, views.ParametersData{Parameters: params})
}

func (s *Server) stationsForm(c *fiber.Ctx) error {
	return render(c, views.StationsForm, nil)
}

func (s *Server) stations(c *fiber.Ctx) error {
	key, err := parseParameterForm(c)
	if err != nil {
		return err
	}

	described, err := s.service.Describe(c.UserContext(), key)
	if err != nil {
		return pageError(err)
	}
	stations, err := s.service.Stations(c.UserContext(), key)
	if err != nil {
		return pageError(err)
	}

	return render(c, views.StationsResult, views.StationsData{
		Parameters: describedList(described),
		Stations:   stations,
	})
}

func (s *Server) mapView(c *fiber.Ctx) error {
	key := defaultMapParameter
	var described *models.Parameter

	if c.Method() == fiber.MethodPost {
		var err error
		if key, err = parseParameterForm(c); err != nil {
			return err
		}
		if described, err = s.service.Describe(c.UserContext(), key); err != nil {
			return pageError(err)
		}
	}

	stations, err := s.service.Stations(c.UserContext(), key)
	if err != nil {
		return pageError(err)
	}

	markers := make([]views.Marker, len(stations))
	for i, st := range stations {
		markers[i] = views.Marker{
			Lat:     st.Latitude,
			Lng:     st.Longitude,
			Infobox: html.EscapeString(st.Key + "_" + st.Name),
		}
	}

	return render(c, views.Map, views.MapData{
		ParameterKey: key,
		Parameters:   describedList(described),
		Markers:      markers,
		CenterLat:    mapCenterLat,
		CenterLng:    mapCenterLng,
		Zoom:         mapZoom,
	})
}

func (s *Server) apiSearch(c *fiber.Ctx) error {
	q, err := api.ParseSearchRequest(c.Queries())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	report, err := s.service.Search(c.UserContext(), q)
	if err != nil {
		status := api.StatusFor(err)
		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("site", q.SiteID).Msg("Search failed")
			return fiber.NewError(status, "Error searching for weather data")
		}
		return fiber.NewError(status, err.Error())
	}

	return c.JSON(api.NewSearchResponse(report))
}

func parseParameterForm(c *fiber.Ctx) (string, error) {
	var form parameterForm
	if err := c.BodyParser(&form); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid form body")
	}
	form.Parameter = strings.TrimSpace(form.Parameter)
	if err := api.Validate(form); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return form.Parameter, nil
}

// pageError maps search errors for HTML routes: bad input is 400 and an
// unreachable provider is 502.
func pageError(err error) error {
	var apiErr *smhi.APIError
	switch status := api.StatusFor(err); {
	case status == fiber.StatusNotFound, status == fiber.StatusBadRequest:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		log.Error().Err(err).Msg("Weather data provider unavailable")
		return fiber.NewError(fiber.StatusBadGateway, "weather data provider unavailable")
	default:
		return err
	}
}

func describedList(p *models.Parameter) []models.Parameter {
	if p == nil {
		return nil
	}
	return []models.Parameter{*p}
}
