package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/bbernstein/metobs/internal/models"
	"github.com/bbernstein/metobs/internal/search"
	"github.com/bbernstein/metobs/internal/smhi"
)

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

type SearchResponse struct {
	APIResponse
	RequestID  string                    `json:"requestId"`
	Site       models.Site               `json:"site"`
	Parameter  models.Parameter          `json:"parameter"`
	Period     models.Period             `json:"period"`
	Found      bool                      `json:"found"`
	Station    *models.Station           `json:"station,omitempty"`
	DistanceKm float64                   `json:"distanceKm"`
	Attempted  []string                  `json:"attempted"`
	Points     []models.ObservationPoint `json:"points"`
}

type ErrorResponse struct {
	APIResponse
	Error string `json:"error"`
}

// NewSearchResponse flattens a report. Points are newest first, as in the table view.
func NewSearchResponse(report *search.Report) *SearchResponse {
	resp := &SearchResponse{
		APIResponse: APIResponse{ResponseType: "search"},
		RequestID:   report.RequestID,
		Site:        report.Site,
		Parameter:   report.Parameter,
		Period:      report.Period,
		Found:       report.Result.Found(),
		Attempted:   report.Result.Attempted,
		Points:      report.Table,
	}
	if resp.Found {
		resp.Station = report.Result.Station
		resp.DistanceKm = report.Result.Distance
	}
	if resp.Attempted == nil {
		resp.Attempted = []string{}
	}
	if resp.Points == nil {
		resp.Points = []models.ObservationPoint{}
	}
	return resp
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Error:       message,
	}
}

// StatusFor maps a search error to the HTTP status reported to API clients.
func StatusFor(err error) int {
	var (
		siteErr   *search.UnknownSiteError
		paramErr  *search.UnknownParameterError
		periodErr *search.InvalidPeriodError
		validErr  *ValidationError
		apiErr    *smhi.APIError
	)

	switch {
	case errors.As(err, &siteErr):
		return http.StatusNotFound
	case errors.As(err, &paramErr), errors.As(err, &periodErr), errors.As(err, &validErr):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    jsonHeaders(),
		Body:       string(jsonBody),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(message))

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    jsonHeaders(),
		Body:       string(body),
	}, nil
}

func jsonHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}
