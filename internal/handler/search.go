package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/api"
	"github.com/bbernstein/metobs/internal/search"
)

// Searcher runs a nearest-station search.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Report, error)
}

type SearchHandler struct {
	searcher Searcher
}

func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
	}
}

func (h *SearchHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	query, err := api.ParseSearchRequest(request.QueryStringParameters)
	if err != nil {
		return api.Error(err.Error(), http.StatusBadRequest)
	}

	report, err := h.searcher.Search(ctx, query)
	if err != nil {
		status := api.StatusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("site", query.SiteID).Msg("Search failed")
			return api.Error("Error searching for weather data", status)
		}
		return api.Error(err.Error(), status)
	}

	return api.Success(api.NewSearchResponse(report))
}
