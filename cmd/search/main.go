package main

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/app"
	"github.com/bbernstein/metobs/internal/config"
	"github.com/bbernstein/metobs/internal/handler"
)

// setupTimeout bounds loading the site table and connecting to MQTT.
const setupTimeout = 30 * time.Second

var (
	searchHandler *handler.SearchHandler
	setupOnce     sync.Once
	setupErr      error

	newApp = app.New
)

// setup runs once per container. It does not use the invocation's context:
// a cancelled first request must not leave the container broken.
func setup() error {
	setupOnce.Do(func() {
		cfg := config.LoadFromEnv()
		cfg.InitializeLogging()

		log.Info().Str("env", cfg.Environment).Msg("Environment")
		log.Debug().Msg("Debug logs enabled")

		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()

		application, err := newApp(ctx, cfg)
		if err != nil {
			setupErr = err
			return
		}
		searchHandler = handler.NewSearchHandler(application.Search)
	})
	return setupErr
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := setup(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize")
		return events.APIGatewayProxyResponse{}, err
	}

	log.Info().Msg("Handling Lambda request")
	return searchHandler.HandleRequest(ctx, request)
}

func main() {
	lambda.Start(handleRequest)
}
