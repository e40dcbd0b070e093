// Package app wires the search service from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/config"
	"github.com/bbernstein/metobs/internal/metrics"
	"github.com/bbernstein/metobs/internal/notify"
	"github.com/bbernstein/metobs/internal/search"
	"github.com/bbernstein/metobs/internal/sites"
	"github.com/bbernstein/metobs/internal/smhi"
	"github.com/bbernstein/metobs/internal/station"
	"github.com/bbernstein/metobs/pkg/http/client"
)

const mqttConnectTimeout = 10 * time.Second

type App struct {
	Search    *search.Service
	Metrics   *metrics.Recorder
	publisher notify.Publisher
}

// New loads the site table and builds the search service with its
// provider client, metrics and event publisher.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	table, err := sites.Load(ctx, cfg.SitesSource,
		sites.WithRegion(cfg.AWSRegion),
		sites.WithEndpoints(cfg.S3Endpoint, cfg.DynamoEndpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("loading site table: %w", err)
	}

	recorder := metrics.NewRecorder()

	// The breaker guards only the listing calls. Observation requests never share failure state.
	listingClient := client.New(client.Options{
		BaseURL:       cfg.SMHIBaseURL,
		Timeout:       cfg.HTTPTimeout,
		BreakerName:   "smhi",
		MaxFailures:   cfg.BreakerMaxFailures,
		Cooldown:      cfg.BreakerCooldown,
		OnStateChange: recorder.RecordBreakerState,
	})
	observationClient := client.New(client.Options{
		BaseURL:        cfg.SMHIBaseURL,
		Timeout:        cfg.HTTPTimeout,
		DisableBreaker: true,
	})
	provider := smhi.NewClient(listingClient, recorder, smhi.WithObservationClient(observationClient))

	publisher := newPublisher(ctx, cfg)

	service := search.NewService(table, provider,
		search.WithResolver(station.NewResolver(provider, station.WithRecorder(recorder))),
		search.WithPublisher(publisher),
	)

	return &App{
		Search:    service,
		Metrics:   recorder,
		publisher: publisher,
	}, nil
}

// Close releases the event publisher.
func (a *App) Close() {
	a.publisher.Close()
}

func newPublisher(ctx context.Context, cfg *config.Config) notify.Publisher {
	if cfg.MQTTBroker == "" {
		log.Debug().Msg("No MQTT broker configured, search events disabled")
		return notify.NopPublisher{}
	}

	clientID := "metobs-" + uuid.NewString()[:8]
	publisher := notify.NewMQTTPublisher(cfg.MQTTBroker, clientID, cfg.SearchEventsTopic)

	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer cancel()
	if err := publisher.Connect(connectCtx); err != nil {
		// paho keeps retrying in the background; events are dropped until it connects
		log.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("MQTT broker not reachable yet")
	}

	log.Info().
		Str("broker", cfg.MQTTBroker).
		Str("topic", cfg.SearchEventsTopic).
		Msg("Search events enabled")
	return publisher
}
