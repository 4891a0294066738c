package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/route"
)

// Job types carried in the message envelope.
const (
	JobTypeOptimize = "route_optimize"
	JobTypePrefetch = "network_prefetch"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	routes           *route.Service
	prefetchJob      *PrefetchJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Routes           *route.Service
	PrefetchJob      *PrefetchJob
	Logger           zerolog.Logger
}

// JobMessage is the envelope for worker jobs.
type JobMessage struct {
	JobType  string `json:"job_type"`
	TenantID string `json:"tenant_id,omitempty"`
	RouteID  string `json:"route_id,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		routes:           cfg.Routes,
		prefetchJob:      cfg.PrefetchJob,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var job JobMessage
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch job.JobType {
	case JobTypeOptimize:
		err = h.handleOptimize(ctx, job)
	case JobTypePrefetch:
		err = h.handlePrefetch(ctx)
	default:
		logger.Warn().Str("job_type", job.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", job.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleOptimize(ctx context.Context, job JobMessage) error {
	if job.TenantID == "" || job.RouteID == "" {
		return fmt.Errorf("optimize job missing tenant or route id")
	}

	h.logger.Info().
		Str("tenant_id", job.TenantID).
		Str("route_id", job.RouteID).
		Msg("starting route optimization")

	_, err := h.routes.Run(ctx, job.TenantID, job.RouteID)
	switch {
	case errors.Is(err, route.ErrRouteNotFound):
		// The route was deleted before the job ran. Nothing to retry.
		h.logger.Warn().Str("route_id", job.RouteID).Msg("route gone, skipping")
		return nil
	case errors.Is(err, route.ErrAlreadyFinished):
		// Redelivered message for a route another worker finished.
		return nil
	case err != nil:
		// The failure is recorded on the route; do not redeliver.
		h.logger.Warn().Err(err).Str("route_id", job.RouteID).Msg("optimization failed")
		return nil
	}

	return nil
}

func (h *PubSubHandler) handlePrefetch(ctx context.Context) error {
	if h.prefetchJob == nil {
		return fmt.Errorf("prefetch job not configured")
	}

	result := h.prefetchJob.Run(ctx)

	// Consider it successful if more than half the cells warmed.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many prefetch failures: %d/%d", result.Failed, result.TotalPoints)
	}

	return nil
}
