package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Publisher enqueues optimization jobs on a Pub/Sub topic. It satisfies
// the API handler's queue interface.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// PublisherConfig holds configuration for the job publisher.
type PublisherConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// NewPublisher creates a new job publisher.
func NewPublisher(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &Publisher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		topicName: cfg.TopicName,
		logger:    cfg.Logger,
	}, nil
}

// Enqueue publishes a route optimization job and waits for the server
// acknowledgement.
func (p *Publisher) Enqueue(ctx context.Context, tenantID, routeID string) error {
	data, err := json.Marshal(JobMessage{
		JobType:  JobTypeOptimize,
		TenantID: tenantID,
		RouteID:  routeID,
	})
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing job: %w", err)
	}

	p.logger.Debug().
		Str("message_id", id).
		Str("route_id", routeID).
		Msg("optimization job enqueued")

	return nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
