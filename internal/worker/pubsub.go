package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the subscription.
const (
	JobTypeRiskRefresh = "risk_refresh"
	JobTypeHealthCheck = "health_check"
)

// Dispatch errors that redelivery cannot fix.
var (
	ErrUnknownJobType   = errors.New("unknown job type")
	ErrMalformedMessage = errors.New("malformed message")
)

// JobTypeAttribute carries the job type on payload-less messages, as sent by
// Cloud Scheduler push targets configured with attributes only.
const JobTypeAttribute = "job_type"

// RefreshMessage is the JSON payload of a job message.
type RefreshMessage struct {
	JobType    string `json:"job_type"`
	SkipAlerts bool   `json:"skip_alerts,omitempty"`
}

func decodeMessage(data []byte, attrs map[string]string) (RefreshMessage, error) {
	var msg RefreshMessage
	if len(bytes.TrimSpace(data)) == 0 {
		msg.JobType = attrs[JobTypeAttribute]
		return msg, nil
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return msg, nil
}

// Redeliverable reports whether a dispatch failure is worth a Nack.
// Malformed or unknown jobs and overlapping refreshes fail the same way again.
func Redeliverable(err error) bool {
	return !errors.Is(err, ErrMalformedMessage) &&
		!errors.Is(err, ErrUnknownJobType) &&
		!errors.Is(err, ErrRefreshInProgress)
}

// Dispatcher runs jobs described by message payloads.
type Dispatcher struct {
	job    *RefreshJob
	logger zerolog.Logger
}

func NewDispatcher(job *RefreshJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{job: job, logger: logger}
}

// Dispatch decodes a message and runs the requested job. An empty payload
// takes its job type from attrs.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte, attrs map[string]string) error {
	msg, err := decodeMessage(data, attrs)
	if err != nil {
		return err
	}

	switch msg.JobType {
	case JobTypeRiskRefresh:
		_, err := d.job.Run(ctx, RunOptions{SkipAlerts: msg.SkipAlerts})
		return err
	case JobTypeHealthCheck:
		result, err := d.job.Run(ctx, RunOptions{DryRun: true})
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		if result.Regions == 0 {
			return errors.New("health check failed: no regions aggregated")
		}
		d.logger.Debug().Int("regions", result.Regions).Msg("health check passed")
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// One pass at a time; the job itself rejects overlap.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       NewDispatcher(cfg.RefreshJob, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
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
	start := time.Now()
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Time("published_at", msg.PublishTime).
		Logger()

	err := h.dispatcher.Dispatch(ctx, msg.Data, msg.Attributes)
	switch {
	case err == nil:
		logger.Info().Dur("duration", time.Since(start)).Msg("job completed")
		msg.Ack()
	case !Redeliverable(err):
		logger.Warn().Err(err).Msg("dropping message")
		msg.Ack()
	default:
		logger.Error().Err(err).Msg("job failed, requesting redelivery")
		msg.Nack()
	}
}
