package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
)

// StreamPublisher is the JetStream surface the run-completed publisher needs.
// This allows for easy mocking in tests.
type StreamPublisher interface {
	// SetupStream ensures the stream exists with the given configuration
	SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error

	// Publish publishes a message to a subject with optional headers
	Publish(subject string, data []byte, headers map[string]string) error

	// Close closes the NATS connection
	Close()
}

// RunCompletedPublisher emits one event per finished import run on a
// per-tenant subject. Downstream consumers (notifications, analytics) key off
// the company segment.
type RunCompletedPublisher struct {
	client      StreamPublisher
	stream      string
	baseSubject string
}

// NewRunCompletedPublisher wires a publisher on top of an established
// JetStream client.
func NewRunCompletedPublisher(client StreamPublisher, stream, baseSubject string) *RunCompletedPublisher {
	return &RunCompletedPublisher{
		client:      client,
		stream:      stream,
		baseSubject: baseSubject,
	}
}

// Setup ensures the backing stream exists before the first publish.
func (p *RunCompletedPublisher) Setup(ctx context.Context) error {
	return p.client.SetupStream(ctx, &nats.StreamConfig{
		Name:      p.stream,
		Subjects:  []string{p.baseSubject + ".>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
	})
}

// PublishRunCompleted emits the audit record of one finished run. Failures are
// reported to the caller, which logs and moves on; run results are already
// durable in the database.
func (p *RunCompletedPublisher) PublishRunCompleted(ctx context.Context, run *model.ImportRun) error {
	subject := fmt.Sprintf("%s.%s", p.baseSubject, run.CompanyID)

	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", run.ID, err)
	}

	headers := map[string]string{
		"company_id": run.CompanyID,
		"config_id":  run.ConfigID,
		"run_id":     run.ID,
	}

	if err := p.client.Publish(subject, payload, headers); err != nil {
		return fmt.Errorf("failed to publish run-completed event for run %s: %w", run.ID, err)
	}

	logger.FromContext(ctx).Debug("Published run-completed event",
		zap.String("subject", subject),
		zap.String("run_id", run.ID),
		zap.String("status", run.Status))
	return nil
}

// Close releases the underlying connection.
func (p *RunCompletedPublisher) Close() {
	p.client.Close()
}
