package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

type streamPublisherMock struct {
	mock.Mock
}

func (m *streamPublisherMock) SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error {
	args := m.Called(ctx, streamConfig)
	return args.Error(0)
}

func (m *streamPublisherMock) Publish(subject string, data []byte, headers map[string]string) error {
	args := m.Called(subject, data, headers)
	return args.Error(0)
}

func (m *streamPublisherMock) Close() {
	m.Called()
}

func testRun() *model.ImportRun {
	return &model.ImportRun{
		ID:            "run-1",
		ConfigID:      "cfg-1",
		CompanyID:     "company-1",
		RunKind:       model.RunKindManual,
		Status:        model.ImportStatusSuccess,
		LeadsImported: 3,
		StartedAt:     time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPublishRunCompleted_SubjectAndPayload(t *testing.T) {
	client := &streamPublisherMock{}
	publisher := NewRunCompletedPublisher(client, "lead_sync_events", "v1.leads.imported")

	var captured []byte
	client.On("Publish", "v1.leads.imported.company-1", mock.Anything, map[string]string{
		"company_id": "company-1",
		"config_id":  "cfg-1",
		"run_id":     "run-1",
	}).Run(func(args mock.Arguments) {
		captured = args.Get(1).([]byte)
	}).Return(nil).Once()

	err := publisher.PublishRunCompleted(context.Background(), testRun())
	require.NoError(t, err)

	var decoded model.ImportRun
	require.NoError(t, json.Unmarshal(captured, &decoded))
	assert.Equal(t, "run-1", decoded.ID)
	assert.Equal(t, model.ImportStatusSuccess, decoded.Status)
	assert.Equal(t, 3, decoded.LeadsImported)

	client.AssertExpectations(t)
}

func TestPublishRunCompleted_PropagatesPublishError(t *testing.T) {
	client := &streamPublisherMock{}
	publisher := NewRunCompletedPublisher(client, "lead_sync_events", "v1.leads.imported")

	client.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("nats: timeout")).Once()

	err := publisher.PublishRunCompleted(context.Background(), testRun())
	assert.ErrorContains(t, err, "run-1")
}

func TestSetup_CreatesStreamForBaseSubject(t *testing.T) {
	client := &streamPublisherMock{}
	publisher := NewRunCompletedPublisher(client, "lead_sync_events", "v1.leads.imported")

	client.On("SetupStream", mock.Anything, mock.MatchedBy(func(cfg *nats.StreamConfig) bool {
		return cfg.Name == "lead_sync_events" &&
			len(cfg.Subjects) == 1 &&
			cfg.Subjects[0] == "v1.leads.imported.>"
	})).Return(nil).Once()

	require.NoError(t, publisher.Setup(context.Background()))
	client.AssertExpectations(t)
}
