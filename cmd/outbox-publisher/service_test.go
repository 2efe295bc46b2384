package main

import (
	"context"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/pkg/config"
	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	"github.com/hatbazar/marketplace-backend/pkg/logger"
	"github.com/hatbazar/marketplace-backend/pkg/outbox"
)

type stubResult struct {
	err error
}

func (s stubResult) Get(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "server-id", nil
}

type stubPublisher struct {
	published []*gcppubsub.Message
	err       error
}

func (s *stubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	s.published = append(s.published, msg)
	return stubResult{err: s.err}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:outboxpub_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func newTestService(t *testing.T, db *gorm.DB, pub publisher) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Config: &config.Config{
			Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 3},
		},
		Logger:     logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}),
		Repository: outbox.NewRepository(db),
		Publisher:  pub,
	})
	require.NoError(t, err)
	return svc
}

func seedEvent(t *testing.T, db *gorm.DB, attempts int) models.OutboxEvent {
	t.Helper()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		AttemptCount:  attempts,
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	pub := &stubPublisher{}
	svc := newTestService(t, db, pub)
	event := seedEvent(t, db, 0)

	processed, err := svc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, pub.published, 1)
	msg := pub.published[0]
	assert.Equal(t, string(enums.EventOrderCreated), msg.Attributes["event_type"])
	assert.Equal(t, event.AggregateID.String(), msg.Attributes["aggregate_id"])

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.NotNil(t, stored.PublishedAt)
}

func TestProcessBatchFailureIncrementsAttempts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	pub := &stubPublisher{err: errors.New("topic unavailable")}
	svc := newTestService(t, db, pub)
	event := seedEvent(t, db, 0)

	_, err := svc.ProcessBatch(context.Background())
	require.NoError(t, err)

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Nil(t, stored.PublishedAt)
	assert.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "topic unavailable")
}

func TestProcessBatchSkipsExhaustedEvents(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	pub := &stubPublisher{}
	svc := newTestService(t, db, pub)
	seedEvent(t, db, 3)

	processed, err := svc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, pub.published)
}

func TestProcessBatchEmptyTable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	pub := &stubPublisher{}
	svc := newTestService(t, db, pub)

	processed, err := svc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}
