package main

import (
	"context"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quenbyco/storefront-backend/pkg/config"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	"github.com/quenbyco/storefront-backend/pkg/logger"
	"github.com/quenbyco/storefront-backend/pkg/outbox"
)

func setupPublisherTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  published_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type testDBClient struct {
	db *gorm.DB
}

func (c *testDBClient) Ping(context.Context) error { return nil }

func (c *testDBClient) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.db.WithContext(ctx).Transaction(fn)
}

type stubPubSub struct{}

func (stubPubSub) Ping(context.Context) error            { return nil }
func (stubPubSub) OrdersPublisher() *gcppubsub.Publisher { return nil }

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-id", nil
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return fakeResult{err: p.err}
}

func publisherTestConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Env: "test"},
		Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 3},
	}
}

func newPublisherService(t *testing.T, db *gorm.DB, pub *fakePublisher) *Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Config:           publisherTestConfig(),
		Logger:           logg,
		DB:               &testDBClient{db: db},
		PubSub:           stubPubSub{},
		Repository:       outbox.NewRepository(db),
		PublisherFactory: func() publisher { return pub },
	})
	require.NoError(t, err)
	return svc
}

func insertOutboxEvent(t *testing.T, db *gorm.DB, eventType enums.OutboxEventType, payload string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	event := models.OutboxEvent{
		ID:          id,
		EventType:   eventType,
		AggregateID: uuid.New(),
		Payload:     []byte(payload),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, db.Create(&event).Error)
	return id
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	db := setupPublisherTestDB(t)
	pub := &fakePublisher{}
	svc := newPublisherService(t, db, pub)

	payload := `{"version":1,"eventId":"evt-1","occurredAt":"2026-01-02T03:04:05Z","data":{"order_id":"abc"}}`
	id := insertOutboxEvent(t, db, enums.OutboxEventOrderFinalized, payload)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	assert.Equal(t, "order.finalized", msg.Attributes["event_type"])
	assert.Equal(t, "evt-1", msg.Attributes["event_id"])

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", id).Error)
	assert.NotNil(t, row.PublishedAt)
	assert.Equal(t, 0, row.AttemptCount)
}

func TestProcessBatchMarksFailure(t *testing.T) {
	db := setupPublisherTestDB(t)
	pub := &fakePublisher{err: context.DeadlineExceeded}
	svc := newPublisherService(t, db, pub)

	id := insertOutboxEvent(t, db, enums.OutboxEventCartMergedOnAuth, `{"version":1}`)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", id).Error)
	assert.Nil(t, row.PublishedAt)
	assert.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Contains(t, *row.LastError, "deadline")
}

func TestProcessBatchSkipsExhaustedEvents(t *testing.T) {
	db := setupPublisherTestDB(t)
	pub := &fakePublisher{}
	svc := newPublisherService(t, db, pub)

	id := insertOutboxEvent(t, db, enums.OutboxEventCheckoutExpired, `{"version":1}`)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("id = ?", id).
		Update("attempt_count", 3).Error)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, pub.messages)
}

func TestProcessBatchEmptyTable(t *testing.T) {
	db := setupPublisherTestDB(t)
	svc := newPublisherService(t, db, &fakePublisher{})

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	base := 500 * time.Millisecond
	b := nextBackoff(base, base, maxBackoff)
	assert.Equal(t, time.Second, b)
	for i := 0; i < 10; i++ {
		b = nextBackoff(b, base, maxBackoff)
	}
	assert.Equal(t, maxBackoff, b)
}
