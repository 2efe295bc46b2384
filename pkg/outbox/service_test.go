package outbox

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	"github.com/hatbazar/marketplace-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

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
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newTestService(db *gorm.DB) *Service {
	return NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}))
}

func countEvents(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.OutboxEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func TestEmitQueuesEvent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]string{"hello": "world"},
			Version:       1,
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if got := countEvents(t, db); got != 1 {
		t.Fatalf("expected 1 event, got %d", got)
	}
}

func TestEmitIfNotExistsDeduplicates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()
	orderID := uuid.New()

	event := DomainEvent{
		EventType:     enums.EventPaymentCompleted,
		AggregateType: enums.AggregatePayment,
		AggregateID:   orderID,
		Data:          map[string]string{"order_id": orderID.String()},
		Version:       1,
	}

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(ctx, tx, event)
		})
		if err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}
	if got := countEvents(t, db); got != 1 {
		t.Fatalf("expected a single queued event, got %d", got)
	}

	// A different aggregate is a different event and must still queue.
	other := event
	other.AggregateID = uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(ctx, tx, other)
	})
	if err != nil {
		t.Fatalf("emit other: %v", err)
	}
	if got := countEvents(t, db); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}
