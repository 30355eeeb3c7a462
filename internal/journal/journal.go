// Package journal records dispatched hub traffic and connection lifecycle
// events to PostgreSQL.
package journal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"
	"gorm.io/gorm"

	"gatewatch/internal/bus"
	"gatewatch/internal/client"
	"gatewatch/internal/schema"
)

// Record is one journal row.
type Record struct {
	ID         uint64    `gorm:"primaryKey"`
	Session    string    `gorm:"size:36;index"`
	Channel    string    `gorm:"size:16;index"`
	Kind       string    `gorm:"size:32;index"`
	GateID     string    `gorm:"size:16"`
	Payload    string    `gorm:"type:text"`
	Code       int
	Reason     string
	Attempt    int
	OccurredAt time.Time `gorm:"index"`
}

func (Record) TableName() string {
	return "gatewatch_events"
}

// NewRecord flattens ev into a row.
func NewRecord(ev schema.Event) Record {
	rec := Record{
		Session:    ev.Session,
		Channel:    ev.Channel,
		Kind:       ev.Type,
		GateID:     ev.GateID,
		Payload:    string(ev.Payload),
		Code:       ev.Code,
		Reason:     ev.Reason,
		Attempt:    ev.Attempt,
		OccurredAt: ev.Timestamp,
	}
	if rec.Kind == "" {
		rec.Kind = ev.Kind.String()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	return rec
}

// Sink persists records.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

type gormSink struct {
	db *gorm.DB
}

// NewGormSink migrates the journal table and returns a sink writing to it.
func NewGormSink(db *gorm.DB) (Sink, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &gormSink{db: db}, nil
}

func (s *gormSink) Write(ctx context.Context, rec Record) error {
	return s.db.WithContext(ctx).Create(&rec).Error
}

var journaledKinds = []schema.Kind{
	schema.KindMessage,
	schema.KindConnected,
	schema.KindDisconnected,
	schema.KindReconnecting,
	schema.KindReconnectFailed,
	schema.KindError,
}

// Journal moves events off the dispatch goroutine through a bounded queue and
// writes them to a Sink. Events are dropped when the queue is full.
type Journal struct {
	sink    Sink
	queue   *bus.Queue[schema.Event]
	written atomic.Uint64
	failed  atomic.Uint64
}

// New creates a journal buffering up to capacity events.
func New(sink Sink, capacity int) *Journal {
	return &Journal{
		sink:  sink,
		queue: bus.NewQueue[schema.Event](capacity),
	}
}

// Attach subscribes the journal to c's traffic and lifecycle events.
func (j *Journal) Attach(c *client.Client) []bus.Subscription {
	subs := make([]bus.Subscription, 0, len(journaledKinds))
	for _, kind := range journaledKinds {
		subs = append(subs, c.On(kind, j.Observe))
	}
	return subs
}

// Observe enqueues ev without blocking.
func (j *Journal) Observe(ev schema.Event) {
	if err := j.queue.TryPublish(ev); err != nil {
		logs.Debugf("journal: drop %s: %s", ev.Type, err)
	}
}

// Run writes queued events until ctx is done or Close drains the queue.
func (j *Journal) Run(ctx context.Context) {
	j.queue.Run(ctx, func(ev schema.Event) {
		if err := j.sink.Write(ctx, NewRecord(ev)); err != nil {
			j.failed.Add(1)
			logs.Warnf("journal: write %s: %s", ev.Type, err)
			return
		}
		j.written.Add(1)
	})
}

// Close stops accepting events. Run returns once the buffer is drained.
func (j *Journal) Close() {
	j.queue.Close()
}

// Written returns how many records were persisted.
func (j *Journal) Written() uint64 {
	return j.written.Load()
}

// Failed returns how many writes failed.
func (j *Journal) Failed() uint64 {
	return j.failed.Load()
}

// Dropped returns how many events were discarded on a full queue.
func (j *Journal) Dropped() uint64 {
	return j.queue.Dropped()
}
