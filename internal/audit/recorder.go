package audit

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
)

// Sources identify the transport a request arrived on.
const (
	SourceAPI  = "api"
	SourceMQTT = "mqtt"
)

const (
	entityRadio   = "radio"
	writeTimeout  = 5 * time.Second
	defaultBuffer = 64
)

type actorKey struct{}

type actor struct {
	source string
	userID string
}

// WithActor tags ctx with the transport and, when known, the authenticated
// user behind a request. Recorder reads it back when an event is emitted.
func WithActor(ctx context.Context, source, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{source: source, userID: userID})
}

func actorFrom(ctx context.Context) actor {
	if a, ok := ctx.Value(actorKey{}).(actor); ok {
		return a
	}
	return actor{source: "unknown"}
}

// Recorder is a mgmt.Observer that persists events to a Repository on a
// background goroutine. Events are dropped, with a warning, when the queue
// is full.
type Recorder struct {
	repo   Repository
	logger mgmt.Logger
	queue  chan AuditLog

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts a recorder with room for buffer pending entries.
func NewRecorder(repo Repository, logger mgmt.Logger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	r := &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan AuditLog, buffer),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Notify implements mgmt.Observer.
func (r *Recorder) Notify(ctx context.Context, ev mgmt.Event) {
	a := actorFrom(ctx)
	entry := AuditLog{
		Action:     ev.Type,
		EntityType: entityRadio,
		EntityID:   ev.Topic,
		UserID:     a.userID,
		Source:     a.source,
		Status:     ev.Status,
		Details:    ev.Data,
		CreatedAt:  ev.Time,
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry", "action", ev.Type, "topic", ev.Topic)
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.repo.Create(ctx, &entry); err != nil {
			r.logger.Error("writing audit log", "action", entry.Action, "error", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued entries to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}

var _ mgmt.Observer = (*Recorder)(nil)
