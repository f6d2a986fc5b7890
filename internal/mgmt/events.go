package mgmt

import (
	"context"
	"time"
)

// Event types emitted after state-changing requests.
const (
	EventChannelChanged = "channel.changed"
	EventNvWritten      = "nv.written"
	EventRadioRestart   = "radio.restart"
	EventFactoryReset   = "radio.factory_reset"
)

// Event describes a management action that changed radio state.
type Event struct {
	Type   string         `json:"type"`
	Topic  string         `json:"topic"`
	Status int            `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Time   time.Time      `json:"time"`
}

// Observer receives events. Notify is called on the request goroutine and
// must not block.
type Observer interface {
	Notify(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// Notify implements Observer.
func (f ObserverFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// DeviceArchive keeps a record of associated devices seen by lookups.
type DeviceArchive interface {
	Record(ctx context.Context, dev AssociatedDevice, ieeeAddr uint64) error
	Clear(ctx context.Context) error
}

// Logger is the logging surface the package needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func (s *Service) notify(ctx context.Context, ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	for _, o := range s.observers {
		o.Notify(ctx, ev)
	}
}
