package zigbee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/audit"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
)

const (
	// requestTimeout bounds one management request end to end. Radio
	// requests queue behind each other, so this is generous.
	requestTimeout = 30 * time.Second
)

// ErrInvalidRequest marks a request payload that could not be decoded.
var ErrInvalidRequest = errors.New("invalid request payload")

// MQTTClient is the part of the MQTT client the bridge uses.
type MQTTClient interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Dispatcher runs management requests.
type Dispatcher interface {
	DispatchTopic(ctx context.Context, topic string, req mgmt.Request) mgmt.Response
}

// Logger is the logging surface the bridge needs.
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

// Options configures a Bridge.
type Options struct {
	BridgeID   string
	MQTT       MQTTClient
	Dispatcher Dispatcher
	Health     *HealthReporter
	Logger     Logger
}

// Bridge receives management requests over MQTT, runs them through the
// dispatcher and publishes the responses. It also republishes management
// events.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	id     string
	mqtt   MQTTClient
	svc    Dispatcher
	health *HealthReporter
	logger Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	stopped  bool
	stopOnce sync.Once
}

// NewBridge validates opts and creates a bridge. Call Start to subscribe.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if opts.BridgeID == "" {
		opts.BridgeID = mqtt.Protocol
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		id:     opts.BridgeID,
		mqtt:   opts.MQTT,
		svc:    opts.Dispatcher,
		health: opts.Health,
		logger: opts.Logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start subscribes to the request topic and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if b.health != nil {
		if err := b.health.PublishStarting(); err != nil {
			b.logger.Warn("failed to publish starting status", "error", err)
		}
	}

	topic := mqtt.Topics{}.AllRequests()
	if err := b.mqtt.Subscribe(topic, 1, b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	b.logger.Info("subscribed to requests", "topic", topic)

	if b.health != nil {
		b.health.Start(ctx)
	}
	return nil
}

// Stop cancels in-flight requests, waits for background publishes and
// publishes a stopping status.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()

		b.cancel()
		b.wg.Wait()
		if b.health != nil {
			b.health.Stop()
		}
		b.logger.Info("bridge stopped")
	})
}

// handleMessage is the subscription handler for request topics.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	topicID := topic[strings.LastIndex(topic, "/")+1:]

	req, err := decodeRequest(payload)
	if req.RequestID == "" {
		req.RequestID = topicID
	}

	var resp mgmt.Response
	if err != nil {
		b.logger.Warn("rejecting malformed request", "topic", topic, "error", err)
		resp = mgmt.Response{Status: mgmt.StatusInvalid, Message: err.Error()}
	} else {
		resp = b.dispatch(req)
	}

	return b.publishResponse(req, resp)
}

func decodeRequest(payload []byte) (RequestMessage, error) {
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return RequestMessage{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Action == "" {
		return req, fmt.Errorf("%w: action is missing", ErrInvalidRequest)
	}
	return req, nil
}

func (b *Bridge) dispatch(req RequestMessage) mgmt.Response {
	ctx, cancel := context.WithTimeout(b.ctx, requestTimeout)
	defer cancel()
	ctx = audit.WithActor(ctx, audit.SourceMQTT, "")

	b.logger.Debug("received request",
		"request_id", req.RequestID,
		"method", req.Method,
		"action", req.Action)

	return b.svc.DispatchTopic(ctx, req.Action, mgmt.Request{
		Method: req.Method,
		Params: mgmt.Params(req.Parameters),
	})
}

func (b *Bridge) publishResponse(req RequestMessage, resp mgmt.Response) error {
	payload, err := json.Marshal(ResponseMessage{
		RequestID: req.RequestID,
		Action:    req.Action,
		Timestamp: time.Now().UTC(),
		Response:  resp,
	})
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.Response(req.RequestID), payload, 1, false); err != nil {
		return fmt.Errorf("publish response %s: %w", req.RequestID, err)
	}
	return nil
}

// Notify implements mgmt.Observer by republishing the event in the
// background. The client bounds each publish with its own timeout.
func (b *Bridge) Notify(_ context.Context, ev mgmt.Event) {
	payload, err := json.Marshal(EventMessage{Bridge: b.id, Event: ev})
	if err != nil {
		b.logger.Error("marshal event", "type", ev.Type, "error", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.mqtt.Publish(mqtt.Topics{}.Event(ev.Type), payload, 1, false); err != nil {
			b.logger.Warn("failed to publish event", "type", ev.Type, "error", err)
		}
	}()
}

var _ mgmt.Observer = (*Bridge)(nil)
