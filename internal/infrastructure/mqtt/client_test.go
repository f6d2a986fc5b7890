package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
)

const testBroker = "127.0.0.1:1883"

func testConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// requireBroker skips the test unless a broker is listening locally.
func requireBroker(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testBroker, 200*time.Millisecond)
	if err != nil {
		t.Skipf("no MQTT broker at %s: %v", testBroker, err)
	}
	conn.Close()
}

func TestTopics(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"request", topics.Request("req-1"), "graylogic/request/zigbee/req-1"},
		{"response", topics.Response("req-1"), "graylogic/response/zigbee/req-1"},
		{"health", topics.Health(), "graylogic/health/zigbee"},
		{"event", topics.Event("channel.changed"), "graylogic/event/zigbee/channel.changed"},
		{"all requests", topics.AllRequests(), "graylogic/request/zigbee/+"},
		{"all events", topics.AllEvents(), "graylogic/event/zigbee/+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestClient_ValidationWithoutBroker(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("a/b", nil, 3, false), ErrInvalidQoS},
		{"publish oversized", c.Publish("a/b", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"publish disconnected", c.Publish("a/b", []byte("x"), 1, false), ErrNotConnected},
		{"subscribe empty topic", c.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("a/b", 7, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("a/b", 1, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("a/b", 1, noop), ErrNotConnected},
		{"unsubscribe empty topic", c.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", c.Unsubscribe("a/b"), ErrNotConnected},
		{"health disconnected", c.HealthCheck(context.Background()), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.HasSubscription("a/b") {
		t.Error("failed Subscribe left a tracked subscription")
	}
}

func TestClient_HealthCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&Client{}).HealthCheck(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestClient_CloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
	if err := (&Client{}).Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestWrapHandler(t *testing.T) {
	log := &recordingLogger{}
	c := &Client{}
	c.SetLogger(log)

	var got string
	c.wrapHandler(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return fmt.Errorf("rejected")
	})(nil, fakeMessage{topic: "graylogic/request/zigbee/r1", payload: []byte("{}")})

	if got != "graylogic/request/zigbee/r1={}" {
		t.Errorf("handler saw %q", got)
	}
	if len(log.warns) != 1 {
		t.Errorf("warns = %v, want one handler error", log.warns)
	}

	c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})(nil, fakeMessage{topic: "x"})

	if len(log.errors) != 1 {
		t.Errorf("errors = %v, want one recovered panic", log.errors)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig("graylogic-zigbee-refused")
	cfg.Broker.Port = 19998

	_, err := Connect(cfg, nil)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	requireBroker(t)

	pub, err := Connect(testConfig("graylogic-zigbee-test-pub"), nil)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	sub, err := Connect(testConfig("graylogic-zigbee-test-sub"), &Will{
		Topic:    Topics{}.Health(),
		Payload:  []byte(`{"status":"offline"}`),
		QoS:      1,
		Retained: true,
	})
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	received := make(chan string, 1)
	err = sub.Subscribe(Topics{}.AllRequests(), 1, func(topic string, payload []byte) error {
		received <- topic + " " + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.HasSubscription(Topics{}.AllRequests()) {
		t.Error("HasSubscription() = false after Subscribe")
	}

	if err := pub.Publish(Topics{}.Request("rt-1"), []byte(`{"method":"GET"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if want := `graylogic/request/zigbee/rt-1 {"method":"GET"}`; got != want {
			t.Errorf("received %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	if err := sub.Unsubscribe(Topics{}.AllRequests()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if err := sub.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
