package zigbee

import (
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
)

// RequestMessage is a management request received over MQTT.
// Topic: graylogic/request/zigbee/{request_id}
type RequestMessage struct {
	// RequestID correlates the response. When empty, the last topic
	// segment is used.
	RequestID string `json:"request_id"`

	// Method is the verb, GET or POST.
	Method string `json:"method"`

	// Action is the management topic, e.g. "zigbee_module/nv_item".
	Action string `json:"action"`

	// Parameters are the request parameters.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ResponseMessage carries the response envelope back to the caller.
// Topic: graylogic/response/zigbee/{request_id}
type ResponseMessage struct {
	RequestID string    `json:"request_id"`
	Action    string    `json:"action,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	mgmt.Response
}

// EventMessage republishes a management event.
// Topic: graylogic/event/zigbee/{type}
type EventMessage struct {
	Bridge string `json:"bridge"`
	mgmt.Event
}

// HealthStatus is the operational status reported on the health topic.
type HealthStatus string

// Health states.
const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published retained to graylogic/health/zigbee.
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Status        HealthStatus `json:"status"`
	Timestamp     time.Time    `json:"timestamp"`
	Version       string       `json:"version,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Radio         *RadioHealth `json:"radio,omitempty"`
}

// RadioHealth describes the coprocessor link.
type RadioHealth struct {
	Port      string `json:"port"`
	Connected bool   `json:"connected"`
	Firmware  string `json:"firmware,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewLWTMessage is the payload the broker publishes if the bridge drops
// off without a clean shutdown.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Status:    HealthOffline,
		Timestamp: time.Now().UTC(),
		Reason:    "unexpected disconnect",
	}
}
