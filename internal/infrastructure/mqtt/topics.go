package mqtt

import "fmt"

// TopicPrefix is the root of every topic the gateway uses.
const TopicPrefix = "graylogic"

// Protocol is the bridge segment of the gateway's topics.
const Protocol = "zigbee"

// Topics builds the gateway's MQTT topics. The layout follows the flat
// bridge scheme graylogic/{category}/zigbee/{id}:
//
//	topics := mqtt.Topics{}
//	topics.Response("req-42") // graylogic/response/zigbee/req-42
type Topics struct{}

// Request returns the topic a client publishes a management request on.
//
// Example: graylogic/request/zigbee/req-42
func (Topics) Request(requestID string) string {
	return fmt.Sprintf("%s/request/%s/%s", TopicPrefix, Protocol, requestID)
}

// Response returns the topic the reply to requestID is published on.
//
// Example: graylogic/response/zigbee/req-42
func (Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, Protocol, requestID)
}

// Health returns the retained health topic, also used for the LWT.
//
// Example: graylogic/health/zigbee
func (Topics) Health() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Protocol)
}

// Event returns the topic a management event of the given type is
// published on.
//
// Example: graylogic/event/zigbee/channel.changed
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, Protocol, eventType)
}

// AllRequests matches every request topic.
//
// Pattern: graylogic/request/zigbee/+
func (Topics) AllRequests() string {
	return fmt.Sprintf("%s/request/%s/+", TopicPrefix, Protocol)
}

// AllEvents matches every event topic.
//
// Pattern: graylogic/event/zigbee/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/%s/+", TopicPrefix, Protocol)
}
