// Package zigbee binds the management service to MQTT.
//
// Clients publish a request to graylogic/request/zigbee/{request_id}:
//
//	{"request_id":"req-42","method":"POST","action":"zigbee_module/logical_channel","parameters":{"number":15}}
//
// and receive the response envelope, flattened next to the request id, on
// graylogic/response/zigbee/{request_id}:
//
//	{"request_id":"req-42","action":"zigbee_module/logical_channel","timestamp":"...","status":0,"message":"ok","nwkUpdateId":"04","channel":"0f"}
//
// Management events are republished on graylogic/event/zigbee/{type} and
// a retained health message is kept on graylogic/health/zigbee, with an
// offline Last Will registered on the same topic.
package zigbee
