// Package mqtt connects the gateway to the site MQTT broker.
//
// The broker carries management requests in and responses, events and
// health out:
//
//	graylogic/request/zigbee/{request_id}   client → gateway
//	graylogic/response/zigbee/{request_id}  gateway → client
//	graylogic/event/zigbee/{event_type}     gateway → subscribers
//	graylogic/health/zigbee                 retained, also the LWT topic
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{Topic: mqtt.Topics{}.Health(), Payload: offline, QoS: 1, Retained: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllRequests(), 1, handler)
package mqtt
