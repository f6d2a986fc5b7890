// Package influxdb records management telemetry in InfluxDB v2.
//
// Every state-changing request (channel change, NV write, restart, factory
// reset) becomes a point in the zigbee_mgmt measurement, so channel
// history and write activity can be graphed next to the rest of the site's
// metrics. The client is optional: Connect returns ErrDisabled when the
// influxdb section is switched off.
package influxdb
