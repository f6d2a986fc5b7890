// Package mgmt implements the management plane of the Zigbee gateway.
//
// The package owns the request handlers that let an operator inspect and
// reconfigure the radio module: restart, factory reset, NV memory access,
// association table queries and logical channel changes.
//
// # Architecture
//
// Transports (the MQTT bridge, the HTTP API) decode an inbound request into a
// Request and hand it to the Service together with a Kind. The Service checks
// the verb, validates parameters, calls into the radio through the HAL and ZDO
// interfaces and renders a Response. Handlers never talk to a transport.
//
//	┌──────────────┐  Request   ┌──────────────┐  HAL / ZDO  ┌──────────────┐
//	│  MQTT / HTTP │──────────►│   Service    │────────────►│  znp (radio) │
//	│   bindings   │◄──────────│  (this pkg)  │             └──────────────┘
//	└──────────────┘  Response  └──────┬───────┘
//	                                   │ Event
//	                                   ▼
//	                       audit, websocket, influxdb
//
// # Status codes
//
// Every Response carries a status: 0 on success, -1 for a local validation
// failure and any other value is a radio status code passed through verbatim.
//
// # Concurrency
//
// Handlers run to completion on the caller's goroutine. The channel change
// sequence (read, decide, persist, broadcast) is serialised by a mutex so
// concurrent requests never assign the same network update id. The broadcast
// itself is submitted and never awaited.
package mgmt
