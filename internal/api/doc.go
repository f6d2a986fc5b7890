// Package api implements the HTTP management API and event stream for the
// Zigbee gateway.
//
// This package provides:
//   - /api/v1/{group}/{name} management endpoints backed by the dispatcher
//   - WebSocket hub relaying management events (channel.changed, nv.written, ...)
//   - Read endpoints for the audit trail and the device archive
//   - Optional JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Response codes
//
// Management endpoints answer 200 with the response envelope for every known
// topic, including failures; the envelope status carries the outcome. Only an
// unknown topic answers 404. Authentication failures answer 401 or 403.
//
// # Security
//
// Authentication is enabled by configuring security.jwt.secret. Tokens carry
// one of the viewer, installer or owner roles. WebSocket connections use
// single-use tickets to keep tokens out of URLs.
package api
