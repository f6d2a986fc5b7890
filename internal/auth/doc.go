// Package auth issues and validates the bearer tokens that guard the HTTP
// management API.
//
// Tokens are HS256 JWTs carrying a subject and one of three roles:
// viewer (read), installer (configure the radio) and owner (factory
// reset). The role-permission map is static.
package auth
