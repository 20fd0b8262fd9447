// Package http exposes turns, sessions and the compiled graph over REST.
//
// Requests to documented routes are validated against the embedded OpenAPI
// document (served on /openapi.yaml) before they reach a handler.
package http
