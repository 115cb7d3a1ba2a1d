// Package server implements the WebSocket media ingress and the HTTP API surface,
// including the SSE event streams and monitoring endpoints.
package server
