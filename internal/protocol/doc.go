// Package protocol implements the binary media-frame envelope carried over the ingress WebSocket.
// It handles header parsing and validation for audio frames, video frames, and
// out-of-band flush control messages.
package protocol
