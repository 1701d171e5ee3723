package api

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"board-sync/domain"
)

// Event names on the wire. Requests flow client -> hub; everything else flows
// hub -> client. The names are part of the board protocol and must not change.
const (
	// Requests.
	EventCreate = "task:create"
	EventUpdate = "task:update"
	EventMove   = "task:move"
	EventDelete = "task:delete"

	// Pushed to a single client right after it connects.
	EventSync = "sync:tasks"

	// Broadcast to every connected client, including the originator.
	EventCreated = "task:created"
	EventUpdated = "task:updated"
	EventMoved   = "task:moved"
	EventDeleted = "task:deleted"

	// Delivered to the requesting client only.
	EventError = "error"
)

const envelopeMaxSize = 6 * 1024 * 1024 // base64 attachment payloads travel inline

// envelope is the wire frame for every message in either direction.
type envelope struct {
	Event string                 `json:"event"`
	Data  sonic.NoCopyRawMessage `json:"data,omitempty"`
}

// movePayload is the body of a task:move request.
type movePayload struct {
	ID     int64         `json:"id"`
	Column domain.Column `json:"column"`
}

// errorPayload is the body of an error event. TaskID is set when the failure
// concerns a specific record.
type errorPayload struct {
	Message string `json:"message"`
	TaskID  int64  `json:"taskId,omitempty"`
}

// encodeEvent builds a complete wire frame for an outbound event.
func encodeEvent(event string, payload any) ([]byte, error) {
	return sonic.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: payload})
}

// encodeRawEvent wraps already-serialized payload bytes without re-encoding.
func encodeRawEvent(event string, payload []byte) ([]byte, error) {
	return sonic.Marshal(struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data,omitempty"`
	}{Event: event, Data: payload})
}
