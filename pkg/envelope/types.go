package envelope

import "encoding/json"

const ProtocolVersion = "action-envelope-v1"

type Actor struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type ActionEnvelope struct {
	Action     string          `json:"action"`
	RequestID  string          `json:"requestId"`
	ActorEmail string          `json:"actorEmail"`
	ActorRole  string          `json:"actorRole"`
	Data       json.RawMessage `json:"data"`
	TS         int64           `json:"ts"`
	Signature  string          `json:"signature"`
}

type Response[T any] struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}
