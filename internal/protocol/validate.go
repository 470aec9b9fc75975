package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate checks the `validate` struct tags on payload types.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validClientTypes is the set of allowed client→server message types.
var validClientTypes = map[string]bool{
	TypeWatchCreate: true,
	TypeWatchStop:   true,
}

// ValidateClientMessage validates a raw JSON message from a client.
// Returns the parsed Message and any validation error.
func ValidateClientMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if msg.Type == "" {
		return nil, fmt.Errorf("missing 'type' field")
	}

	if !validClientTypes[msg.Type] {
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}

	if msg.Payload == nil {
		return nil, fmt.Errorf("missing 'payload' field")
	}

	switch msg.Type {
	case TypeWatchCreate:
		var p WatchCreatePayload
		if err := decodePayload(msg.Type, msg.Payload, &p); err != nil {
			return nil, err
		}

	case TypeWatchStop:
		var p WatchStopPayload
		if err := decodePayload(msg.Type, msg.Payload, &p); err != nil {
			return nil, err
		}
	}

	return &msg, nil
}

// decodePayload unmarshals a payload and checks its validate tags.
func decodePayload(msgType string, raw json.RawMessage, out interface{}) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid payload for %s: %w", msgType, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("invalid payload for %s: %w", msgType, err)
	}
	return nil
}

// ValidateWatchCreate checks a decoded watch.create payload. Used by the
// REST surface, which bypasses the envelope.
func ValidateWatchCreate(p *WatchCreatePayload) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid watch request: %w", err)
	}
	return nil
}

// NewErrorMessage creates an error message ready to send to the client.
func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}
