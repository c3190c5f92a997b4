package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the logical type of a W3CP message.
type MessageType string

const (
	MessageTypeIdentityChallenge     MessageType = "identityChallenge"
	MessageTypeIdentityProof         MessageType = "identityProof"
	MessageTypeConnectionStatus      MessageType = "connectionStatus"
	MessageTypeMessageError          MessageType = "messageError"
	MessageTypeChargePointStatus     MessageType = "chargepointStatus"
	MessageTypeAuthorizationRequest  MessageType = "authorizationRequest"
	MessageTypeAuthorizationResponse MessageType = "authorizationResponse"
	MessageTypeDescribeVariables     MessageType = "describeVariables"
	MessageTypeSmartCapabilities     MessageType = "smartCapabilities"
	MessageTypeIdentityDiscovery     MessageType = "identityDiscovery"
	MessageTypeIdentityReport        MessageType = "identityReport"
)

// messageTypes lists every known type, in declaration order.
var messageTypes = []MessageType{
	MessageTypeIdentityChallenge,
	MessageTypeIdentityProof,
	MessageTypeConnectionStatus,
	MessageTypeMessageError,
	MessageTypeChargePointStatus,
	MessageTypeAuthorizationRequest,
	MessageTypeAuthorizationResponse,
	MessageTypeDescribeVariables,
	MessageTypeSmartCapabilities,
	MessageTypeIdentityDiscovery,
	MessageTypeIdentityReport,
}

// MessageTypes returns all known message types.
func MessageTypes() []MessageType {
	out := make([]MessageType, len(messageTypes))
	copy(out, messageTypes)
	return out
}

// Known reports whether t is one of the defined message types.
func (t MessageType) Known() bool {
	for _, known := range messageTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ErrUnknownMessageType is returned when an envelope carries a type this
// model does not define.
var ErrUnknownMessageType = errors.New("unknown message type")

// Message is the generic wrapper for all messages in the W3CP protocol.
//
// The canonical JSON of Payload is what PayloadSha256Hash and
// PayloadSignature are computed over. Both are Base64URL without padding.
type Message[T any] struct {
	Type              MessageType `json:"type" validate:"required"`
	Payload           T           `json:"payload"`
	PayloadSignature  *string     `json:"payloadSignature,omitempty"`
	PayloadSha256Hash *string     `json:"payloadSha256Hash,omitempty"`
}

// NewMessage wraps payload in an unsigned message.
func NewMessage[T any](t MessageType, payload T) Message[T] {
	return Message[T]{Type: t, Payload: payload}
}

// Validate checks the envelope and, through struct traversal, the payload.
func (m Message[T]) Validate() error {
	if !m.Type.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
	return validateStruct(m)
}

// Envelope is a Message whose payload has not been decoded yet. Receivers
// decode into an Envelope first, switch on Type and then call DecodePayload.
type Envelope struct {
	Type              MessageType     `json:"type"`
	Payload           json.RawMessage `json:"payload"`
	PayloadSignature  *string         `json:"payloadSignature,omitempty"`
	PayloadSha256Hash *string         `json:"payloadSha256Hash,omitempty"`
}

// ParseEnvelope decodes raw message bytes into an Envelope.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, errors.New("decode envelope: missing type")
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return Envelope{}, errors.New("decode envelope: missing payload")
	}
	return env, nil
}

// DecodePayload decodes the payload of env into a T.
func DecodePayload[T any](env Envelope) (T, error) {
	var payload T
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return payload, nil
}

// DecodeMessage decodes env into a typed message, keeping hash and signature.
func DecodeMessage[T any](env Envelope) (Message[T], error) {
	payload, err := DecodePayload[T](env)
	if err != nil {
		return Message[T]{}, err
	}
	return Message[T]{
		Type:              env.Type,
		Payload:           payload,
		PayloadSignature:  env.PayloadSignature,
		PayloadSha256Hash: env.PayloadSha256Hash,
	}, nil
}

// MessageError is the payload of a messageError message. It reports a
// message the peer could not process.
type MessageError struct {
	Code          string  `json:"code" validate:"required"`
	Message       string  `json:"message"`
	CorrelationID *string `json:"correlationId,omitempty"`
}

// Validate requires an error code.
func (e MessageError) Validate() error {
	return validateStruct(e)
}
