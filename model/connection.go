package model

// ConnectionState is the result of the identity verification process.
type ConnectionState string

const (
	// ConnectionVerified means the connection was successfully verified.
	ConnectionVerified ConnectionState = "verified"
	// ConnectionDisconnected means the identity was rejected or the session
	// was forcefully terminated.
	ConnectionDisconnected ConnectionState = "disconnected"
	// ConnectionError means a protocol violation or internal backend error.
	ConnectionError ConnectionState = "error"
)

// ConnectionStatus is sent by the backend to report the outcome of identity
// verification, a disconnect or an error. If Status is not verified the
// backend closes the connection.
type ConnectionStatus struct {
	Status ConnectionState `json:"status" validate:"required,oneof=verified disconnected error"`
	Reason *string         `json:"reason,omitempty"`
}

// Validate checks the status against its struct tags.
func (s ConnectionStatus) Validate() error {
	return validateStruct(s)
}

// Verified reports whether the backend accepted the identity.
func (s ConnectionStatus) Verified() bool {
	return s.Status == ConnectionVerified
}
