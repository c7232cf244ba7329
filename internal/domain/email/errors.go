package email

import (
	"errors"
	"fmt"
)

// TransportError wraps a mailbox or SMTP failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodingError wraps a failure to decode a subject, body or sender header.
type DecodingError struct {
	Field string
	Err   error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// CapabilityError wraps a failure of the sentiment or entity capability.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s unavailable: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsDecoding(err error) bool {
	var target *DecodingError
	return errors.As(err, &target)
}

func IsCapability(err error) bool {
	var target *CapabilityError
	return errors.As(err, &target)
}
