package errors

import "fmt"

type ErrorType string

const (
	ConfigError    ErrorType = "config"
	TransportError ErrorType = "transport"
	DecodeError    ErrorType = "decode"
	MapError       ErrorType = "map"
)

type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewConfigError(message string, cause error) *AppError {
	return &AppError{Type: ConfigError, Message: message, Cause: cause}
}

func NewTransportError(message string, cause error) *AppError {
	return &AppError{Type: TransportError, Message: message, Cause: cause}
}

func NewDecodeError(message string, cause error) *AppError {
	return &AppError{Type: DecodeError, Message: message, Cause: cause}
}

func NewMapError(message string, cause error) *AppError {
	return &AppError{Type: MapError, Message: message, Cause: cause}
}

// ConnectKind classifies why a connection attempt failed so the UI can
// offer the right remediation instead of a generic message.
type ConnectKind string

const (
	ConnectTimeout     ConnectKind = "timeout"
	ConnectPermission  ConnectKind = "permission"
	ConnectPortBusy    ConnectKind = "port_busy"
	ConnectUnavailable ConnectKind = "unavailable"
	ConnectGeneric     ConnectKind = "generic"
)

// ConnectError carries structured detail about a failed connect attempt.
type ConnectError struct {
	Kind   ConnectKind
	Target string
	Cause  error
}

func (e *ConnectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connect %s: %s (%v)", e.Target, e.Kind, e.Cause)
	}
	return fmt.Sprintf("connect %s: %s", e.Target, e.Kind)
}

func (e *ConnectError) Unwrap() error {
	return e.Cause
}

// Hint is a short remediation suggestion for the status bar / dialog.
func (e *ConnectError) Hint() string {
	switch e.Kind {
	case ConnectTimeout:
		return "device did not answer in time; retry or check the cable"
	case ConnectPermission:
		return "no permission to open the device; check group membership (dialout)"
	case ConnectPortBusy:
		return "port is held by another process; close it or pick a different port"
	case ConnectUnavailable:
		return "radio support is not available; only TCP targets can work"
	default:
		return "connection failed; retry, pick another port, or switch to TCP"
	}
}

func NewConnectError(kind ConnectKind, target string, cause error) *ConnectError {
	return &ConnectError{Kind: kind, Target: target, Cause: cause}
}
