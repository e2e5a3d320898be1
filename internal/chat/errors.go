package chat

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the portal rejected the session's token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSendInFlight is returned when a view is asked to send while a previous send is outstanding.
	ErrSendInFlight = errors.New("a send is already in flight")
	// ErrViewClosed is returned by operations on a torn-down view.
	ErrViewClosed = errors.New("view closed")
	// ErrNotReady is returned when sending before history has loaded.
	ErrNotReady = errors.New("conversation not loaded")
)

// TransportError is a network failure or non-2xx response from the portal.
type TransportError struct {
	Op     string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the request may succeed.
func (e *TransportError) Retryable() bool {
	switch {
	case e.Status == 0:
		return true
	case e.Status >= 500:
		return true
	case e.Status == http.StatusRequestTimeout, e.Status == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// ValidationError rejects a missing partner id or an empty message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ChannelError is a connect or join failure on the push channel.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a TransportError worth retrying.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Retryable()
}
