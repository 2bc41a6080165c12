// Package server defines the error taxonomy for session and broadcast
// failures, plus helpers for classifying connection-close errors.
package server

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConnectionTerminated marks a session's transport as closed, cleanly or
// not. It is terminal for that session only.
var ErrConnectionTerminated = errors.New("connection terminated")

// DeliveryFailureError reports that one member could not be delivered a
// broadcast frame. It never aborts the broadcast; it is fatal only to the
// failing member's own session.
type DeliveryFailureError struct {
	UserID string
	Reason string
}

func (e *DeliveryFailureError) Error() string {
	return fmt.Sprintf("delivery to user %s failed: %s", e.UserID, e.Reason)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
