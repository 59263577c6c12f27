package errors

import (
	"context"
	stdErrors "errors"
	"net"
)

// FromTransport classifies a failed outbound call as TIMEOUT or NETWORK_ERROR.
// Errors that already carry a code are returned untouched.
func FromTransport(err error, message string) *Error {
	if err == nil {
		return nil
	}
	if typed := As(err); typed != nil {
		return typed
	}
	if isTimeout(err) {
		return Wrap(CodeTimeout, err, message)
	}
	return Wrap(CodeNetwork, err, message)
}

func isTimeout(err error) bool {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stdErrors.As(err, &netErr) && netErr.Timeout()
}
