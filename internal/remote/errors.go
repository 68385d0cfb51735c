package remote

import (
	"fmt"
	"net/http"

	"tradeledger/backend/internal/store"
)

// NetworkError wraps a failure to reach a backend or to read its reply.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError is a non-2xx reply. Message carries the backend's own error
// text when it sent one.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Is lets callers match a remote 404 with store.ErrNotFound.
func (e *RemoteError) Is(target error) bool {
	return target == store.ErrNotFound && e.Status == http.StatusNotFound
}

func newRemoteError(status int, message string) *RemoteError {
	if message == "" {
		message = http.StatusText(status)
		if message == "" {
			message = fmt.Sprintf("status %d", status)
		}
	}
	return &RemoteError{Status: status, Message: message}
}
