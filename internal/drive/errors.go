package drive

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError describes a failed call against the remote document store.
type RemoteError struct {
	Message    string
	StatusCode int
	ErrorCode  string
	Details    string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// Terminal reports whether the error must not be retried. Auth failures and
// missing resources never recover by trying again.
func (e *RemoteError) Terminal() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// NotFound reports whether the remote answered 404 for the addressed item.
func (e *RemoteError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Classify normalises any failure into a RemoteError. Network errors,
// timeouts and other unclassified failures carry no status code and are
// therefore retryable.
func Classify(err error) *RemoteError {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re
	}
	return &RemoteError{Message: err.Error()}
}

// IsNotFound reports whether err represents a 404 from the remote store.
func IsNotFound(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.NotFound()
	}
	return false
}
