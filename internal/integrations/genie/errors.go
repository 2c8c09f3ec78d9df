package genie

import (
	"fmt"
	"time"
)

// RemoteError captures non-2xx responses from the Genie API.
type RemoteError struct {
	Op         string
	StatusCode int
	URL        string
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("genie: %s: unexpected status %d from %s: %s", e.Op, e.StatusCode, e.URL, e.Body)
}

func (e *RemoteError) HTTPStatusCode() int {
	return e.StatusCode
}

// ProtocolError reports a successful response that lacks a required field or
// cannot be decoded at all. Err is set in the second case.
type ProtocolError struct {
	Op    string
	Field string
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("genie: %s: decode response: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("genie: %s: no %s in response", e.Op, e.Field)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when a message does not reach a terminal status
// within the requested wait.
type TimeoutError struct {
	MessageID string
	MaxWait   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("genie: message %s did not complete within %s", e.MessageID, e.MaxWait)
}
