// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "fmt"

// APIError is the terminal failure of a Call: either a non-retryable HTTP
// status or an exhausted retry budget. The message is already sanitized.
type APIError struct {
	// Status is the HTTP status code, or 0 for connection-level failures.
	Status int

	// Attempts is the number of attempts made before giving up.
	Attempts int

	msg string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api error %d after %d attempt(s): %s", e.Status, e.Attempts, e.msg)
	}
	return fmt.Sprintf("api call failed after %d attempt(s): %s", e.Attempts, e.msg)
}

// ValidationError reports a model response that could not be turned into a
// valid structured record.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid response: " + e.Reason
}

// SecurityError reports a response rejected by the injection-pattern scan.
// It is never retried: the tainted text must not reach downstream documents.
type SecurityError struct {
	// Patterns is the number of distinct suspicious pattern kinds found.
	Patterns int
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("response contains %d suspicious pattern kinds, rejecting", e.Patterns)
}
