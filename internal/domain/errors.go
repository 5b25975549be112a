package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for well-known failure conditions that cross package
// boundaries. Callers should use [errors.Is] to match these.
var (
	// ErrUnauthorized indicates missing, invalid, or expired credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionExpired means the stored token is past its usable lifetime.
	ErrSessionExpired = errors.New("session expired")

	// ErrSetupRequired is returned while the appliance still waits for its
	// one-time initial configuration.
	ErrSetupRequired = errors.New("initial setup required")

	// ErrNotFound means the requested record does not exist on the server.
	ErrNotFound = errors.New("not found")

	// ErrPollTimeout is returned when the restart poller gives up waiting
	// for the service to report a steady state.
	ErrPollTimeout = errors.New("service restart poll timed out")

	// ErrDraftPending rejects starting a second peer draft while one is
	// already open.
	ErrDraftPending = errors.New("another draft is already pending")
)

// APIError carries the appliance's structured rejection body alongside the
// HTTP status. A non-empty Field routes the message to that form field;
// otherwise the UI shows it under the common slot.
type APIError struct {
	Status  int
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api: %d %s (field %s)", e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case 401:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	case 409:
		return ErrSetupRequired
	}
	return nil
}

// FieldText renders the message shown in a form field's error slot, matching
// the "error + details" concatenation the appliance UI always used.
func (e *APIError) FieldText() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + " " + e.Details
}

// AsAPIError unwraps err into an APIError, or synthesizes a status-less one
// so failure handlers have a single shape to work with.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Message: err.Error()}
}
