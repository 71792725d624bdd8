package booking

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrUnauthorized = errors.New("hotel API credential rejected")

// ProviderError is a non-2xx answer from the hotel API.
type ProviderError struct {
	StatusCode int
	Message    string
	Details    []string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusCode < http.StatusBadRequest {
		return "hotel API reported an unsuccessful request"
	}
	return fmt.Sprintf("hotel API responded with status %d", e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

func (e *ProviderError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
