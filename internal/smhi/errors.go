package smhi

import "fmt"

// APIError represents a failed or unreadable exchange with the SMHI API.
type APIError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("SMHI API error: %s: %v", e.Message, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("SMHI API error: %s: status %d", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("SMHI API error: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func NewAPIError(message string, err error) *APIError {
	return &APIError{
		Message: message,
		Err:     err,
	}
}

func newStatusError(message string, statusCode int) *APIError {
	return &APIError{
		Message:    message,
		StatusCode: statusCode,
	}
}
