package algolia

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorClass represents a classification of transport errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents connection level failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents a fetch that hit its deadline.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassInvalidResponse represents a body that is not a JSON object.
	ErrorClassInvalidResponse ErrorClass = "invalid_response"
)

// TransportError is returned for any failure to obtain a decodable page.
type TransportError struct {
	Class      ErrorClass
	StatusCode int
	Tag        string
	Page       int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("algolia %s error (status %d) on %s page %d: %s",
			e.Class, e.StatusCode, e.Tag, e.Page, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("algolia %s error on %s page %d: %s: %v",
			e.Class, e.Tag, e.Page, e.Message, e.Err)
	}
	return fmt.Sprintf("algolia %s error on %s page %d: %s",
		e.Class, e.Tag, e.Page, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status to an error class. It returns "" for
// statuses that are not errors.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// classifyError maps an error from http.Client.Do to an error class.
func classifyError(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}

	return ErrorClassNetwork
}

// statusText is the message recorded for HTTP errors.
func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return http.StatusText(resp.StatusCode)
}
