package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrMissingAPIKey is matched by every MissingKeyError.
	ErrMissingAPIKey = errors.New("API Key is missing")

	// ErrProviderNotFound is returned by New for an id that is neither built in nor configured.
	ErrProviderNotFound = errors.New("provider not found")
)

// ProviderNotFoundError is returned by New for an unknown provider id.
type ProviderNotFoundError struct {
	ID string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider %q not found", e.ID)
}

func (e *ProviderNotFoundError) Is(target error) bool {
	return target == ErrProviderNotFound
}

// MissingKeyError is returned by Send when the adapter has no API key.
type MissingKeyError struct {
	Vendor string
}

func (e *MissingKeyError) Error() string {
	if e.Vendor == "" {
		return ErrMissingAPIKey.Error()
	}
	return e.Vendor + " " + ErrMissingAPIKey.Error()
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingAPIKey
}

// APIError is a vendor-side failure with the vendor's own message when one was sent.
type APIError struct {
	Vendor     string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// rawJSONer matches SDK error types that keep the response body.
type rawJSONer interface {
	RawJSON() string
}

// newAPIError builds an APIError from an SDK error. A known message wins, then the body's
// error.message, then a generic "<Vendor> API Error".
func newAPIError(vendor string, status int, message string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if message == "" {
		var raw rawJSONer
		if errors.As(err, &raw) {
			message = messageFromJSON(raw.RawJSON())
		}
	}
	if message == "" && err != nil {
		// SDK error strings end with the response body.
		if s := err.Error(); strings.Contains(s, "{") {
			message = messageFromJSON(s[strings.Index(s, "{"):])
		}
	}
	if message == "" {
		message = fmt.Sprintf("%s API Error", vendor)
	}
	return &APIError{Vendor: vendor, StatusCode: status, Message: message, Err: err}
}

func messageFromJSON(body string) string {
	if !gjson.Valid(body) {
		return ""
	}
	for _, path := range []string{"error.message", "message", "error"} {
		if v := gjson.Get(body, path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
