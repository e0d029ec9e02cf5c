// Package rpc holds the error taxonomy shared by everything that talks to the
// remote storefront services.
package rpc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FallbackMessage is reported when no better text can be extracted from an error.
const FallbackMessage = "An unexpected error occurred"

// PageError is a page-level error entry of an error body.
type PageError struct {
	Message string `json:"message"`
}

// Body is the JSON error payload returned by the storefront API.
type Body struct {
	Message     string              `json:"message,omitempty"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
	PageErrors  []PageError         `json:"pageErrors,omitempty"`
}

// Text returns the most specific human readable text of the body, or "".
func (b Body) Text() string {
	if b.Message != "" {
		return b.Message
	}
	if len(b.FieldErrors) > 0 {
		keys := make([]string, 0, len(b.FieldErrors))
		for k := range b.FieldErrors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, b.FieldErrors[k]...)
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	if len(b.PageErrors) > 0 && b.PageErrors[0].Message != "" {
		return b.PageErrors[0].Message
	}
	return ""
}

// StatusError is a non-2xx answer from the remote service.
type StatusError struct {
	Status int
	Body   Body
}

func (e *StatusError) Error() string {
	if t := e.Body.Text(); t != "" {
		return t
	}
	return fmt.Sprintf("remote returned status %d", e.Status)
}

// FetchError reports a failed read (catalog, search, cart, orders, quotes).
type FetchError struct {
	Op      string
	Message string
	Err     error
}

func (e *FetchError) Error() string { return e.Op + ": " + e.Message }
func (e *FetchError) Unwrap() error { return e.Err }

// MutationError reports a failed write (cart item add/update/remove, checkout, quote).
type MutationError struct {
	Op      string
	Message string
	Err     error
}

func (e *MutationError) Error() string { return e.Op + ": " + e.Message }
func (e *MutationError) Unwrap() error { return e.Err }

// MessageOf extracts a human readable message from err. Structured body text
// wins over the plain error text; fallback is used when both are empty.
func MessageOf(err error, fallback string) string {
	if fallback == "" {
		fallback = FallbackMessage
	}
	if err == nil {
		return fallback
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	var me *MutationError
	if errors.As(err, &me) && me.Message != "" {
		return me.Message
	}
	var se *StatusError
	if errors.As(err, &se) {
		if t := se.Body.Text(); t != "" {
			return t
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// Fetch wraps err as a *FetchError for op. An error that already is one is returned as is.
func Fetch(op string, err error, fallback string) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Op: op, Message: MessageOf(err, fallback), Err: err}
}

// Mutation wraps err as a *MutationError for op. An error that already is one is returned as is.
func Mutation(op string, err error, fallback string) error {
	if err == nil {
		return nil
	}
	var me *MutationError
	if errors.As(err, &me) {
		return err
	}
	return &MutationError{Op: op, Message: MessageOf(err, fallback), Err: err}
}

// IsRemote reports whether err came from the remote boundary.
func IsRemote(err error) bool {
	var fe *FetchError
	var me *MutationError
	return errors.As(err, &fe) || errors.As(err, &me)
}
