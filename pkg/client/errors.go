package client

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrNotAnArray   = errors.New("response is not an array")
)

// TransportError is returned when a request could not be sent or its
// response could not be read.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is returned for any response outside the 2xx range.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %s", e.Method, e.URL, e.Status)
	}

	return fmt.Sprintf("%s %s: unexpected status %s: %s", e.Method, e.URL, e.Status, e.Body)
}

// DecodeError is returned when a response body does not have the expected shape.
// Index is the position of the failing torrent record in a list response, or -1
// if the body as a whole could not be decoded.
type DecodeError struct {
	Index int
	Hash  string
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("could not decode response: %v", e.Err)
	}

	msg := fmt.Sprintf("could not decode torrent record %d", e.Index)
	if e.Hash != "" {
		msg += fmt.Sprintf(" (hash %v)", e.Hash)
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}

	return msg + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
