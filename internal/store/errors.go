package store

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned by a NodeSource for an unknown node id.
var ErrNodeNotFound = errors.New("node not found")

// ErrPayloadNotFound is returned when no image row matches a locator.
var ErrPayloadNotFound = errors.New("payload not found")

// ErrUnsupportedFormat is wrapped by OpenError for files this reader cannot open.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// OpenError reports a document that could not be opened. It is fatal to the
// session that tried to open it.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open document %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// ErrMalformedContent is wrapped by adapters when a stored content fragment
// cannot be parsed.
var ErrMalformedContent = errors.New("malformed content")

// ErrClosed is returned by a NodeSource used after Close.
var ErrClosed = errors.New("document closed")
