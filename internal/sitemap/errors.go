// Package sitemap writes sitemap-protocol XML documents: url sets split across
// bounded files, and the index file that references them.
package sitemap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLocation is returned when a location does not resolve to an absolute URL
	ErrInvalidLocation = errors.New("invalid location")
	// ErrInvalidPriority is returned when a priority falls outside 0.0-1.0
	ErrInvalidPriority = errors.New("invalid priority")
	// ErrInvalidFrequency is returned when a change frequency is not a protocol value
	ErrInvalidFrequency = errors.New("invalid change frequency")
	// ErrInvalidTimestamp is returned when a last-modified value cannot be parsed
	ErrInvalidTimestamp = errors.New("invalid last-modified timestamp")

	// ErrIOWriteFailed is returned when buffered content cannot reach the output file
	ErrIOWriteFailed = errors.New("write failed")
	// ErrIOUnavailable is returned when the output file cannot be opened.
	// It matches ErrIOWriteFailed as well.
	ErrIOUnavailable = fmt.Errorf("%w: output unavailable", ErrIOWriteFailed)
	// ErrFileNotWritable is returned when an existing output file cannot be replaced
	ErrFileNotWritable = errors.New("file not writable")
	// ErrLimitExceeded is returned when a document would exceed a protocol limit
	ErrLimitExceeded = errors.New("protocol limit exceeded")
	// ErrFinalized is returned when adding to a Map or Index after Finalize
	ErrFinalized = errors.New("already finalized")
)

// ValidationError reports a rejected entry or group. It never leaves the
// writer in a changed state, so callers may continue with the next entry.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Kind    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s. You have specified: %s", e.Kind, e.Message, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// IOError reports a filesystem failure. The Map or Index that returned it
// must not be used afterwards.
type IOError struct {
	Path    string
	Message string
	Kind    error
	Cause   error
}

func (e *IOError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s (%s): %v", e.Kind, e.Message, e.Path, e.Cause)
	}
	return fmt.Sprintf("%v: %s (%s)", e.Kind, e.Message, e.Path)
}

func (e *IOError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}
