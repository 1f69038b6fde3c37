// Package verify reads sitemap and sitemap index files back and checks them
// against the sitemap protocol.
package verify

import (
	"fmt"
	"strings"
)

// Issue is one protocol violation found in a document
type Issue struct {
	Record  int // 1-based record number, 0 for document-level issues
	Field   string
	Message string
}

func (i Issue) String() string {
	if i.Record == 0 {
		return i.Message
	}
	if i.Field == "" {
		return fmt.Sprintf("record %d: %s", i.Record, i.Message)
	}
	return fmt.Sprintf("record %d: %s: %s", i.Record, i.Field, i.Message)
}

// Error represents a document that is malformed or violates the protocol
type Error struct {
	Path    string
	Message string
	Issues  []Issue
	Cause   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("verify error: ")
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	for i, issue := range e.Issues {
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, issue))
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}
