// content/errors.go
package content

import (
	"errors"
	"fmt"
)

var (
	// ErrPostNotFound means the slug has no backing file.
	ErrPostNotFound = errors.New("post not found")
	// ErrSlugTaken means a create collided with an existing slug.
	ErrSlugTaken = errors.New("post already exists")
	// ErrInvalidInput means required fields were missing or malformed.
	ErrInvalidInput = errors.New("invalid post input")
)

// ParseError means a file exists but its front matter is malformed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps a filesystem failure for a single operation.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }
