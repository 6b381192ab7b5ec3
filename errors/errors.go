// Package errors provides error types and handling for transfer operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a transfer operation error with context about the
// operation that failed. It wraps the underlying error from the AWS SDK,
// the remote-filesystem client, or another source.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "copy", "connect")
	Op string

	// Bucket is the object store bucket name (if applicable)
	Bucket string

	// Key is the object key or remote path (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("transfer.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("transfer.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("transfer.%s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("transfer.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key or remote path context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// New creates a new Error with the given operation and underlying error.
func New(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for transfer operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrConnection indicates that every protocol attempt against the remote
	// server failed. It is fatal for the whole run.
	ErrConnection = errors.New("transfer: connection failed")

	// ErrNotFound indicates that the requested object or remote path does
	// not exist. A unit-level not-found fails that unit only; the batch
	// continues.
	ErrNotFound = errors.New("transfer: not found")

	// ErrPrefixNotFound indicates that the requested source prefix holds no
	// objects at all, as opposed to a pattern that filtered everything out.
	ErrPrefixNotFound = errors.New("transfer: prefix not found")

	// ErrNoMatch indicates that a pattern was supplied and no object under
	// the prefix matched it.
	ErrNoMatch = errors.New("transfer: no objects matched pattern")

	// ErrAccessDenied indicates that the bucket or path is inaccessible.
	// Fatal when it concerns the primary source or destination.
	ErrAccessDenied = errors.New("transfer: access denied")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("transfer: invalid input")

	// ErrIncompleteUpload indicates that the parts of a multipart session
	// are non-contiguous or out of order at completion time. Completion is
	// refused and the session must be aborted.
	ErrIncompleteUpload = errors.New("transfer: incomplete multipart upload")

	// ErrPartialBatch indicates that one or more units of a batch failed
	// while others succeeded. Non-fatal; surfaced via the tally and the
	// process exit code.
	ErrPartialBatch = errors.New("transfer: some units failed")

	// ErrConfirmationDeclined indicates that the user declined the
	// confirmation prompt for a destructive operation. Nothing was mutated.
	ErrConfirmationDeclined = errors.New("transfer: confirmation declined")
)

// IsNotFound checks if an error indicates a missing object or remote path.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPrefixNotFound)
}

// IsConnection checks if an error indicates an exhausted connection attempt.
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsIncompleteUpload checks if an error indicates a broken part sequence.
func IsIncompleteUpload(err error) bool {
	return errors.Is(err, ErrIncompleteUpload)
}
