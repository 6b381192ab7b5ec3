// Package xfertypes provides shared type definitions for the transferkit module.
package xfertypes

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
)

// PlacementPolicy determines how destination keys are derived from a
// source prefix/key pair.
type PlacementPolicy string

// Predefined placement policies.
const (
	// PolicyPreserve recreates a subfolder named after the source folder
	// under the destination prefix.
	PolicyPreserve PlacementPolicy = "preserve"

	// PolicyMerge places source contents directly under the destination
	// prefix, without an extra directory level named after the source.
	PolicyMerge PlacementPolicy = "merge"

	// PolicyRename is merge applied to a destination prefix that does not
	// exist yet, modeling "rename folder A to B" rather than "move A's
	// contents into existing B".
	PolicyRename PlacementPolicy = "rename"
)

// PatternType selects the matching syntax for a pattern.
type PatternType string

// Predefined pattern types.
const (
	// PatternGlob matches with shell-style glob syntax (*, ?, **).
	PatternGlob PatternType = "glob"

	// PatternRegex matches with Go regular expression syntax.
	PatternRegex PatternType = "regex"

	// PatternExact matches the name verbatim.
	PatternExact PatternType = "exact"
)

// OpKind identifies a batch operation.
type OpKind string

// Predefined batch operations.
const (
	OpCopy     OpKind = "copy"
	OpMove     OpKind = "move"
	OpDelete   OpKind = "delete"
	OpList     OpKind = "list"
	OpUpload   OpKind = "upload"
	OpDownload OpKind = "download"
)

// Destructive reports whether the operation removes source data.
func (k OpKind) Destructive() bool {
	return k == OpMove || k == OpDelete
}

// Object represents an object-store entry with its basic metadata.
type Object struct {
	// Key is the object key (path)
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the entity tag for the object
	ETag string

	// StorageClass is the object's storage class
	StorageClass string
}

// ObjectVersion represents one historical version of an object.
type ObjectVersion struct {
	// Key is the object key
	Key string

	// VersionID identifies this version
	VersionID string

	// IsLatest marks the current version
	IsLatest bool

	// IsDeleteMarker marks a delete marker rather than object data
	IsDeleteMarker bool

	// Size is the version's size in bytes
	Size int64

	// LastModified is when this version was written
	LastModified time.Time

	// ETag is the entity tag for this version
	ETag string
}

// ObjectMetadata contains detailed metadata about a stored object.
type ObjectMetadata struct {
	// ContentType is the MIME type of the object
	ContentType string

	// ContentLength is the size of the object in bytes
	ContentLength int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the entity tag for the object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Metadata contains user-defined metadata
	Metadata map[string]string
}

// Part describes one uploaded or copied part of a multipart session.
// Part numbers are 1-based and must be contiguous at completion.
type Part struct {
	// Number is the 1-based part number
	Number int32

	// ETag is the integrity token returned by the store for this part
	ETag string
}

// TransferUnit is a single logical file to move: where it comes from,
// where it goes, and how big it is. Units are produced by the tree walker
// and consumed by the transfer operations.
type TransferUnit struct {
	// SourceKey is the object key or remote path of the source
	SourceKey string

	// SourceVersionID pins a specific source version (optional)
	SourceVersionID string

	// DestKey is the resolved destination key or remote path
	DestKey string

	// Size is the declared size in bytes
	Size int64

	// ETag is the source's entity tag, when known
	ETag string
}

// OperationPolicy consolidates the flags that shape a batch operation.
// It is immutable once a run starts and is passed once into the driver
// rather than threading individual booleans through the call chain.
type OperationPolicy struct {
	// Placement selects merge, preserve-structure, or rename semantics
	Placement PlacementPolicy

	// CurrentVersionOnly restricts copy/move/delete to the latest version
	// instead of every historical version
	CurrentVersionOnly bool

	// Recursive walks the entire subtree instead of direct children only
	Recursive bool

	// DryRun previews the operation without mutating anything
	DryRun bool

	// DryRunLimit caps the number of previewed items; -1 previews all
	DryRunLimit int

	// ChunkSize overrides the computed transfer chunk size in bytes.
	// Ignored when below the store's minimum part size.
	ChunkSize int64

	// Concurrency bounds the number of units in flight at once
	Concurrency int

	// SkipIdentical short-circuits uploads whose destination already holds
	// an object of identical size
	SkipIdentical bool
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during uploads
// and downloads.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// TransferResult contains the result of a single-object transfer.
type TransferResult struct {
	// Key is the destination object key
	Key string

	// Size is the number of bytes transferred
	Size int64

	// ETag is the entity tag of the resulting object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Parts is the number of multipart parts used; 0 for a direct put/copy
	Parts int

	// Skipped marks a transfer short-circuited by the size-equality check
	Skipped bool

	// Duration is how long the transfer took
	Duration time.Duration
}

// UnitError records a per-unit failure inside a batch.
type UnitError struct {
	// Key is the source key or path that failed
	Key string

	// DestKey is the destination that was being written, if resolved
	DestKey string

	// Err is the underlying error
	Err error
}

// BatchResult is the tally of a batch operation. The operation as a whole
// succeeded only if Failed is zero.
type BatchResult struct {
	// RunID identifies this batch run in logs
	RunID string

	// Succeeded is the number of units transferred or deleted
	Succeeded int

	// Failed is the number of units that errored
	Failed int

	// Skipped is the number of units short-circuited by the size-equality
	// check
	Skipped int

	// Bytes is the total number of bytes moved
	Bytes int64

	// Previewed holds the destination keys a dry run would have written
	Previewed []string

	// Errors collects the per-unit failures
	Errors []UnitError

	// Duration is how long the batch took
	Duration time.Duration
}

// OK reports whether the batch finished with no failed units.
func (r *BatchResult) OK() bool {
	return r.Failed == 0
}

// ListResult contains one page of an object listing.
type ListResult struct {
	// Objects contains the listed objects
	Objects []Object

	// CommonPrefixes contains the immediate sub-folder prefixes when a
	// delimiter was used
	CommonPrefixes []string

	// IsTruncated indicates whether more pages remain
	IsTruncated bool

	// NextContinuationToken is the token for the next page
	NextContinuationToken string
}

// DeleteResult contains the result of a delete operation.
type DeleteResult struct {
	// Deleted contains successfully deleted objects
	Deleted []Object

	// Errors contains any errors that occurred during deletion
	Errors []DeleteError

	// Duration is how long the operation took
	Duration time.Duration
}

// DeleteError represents an error that occurred during a delete operation.
type DeleteError struct {
	// Key is the object key that failed to delete
	Key string

	// Version is the version ID if specified
	Version string

	// Code is the error code
	Code string

	// Message is the error message
	Message string
}

// Configuration types for functional options

// ClientConfig holds configuration for the transfer client.
type ClientConfig struct {
	Region           string
	Endpoint         string
	MaxRetries       int
	Timeout          time.Duration
	Concurrency      int
	ChunkSize        int64
	ForcePathStyle   bool
	Credentials      aws.CredentialsProvider
	CustomAWSConfig  *aws.Config
	CustomHTTPClient *http.Client
	Logger           *zerolog.Logger
}

// UploadOptionConfig holds configuration for upload operations.
type UploadOptionConfig struct {
	ContentType     string
	Metadata        map[string]string
	StorageClass    string
	ChunkSize       int64
	SkipIdentical   bool
	ProgressTracker ProgressTracker
}

// DownloadOptionConfig holds configuration for download operations.
type DownloadOptionConfig struct {
	VersionID       string
	RangeSpec       string
	ChunkSize       int64
	ProgressTracker ProgressTracker
}

// CopyOptionConfig holds configuration for copy operations.
type CopyOptionConfig struct {
	SourceVersionID string
	Metadata        map[string]string
	ReplaceMetadata bool
	StorageClass    string
	ChunkSize       int64
	Concurrency     int
}

// ListOptionConfig holds configuration for list operations.
type ListOptionConfig struct {
	Delimiter         string
	MaxKeys           int32
	StartAfter        string
	ContinuationToken string
}

// Option is a functional option for configuring the transfer client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// DownloadOption is a functional option for configuring download operations.
	DownloadOption func(*DownloadOptionConfig)
	// CopyOption is a functional option for configuring copy operations.
	CopyOption func(*CopyOptionConfig)
	// ListOption is a functional option for configuring list operations.
	ListOption func(*ListOptionConfig)
)
