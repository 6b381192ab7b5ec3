// Package operations contains the core object-store operation
// implementations. These packages handle the low-level AWS SDK
// interactions for upload, download, copy, delete, and list.
//
// Each operation is isolated into its own subpackage for better
// organization and testability.
package operations
