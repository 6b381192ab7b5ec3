// Package internal contains private implementation details for the
// transferkit module. These packages are not intended for external use
// and may change without notice.
//
// The internal packages are organized as follows:
//   - operations: Core object-store operation implementations
//   - chunk: Part sizing and byte-range planning for multipart transfers
//   - walker: Tree walking and pattern matching over prefixes and remote trees
//   - placement: Destination key resolution and folder placeholder creation
//   - batch: The driver that turns a request into a planned, tallied run
//   - s3api: The narrow interface the module needs from the AWS SDK
//   - validation: Input validation logic
//   - testutil: Shared mocks for unit tests
package internal
