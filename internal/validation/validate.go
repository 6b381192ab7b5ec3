// Package validation provides centralized input validation logic.
// This includes bucket name validation, object key validation, and security checks.
//
// All user inputs are validated before being sent to the object store to
// prevent injection attacks and ensure compliance with S3 requirements.
package validation

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/statfungen/transferkit/errors"
)

// ValidateBucketName validates that a bucket name is DNS-compliant according to AWS S3 rules.
func ValidateBucketName(bucket string) error {
	if err := validateBucketNameBasics(bucket); err != nil {
		return err
	}

	if err := validateBucketNameCharacters(bucket); err != nil {
		return err
	}

	return validateBucketNameStructure(bucket)
}

// ValidateObjectKey validates that an object key is valid according to AWS S3 rules.
// This includes preventing path traversal attacks and ensuring valid characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.New("validateObjectKey", errors.ErrInvalidInput).
			WithMessage("object key cannot be empty")
	}

	// Check for path traversal attempts
	if hasPathTraversal(key) {
		return errors.New("validateObjectKey", errors.ErrInvalidInput).
			WithKey(key).
			WithMessage("object key cannot contain path traversal sequences")
	}

	// S3 supports keys up to 1024 bytes
	if len(key) > 1024 {
		return errors.New("validateObjectKey", errors.ErrInvalidInput).
			WithKey(key).
			WithMessage("object key cannot exceed 1024 characters")
	}

	// S3 keys can contain any UTF-8 character but control characters
	// are never legitimate
	if hasControlCharacters(key) {
		return errors.New("validateObjectKey", errors.ErrInvalidInput).
			WithKey(key).
			WithMessage("object key cannot contain control characters")
	}

	return nil
}

// ValidateRemotePath validates a path destined for a remote file server.
// Remote paths may be absolute, but traversal sequences and control
// characters are rejected.
func ValidateRemotePath(path string) error {
	if path == "" {
		return errors.New("validateRemotePath", errors.ErrInvalidInput).
			WithMessage("remote path cannot be empty")
	}
	if strings.Contains(path, "..") {
		return errors.New("validateRemotePath", errors.ErrInvalidInput).
			WithKey(path).
			WithMessage("remote path cannot contain traversal sequences")
	}
	if hasControlCharacters(path) {
		return errors.New("validateRemotePath", errors.ErrInvalidInput).
			WithKey(path).
			WithMessage("remote path cannot contain control characters")
	}
	return nil
}

// ValidateMetadata validates metadata keys and values according to S3 rules.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

// validateBucketNameBasics validates basic bucket name requirements
func validateBucketNameBasics(bucket string) error {
	if bucket == "" {
		return errors.New("validateBucketName", errors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return errors.New("validateBucketName", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name must be between 3 and 63 characters long")
	}

	return nil
}

// validateBucketNameCharacters validates allowed characters in bucket names
func validateBucketNameCharacters(bucket string) error {
	// Only lowercase letters, numbers, dots, and hyphens
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.New("validateBucketName", errors.ErrInvalidInput).
				WithBucket(bucket).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	return nil
}

// validateBucketNameStructure validates bucket name structural requirements
func validateBucketNameStructure(bucket string) error {
	if bucket[0] == '-' || bucket[0] == '.' || bucket[len(bucket)-1] == '-' || bucket[len(bucket)-1] == '.' {
		return errors.New("validateBucketName", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name cannot start or end with a hyphen or dot")
	}

	if isIPAddress(bucket) {
		return errors.New("validateBucketName", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name cannot be formatted as an IP address")
	}

	if hasAdjacentSpecialChars(bucket) {
		return errors.New("validateBucketName", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain two adjacent periods or hyphens")
	}

	return nil
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// hasAdjacentSpecialChars checks for adjacent special characters
func hasAdjacentSpecialChars(bucket string) bool {
	for i := 0; i < len(bucket)-1; i++ {
		if (bucket[i] == '.' && bucket[i+1] == '.') || (bucket[i] == '-' && bucket[i+1] == '-') {
			return true
		}
	}
	return false
}

// isIPAddress checks if a string is formatted as an IP address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if len(part) == 0 {
			return true
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}

// hasPathTraversal checks for path traversal attempts in object keys
func hasPathTraversal(key string) bool {
	if strings.Contains(key, "..") {
		return true
	}

	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") {
		return true
	}

	// Object keys are always bucket-relative
	if strings.HasPrefix(cleaned, "/") {
		return true
	}

	// Windows-style absolute paths
	if len(cleaned) >= 3 && cleaned[1] == ':' && (cleaned[2] == '\\' || cleaned[2] == '/') {
		return true
	}

	return false
}

// hasControlCharacters checks for control characters in the key
func hasControlCharacters(key string) bool {
	for _, char := range key {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}

// validateMetadataKey validates a metadata key according to S3 rules
func validateMetadataKey(key string) error {
	if key == "" {
		return errors.New("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot be empty")
	}

	if len(key) > 128 {
		return errors.New("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot exceed 128 characters")
	}

	// AWS reserves these prefixes
	reservedPrefixes := []string{"aws:", "x-amz-", "x-amz:"}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(strings.ToLower(key), prefix) {
			return errors.New("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key cannot start with reserved prefix: " + prefix)
		}
	}

	for _, char := range key {
		if char < 32 || char > 126 {
			return errors.New("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key can only contain printable ASCII characters")
		}
	}

	return nil
}

// validateMetadataValue validates a metadata value according to S3 rules
func validateMetadataValue(value string) error {
	if len(value) > 2048 {
		return errors.New("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 characters")
	}

	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\n' && char != '\t' {
			return errors.New("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}

	return nil
}
