package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statfungen/transferkit/errors"
)

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name      string
		bucket    string
		wantError bool
	}{
		{"valid simple", "my-bucket", false},
		{"valid with numbers", "my-bucket123", false},
		{"valid with dots", "my.bucket", false},
		{"valid min length", "abc", false},
		{"valid max length", strings.Repeat("a", 63), false},

		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 64), true},
		{"starts with hyphen", "-bucket", true},
		{"ends with dot", "bucket.", true},
		{"uppercase", "MyBucket", true},
		{"underscore", "my_bucket", true},
		{"adjacent dots", "my..bucket", true},
		{"ip address", "192.168.1.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantError bool
	}{
		{"valid simple", "file.txt", false},
		{"valid nested", "data/2024/report.csv", false},
		{"valid unicode", "données/fichier.txt", false},
		{"valid max length", strings.Repeat("a", 1024), false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 1025), true},
		{"traversal dotdot", "a/../b.txt", true},
		{"leading slash", "/etc/passwd", true},
		{"control character", "file\x00name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.key)
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRemotePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"absolute path allowed", "/data/incoming/file.vcf.gz", false},
		{"relative path allowed", "incoming/file.txt", false},

		{"empty", "", true},
		{"traversal", "/data/../etc/passwd", true},
		{"control character", "/data/file\x1b[0m", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRemotePath(tt.path)
			if tt.wantError {
				require.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMetadata(t *testing.T) {
	assert.NoError(t, ValidateMetadata(nil))
	assert.NoError(t, ValidateMetadata(map[string]string{"project": "cohort-7"}))

	assert.Error(t, ValidateMetadata(map[string]string{"": "v"}))
	assert.Error(t, ValidateMetadata(map[string]string{"x-amz-meta": "v"}))
	assert.Error(t, ValidateMetadata(map[string]string{"k": strings.Repeat("v", 2049)}))
}
