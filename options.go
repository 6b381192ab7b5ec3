// Package transferkit provides functional options for configuring client behavior.
// These options follow the functional options pattern for clean, composable configuration.
package transferkit

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog"

	"github.com/statfungen/transferkit/xfertypes"
)

// WithRegion sets the AWS region for object-store operations.
// If not specified, uses the default region from the credential chain.
func WithRegion(region string) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom object-store endpoint URL.
// This is useful for S3-compatible services or local testing.
func WithEndpoint(endpoint string) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithMaxRetries sets the maximum number of retry attempts for failed operations.
// Default is 3 retries.
func WithMaxRetries(maxRetries int) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the timeout for individual operations.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithConcurrency sets the maximum number of concurrent transfer units.
// This affects multipart copies and batch operations. Default is 5.
func WithConcurrency(concurrency int) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithChunkSize sets the default chunk size for multipart transfers.
// Values below the store's 5 MiB minimum part size are ignored and the
// computed default applies instead.
func WithChunkSize(chunkSize int64) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		if chunkSize > 0 {
			c.ChunkSize = chunkSize
		}
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithStaticCredentials uses a fixed access key pair instead of the
// default credential chain. Intended for S3-compatible stores that issue
// plain key pairs.
func WithStaticCredentials(accessKey, secretKey, sessionToken string) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken)
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client.
// This gives full control over HTTP behavior including timeouts and proxies.
func WithCustomHTTPClient(client *http.Client) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithLogger sets the structured logger for the client.
// Default is a zerolog logger writing to stderr.
func WithLogger(logger zerolog.Logger) xfertypes.Option {
	return func(c *xfertypes.ClientConfig) {
		c.Logger = &logger
	}
}

// WithContentType sets the content type for upload operations.
func WithContentType(contentType string) xfertypes.UploadOption {
	return func(c *xfertypes.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata sets metadata for upload operations.
func WithMetadata(metadata map[string]string) xfertypes.UploadOption {
	return func(c *xfertypes.UploadOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

// WithStorageClass sets the storage class for upload operations.
func WithStorageClass(storageClass string) xfertypes.UploadOption {
	return func(c *xfertypes.UploadOptionConfig) {
		c.StorageClass = storageClass
	}
}

// WithProgress sets a progress tracker for upload operations.
func WithProgress(tracker xfertypes.ProgressTracker) xfertypes.UploadOption {
	return func(c *xfertypes.UploadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithUploadChunkSize overrides the chunk size for one upload.
// Values below the store's 5 MiB minimum part size are ignored.
func WithUploadChunkSize(chunkSize int64) xfertypes.UploadOption {
	return func(c *xfertypes.UploadOptionConfig) {
		if chunkSize > 0 {
			c.ChunkSize = chunkSize
		}
	}
}

// WithSkipIdentical short-circuits an upload when the destination already
// holds an object of identical size.
func WithSkipIdentical(skip bool) xfertypes.UploadOption {
	return func(c *xfertypes.UploadOptionConfig) {
		c.SkipIdentical = skip
	}
}

// WithVersionID pins a download to a specific object version.
func WithVersionID(versionID string) xfertypes.DownloadOption {
	return func(c *xfertypes.DownloadOptionConfig) {
		c.VersionID = versionID
	}
}

// WithRange restricts a download to a byte range, e.g. "bytes=0-1023".
func WithRange(rangeSpec string) xfertypes.DownloadOption {
	return func(c *xfertypes.DownloadOptionConfig) {
		c.RangeSpec = rangeSpec
	}
}

// WithDownloadChunkSize overrides the chunk size for one download.
func WithDownloadChunkSize(chunkSize int64) xfertypes.DownloadOption {
	return func(c *xfertypes.DownloadOptionConfig) {
		if chunkSize > 0 {
			c.ChunkSize = chunkSize
		}
	}
}

// WithDownloadProgress sets a progress tracker for download operations.
func WithDownloadProgress(tracker xfertypes.ProgressTracker) xfertypes.DownloadOption {
	return func(c *xfertypes.DownloadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithSourceVersion pins a copy to a specific source object version.
func WithSourceVersion(versionID string) xfertypes.CopyOption {
	return func(c *xfertypes.CopyOptionConfig) {
		c.SourceVersionID = versionID
	}
}

// WithCopyMetadata replaces the destination object's metadata instead of
// copying the source's.
func WithCopyMetadata(metadata map[string]string) xfertypes.CopyOption {
	return func(c *xfertypes.CopyOptionConfig) {
		c.Metadata = metadata
		c.ReplaceMetadata = true
	}
}

// WithCopyStorageClass sets the storage class of the copied object.
func WithCopyStorageClass(storageClass string) xfertypes.CopyOption {
	return func(c *xfertypes.CopyOptionConfig) {
		c.StorageClass = storageClass
	}
}

// WithCopyConcurrency bounds the parts copied in parallel during a
// multipart copy.
func WithCopyConcurrency(concurrency int) xfertypes.CopyOption {
	return func(c *xfertypes.CopyOptionConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithDelimiter groups a listing by the given delimiter, reporting
// common prefixes instead of descending into them.
func WithDelimiter(delimiter string) xfertypes.ListOption {
	return func(c *xfertypes.ListOptionConfig) {
		c.Delimiter = delimiter
	}
}

// WithMaxKeys caps the number of keys in one listing page.
func WithMaxKeys(maxKeys int32) xfertypes.ListOption {
	return func(c *xfertypes.ListOptionConfig) {
		if maxKeys > 0 {
			c.MaxKeys = maxKeys
		}
	}
}

// WithStartAfter starts the listing after the given key.
func WithStartAfter(key string) xfertypes.ListOption {
	return func(c *xfertypes.ListOptionConfig) {
		c.StartAfter = key
	}
}

// WithContinuationToken resumes a truncated listing.
func WithContinuationToken(token string) xfertypes.ListOption {
	return func(c *xfertypes.ListOptionConfig) {
		c.ContinuationToken = token
	}
}
