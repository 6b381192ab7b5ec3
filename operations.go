package transferkit

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/statfungen/transferkit/errors"
	copyop "github.com/statfungen/transferkit/internal/operations/copy"
	"github.com/statfungen/transferkit/internal/operations/deleteop"
	"github.com/statfungen/transferkit/internal/operations/download"
	"github.com/statfungen/transferkit/internal/operations/list"
	"github.com/statfungen/transferkit/internal/operations/upload"
	"github.com/statfungen/transferkit/internal/placement"
	"github.com/statfungen/transferkit/internal/validation"
	"github.com/statfungen/transferkit/xfertypes"
)

// DefaultContentType is used when content type detection fails.
const DefaultContentType = "application/octet-stream"

// Upload streams data from an io.Reader into the object store. Size must
// be the exact number of bytes the reader will yield; it decides between
// a single put and a chunked multipart upload.
//
// Errors:
//   - ErrInvalidInput: if bucket is empty, key is invalid, or reader is nil
//   - ErrAccessDenied: if the credentials lack permission to upload
//   - Network errors or AWS SDK errors wrapped in the Error type
func (c *Client) Upload(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	size int64,
	opts ...xfertypes.UploadOption,
) (*xfertypes.TransferResult, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, errors.New("upload", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("reader cannot be nil")
	}

	config := &xfertypes.UploadOptionConfig{
		ChunkSize: c.clientCfg.ChunkSize,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.Metadata != nil {
		if err := validation.ValidateMetadata(config.Metadata); err != nil {
			return nil, err
		}
	}
	if config.ContentType == "" {
		config.ContentType = detectContentType(key)
	}

	return upload.New(c.s3Client, c.logger).Upload(ctx, bucket, key, reader, size, config)
}

// UploadFile uploads a local file, detecting its content type from the
// file contents when the extension alone is not enough.
func (c *Client) UploadFile(
	ctx context.Context,
	bucket, key, localPath string,
	opts ...xfertypes.UploadOption,
) (*xfertypes.TransferResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, errors.New("uploadFile", err).WithKey(localPath)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.New("uploadFile", err).WithKey(localPath)
	}

	config := &xfertypes.UploadOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}
	if config.ContentType == "" {
		if mtype, err := mimetype.DetectFile(localPath); err == nil {
			opts = append(opts, WithContentType(mtype.String()))
		}
	}

	return c.Upload(ctx, bucket, key, file, info.Size(), opts...)
}

// Put uploads a byte slice as a single object.
func (c *Client) Put(
	ctx context.Context,
	bucket, key string,
	data []byte,
	opts ...xfertypes.UploadOption,
) error {
	_, err := c.Upload(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), opts...)
	return err
}

// Download streams an object into the writer. Large objects are fetched
// in byte-range chunks; an explicit range or version can be requested via
// options.
func (c *Client) Download(
	ctx context.Context,
	bucket, key string,
	writer io.Writer,
	opts ...xfertypes.DownloadOption,
) (*xfertypes.TransferResult, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}
	if writer == nil {
		return nil, errors.New("download", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("writer cannot be nil")
	}

	config := &xfertypes.DownloadOptionConfig{
		ChunkSize: c.clientCfg.ChunkSize,
	}
	for _, opt := range opts {
		opt(config)
	}

	return download.New(c.s3Client).Download(ctx, bucket, key, writer, config)
}

// DownloadFile downloads an object into a local file, creating parent
// directories as needed.
func (c *Client) DownloadFile(
	ctx context.Context,
	bucket, key, localPath string,
	opts ...xfertypes.DownloadOption,
) (*xfertypes.TransferResult, error) {
	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New("downloadFile", err).WithKey(localPath)
		}
	}

	file, err := os.Create(localPath)
	if err != nil {
		return nil, errors.New("downloadFile", err).WithKey(localPath)
	}

	result, err := c.Download(ctx, bucket, key, file, opts...)
	if err != nil {
		file.Close()
		os.Remove(localPath)
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, errors.New("downloadFile", err).WithKey(localPath)
	}
	return result, nil
}

// Get downloads an object into memory. Intended for small objects.
func (c *Client) Get(
	ctx context.Context,
	bucket, key string,
	opts ...xfertypes.DownloadOption,
) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.Download(ctx, bucket, key, &buf, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// List fetches a single page of objects under a prefix.
func (c *Client) List(
	ctx context.Context,
	bucket, prefix string,
	opts ...xfertypes.ListOption,
) (*xfertypes.ListResult, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	config := &xfertypes.ListOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	return list.New(c.s3Client).List(ctx, bucket, prefix, config)
}

// ListAll streams every object under a prefix over a channel. The
// channel closes when the listing is exhausted or the context is
// cancelled; a listing failure is delivered as the final element.
func (c *Client) ListAll(ctx context.Context, bucket, prefix string) <-chan list.ObjectResult {
	return list.New(c.s3Client).ListAll(ctx, bucket, prefix)
}

// ListVersions returns every version of every object under a prefix,
// oldest first per key, including delete markers.
func (c *Client) ListVersions(ctx context.Context, bucket, prefix string) ([]xfertypes.ObjectVersion, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	return list.New(c.s3Client).ListVersions(ctx, bucket, prefix)
}

// Delete removes a single object. On a versioned bucket this writes a
// delete marker; pass a version ID via DeleteVersion to remove data.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}
	return deleteop.New(c.s3Client).Delete(ctx, bucket, key, "")
}

// DeleteVersion removes one specific version of an object.
func (c *Client) DeleteVersion(ctx context.Context, bucket, key, versionID string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}
	return deleteop.New(c.s3Client).Delete(ctx, bucket, key, versionID)
}

// DeleteMany removes multiple objects in batched requests. A partial
// failure returns ErrPartialBatch together with the per-key errors.
func (c *Client) DeleteMany(ctx context.Context, bucket string, keys []string) (*xfertypes.DeleteResult, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	for _, key := range keys {
		if err := validation.ValidateObjectKey(key); err != nil {
			return nil, err
		}
	}
	return deleteop.New(c.s3Client).DeleteBatch(ctx, bucket, keys)
}

// Exists reports whether an object exists.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return false, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return false, err
	}

	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *awstypes.NotFound
		if stderrors.As(err, &notFound) {
			return false, nil
		}
		return false, errors.NewObjectError("exists", bucket, key, err)
	}
	return true, nil
}

// GetMetadata fetches an object's metadata without its body.
func (c *Client) GetMetadata(ctx context.Context, bucket, key string) (*xfertypes.ObjectMetadata, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	output, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *awstypes.NotFound
		if stderrors.As(err, &notFound) {
			return nil, errors.NewObjectError("getMetadata", bucket, key, errors.ErrNotFound)
		}
		return nil, errors.NewObjectError("getMetadata", bucket, key, err)
	}

	return &xfertypes.ObjectMetadata{
		ContentType:   aws.ToString(output.ContentType),
		ContentLength: aws.ToInt64(output.ContentLength),
		LastModified:  aws.ToTime(output.LastModified),
		ETag:          aws.ToString(output.ETag),
		VersionID:     aws.ToString(output.VersionId),
		Metadata:      output.Metadata,
	}, nil
}

// Copy copies a single object, switching to byte-range multipart copy
// when the source exceeds the single-request copy limit.
func (c *Client) Copy(
	ctx context.Context,
	srcBucket, srcKey, dstBucket, dstKey string,
	opts ...xfertypes.CopyOption,
) (*xfertypes.TransferResult, error) {
	if err := c.validateCopyInput(srcBucket, srcKey, dstBucket, dstKey); err != nil {
		return nil, err
	}

	config := &xfertypes.CopyOptionConfig{
		ChunkSize:   c.clientCfg.ChunkSize,
		Concurrency: c.clientCfg.Concurrency,
	}
	for _, opt := range opts {
		opt(config)
	}

	return copyop.NewCopier(c.s3Client, c.logger).Copy(ctx, srcBucket, srcKey, dstBucket, dstKey, config)
}

// Move copies a single object and then removes the source. The source is
// only deleted after the copy succeeded.
func (c *Client) Move(
	ctx context.Context,
	srcBucket, srcKey, dstBucket, dstKey string,
	opts ...xfertypes.CopyOption,
) (*xfertypes.TransferResult, error) {
	result, err := c.Copy(ctx, srcBucket, srcKey, dstBucket, dstKey, opts...)
	if err != nil {
		return nil, err
	}

	if err := c.Delete(ctx, srcBucket, srcKey); err != nil {
		return nil, errors.NewObjectError("move", srcBucket, srcKey, err).
			WithMessage("copied but failed to remove source")
	}
	return result, nil
}

// EnsureFolder creates zero-byte folder placeholders for a prefix and
// its ancestors, parents first. Existing placeholders are left alone.
func (c *Client) EnsureFolder(ctx context.Context, bucket, prefix string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	return placement.NewEnsurer(c.s3Client).EnsureFolder(ctx, bucket, prefix)
}

func (c *Client) validateCopyInput(srcBucket, srcKey, dstBucket, dstKey string) error {
	if err := validation.ValidateBucketName(srcBucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(srcKey); err != nil {
		return err
	}
	if err := validation.ValidateBucketName(dstBucket); err != nil {
		return err
	}
	return validation.ValidateObjectKey(dstKey)
}

// detectContentType resolves a content type from the key's extension.
func detectContentType(key string) string {
	ext := filepath.Ext(key)
	if ext == "" {
		return DefaultContentType
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return DefaultContentType
}
