// Package download handles object download operations.
//
// Small objects stream down in one GetObject. Objects larger than the
// planned chunk size are pulled in sequential ranged requests, so a
// transient failure mid-object costs one chunk, not the whole body.
package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/chunk"
	"github.com/statfungen/transferkit/internal/pool"
	"github.com/statfungen/transferkit/internal/s3api"
	"github.com/statfungen/transferkit/xfertypes"
)

// Downloader handles download operations with progress tracking support.
type Downloader struct {
	s3Client s3api.S3API
}

// New creates a new Downloader instance.
func New(s3Client s3api.S3API) *Downloader {
	return &Downloader{
		s3Client: s3Client,
	}
}

// Download streams bucket/key to writer.
//
// An explicit RangeSpec always downloads in one request. Otherwise the
// object's size decides: at or below the chunk size it comes down whole,
// above it the body is fetched chunk by chunk with ranged requests.
func (d *Downloader) Download(
	ctx context.Context,
	bucket, key string,
	writer io.Writer,
	config *xfertypes.DownloadOptionConfig,
) (*xfertypes.TransferResult, error) {
	startTime := time.Now()

	if config.RangeSpec != "" {
		return d.downloadWhole(ctx, bucket, key, writer, config, startTime)
	}

	size, err := d.objectSize(ctx, bucket, key, config.VersionID)
	if err != nil {
		return nil, err
	}

	chunkSize := chunk.Size(size, config.ChunkSize)
	if size <= chunkSize {
		return d.downloadWhole(ctx, bucket, key, writer, config, startTime)
	}
	return d.downloadChunked(ctx, bucket, key, writer, size, chunkSize, config, startTime)
}

// objectSize returns the content length of bucket/key.
func (d *Downloader) objectSize(ctx context.Context, bucket, key, versionID string) (int64, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}

	output, err := d.s3Client.HeadObject(ctx, input)
	if err != nil {
		return 0, wrapGetError(bucket, key, err)
	}
	return aws.ToInt64(output.ContentLength), nil
}

// downloadWhole fetches the object (or the configured range) in a single
// request.
func (d *Downloader) downloadWhole(
	ctx context.Context,
	bucket, key string,
	writer io.Writer,
	config *xfertypes.DownloadOptionConfig,
	startTime time.Time,
) (*xfertypes.TransferResult, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if config.VersionID != "" {
		input.VersionId = aws.String(config.VersionID)
	}
	if config.RangeSpec != "" {
		input.Range = aws.String(config.RangeSpec)
	}

	output, err := d.s3Client.GetObject(ctx, input)
	if err != nil {
		return nil, wrapGetError(bucket, key, err)
	}
	defer output.Body.Close()

	size := aws.ToInt64(output.ContentLength)

	var reader io.Reader = output.Body
	if config.ProgressTracker != nil {
		reader = &progressReader{
			reader:          output.Body,
			progressTracker: config.ProgressTracker,
			total:           size,
		}
	}

	copyBuf := pool.CopyBuffer()
	written, err := io.CopyBuffer(writer, reader, copyBuf)
	pool.ReleaseCopyBuffer(copyBuf)
	if err != nil {
		return nil, errors.NewObjectError("download", bucket, key, err)
	}
	if size == 0 {
		size = written
	}

	if config.ProgressTracker != nil {
		config.ProgressTracker.Update(written, size)
		config.ProgressTracker.Complete()
	}

	return &xfertypes.TransferResult{
		Key:       key,
		Size:      size,
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Duration:  time.Since(startTime),
	}, nil
}

// downloadChunked pulls the object down one byte range at a time.
func (d *Downloader) downloadChunked(
	ctx context.Context,
	bucket, key string,
	writer io.Writer,
	size, chunkSize int64,
	config *xfertypes.DownloadOptionConfig,
	startTime time.Time,
) (*xfertypes.TransferResult, error) {
	var etag, versionID string
	var written int64

	copyBuf := pool.CopyBuffer()
	defer pool.ReleaseCopyBuffer(copyBuf)

	for _, r := range chunk.Ranges(size, chunkSize) {
		input := &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-%d", r.Start, r.End)),
		}
		if config.VersionID != "" {
			input.VersionId = aws.String(config.VersionID)
		}

		output, err := d.s3Client.GetObject(ctx, input)
		if err != nil {
			return nil, wrapGetError(bucket, key, err).
				WithMessage(fmt.Sprintf("range %d-%d", r.Start, r.End))
		}

		n, err := io.CopyBuffer(writer, output.Body, copyBuf)
		closeErr := output.Body.Close()
		if err != nil {
			return nil, errors.NewObjectError("download", bucket, key, err)
		}
		if closeErr != nil {
			return nil, errors.NewObjectError("download", bucket, key, closeErr)
		}
		if n != r.Len() {
			return nil, errors.NewObjectError("download", bucket, key,
				fmt.Errorf("range %d-%d returned %d bytes, want %d", r.Start, r.End, n, r.Len()))
		}

		etag = aws.ToString(output.ETag)
		versionID = aws.ToString(output.VersionId)
		written += n
		if config.ProgressTracker != nil {
			config.ProgressTracker.Update(written, size)
		}
	}

	if config.ProgressTracker != nil {
		config.ProgressTracker.Complete()
	}

	return &xfertypes.TransferResult{
		Key:       key,
		Size:      written,
		ETag:      etag,
		VersionID: versionID,
		Duration:  time.Since(startTime),
	}, nil
}

// progressReader wraps an io.Reader to track progress.
type progressReader struct {
	reader          io.Reader
	progressTracker xfertypes.ProgressTracker
	total           int64
	bytesRead       int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.bytesRead += int64(n)
		pr.progressTracker.Update(pr.bytesRead, pr.total)
	}
	//nolint:wrapcheck // io.Reader contract, error comes from the underlying reader
	return n, err
}

// wrapGetError converts SDK not-found errors into the sentinel taxonomy.
func wrapGetError(bucket, key string, err error) *errors.Error {
	var noSuchKey *awstypes.NoSuchKey
	var notFound *awstypes.NotFound
	if stderrors.As(err, &noSuchKey) || stderrors.As(err, &notFound) {
		err = fmt.Errorf("%w: %s/%s", errors.ErrNotFound, bucket, key)
	}
	return errors.NewObjectError("download", bucket, key, err)
}
