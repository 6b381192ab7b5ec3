// Package upload implements object uploads with automatic multipart
// orchestration.
//
// Objects at or below the planned chunk size go up as a single put.
// Larger objects run the multipart life cycle: create the session, stream
// contiguous parts, then complete it. Any failure after create aborts the
// session before the error is returned, so no half-finished session is
// left holding storage.
package upload

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/chunk"
	"github.com/statfungen/transferkit/internal/pool"
	"github.com/statfungen/transferkit/internal/s3api"
	"github.com/statfungen/transferkit/xfertypes"
)

// Uploader handles object uploads with automatic multipart detection.
type Uploader struct {
	s3Client s3api.S3API
	logger   zerolog.Logger
}

// New creates a new Uploader instance.
func New(s3Client s3api.S3API, logger zerolog.Logger) *Uploader {
	return &Uploader{
		s3Client: s3Client,
		logger:   logger,
	}
}

// Upload streams size bytes from reader to bucket/key.
//
// When config.SkipIdentical is set and the destination already holds an
// object of exactly size bytes, nothing is transferred and the result is
// marked Skipped.
func (u *Uploader) Upload(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	size int64,
	config *xfertypes.UploadOptionConfig,
) (*xfertypes.TransferResult, error) {
	startTime := time.Now()

	if config.SkipIdentical {
		skip, err := u.destinationMatches(ctx, bucket, key, size)
		if err != nil {
			return nil, err
		}
		if skip {
			u.logger.Debug().
				Str("bucket", bucket).
				Str("key", key).
				Int64("size", size).
				Msg("destination size matches, skipping upload")
			return &xfertypes.TransferResult{
				Key:      key,
				Size:     size,
				Skipped:  true,
				Duration: time.Since(startTime),
			}, nil
		}
	}

	chunkSize := chunk.Size(size, config.ChunkSize)
	if size <= chunkSize {
		return u.uploadSingle(ctx, bucket, key, reader, size, config, startTime)
	}
	return u.uploadMultipart(ctx, bucket, key, reader, size, chunkSize, config, startTime)
}

// destinationMatches reports whether bucket/key exists with exactly size
// bytes. A missing destination is not an error.
func (u *Uploader) destinationMatches(ctx context.Context, bucket, key string, size int64) (bool, error) {
	head, err := u.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *awstypes.NotFound
		if stderrors.As(err, &notFound) {
			return false, nil
		}
		return false, errors.NewObjectError("upload", bucket, key, err)
	}
	return aws.ToInt64(head.ContentLength) == size, nil
}

// uploadSingle performs a single-request put.
func (u *Uploader) uploadSingle(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	size int64,
	config *xfertypes.UploadOptionConfig,
	startTime time.Time,
) (*xfertypes.TransferResult, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
	}
	if config.ContentType != "" {
		input.ContentType = aws.String(config.ContentType)
	}
	if config.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(config.StorageClass)
	}
	if len(config.Metadata) > 0 {
		input.Metadata = config.Metadata
	}

	output, err := u.s3Client.PutObject(ctx, input)
	if err != nil {
		return nil, errors.NewObjectError("upload", bucket, key, err)
	}

	if config.ProgressTracker != nil {
		config.ProgressTracker.Update(size, size)
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

// uploadMultipart runs the full multipart life cycle, streaming parts
// sequentially from the reader.
func (u *Uploader) uploadMultipart(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	size, chunkSize int64,
	config *xfertypes.UploadOptionConfig,
	startTime time.Time,
) (*xfertypes.TransferResult, error) {
	uploadID, err := u.createUpload(ctx, bucket, key, config)
	if err != nil {
		return nil, err
	}

	ranges := chunk.Ranges(size, chunkSize)
	parts := make([]xfertypes.Part, 0, len(ranges))
	buf := pool.DefaultChunks.Get(chunkSize)
	defer pool.DefaultChunks.Put(buf)
	var sent int64

	for _, r := range ranges {
		part := buf[:r.Len()]
		if _, err := io.ReadFull(reader, part); err != nil {
			u.abortUpload(ctx, bucket, key, uploadID, err)
			return nil, errors.NewObjectError("upload", bucket, key, err).
				WithMessage(fmt.Sprintf("reading part %d", r.Number))
		}

		output, err := u.s3Client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			UploadId:      aws.String(uploadID),
			PartNumber:    aws.Int32(r.Number),
			Body:          bytes.NewReader(part),
			ContentLength: aws.Int64(r.Len()),
		})
		if err != nil {
			u.abortUpload(ctx, bucket, key, uploadID, err)
			return nil, errors.NewObjectError("upload", bucket, key, err).
				WithMessage(fmt.Sprintf("part %d of %d", r.Number, len(ranges)))
		}

		parts = append(parts, xfertypes.Part{
			Number: r.Number,
			ETag:   aws.ToString(output.ETag),
		})

		sent += r.Len()
		if config.ProgressTracker != nil {
			config.ProgressTracker.Update(sent, size)
		}
	}

	result, err := u.completeUpload(ctx, bucket, key, uploadID, parts, size, startTime)
	if err != nil {
		return nil, err
	}
	result.Parts = len(parts)

	if config.ProgressTracker != nil {
		config.ProgressTracker.Complete()
	}
	return result, nil
}

// createUpload starts a multipart session and returns its upload ID.
func (u *Uploader) createUpload(
	ctx context.Context,
	bucket, key string,
	config *xfertypes.UploadOptionConfig,
) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if config.ContentType != "" {
		input.ContentType = aws.String(config.ContentType)
	}
	if config.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(config.StorageClass)
	}
	if len(config.Metadata) > 0 {
		input.Metadata = config.Metadata
	}

	output, err := u.s3Client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("upload", bucket, key, err)
	}
	return aws.ToString(output.UploadId), nil
}

// completeUpload validates part contiguity and completes the session.
// An invalid part sequence aborts the session and fails with
// ErrIncompleteUpload.
func (u *Uploader) completeUpload(
	ctx context.Context,
	bucket, key, uploadID string,
	parts []xfertypes.Part,
	size int64,
	startTime time.Time,
) (*xfertypes.TransferResult, error) {
	if err := ValidateParts(parts); err != nil {
		u.abortUpload(ctx, bucket, key, uploadID, err)
		return nil, errors.NewObjectError("upload", bucket, key, err)
	}

	completed := make([]awstypes.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = awstypes.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.Number),
		}
	}

	output, err := u.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		u.abortUpload(ctx, bucket, key, uploadID, err)
		return nil, errors.NewObjectError("upload", bucket, key, err)
	}

	return &xfertypes.TransferResult{
		Key:       key,
		Size:      size,
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Duration:  time.Since(startTime),
	}, nil
}

// abortUpload cleans up a failed multipart session. An abort failure is
// logged but never returned, so it cannot mask cause.
func (u *Uploader) abortUpload(ctx context.Context, bucket, key, uploadID string, cause error) {
	_, err := u.s3Client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		u.logger.Error().
			Err(err).
			Str("bucket", bucket).
			Str("key", key).
			Str("upload_id", uploadID).
			AnErr("cause", cause).
			Msg("failed to abort multipart upload, orphaned parts may remain")
	}
}

// ValidateParts checks that parts are numbered contiguously from 1 in
// ascending order. A broken sequence means the object cannot assemble and
// completion must be refused.
func ValidateParts(parts []xfertypes.Part) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: no parts uploaded", errors.ErrIncompleteUpload)
	}
	for i, p := range parts {
		if p.Number != int32(i+1) {
			return fmt.Errorf("%w: part %d out of sequence at position %d",
				errors.ErrIncompleteUpload, p.Number, i+1)
		}
	}
	return nil
}
