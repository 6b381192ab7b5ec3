// Package copy handles server-side object copy operations.
//
// Copies below the single-request limit use CopyObject. Anything larger
// runs as a multipart byte-range copy: each part is an UploadPartCopy of
// one range of the source, fanned out concurrently, then completed or
// aborted like any other multipart session. A version ID on the source
// pins the copy to that exact version, which is how version-preserving
// moves replay history.
package copy

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/chunk"
	"github.com/statfungen/transferkit/internal/operations/upload"
	"github.com/statfungen/transferkit/internal/s3api"
	"github.com/statfungen/transferkit/xfertypes"
)

const defaultConcurrency = 5

// Copier handles copy operations with automatic multipart support.
type Copier struct {
	s3Client s3api.S3API
	logger   zerolog.Logger
}

// NewCopier creates a new copy operation handler.
func NewCopier(s3Client s3api.S3API, logger zerolog.Logger) *Copier {
	return &Copier{
		s3Client: s3Client,
		logger:   logger,
	}
}

// Copy copies srcBucket/srcKey to dstBucket/dstKey, choosing between a
// single-request copy and a multipart byte-range copy by source size.
func (c *Copier) Copy(
	ctx context.Context,
	srcBucket, srcKey, dstBucket, dstKey string,
	config *xfertypes.CopyOptionConfig,
) (*xfertypes.TransferResult, error) {
	startTime := time.Now()

	head, err := c.headSource(ctx, srcBucket, srcKey, config.SourceVersionID)
	if err != nil {
		return nil, err
	}
	size := aws.ToInt64(head.ContentLength)

	if size > chunk.MaxSingleCopySize {
		return c.multipartCopy(ctx, srcBucket, srcKey, dstBucket, dstKey, size, config, startTime)
	}
	return c.simpleCopy(ctx, srcBucket, srcKey, dstBucket, dstKey, size, config, startTime)
}

// headSource fetches the source object's metadata, optionally pinned to a
// version.
func (c *Copier) headSource(
	ctx context.Context,
	bucket, key, versionID string,
) (*s3.HeadObjectOutput, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}

	output, err := c.s3Client.HeadObject(ctx, input)
	if err != nil {
		return nil, errors.NewObjectError("copy", bucket, key, err).
			WithMessage("failed to get source object metadata")
	}
	return output, nil
}

// copySource builds the URL-encoded CopySource header value, with the
// version ID appended when the copy targets a specific version. Path
// separators stay literal; only the segments are escaped.
func copySource(bucket, key, versionID string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	src := bucket + "/" + strings.Join(segments, "/")
	if versionID != "" {
		src += "?versionId=" + versionID
	}
	return src
}

// simpleCopy performs a single-request server-side copy.
func (c *Copier) simpleCopy(
	ctx context.Context,
	srcBucket, srcKey, dstBucket, dstKey string,
	size int64,
	config *xfertypes.CopyOptionConfig,
	startTime time.Time,
) (*xfertypes.TransferResult, error) {
	source := copySource(srcBucket, srcKey, config.SourceVersionID)

	input := &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(source),
	}
	c.applyCopyOptions(input, config)

	output, err := c.s3Client.CopyObject(ctx, input)
	if err != nil {
		return nil, errors.NewObjectError("copy", dstBucket, dstKey, err).
			WithMessage("failed to copy from " + source)
	}

	result := &xfertypes.TransferResult{
		Key:      dstKey,
		Size:     size,
		Duration: time.Since(startTime),
	}
	if output.CopyObjectResult != nil {
		result.ETag = aws.ToString(output.CopyObjectResult.ETag)
	}
	result.VersionID = aws.ToString(output.VersionId)
	return result, nil
}

// applyCopyOptions applies configuration options to the copy input.
func (c *Copier) applyCopyOptions(input *s3.CopyObjectInput, config *xfertypes.CopyOptionConfig) {
	if config.Metadata != nil {
		input.Metadata = config.Metadata
		if config.ReplaceMetadata {
			input.MetadataDirective = awstypes.MetadataDirectiveReplace
		} else {
			input.MetadataDirective = awstypes.MetadataDirectiveCopy
		}
	}
	if config.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(config.StorageClass)
	}
}

// multipartCopy copies a large object part by part without the data ever
// leaving the store.
func (c *Copier) multipartCopy(
	ctx context.Context,
	srcBucket, srcKey, dstBucket, dstKey string,
	size int64,
	config *xfertypes.CopyOptionConfig,
	startTime time.Time,
) (*xfertypes.TransferResult, error) {
	chunkSize := chunk.Size(size, config.ChunkSize)
	ranges := chunk.Ranges(size, chunkSize)

	uploadID, err := c.createUpload(ctx, dstBucket, dstKey, config)
	if err != nil {
		return nil, err
	}

	source := copySource(srcBucket, srcKey, config.SourceVersionID)
	parts := make([]xfertypes.Part, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency(config))
	for i, r := range ranges {
		g.Go(func() error {
			etag, err := c.copyPart(gctx, dstBucket, dstKey, uploadID, source, r)
			if err != nil {
				return err
			}
			parts[i] = xfertypes.Part{Number: r.Number, ETag: etag}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.abortUpload(ctx, dstBucket, dstKey, uploadID, err)
		return nil, err
	}

	result, err := c.completeUpload(ctx, dstBucket, dstKey, uploadID, parts, size, startTime)
	if err != nil {
		return nil, err
	}
	result.Parts = len(parts)
	return result, nil
}

func (c *Copier) concurrency(config *xfertypes.CopyOptionConfig) int {
	if config.Concurrency > 0 {
		return config.Concurrency
	}
	return defaultConcurrency
}

// createUpload starts the multipart session at the destination.
func (c *Copier) createUpload(
	ctx context.Context,
	bucket, key string,
	config *xfertypes.CopyOptionConfig,
) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if config.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(config.StorageClass)
	}
	if config.Metadata != nil {
		input.Metadata = config.Metadata
	}

	output, err := c.s3Client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("copy", bucket, key, err)
	}
	return aws.ToString(output.UploadId), nil
}

// copyPart copies one byte range of the source as a part.
func (c *Copier) copyPart(
	ctx context.Context,
	dstBucket, dstKey, uploadID, source string,
	r chunk.Range,
) (string, error) {
	output, err := c.s3Client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
		Bucket:          aws.String(dstBucket),
		Key:             aws.String(dstKey),
		CopySource:      aws.String(source),
		CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", r.Start, r.End)),
		UploadId:        aws.String(uploadID),
		PartNumber:      aws.Int32(r.Number),
	})
	if err != nil {
		return "", errors.NewObjectError("copy", dstBucket, dstKey, err).
			WithMessage(fmt.Sprintf("failed to copy part %d", r.Number))
	}
	return aws.ToString(output.CopyPartResult.ETag), nil
}

// completeUpload validates part contiguity and completes the session.
func (c *Copier) completeUpload(
	ctx context.Context,
	bucket, key, uploadID string,
	parts []xfertypes.Part,
	size int64,
	startTime time.Time,
) (*xfertypes.TransferResult, error) {
	if err := upload.ValidateParts(parts); err != nil {
		c.abortUpload(ctx, bucket, key, uploadID, err)
		return nil, errors.NewObjectError("copy", bucket, key, err)
	}

	completed := make([]awstypes.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = awstypes.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.Number),
		}
	}

	output, err := c.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		c.abortUpload(ctx, bucket, key, uploadID, err)
		return nil, errors.NewObjectError("copy", bucket, key, err)
	}

	return &xfertypes.TransferResult{
		Key:       key,
		Size:      size,
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Duration:  time.Since(startTime),
	}, nil
}

// abortUpload cleans up a failed multipart copy. An abort failure is
// logged but never returned, so it cannot mask cause.
func (c *Copier) abortUpload(ctx context.Context, bucket, key, uploadID string, cause error) {
	_, err := c.s3Client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("bucket", bucket).
			Str("key", key).
			Str("upload_id", uploadID).
			AnErr("cause", cause).
			Msg("failed to abort multipart copy, orphaned parts may remain")
	}
}
