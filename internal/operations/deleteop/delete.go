// Package deleteop handles object deletion, single and batched.
//
// The store accepts at most 1000 identifiers per DeleteObjects request,
// so larger batches are split transparently. Deletes can target specific
// versions, which is how whole-history removal works on versioned
// buckets.
package deleteop

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/s3api"
	"github.com/statfungen/transferkit/xfertypes"
)

// maxBatchSize is the store's DeleteObjects request limit.
const maxBatchSize = 1000

// Deleter handles object deletion.
type Deleter struct {
	s3Client s3api.S3API
}

// New creates a new Deleter instance.
func New(s3Client s3api.S3API) *Deleter {
	return &Deleter{
		s3Client: s3Client,
	}
}

// Delete removes a single object, or one specific version of it when
// versionID is non-empty.
func (d *Deleter) Delete(ctx context.Context, bucket, key, versionID string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}

	if _, err := d.s3Client.DeleteObject(ctx, input); err != nil {
		return errors.NewObjectError("delete", bucket, key, err)
	}
	return nil
}

// DeleteBatch removes the given keys, splitting into store-sized batches.
// Per-key failures land in the result's Errors, they do not stop the
// remaining batches.
func (d *Deleter) DeleteBatch(ctx context.Context, bucket string, keys []string) (*xfertypes.DeleteResult, error) {
	ids := make([]awstypes.ObjectIdentifier, len(keys))
	for i, key := range keys {
		ids[i] = awstypes.ObjectIdentifier{Key: aws.String(key)}
	}
	return d.deleteIdentifiers(ctx, bucket, ids)
}

// DeleteVersions removes the given object versions, splitting into
// store-sized batches.
func (d *Deleter) DeleteVersions(
	ctx context.Context,
	bucket string,
	versions []xfertypes.ObjectVersion,
) (*xfertypes.DeleteResult, error) {
	ids := make([]awstypes.ObjectIdentifier, len(versions))
	for i, v := range versions {
		ids[i] = awstypes.ObjectIdentifier{
			Key:       aws.String(v.Key),
			VersionId: aws.String(v.VersionID),
		}
	}
	return d.deleteIdentifiers(ctx, bucket, ids)
}

func (d *Deleter) deleteIdentifiers(
	ctx context.Context,
	bucket string,
	ids []awstypes.ObjectIdentifier,
) (*xfertypes.DeleteResult, error) {
	startTime := time.Now()
	result := &xfertypes.DeleteResult{}
	if len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		output, err := d.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &awstypes.Delete{
				Objects: batch,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			// Whole-request failure: record every key of the batch and
			// keep going with the rest.
			for _, id := range batch {
				result.Errors = append(result.Errors, xfertypes.DeleteError{
					Key:     aws.ToString(id.Key),
					Version: aws.ToString(id.VersionId),
					Code:    "BatchError",
					Message: err.Error(),
				})
			}
			continue
		}
		d.mergeOutput(result, output)
	}

	result.Duration = time.Since(startTime)
	if len(result.Errors) > 0 {
		return result, errors.New("delete", errors.ErrPartialBatch).WithBucket(bucket)
	}
	return result, nil
}

func (d *Deleter) mergeOutput(result *xfertypes.DeleteResult, output *s3.DeleteObjectsOutput) {
	for _, deleted := range output.Deleted {
		result.Deleted = append(result.Deleted, xfertypes.Object{
			Key: aws.ToString(deleted.Key),
		})
	}
	for _, derr := range output.Errors {
		result.Errors = append(result.Errors, xfertypes.DeleteError{
			Key:     aws.ToString(derr.Key),
			Version: aws.ToString(derr.VersionId),
			Code:    aws.ToString(derr.Code),
			Message: aws.ToString(derr.Message),
		})
	}
}
