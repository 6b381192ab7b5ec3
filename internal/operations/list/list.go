// Package list implements paged and streaming object listings.
package list

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/s3api"
	"github.com/statfungen/transferkit/xfertypes"
)

// maxPageSize is the largest page the store will return.
const maxPageSize = 1000

// Lister handles listing of stored objects.
type Lister struct {
	s3Client s3api.S3API
}

// New creates a Lister.
func New(s3Client s3api.S3API) *Lister {
	return &Lister{s3Client: s3Client}
}

// List fetches a single page of objects under a prefix.
func (l *Lister) List(
	ctx context.Context,
	bucket, prefix string,
	config *xfertypes.ListOptionConfig,
) (*xfertypes.ListResult, error) {
	pageSize := config.MaxKeys
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(pageSize),
	}
	if config.Delimiter != "" {
		input.Delimiter = aws.String(config.Delimiter)
	}
	if config.StartAfter != "" {
		input.StartAfter = aws.String(config.StartAfter)
	}
	if config.ContinuationToken != "" {
		input.ContinuationToken = aws.String(config.ContinuationToken)
	}

	output, err := l.s3Client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, errors.New("list", err).WithBucket(bucket)
	}

	result := &xfertypes.ListResult{
		IsTruncated:           aws.ToBool(output.IsTruncated),
		NextContinuationToken: aws.ToString(output.NextContinuationToken),
	}
	for _, obj := range output.Contents {
		result.Objects = append(result.Objects, xfertypes.Object{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
			StorageClass: string(obj.StorageClass),
		})
	}
	for _, cp := range output.CommonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, aws.ToString(cp.Prefix))
	}
	return result, nil
}

// ObjectResult carries one streamed object or a terminal error.
type ObjectResult struct {
	Object xfertypes.Object
	Err    error
}

// ListAll streams every object under a prefix. The channel closes when
// the listing is exhausted, the context is cancelled, or an error has
// been delivered.
func (l *Lister) ListAll(ctx context.Context, bucket, prefix string) <-chan ObjectResult {
	results := make(chan ObjectResult, 100)

	go func() {
		defer close(results)

		var token *string
		for {
			output, err := l.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(bucket),
				Prefix:            aws.String(prefix),
				MaxKeys:           aws.Int32(maxPageSize),
				ContinuationToken: token,
			})
			if err != nil {
				results <- ObjectResult{Err: errors.New("listAll", err).WithBucket(bucket)}
				return
			}

			for _, obj := range output.Contents {
				select {
				case results <- ObjectResult{Object: xfertypes.Object{
					Key:          aws.ToString(obj.Key),
					Size:         aws.ToInt64(obj.Size),
					LastModified: aws.ToTime(obj.LastModified),
					ETag:         aws.ToString(obj.ETag),
					StorageClass: string(obj.StorageClass),
				}}:
				case <-ctx.Done():
					return
				}
			}

			if !aws.ToBool(output.IsTruncated) {
				return
			}
			token = output.NextContinuationToken
		}
	}()

	return results
}

// ListVersions returns every version of every object under a prefix,
// oldest first per key. Delete markers are included.
func (l *Lister) ListVersions(ctx context.Context, bucket, prefix string) ([]xfertypes.ObjectVersion, error) {
	var versions []xfertypes.ObjectVersion
	var keyMarker, versionMarker *string

	for {
		output, err := l.s3Client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          aws.String(bucket),
			Prefix:          aws.String(prefix),
			KeyMarker:       keyMarker,
			VersionIdMarker: versionMarker,
		})
		if err != nil {
			return nil, errors.New("listVersions", err).WithBucket(bucket)
		}

		for _, v := range output.Versions {
			versions = append(versions, xfertypes.ObjectVersion{
				Key:          aws.ToString(v.Key),
				VersionID:    aws.ToString(v.VersionId),
				IsLatest:     aws.ToBool(v.IsLatest),
				Size:         aws.ToInt64(v.Size),
				LastModified: aws.ToTime(v.LastModified),
				ETag:         aws.ToString(v.ETag),
			})
		}
		for _, m := range output.DeleteMarkers {
			versions = append(versions, xfertypes.ObjectVersion{
				Key:            aws.ToString(m.Key),
				VersionID:      aws.ToString(m.VersionId),
				IsLatest:       aws.ToBool(m.IsLatest),
				IsDeleteMarker: true,
				LastModified:   aws.ToTime(m.LastModified),
			})
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		keyMarker = output.NextKeyMarker
		versionMarker = output.NextVersionIdMarker
	}

	sort.SliceStable(versions, func(i, j int) bool {
		if versions[i].Key != versions[j].Key {
			return versions[i].Key < versions[j].Key
		}
		return versions[i].LastModified.Before(versions[j].LastModified)
	})
	return versions, nil
}
