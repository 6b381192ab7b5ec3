package list

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statfungen/transferkit/internal/testutil"
	"github.com/statfungen/transferkit/xfertypes"
)

func TestListSinglePage(t *testing.T) {
	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			assert.Equal(t, "data/", aws.ToString(params.Prefix))
			assert.Equal(t, "/", aws.ToString(params.Delimiter))
			return &s3.ListObjectsV2Output{
				Contents: []awstypes.Object{
					{Key: aws.String("data/a.txt"), Size: aws.Int64(10)},
				},
				CommonPrefixes: []awstypes.CommonPrefix{
					{Prefix: aws.String("data/sub/")},
				},
				IsTruncated: aws.Bool(false),
			}, nil
		},
	}

	l := New(mock)
	result, err := l.List(context.Background(), "bucket", "data/", &xfertypes.ListOptionConfig{Delimiter: "/"})
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)
	assert.Equal(t, "data/a.txt", result.Objects[0].Key)
	assert.Equal(t, []string{"data/sub/"}, result.CommonPrefixes)
	assert.False(t, result.IsTruncated)
}

func TestListAllStreamsPages(t *testing.T) {
	var calls int
	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			calls++
			if calls == 1 {
				assert.Nil(t, params.ContinuationToken)
				return &s3.ListObjectsV2Output{
					Contents:              []awstypes.Object{{Key: aws.String("k1"), Size: aws.Int64(1)}},
					IsTruncated:           aws.Bool(true),
					NextContinuationToken: aws.String("tok"),
				}, nil
			}
			assert.Equal(t, "tok", aws.ToString(params.ContinuationToken))
			return &s3.ListObjectsV2Output{
				Contents:    []awstypes.Object{{Key: aws.String("k2"), Size: aws.Int64(2)}},
				IsTruncated: aws.Bool(false),
			}, nil
		},
	}

	l := New(mock)
	var keys []string
	for r := range l.ListAll(context.Background(), "bucket", "") {
		require.NoError(t, r.Err)
		keys = append(keys, r.Object.Key)
	}
	assert.Equal(t, []string{"k1", "k2"}, keys)
	assert.Equal(t, 2, calls)
}

func TestListAllDeliversError(t *testing.T) {
	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			return nil, fmt.Errorf("listing blew up")
		},
	}

	l := New(mock)
	var errs int
	for r := range l.ListAll(context.Background(), "bucket", "") {
		require.Error(t, r.Err)
		errs++
	}
	assert.Equal(t, 1, errs)
}

func TestListVersionsOldestFirstPerKey(t *testing.T) {
	now := time.Now()
	mock := &testutil.MockS3Client{
		ListObjectVersionsFunc: func(_ context.Context, _ *s3.ListObjectVersionsInput, _ ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
			return &s3.ListObjectVersionsOutput{
				Versions: []awstypes.ObjectVersion{
					{Key: aws.String("k"), VersionId: aws.String("v3"), IsLatest: aws.Bool(true), LastModified: aws.Time(now)},
					{Key: aws.String("k"), VersionId: aws.String("v1"), LastModified: aws.Time(now.Add(-2 * time.Hour))},
				},
				DeleteMarkers: []awstypes.DeleteMarkerEntry{
					{Key: aws.String("k"), VersionId: aws.String("v2"), LastModified: aws.Time(now.Add(-time.Hour))},
				},
				IsTruncated: aws.Bool(false),
			}, nil
		},
	}

	l := New(mock)
	versions, err := l.ListVersions(context.Background(), "bucket", "k")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "v1", versions[0].VersionID)
	assert.Equal(t, "v2", versions[1].VersionID)
	assert.True(t, versions[1].IsDeleteMarker)
	assert.Equal(t, "v3", versions[2].VersionID)
}
