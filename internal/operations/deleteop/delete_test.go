package deleteop

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/testutil"
	"github.com/statfungen/transferkit/xfertypes"
)

func TestDeleteSingle(t *testing.T) {
	mock := &testutil.MockS3Client{
		DeleteObjectFunc: func(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
			assert.Equal(t, "bucket", aws.ToString(params.Bucket))
			assert.Equal(t, "old/file.txt", aws.ToString(params.Key))
			assert.Nil(t, params.VersionId)
			return &s3.DeleteObjectOutput{}, nil
		},
	}

	d := New(mock)
	require.NoError(t, d.Delete(context.Background(), "bucket", "old/file.txt", ""))
}

func TestDeleteSingleVersion(t *testing.T) {
	mock := &testutil.MockS3Client{
		DeleteObjectFunc: func(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
			assert.Equal(t, "v7", aws.ToString(params.VersionId))
			return &s3.DeleteObjectOutput{}, nil
		},
	}

	d := New(mock)
	require.NoError(t, d.Delete(context.Background(), "bucket", "file.txt", "v7"))
}

func TestDeleteBatchSplitsAtLimit(t *testing.T) {
	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%04d", i)
	}

	var batchSizes []int
	mock := &testutil.MockS3Client{
		DeleteObjectsFunc: func(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
			batchSizes = append(batchSizes, len(params.Delete.Objects))
			deleted := make([]awstypes.DeletedObject, len(params.Delete.Objects))
			for i, id := range params.Delete.Objects {
				deleted[i] = awstypes.DeletedObject{Key: id.Key}
			}
			return &s3.DeleteObjectsOutput{Deleted: deleted}, nil
		},
	}

	d := New(mock)
	result, err := d.DeleteBatch(context.Background(), "bucket", keys)

	require.NoError(t, err)
	assert.Equal(t, []int{1000, 1000, 500}, batchSizes)
	assert.Len(t, result.Deleted, 2500)
	assert.Empty(t, result.Errors)
}

func TestDeleteBatchEmpty(t *testing.T) {
	mock := &testutil.MockS3Client{
		DeleteObjectsFunc: func(_ context.Context, _ *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
			t.Fatal("empty batch must not hit the store")
			return nil, nil
		},
	}

	d := New(mock)
	result, err := d.DeleteBatch(context.Background(), "bucket", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Deleted)
}

func TestDeleteBatchPartialFailure(t *testing.T) {
	mock := &testutil.MockS3Client{
		DeleteObjectsFunc: func(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
			return &s3.DeleteObjectsOutput{
				Deleted: []awstypes.DeletedObject{{Key: params.Delete.Objects[0].Key}},
				Errors: []awstypes.Error{{
					Key:     params.Delete.Objects[1].Key,
					Code:    aws.String("AccessDenied"),
					Message: aws.String("no"),
				}},
			}, nil
		},
	}

	d := New(mock)
	result, err := d.DeleteBatch(context.Background(), "bucket", []string{"a", "b"})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPartialBatch)
	assert.Len(t, result.Deleted, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "b", result.Errors[0].Key)
	assert.Equal(t, "AccessDenied", result.Errors[0].Code)
}

func TestDeleteBatchRequestFailureContinues(t *testing.T) {
	keys := make([]string, 1500)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%04d", i)
	}

	var call int
	mock := &testutil.MockS3Client{
		DeleteObjectsFunc: func(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
			call++
			if call == 1 {
				return nil, stderrors.New("request timeout")
			}
			deleted := make([]awstypes.DeletedObject, len(params.Delete.Objects))
			for i, id := range params.Delete.Objects {
				deleted[i] = awstypes.DeletedObject{Key: id.Key}
			}
			return &s3.DeleteObjectsOutput{Deleted: deleted}, nil
		},
	}

	d := New(mock)
	result, err := d.DeleteBatch(context.Background(), "bucket", keys)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPartialBatch)
	// First batch of 1000 failed wholesale, second batch of 500 went through.
	assert.Len(t, result.Errors, 1000)
	assert.Len(t, result.Deleted, 500)
	assert.Equal(t, 2, call)
}

func TestDeleteVersions(t *testing.T) {
	versions := []xfertypes.ObjectVersion{
		{Key: "file.txt", VersionID: "v1"},
		{Key: "file.txt", VersionID: "v2"},
	}

	mock := &testutil.MockS3Client{
		DeleteObjectsFunc: func(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
			require.Len(t, params.Delete.Objects, 2)
			assert.Equal(t, "v1", aws.ToString(params.Delete.Objects[0].VersionId))
			assert.Equal(t, "v2", aws.ToString(params.Delete.Objects[1].VersionId))
			deleted := make([]awstypes.DeletedObject, len(params.Delete.Objects))
			for i, id := range params.Delete.Objects {
				deleted[i] = awstypes.DeletedObject{Key: id.Key}
			}
			return &s3.DeleteObjectsOutput{Deleted: deleted}, nil
		},
	}

	d := New(mock)
	result, err := d.DeleteVersions(context.Background(), "bucket", versions)
	require.NoError(t, err)
	assert.Len(t, result.Deleted, 2)
}
