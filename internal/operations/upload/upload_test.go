package upload

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/testutil"
	"github.com/statfungen/transferkit/xfertypes"
)

const mib = 1024 * 1024

func TestUploadSingle(t *testing.T) {
	var putCalls int
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			putCalls++
			assert.Equal(t, "test-bucket", aws.ToString(params.Bucket))
			assert.Equal(t, "data/file.bin", aws.ToString(params.Key))
			assert.Equal(t, int64(1024), aws.ToInt64(params.ContentLength))
			return &s3.PutObjectOutput{ETag: aws.String(`"abc"`)}, nil
		},
		CreateMultipartUploadFunc: func(_ context.Context, _ *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			t.Fatal("small upload must not start a multipart session")
			return nil, nil
		},
	}

	u := New(mock, zerolog.Nop())
	result, err := u.Upload(context.Background(), "test-bucket", "data/file.bin",
		bytes.NewReader(make([]byte, 1024)), 1024, &xfertypes.UploadOptionConfig{})

	require.NoError(t, err)
	assert.Equal(t, 1, putCalls)
	assert.Equal(t, int64(1024), result.Size)
	assert.Equal(t, `"abc"`, result.ETag)
	assert.Equal(t, 0, result.Parts)
	assert.False(t, result.Skipped)
}

func TestUploadMultipartPartSequence(t *testing.T) {
	// 25 MiB with a 10 MiB chunk override: parts of 10, 10, and 5 MiB.
	size := int64(25 * mib)
	var partNumbers []int32
	var partSizes []int64

	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(_ context.Context, _ *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil
		},
		UploadPartFunc: func(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			partNumbers = append(partNumbers, aws.ToInt32(params.PartNumber))
			partSizes = append(partSizes, aws.ToInt64(params.ContentLength))
			etag := fmt.Sprintf(`"etag-%d"`, aws.ToInt32(params.PartNumber))
			return &s3.UploadPartOutput{ETag: aws.String(etag)}, nil
		},
		CompleteMultipartUploadFunc: func(_ context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			require.Len(t, params.MultipartUpload.Parts, 3)
			for i, p := range params.MultipartUpload.Parts {
				assert.Equal(t, int32(i+1), aws.ToInt32(p.PartNumber))
			}
			return &s3.CompleteMultipartUploadOutput{ETag: aws.String(`"final"`)}, nil
		},
		AbortMultipartUploadFunc: func(_ context.Context, _ *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			t.Fatal("successful upload must not abort")
			return nil, nil
		},
	}

	u := New(mock, zerolog.Nop())
	result, err := u.Upload(context.Background(), "bucket", "big.bin",
		bytes.NewReader(make([]byte, size)), size,
		&xfertypes.UploadOptionConfig{ChunkSize: 10 * mib})

	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, partNumbers)
	assert.Equal(t, []int64{10 * mib, 10 * mib, 5 * mib}, partSizes)
	assert.Equal(t, 3, result.Parts)
	assert.Equal(t, `"final"`, result.ETag)
}

func TestUploadMultipartPartFailureAborts(t *testing.T) {
	size := int64(40 * mib)
	partErr := stderrors.New("connection reset")
	var abortCalls atomic.Int32

	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(_ context.Context, _ *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-2")}, nil
		},
		UploadPartFunc: func(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			if aws.ToInt32(params.PartNumber) == 2 {
				return nil, partErr
			}
			return &s3.UploadPartOutput{ETag: aws.String(`"ok"`)}, nil
		},
		CompleteMultipartUploadFunc: func(_ context.Context, _ *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			t.Fatal("failed upload must not complete")
			return nil, nil
		},
		AbortMultipartUploadFunc: func(_ context.Context, params *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			abortCalls.Add(1)
			assert.Equal(t, "upload-2", aws.ToString(params.UploadId))
			return &s3.AbortMultipartUploadOutput{}, nil
		},
	}

	u := New(mock, zerolog.Nop())
	_, err := u.Upload(context.Background(), "bucket", "big.bin",
		bytes.NewReader(make([]byte, size)), size,
		&xfertypes.UploadOptionConfig{ChunkSize: 10 * mib})

	require.Error(t, err)
	assert.ErrorIs(t, err, partErr)
	assert.Equal(t, int32(1), abortCalls.Load())
}

func TestUploadMultipartAbortFailureDoesNotMaskCause(t *testing.T) {
	size := int64(20 * mib)
	partErr := stderrors.New("part upload failed")

	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(_ context.Context, _ *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-3")}, nil
		},
		UploadPartFunc: func(_ context.Context, _ *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			return nil, partErr
		},
		AbortMultipartUploadFunc: func(_ context.Context, _ *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			return nil, stderrors.New("abort also failed")
		},
	}

	u := New(mock, zerolog.Nop())
	_, err := u.Upload(context.Background(), "bucket", "big.bin",
		bytes.NewReader(make([]byte, size)), size,
		&xfertypes.UploadOptionConfig{ChunkSize: 10 * mib})

	require.Error(t, err)
	assert.ErrorIs(t, err, partErr)
	assert.NotContains(t, err.Error(), "abort also failed")
}

func TestUploadSkipIdentical(t *testing.T) {
	var putCalls int
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(2048)}, nil
		},
		PutObjectFunc: func(_ context.Context, _ *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			putCalls++
			return &s3.PutObjectOutput{}, nil
		},
	}

	u := New(mock, zerolog.Nop())
	result, err := u.Upload(context.Background(), "bucket", "same.bin",
		bytes.NewReader(make([]byte, 2048)), 2048,
		&xfertypes.UploadOptionConfig{SkipIdentical: true})

	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 0, putCalls)
}

func TestUploadSkipIdenticalSizeDiffers(t *testing.T) {
	var putCalls int
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(999)}, nil
		},
		PutObjectFunc: func(_ context.Context, _ *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			putCalls++
			return &s3.PutObjectOutput{}, nil
		},
	}

	u := New(mock, zerolog.Nop())
	result, err := u.Upload(context.Background(), "bucket", "diff.bin",
		bytes.NewReader(make([]byte, 2048)), 2048,
		&xfertypes.UploadOptionConfig{SkipIdentical: true})

	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, putCalls)
}

func TestUploadSkipIdenticalDestinationMissing(t *testing.T) {
	var putCalls int
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, &awstypes.NotFound{}
		},
		PutObjectFunc: func(_ context.Context, _ *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			putCalls++
			return &s3.PutObjectOutput{}, nil
		},
	}

	u := New(mock, zerolog.Nop())
	result, err := u.Upload(context.Background(), "bucket", "new.bin",
		bytes.NewReader(make([]byte, 100)), 100,
		&xfertypes.UploadOptionConfig{SkipIdentical: true})

	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, putCalls)
}

func TestUploadShortRead(t *testing.T) {
	size := int64(20 * mib)
	var aborted bool
	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(_ context.Context, _ *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-4")}, nil
		},
		AbortMultipartUploadFunc: func(_ context.Context, _ *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			aborted = true
			return &s3.AbortMultipartUploadOutput{}, nil
		},
	}

	// Reader delivers fewer bytes than the declared size.
	u := New(mock, zerolog.Nop())
	_, err := u.Upload(context.Background(), "bucket", "short.bin",
		bytes.NewReader(make([]byte, 5*mib)), size,
		&xfertypes.UploadOptionConfig{ChunkSize: 10 * mib})

	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.True(t, aborted)
}

func TestValidateParts(t *testing.T) {
	tests := []struct {
		name    string
		parts   []xfertypes.Part
		wantErr bool
	}{
		{
			name:  "contiguous sequence",
			parts: []xfertypes.Part{{Number: 1}, {Number: 2}, {Number: 3}},
		},
		{
			name:  "single part",
			parts: []xfertypes.Part{{Number: 1}},
		},
		{
			name:    "empty",
			parts:   nil,
			wantErr: true,
		},
		{
			name:    "gap in sequence",
			parts:   []xfertypes.Part{{Number: 1}, {Number: 3}},
			wantErr: true,
		},
		{
			name:    "does not start at one",
			parts:   []xfertypes.Part{{Number: 2}, {Number: 3}},
			wantErr: true,
		},
		{
			name:    "out of order",
			parts:   []xfertypes.Part{{Number: 2}, {Number: 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParts(tt.parts)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrIncompleteUpload)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
