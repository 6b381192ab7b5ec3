package transferkit

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/testutil"
)

func TestUploadValidatesInput(t *testing.T) {
	client := NewWithClient(&testutil.MockS3Client{})

	_, err := client.Upload(context.Background(), "", "key", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = client.Upload(context.Background(), "bucket", "", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = client.Upload(context.Background(), "bucket", "key", nil, 1)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestUploadDetectsContentType(t *testing.T) {
	var contentType string
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			contentType = aws.ToString(params.ContentType)
			return &s3.PutObjectOutput{ETag: aws.String(`"abc"`)}, nil
		},
	}

	client := NewWithClient(mock)
	data := []byte(`{"ok":true}`)
	_, err := client.Upload(context.Background(), "bucket", "data/report.json",
		bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Contains(t, contentType, "application/json")
}

func TestPutAndGetRoundTrip(t *testing.T) {
	var stored []byte
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			var err error
			stored, err = readAll(params.Body)
			require.NoError(t, err)
			return &s3.PutObjectOutput{}, nil
		},
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(stored)))}, nil
		},
		GetObjectFunc: func(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{
				Body:          nopReadCloser(stored),
				ContentLength: aws.Int64(int64(len(stored))),
			}, nil
		},
	}

	client := NewWithClient(mock)
	require.NoError(t, client.Put(context.Background(), "bucket", "k.txt", []byte("hello")))

	got, err := client.Get(context.Background(), "bucket", "k.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestUploadFileDetectsTypeFromContents(t *testing.T) {
	dir := t.TempDir()
	// A gzip header without a useful extension.
	path := filepath.Join(dir, "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00}, 0o644))

	var contentType string
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			contentType = aws.ToString(params.ContentType)
			return &s3.PutObjectOutput{}, nil
		},
	}

	client := NewWithClient(mock)
	_, err := client.UploadFile(context.Background(), "bucket", "payload.bin", path)
	require.NoError(t, err)
	assert.Equal(t, "application/gzip", contentType)
}

func TestDownloadFileWritesAndCleansUpOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.txt")

	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, &awstypes.NotFound{}
		},
	}

	client := NewWithClient(mock)
	_, err := client.DownloadFile(context.Background(), "bucket", "missing.txt", path)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed download must not leave a partial file")
}

func TestExists(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			if aws.ToString(params.Key) == "present.txt" {
				return &s3.HeadObjectOutput{}, nil
			}
			return nil, &awstypes.NotFound{}
		},
	}

	client := NewWithClient(mock)

	ok, err := client.Exists(context.Background(), "bucket", "present.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Exists(context.Background(), "bucket", "absent.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetMetadataNotFound(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, &awstypes.NotFound{}
		},
	}

	client := NewWithClient(mock)
	_, err := client.GetMetadata(context.Background(), "bucket", "gone.txt")
	assert.True(t, errors.IsNotFound(err))
}

func TestMoveDeletesSourceAfterCopy(t *testing.T) {
	var order []string
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(5)}, nil
		},
		CopyObjectFunc: func(_ context.Context, _ *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
			order = append(order, "copy")
			return &s3.CopyObjectOutput{}, nil
		},
		DeleteObjectFunc: func(_ context.Context, _ *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
			order = append(order, "delete")
			return &s3.DeleteObjectOutput{}, nil
		},
	}

	client := NewWithClient(mock)
	_, err := client.Move(context.Background(), "src-bucket", "a.txt", "dst-bucket", "b.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"copy", "delete"}, order)
}

func TestMoveFailedCopyKeepsSource(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, &awstypes.NotFound{}
		},
		DeleteObjectFunc: func(_ context.Context, _ *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
			t.Fatal("failed copy must not delete the source")
			return nil, nil
		},
	}

	client := NewWithClient(mock)
	_, err := client.Move(context.Background(), "src-bucket", "a.txt", "dst-bucket", "b.txt")
	require.Error(t, err)
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

func nopReadCloser(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}
