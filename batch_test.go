package transferkit

import (
	"context"
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

func TestRunValidatesRequest(t *testing.T) {
	client := NewWithClient(&testutil.MockS3Client{})

	_, err := client.Run(context.Background(), &BatchRequest{
		Op:     xfertypes.OpCopy,
		Bucket: "",
	})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = client.Run(context.Background(), &BatchRequest{
		Op:         xfertypes.OpUpload,
		DestBucket: "bucket",
		RemoteDir:  "/data",
	})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = client.Run(context.Background(), &BatchRequest{
		Op: xfertypes.OpKind("defragment"),
	})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestRunDryRunThroughClient(t *testing.T) {
	mock := &testutil.MockS3Client{
		ListObjectsV2Func: func(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			return &s3.ListObjectsV2Output{
				Contents: []awstypes.Object{
					{Key: aws.String("src/a.txt"), Size: aws.Int64(1)},
					{Key: aws.String("src/b.txt"), Size: aws.Int64(2)},
				},
				IsTruncated: aws.Bool(false),
			}, nil
		},
	}

	client := NewWithClient(mock)
	result, err := client.Run(context.Background(), &BatchRequest{
		Op:        xfertypes.OpDelete,
		Bucket:    "bucket",
		SrcPrefix: "src",
		Policy: xfertypes.OperationPolicy{
			DryRun:      true,
			DryRunLimit: -1,
		},
	})

	require.NoError(t, err)
	assert.Len(t, result.Previewed, 2)
	assert.True(t, result.OK())
}
