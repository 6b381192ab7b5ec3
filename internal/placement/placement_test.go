package placement

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statfungen/transferkit/internal/testutil"
	"github.com/statfungen/transferkit/remote"
	"github.com/statfungen/transferkit/xfertypes"
)

func TestDestinationKey(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		dest   string
		policy xfertypes.PlacementPolicy
		key    string
		want   string
	}{
		{
			name:   "preserve recreates source folder",
			src:    "a/b",
			dest:   "x/y",
			policy: xfertypes.PolicyPreserve,
			key:    "a/b/c/d.txt",
			want:   "x/y/b/c/d.txt",
		},
		{
			name:   "merge drops source folder level",
			src:    "a/b",
			dest:   "x/y",
			policy: xfertypes.PolicyMerge,
			key:    "a/b/c/d.txt",
			want:   "x/y/c/d.txt",
		},
		{
			name:   "rename behaves like merge",
			src:    "a/b",
			dest:   "x/z",
			policy: xfertypes.PolicyRename,
			key:    "a/b/f.txt",
			want:   "x/z/f.txt",
		},
		{
			name:   "equal leaf names degrade preserve to merge",
			src:    "a/data",
			dest:   "x/data",
			policy: xfertypes.PolicyPreserve,
			key:    "a/data/f.txt",
			want:   "x/data/f.txt",
		},
		{
			name:   "key outside source prefix falls back to basename",
			src:    "a/b",
			dest:   "x/y",
			policy: xfertypes.PolicyMerge,
			key:    "elsewhere/deep/f.txt",
			want:   "x/y/f.txt",
		},
		{
			name:   "empty source prefix uses basename",
			src:    "",
			dest:   "x",
			policy: xfertypes.PolicyMerge,
			key:    "deep/nested/f.txt",
			want:   "x/f.txt",
		},
		{
			name:   "preserve to bucket root",
			src:    "a/b",
			dest:   "",
			policy: xfertypes.PolicyPreserve,
			key:    "a/b/f.txt",
			want:   "b/f.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.src, tt.dest, tt.policy)
			assert.Equal(t, tt.want, r.DestinationKey(tt.key))
		})
	}
}

func TestResolverPolicyDegrade(t *testing.T) {
	r := NewResolver("a/data", "x/data", xfertypes.PolicyPreserve)
	assert.Equal(t, xfertypes.PolicyMerge, r.Policy())

	r = NewResolver("a/b", "x/y", xfertypes.PolicyPreserve)
	assert.Equal(t, xfertypes.PolicyPreserve, r.Policy())
}

func TestDestinationPrefix(t *testing.T) {
	r := NewResolver("a/b", "x/y", xfertypes.PolicyMerge)
	assert.Equal(t, "x/y/sub/", r.DestinationPrefix("a/b/sub"))

	r = NewResolver("a/b", "x/y", xfertypes.PolicyPreserve)
	assert.Equal(t, "x/y/b/sub/", r.DestinationPrefix("a/b/sub/"))
}

func TestEnsureFolderCreatesParentsFirst(t *testing.T) {
	existing := map[string]bool{"x/": true}
	var created []string

	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			if existing[aws.ToString(params.Key)] {
				return &s3.HeadObjectOutput{}, nil
			}
			return nil, &awstypes.NotFound{}
		},
		PutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			key := aws.ToString(params.Key)
			created = append(created, key)
			existing[key] = true
			assert.Equal(t, int64(0), aws.ToInt64(params.ContentLength))
			return &s3.PutObjectOutput{}, nil
		},
	}

	e := NewEnsurer(mock)
	require.NoError(t, e.EnsureFolder(context.Background(), "bucket", "x/y/z"))
	assert.Equal(t, []string{"x/y/", "x/y/z/"}, created)
}

func TestEnsureFolderIdempotent(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{}, nil
		},
		PutObjectFunc: func(_ context.Context, _ *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			t.Fatal("existing folders must not be recreated")
			return nil, nil
		},
	}

	e := NewEnsurer(mock)
	require.NoError(t, e.EnsureFolder(context.Background(), "bucket", "x/y"))
}

func TestEnsureRemoteDir(t *testing.T) {
	existing := map[string]bool{"/data": true}
	var made []string

	sess := &testutil.MockSession{
		StatFunc: func(_ context.Context, p string) (remote.FileInfo, error) {
			if existing[p] {
				return remote.FileInfo{Path: p, IsDir: true}, nil
			}
			return remote.FileInfo{}, stderrors.New("no such file")
		},
		MkdirFunc: func(_ context.Context, dir string) error {
			made = append(made, dir)
			existing[dir] = true
			return nil
		},
	}

	require.NoError(t, EnsureRemoteDir(context.Background(), sess, "/data/runs/batch7"))
	assert.Equal(t, []string{"/data/runs", "/data/runs/batch7"}, made)
}

func TestEnsureRemoteDirRaceTolerated(t *testing.T) {
	var statCalls int
	sess := &testutil.MockSession{
		StatFunc: func(_ context.Context, p string) (remote.FileInfo, error) {
			statCalls++
			if statCalls == 1 {
				// First probe misses, then mkdir loses the race.
				return remote.FileInfo{}, stderrors.New("no such file")
			}
			return remote.FileInfo{Path: p, IsDir: true}, nil
		},
		MkdirFunc: func(_ context.Context, _ string) error {
			return stderrors.New("already exists")
		},
	}

	require.NoError(t, EnsureRemoteDir(context.Background(), sess, "/incoming"))
}
