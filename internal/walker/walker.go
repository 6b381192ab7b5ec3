// Package walker lists and filters trees of objects and remote files.
//
// A walk has two scopes. Direct scope sees only the immediate children of
// a prefix, with sub-folders reported separately so the caller can decide
// to descend. Recursive scope flattens the whole subtree. Zero-length
// folder marker objects are never reported as files.
package walker

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/s3api"
	"github.com/statfungen/transferkit/remote"
	"github.com/statfungen/transferkit/xfertypes"
)

const maxPageSize = 1000

// Listing is the outcome of walking one S3 prefix.
type Listing struct {
	// Objects are the entries that matched the criterion
	Objects []xfertypes.Object

	// Folders are the immediate sub-folder names (direct scope only)
	Folders []string

	// TotalSeen counts every real object inspected, matched or not.
	// Zero means the prefix holds nothing at all.
	TotalSeen int
}

// Walker lists S3 prefixes.
type Walker struct {
	s3Client s3api.S3API
}

// New creates a Walker.
func New(s3Client s3api.S3API) *Walker {
	return &Walker{s3Client: s3Client}
}

// NormalizePrefix gives a prefix its trailing slash. The root prefix
// stays empty.
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// Walk lists bucket/prefix and filters with crit. A criterion that only
// matches full paths upgrades the walk to recursive regardless of the
// recursive argument.
func (w *Walker) Walk(
	ctx context.Context,
	bucket, prefix string,
	crit *Criterion,
	recursive bool,
) (*Listing, error) {
	prefix = NormalizePrefix(prefix)
	if recursive || crit.ForcesRecursive() {
		return w.walkRecursive(ctx, bucket, prefix, crit)
	}
	return w.walkDirect(ctx, bucket, prefix, crit)
}

// walkDirect lists the immediate children of a prefix using a delimiter.
func (w *Walker) walkDirect(
	ctx context.Context,
	bucket, prefix string,
	crit *Criterion,
) (*Listing, error) {
	listing := &Listing{}
	var token *string

	for {
		output, err := w.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			MaxKeys:           aws.Int32(maxPageSize),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, errors.New("list", err).WithBucket(bucket).WithKey(prefix)
		}

		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			if isFolderMarker(key, prefix) {
				continue
			}
			listing.TotalSeen++
			name := strings.TrimPrefix(key, prefix)
			if crit.Match(name, name) {
				listing.Objects = append(listing.Objects, convertObject(obj, key))
			}
		}
		for _, cp := range output.CommonPrefixes {
			sub := strings.TrimPrefix(aws.ToString(cp.Prefix), prefix)
			listing.Folders = append(listing.Folders, strings.TrimSuffix(sub, "/"))
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		token = output.NextContinuationToken
	}
	return listing, nil
}

// walkRecursive lists the entire subtree, matching full relative paths.
func (w *Walker) walkRecursive(
	ctx context.Context,
	bucket, prefix string,
	crit *Criterion,
) (*Listing, error) {
	listing := &Listing{}
	var token *string

	for {
		output, err := w.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			MaxKeys:           aws.Int32(maxPageSize),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, errors.New("list", err).WithBucket(bucket).WithKey(prefix)
		}

		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") && aws.ToInt64(obj.Size) == 0 {
				continue
			}
			listing.TotalSeen++
			rel := strings.TrimPrefix(key, prefix)
			name := rel
			if idx := strings.LastIndex(rel, "/"); idx >= 0 {
				name = rel[idx+1:]
			}
			if crit.Match(rel, name) {
				listing.Objects = append(listing.Objects, convertObject(obj, key))
			}
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		token = output.NextContinuationToken
	}
	return listing, nil
}

// PrefixExists reports whether bucket/prefix holds at least one object.
func (w *Walker) PrefixExists(ctx context.Context, bucket, prefix string) (bool, error) {
	output, err := w.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(NormalizePrefix(prefix)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, errors.New("list", err).WithBucket(bucket).WithKey(prefix)
	}
	return aws.ToInt32(output.KeyCount) > 0, nil
}

// isFolderMarker reports whether key is a zero-content folder
// placeholder rather than data: the prefix itself, or any key with a
// trailing slash.
func isFolderMarker(key, prefix string) bool {
	return key == prefix || strings.HasSuffix(key, "/")
}

func convertObject(obj awstypes.Object, key string) xfertypes.Object {
	return xfertypes.Object{
		Key:          key,
		Size:         aws.ToInt64(obj.Size),
		LastModified: aws.ToTime(obj.LastModified),
		ETag:         aws.ToString(obj.ETag),
		StorageClass: string(obj.StorageClass),
	}
}

// RemoteListing is the outcome of walking one remote directory.
type RemoteListing struct {
	// Files are the entries that matched the criterion
	Files []remote.FileInfo

	// Folders are the immediate sub-directory names (direct scope only)
	Folders []string

	// TotalSeen counts every file inspected, matched or not
	TotalSeen int
}

// WalkRemote lists a remote directory through sess and filters with
// crit. Recursive scope descends breadth-first.
func WalkRemote(
	ctx context.Context,
	sess remote.Session,
	dir string,
	crit *Criterion,
	recursive bool,
) (*RemoteListing, error) {
	recursive = recursive || crit.ForcesRecursive()
	listing := &RemoteListing{}

	root := strings.TrimSuffix(dir, "/")
	if root == "" {
		root = "/"
	}

	queue := []string{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		entries, err := sess.List(ctx, current)
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			if e.IsDir {
				if recursive {
					queue = append(queue, e.Path)
				} else if current == root {
					listing.Folders = append(listing.Folders, e.Name)
				}
				continue
			}
			listing.TotalSeen++
			rel := relPath(root, e.Path)
			if crit.Match(rel, e.Name) {
				listing.Files = append(listing.Files, e)
			}
		}
	}
	return listing, nil
}

// relPath strips the walk root from a full remote path.
func relPath(root, full string) string {
	if root == "/" {
		return strings.TrimPrefix(full, "/")
	}
	return strings.TrimPrefix(strings.TrimPrefix(full, root), "/")
}
