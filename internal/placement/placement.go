// Package placement resolves where transferred entries land.
//
// Three policies cover the ways a folder can arrive at a destination:
// preserve recreates the source folder under the destination, merge pours
// the source's contents directly into it, and rename is merge aimed at a
// destination that does not exist yet. When source and destination share
// a leaf name, preserve would nest a folder inside its namesake, so it
// degrades to merge.
package placement

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/s3api"
	"github.com/statfungen/transferkit/remote"
	"github.com/statfungen/transferkit/xfertypes"
)

// Resolver maps source keys to destination keys for one batch.
type Resolver struct {
	srcPrefix  string
	destPrefix string
	policy     xfertypes.PlacementPolicy
}

// NewResolver builds a resolver for srcPrefix -> destPrefix under the
// given policy. Prefixes may be passed with or without trailing slashes.
func NewResolver(srcPrefix, destPrefix string, policy xfertypes.PlacementPolicy) *Resolver {
	src := normalize(srcPrefix)
	dest := normalize(destPrefix)

	if policy == "" {
		policy = xfertypes.PolicyPreserve
	}
	// Identical leaf names degrade preserve to merge: "move a/b into x/b"
	// must not produce x/b/b/.
	if policy == xfertypes.PolicyPreserve && leaf(src) != "" && leaf(src) == leaf(dest) {
		policy = xfertypes.PolicyMerge
	}

	return &Resolver{
		srcPrefix:  src,
		destPrefix: dest,
		policy:     policy,
	}
}

// Policy returns the effective policy after any leaf-equality degrade.
func (r *Resolver) Policy() xfertypes.PlacementPolicy {
	return r.policy
}

// DestinationKey resolves where key goes. Keys outside the source prefix
// fall back to their basename under the destination.
func (r *Resolver) DestinationKey(key string) string {
	rel, ok := strings.CutPrefix(key, r.srcPrefix)
	if !ok || r.srcPrefix == "" {
		rel = key[strings.LastIndex(key, "/")+1:]
	}

	switch r.policy {
	case xfertypes.PolicyPreserve:
		if l := leaf(r.srcPrefix); l != "" {
			return r.destPrefix + l + "/" + rel
		}
		return r.destPrefix + rel
	default: // merge, rename
		return r.destPrefix + rel
	}
}

// DestinationPrefix resolves where a sub-folder of the source goes, with
// a trailing slash.
func (r *Resolver) DestinationPrefix(prefix string) string {
	return normalize(r.DestinationKey(strings.TrimSuffix(normalize(prefix), "/")))
}

func normalize(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// leaf returns the last path segment of a normalized prefix.
func leaf(prefix string) string {
	trimmed := strings.TrimSuffix(prefix, "/")
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}

// Ensurer creates folder placeholders idempotently, parents before
// children.
type Ensurer struct {
	s3Client s3api.S3API
}

// NewEnsurer creates an Ensurer.
func NewEnsurer(s3Client s3api.S3API) *Ensurer {
	return &Ensurer{s3Client: s3Client}
}

// EnsureFolder makes sure a zero-byte "prefix/" placeholder exists for
// the prefix and each of its ancestors. Creating a folder that already
// exists is a no-op.
func (e *Ensurer) EnsureFolder(ctx context.Context, bucket, prefix string) error {
	prefix = normalize(prefix)
	if prefix == "" {
		return nil
	}

	segments := strings.Split(strings.TrimSuffix(prefix, "/"), "/")
	marker := ""
	for _, seg := range segments {
		marker += seg + "/"
		if err := e.ensureMarker(ctx, bucket, marker); err != nil {
			return err
		}
	}
	return nil
}

func (e *Ensurer) ensureMarker(ctx context.Context, bucket, marker string) error {
	_, err := e.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(marker),
	})
	if err == nil {
		return nil
	}
	var notFound *awstypes.NotFound
	if !stderrors.As(err, &notFound) {
		return errors.NewObjectError("ensureFolder", bucket, marker, err)
	}

	_, err = e.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(marker),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return errors.NewObjectError("ensureFolder", bucket, marker, err)
	}
	return nil
}

// EnsureRemoteDir makes sure dir and its ancestors exist on a remote
// session, creating parents first. Existing directories are left alone.
func EnsureRemoteDir(ctx context.Context, sess remote.Session, dir string) error {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || dir == "/" {
		return nil
	}

	rooted := strings.HasPrefix(dir, "/")
	segments := strings.Split(strings.TrimPrefix(dir, "/"), "/")
	current := ""
	if rooted {
		current = "/"
	}

	for _, seg := range segments {
		if current == "" || current == "/" {
			current += seg
		} else {
			current += "/" + seg
		}
		if _, err := sess.Stat(ctx, current); err == nil {
			continue
		}
		if err := sess.Mkdir(ctx, current); err != nil {
			// Lost the race or a stat blind spot: only fail if the
			// directory truly is not there.
			if _, statErr := sess.Stat(ctx, current); statErr != nil {
				return err
			}
		}
	}
	return nil
}
