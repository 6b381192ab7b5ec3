package batch

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/statfungen/transferkit/internal/placement"
	"github.com/statfungen/transferkit/internal/walker"
	"github.com/statfungen/transferkit/xfertypes"
)

const defaultUnitConcurrency = 4

// execute runs every planned unit, bounding concurrency with a
// semaphore. Failures are tallied per unit; the batch always runs to the
// end.
func (d *Driver) execute(
	ctx context.Context,
	req *Request,
	p *plan,
	result *xfertypes.BatchResult,
	logger zerolog.Logger,
) {
	// Destination folders first, so empty source structure is there even
	// if every file unit fails.
	for _, folder := range p.folders {
		if err := d.ensureFolder(ctx, req, folder); err != nil {
			logger.Warn().Err(err).Str("folder", folder).Msg("failed to create destination folder")
			result.Failed++
			result.Errors = append(result.Errors, xfertypes.UnitError{DestKey: folder, Err: err})
		}
	}

	concurrency := req.Policy.Concurrency
	if concurrency <= 0 {
		concurrency = defaultUnitConcurrency
	}
	// A non-multiplexing remote session has one data channel; driving it
	// from several goroutines would only serialize on its lock.
	if req.Session != nil && !req.Session.Multiplexes() {
		concurrency = 1
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, u := range p.units {
		wg.Add(1)
		go func(u unit) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := d.executeUnit(ctx, req, u)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				logger.Warn().Err(err).Str("key", u.srcKey).Msg("unit failed")
				result.Failed++
				result.Errors = append(result.Errors, xfertypes.UnitError{
					Key:     u.srcKey,
					DestKey: u.destKey,
					Err:     err,
				})
			case res != nil && res.Skipped:
				logger.Debug().Str("key", u.srcKey).Msg("unit skipped")
				result.Skipped++
			default:
				result.Succeeded++
				result.Bytes += u.size
			}
		}(u)
	}
	wg.Wait()
}

func (d *Driver) ensureFolder(ctx context.Context, req *Request, folder string) error {
	if req.Op == xfertypes.OpDownload {
		return placement.EnsureRemoteDir(ctx, req.Session, folder)
	}
	return d.ensurer.EnsureFolder(ctx, req.DestBucket, folder)
}

// executeUnit dispatches one unit to the operation it belongs to.
func (d *Driver) executeUnit(ctx context.Context, req *Request, u unit) (*xfertypes.TransferResult, error) {
	switch req.Op {
	case xfertypes.OpCopy:
		return nil, d.copyUnit(ctx, req, u)
	case xfertypes.OpMove:
		if err := d.copyUnit(ctx, req, u); err != nil {
			return nil, err
		}
		return nil, d.deleteUnit(ctx, req, u)
	case xfertypes.OpDelete:
		return nil, d.deleteUnit(ctx, req, u)
	case xfertypes.OpUpload:
		return d.uploadUnit(ctx, req, u)
	case xfertypes.OpDownload:
		return nil, d.downloadUnit(ctx, req, u)
	default:
		return nil, fmt.Errorf("unsupported operation %q", req.Op)
	}
}

// copyUnit copies one object. On a versioned bucket every version is
// replayed oldest first, so the destination's history ends in the same
// order as the source's, unless the policy pins the current version.
func (d *Driver) copyUnit(ctx context.Context, req *Request, u unit) error {
	cfg := &xfertypes.CopyOptionConfig{ChunkSize: req.Policy.ChunkSize}

	if req.Policy.CurrentVersionOnly {
		_, err := d.copier.Copy(ctx, req.Bucket, u.srcKey, req.DestBucket, u.destKey, cfg)
		return err
	}

	versions, err := d.objectVersions(ctx, req.Bucket, u.srcKey)
	if err != nil {
		return err
	}
	if len(versions) <= 1 {
		_, err := d.copier.Copy(ctx, req.Bucket, u.srcKey, req.DestBucket, u.destKey, cfg)
		return err
	}

	for _, v := range versions {
		if v.IsDeleteMarker {
			continue
		}
		vcfg := *cfg
		vcfg.SourceVersionID = v.VersionID
		if _, err := d.copier.Copy(ctx, req.Bucket, u.srcKey, req.DestBucket, u.destKey, &vcfg); err != nil {
			return err
		}
	}
	return nil
}

// deleteUnit removes one object: the whole version history by default,
// or just the current version (a delete marker) under
// CurrentVersionOnly.
func (d *Driver) deleteUnit(ctx context.Context, req *Request, u unit) error {
	if req.Policy.CurrentVersionOnly {
		return d.deleter.Delete(ctx, req.Bucket, u.srcKey, "")
	}

	versions, err := d.objectVersions(ctx, req.Bucket, u.srcKey)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return d.deleter.Delete(ctx, req.Bucket, u.srcKey, "")
	}
	_, err = d.deleter.DeleteVersions(ctx, req.Bucket, versions)
	return err
}

// uploadUnit streams one remote file into the object store.
func (d *Driver) uploadUnit(ctx context.Context, req *Request, u unit) (*xfertypes.TransferResult, error) {
	reader, err := req.Session.OpenRead(ctx, u.srcKey, 0)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return d.uploader.Upload(ctx, req.DestBucket, u.destKey, reader, u.size,
		&xfertypes.UploadOptionConfig{
			ChunkSize:     req.Policy.ChunkSize,
			SkipIdentical: req.Policy.SkipIdentical,
		})
}

// downloadUnit streams one object out to the remote server.
func (d *Driver) downloadUnit(ctx context.Context, req *Request, u unit) error {
	if dir := path.Dir(u.destKey); dir != "." && dir != "/" {
		if err := placement.EnsureRemoteDir(ctx, req.Session, dir); err != nil {
			return err
		}
	}

	writer, err := req.Session.OpenWrite(ctx, u.destKey)
	if err != nil {
		return err
	}

	_, err = d.downloader.Download(ctx, req.Bucket, u.srcKey, writer,
		&xfertypes.DownloadOptionConfig{ChunkSize: req.Policy.ChunkSize})
	if err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// objectVersions lists every version of exactly key, oldest first.
// Unversioned buckets report a single null-ID version.
func (d *Driver) objectVersions(ctx context.Context, bucket, key string) ([]xfertypes.ObjectVersion, error) {
	var versions []xfertypes.ObjectVersion
	var keyMarker, versionMarker *string

	for {
		output, err := d.s3Client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          aws.String(bucket),
			Prefix:          aws.String(key),
			KeyMarker:       keyMarker,
			VersionIdMarker: versionMarker,
		})
		if err != nil {
			return nil, err
		}

		for _, v := range output.Versions {
			if aws.ToString(v.Key) != key {
				continue
			}
			versions = append(versions, xfertypes.ObjectVersion{
				Key:          key,
				VersionID:    aws.ToString(v.VersionId),
				IsLatest:     aws.ToBool(v.IsLatest),
				Size:         aws.ToInt64(v.Size),
				LastModified: aws.ToTime(v.LastModified),
				ETag:         aws.ToString(v.ETag),
			})
		}
		for _, m := range output.DeleteMarkers {
			if aws.ToString(m.Key) != key {
				continue
			}
			versions = append(versions, xfertypes.ObjectVersion{
				Key:            key,
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

	// The store reports newest first at second granularity. A stable
	// sort keeps same-timestamp versions in reported order, so reversing
	// the slice yields oldest first even within one second.
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].LastModified.After(versions[j].LastModified)
	})
	for i, j := 0, len(versions)-1; i < j; i, j = i+1, j-1 {
		versions[i], versions[j] = versions[j], versions[i]
	}
	return versions, nil
}

// remoteDestPath maps an object key to its remote path under destDir.
func remoteDestPath(destDir, srcPrefix, key string) string {
	rel := strings.TrimPrefix(key, walker.NormalizePrefix(srcPrefix))
	return path.Join(destDir, rel)
}

// remoteRelPath strips the source directory from a remote path.
func remoteRelPath(srcDir, full string) string {
	srcDir = strings.TrimSuffix(srcDir, "/")
	rel := strings.TrimPrefix(full, srcDir)
	return strings.TrimPrefix(rel, "/")
}
