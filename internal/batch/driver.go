// Package batch drives multi-object operations: copying, moving, or
// deleting everything a prefix and pattern select, and bulk transfers
// between remote file servers and the object store.
//
// A run moves through explicit states: listing, an optional confirmation
// gate for destructive work, execution, and reporting. Sub-folders are
// covered with a breadth-first work queue rather than recursion, so
// arbitrarily deep trees cannot exhaust the stack. One failed unit never
// stops the rest; the run's tally reports how many succeeded, failed,
// and were skipped.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/statfungen/transferkit/errors"
	copyop "github.com/statfungen/transferkit/internal/operations/copy"
	"github.com/statfungen/transferkit/internal/operations/deleteop"
	"github.com/statfungen/transferkit/internal/operations/download"
	"github.com/statfungen/transferkit/internal/operations/upload"
	"github.com/statfungen/transferkit/internal/placement"
	"github.com/statfungen/transferkit/internal/s3api"
	"github.com/statfungen/transferkit/internal/walker"
	"github.com/statfungen/transferkit/remote"
	"github.com/statfungen/transferkit/xfertypes"
)

// State names one phase of a batch run.
type State string

// Batch run states.
const (
	StateIdle       State = "idle"
	StateListing    State = "listing"
	StateNoMatch    State = "no_match"
	StateHasMatches State = "has_matches"
	StateConfirming State = "confirming"
	StateExecuting  State = "executing"
	StateReporting  State = "reporting"
)

// Confirmer asks the user to approve a destructive operation.
type Confirmer interface {
	// Confirm presents the prompt and reports the decision.
	Confirm(prompt string) (bool, error)
}

// Request describes one batch run.
type Request struct {
	// Op is what to do with the selected entries
	Op xfertypes.OpKind

	// Bucket and SrcPrefix select the S3 source (copy, move, delete,
	// download)
	Bucket    string
	SrcPrefix string

	// DestBucket and DestPrefix name the S3 destination (copy, move,
	// upload)
	DestBucket string
	DestPrefix string

	// RemoteDir is the remote-side directory (upload source, download
	// destination)
	RemoteDir string

	// Pattern filters entries; empty selects everything
	Pattern     string
	PatternType xfertypes.PatternType

	// Policy carries placement, versioning, dry-run, and concurrency
	Policy xfertypes.OperationPolicy

	// Session is the connected remote server for upload and download
	Session remote.Session

	// Confirmer gates destructive operations when set
	Confirmer Confirmer
}

// unit is one file to act on.
type unit struct {
	srcKey     string
	destKey    string
	size       int64
	remoteFile remote.FileInfo
}

// plan is everything a run decided to do before touching anything.
type plan struct {
	units []unit

	// folders are destination prefixes or remote directories to create
	// so empty source structure survives the transfer
	folders []string

	// totalSeen counts entries inspected during listing
	totalSeen int
}

// Driver executes batch requests.
type Driver struct {
	s3Client   s3api.S3API
	walker     *walker.Walker
	uploader   *upload.Uploader
	downloader *download.Downloader
	copier     *copyop.Copier
	deleter    *deleteop.Deleter
	ensurer    *placement.Ensurer
	logger     zerolog.Logger
}

// New creates a Driver around an S3 client.
func New(s3Client s3api.S3API, logger zerolog.Logger) *Driver {
	return &Driver{
		s3Client:   s3Client,
		walker:     walker.New(s3Client),
		uploader:   upload.New(s3Client, logger),
		downloader: download.New(s3Client),
		copier:     copyop.NewCopier(s3Client, logger),
		deleter:    deleteop.New(s3Client),
		ensurer:    placement.NewEnsurer(s3Client),
		logger:     logger,
	}
}

// Run executes a batch request and reports the tally. The returned error
// is non-nil for run-level failures (bad input, nothing matched, declined
// confirmation, listing failure) and for partial failures, in which case
// the result still carries the full tally.
func (d *Driver) Run(ctx context.Context, req *Request) (*xfertypes.BatchResult, error) {
	startTime := time.Now()
	result := &xfertypes.BatchResult{RunID: uuid.NewString()}
	logger := d.logger.With().Str("run_id", result.RunID).Str("op", string(req.Op)).Logger()

	state := StateIdle
	logger.Debug().Str("state", string(state)).Msg("run created")

	crit, err := walker.NewCriterion(req.Pattern, req.PatternType)
	if err != nil {
		return result, err
	}

	state = StateListing
	logger.Debug().Str("state", string(state)).Msg("listing source")
	p, err := d.buildPlan(ctx, req, crit)
	if err != nil {
		return result, err
	}

	if len(p.units) == 0 && len(p.folders) == 0 {
		state = StateNoMatch
		logger.Info().Str("state", string(state)).Int("seen", p.totalSeen).Msg("nothing to do")
		result.Duration = time.Since(startTime)
		return result, d.noMatchError(req, p)
	}
	state = StateHasMatches
	logger.Info().
		Str("state", string(state)).
		Int("units", len(p.units)).
		Int("folders", len(p.folders)).
		Msg("plan ready")

	if req.Policy.DryRun {
		d.preview(p, req, result)
		result.Duration = time.Since(startTime)
		return result, nil
	}

	if req.Op.Destructive() && req.Confirmer != nil {
		state = StateConfirming
		logger.Debug().Str("state", string(state)).Msg("awaiting confirmation")
		ok, err := req.Confirmer.Confirm(confirmPrompt(req, len(p.units)))
		if err != nil {
			return result, errors.New(string(req.Op), err)
		}
		if !ok {
			result.Duration = time.Since(startTime)
			return result, errors.New(string(req.Op), errors.ErrConfirmationDeclined)
		}
	}

	state = StateExecuting
	logger.Debug().Str("state", string(state)).Msg("executing")
	d.execute(ctx, req, p, result, logger)

	state = StateReporting
	result.Duration = time.Since(startTime)
	logger.Info().
		Str("state", string(state)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Int64("bytes", result.Bytes).
		Dur("duration", result.Duration).
		Msg("run finished")

	if result.Failed > 0 {
		return result, errors.New(string(req.Op), errors.ErrPartialBatch)
	}
	return result, nil
}

// noMatchError distinguishes a prefix that holds nothing from a pattern
// that filtered everything out.
func (d *Driver) noMatchError(req *Request, p *plan) error {
	if p.totalSeen == 0 {
		return errors.New(string(req.Op),
			fmt.Errorf("%w: %s", errors.ErrPrefixNotFound, sourceName(req))).WithBucket(req.Bucket)
	}
	return errors.New(string(req.Op),
		fmt.Errorf("%w: pattern %q matched none of %d entries under %s",
			errors.ErrNoMatch, req.Pattern, p.totalSeen, sourceName(req))).WithBucket(req.Bucket)
}

func sourceName(req *Request) string {
	if req.Op == xfertypes.OpUpload {
		return req.RemoteDir
	}
	if req.SrcPrefix == "" {
		return "bucket root"
	}
	return req.SrcPrefix
}

// preview records what would happen, performing zero mutations. A limit
// of -1 previews everything.
func (d *Driver) preview(p *plan, req *Request, result *xfertypes.BatchResult) {
	limit := req.Policy.DryRunLimit
	if limit < 0 || limit > len(p.units) {
		limit = len(p.units)
	}
	for _, u := range p.units[:limit] {
		dest := u.destKey
		if dest == "" {
			dest = u.srcKey
		}
		result.Previewed = append(result.Previewed, dest)
	}
}

// confirmPrompt describes the destructive work about to happen.
func confirmPrompt(req *Request, n int) string {
	target := req.Bucket + "/" + req.SrcPrefix
	if req.Pattern != "" {
		return fmt.Sprintf("%s %d object(s) matching %q under %s?", req.Op, n, req.Pattern, target)
	}
	return fmt.Sprintf("%s %d object(s) under %s?", req.Op, n, target)
}

// buildPlan lists the source and resolves every destination up front.
func (d *Driver) buildPlan(ctx context.Context, req *Request, crit *walker.Criterion) (*plan, error) {
	switch req.Op {
	case xfertypes.OpUpload:
		return d.planRemote(ctx, req, crit)
	case xfertypes.OpCopy, xfertypes.OpMove, xfertypes.OpDelete, xfertypes.OpDownload:
		return d.planS3(ctx, req, crit)
	default:
		return nil, errors.New("run",
			fmt.Errorf("%w: unsupported batch operation %q", errors.ErrInvalidInput, req.Op))
	}
}

// planS3 walks the S3 source. A full-path pattern flattens into one
// recursive listing; otherwise a breadth-first queue of direct listings
// covers the tree level by level.
func (d *Driver) planS3(ctx context.Context, req *Request, crit *walker.Criterion) (*plan, error) {
	p := &plan{}
	resolver := placement.NewResolver(req.SrcPrefix, req.DestPrefix, req.Policy.Placement)

	if req.Policy.Placement == xfertypes.PolicyRename &&
		(req.Op == xfertypes.OpCopy || req.Op == xfertypes.OpMove) {
		exists, err := d.walker.PrefixExists(ctx, req.DestBucket, req.DestPrefix)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.New(string(req.Op),
				fmt.Errorf("%w: rename destination %s/%s already holds objects",
					errors.ErrInvalidInput, req.DestBucket, req.DestPrefix))
		}
	}

	if crit.ForcesRecursive() || req.Policy.Recursive {
		listing, err := d.walker.Walk(ctx, req.Bucket, req.SrcPrefix, crit, true)
		if err != nil {
			return nil, err
		}
		p.totalSeen = listing.TotalSeen
		for _, obj := range listing.Objects {
			p.units = append(p.units, d.s3Unit(req, resolver, obj))
		}
		return p, nil
	}

	queue := []string{walker.NormalizePrefix(req.SrcPrefix)}
	for len(queue) > 0 {
		prefix := queue[0]
		queue = queue[1:]

		listing, err := d.walker.Walk(ctx, req.Bucket, prefix, crit, false)
		if err != nil {
			return nil, err
		}
		p.totalSeen += listing.TotalSeen
		for _, obj := range listing.Objects {
			p.units = append(p.units, d.s3Unit(req, resolver, obj))
		}
		for _, folder := range listing.Folders {
			sub := prefix + folder + "/"
			queue = append(queue, sub)
			// Empty source structure is only replicated when everything
			// was selected; a pattern run that matches nothing must end
			// in the no-match state, not in folder markers.
			if crit.Empty() && (req.Op == xfertypes.OpCopy || req.Op == xfertypes.OpMove) {
				p.folders = append(p.folders, resolver.DestinationPrefix(sub))
			}
		}
	}
	return p, nil
}

func (d *Driver) s3Unit(req *Request, resolver *placement.Resolver, obj xfertypes.Object) unit {
	u := unit{srcKey: obj.Key, size: obj.Size}
	switch req.Op {
	case xfertypes.OpCopy, xfertypes.OpMove:
		u.destKey = resolver.DestinationKey(obj.Key)
	case xfertypes.OpDownload:
		u.destKey = remoteDestPath(req.RemoteDir, req.SrcPrefix, obj.Key)
	case xfertypes.OpDelete:
		// Source only.
	}
	return u
}

// planRemote walks the remote source directory for uploads.
func (d *Driver) planRemote(ctx context.Context, req *Request, crit *walker.Criterion) (*plan, error) {
	if req.Session == nil {
		return nil, errors.New("upload",
			fmt.Errorf("%w: no remote session", errors.ErrInvalidInput))
	}

	listing, err := walker.WalkRemote(ctx, req.Session, req.RemoteDir, crit, true)
	if err != nil {
		return nil, err
	}

	p := &plan{totalSeen: listing.TotalSeen}
	destPrefix := walker.NormalizePrefix(req.DestPrefix)
	for _, f := range listing.Files {
		rel := remoteRelPath(req.RemoteDir, f.Path)
		p.units = append(p.units, unit{
			srcKey:     f.Path,
			destKey:    destPrefix + rel,
			size:       f.Size,
			remoteFile: f,
		})
	}
	return p, nil
}
