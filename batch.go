package transferkit

import (
	"context"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/batch"
	"github.com/statfungen/transferkit/internal/validation"
	"github.com/statfungen/transferkit/remote"
	"github.com/statfungen/transferkit/xfertypes"
)

// Confirmer asks the user to approve a destructive batch operation.
// When a BatchRequest carries one, move and delete runs present a prompt
// before mutating anything; a declined prompt aborts the run with
// ErrConfirmationDeclined and nothing changed.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// BatchRequest describes one batch run over a prefix or remote directory.
type BatchRequest struct {
	// Op is what to do with the selected entries
	Op xfertypes.OpKind

	// Bucket and SrcPrefix select the object-store source (copy, move,
	// delete, download)
	Bucket    string
	SrcPrefix string

	// DestBucket and DestPrefix name the object-store destination (copy,
	// move, upload)
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

// Run executes a batch request and reports the tally. A partial failure
// returns the full tally together with ErrPartialBatch; run-level
// failures (nothing matched, declined confirmation, listing errors)
// return before anything was mutated.
func (c *Client) Run(ctx context.Context, req *BatchRequest) (*xfertypes.BatchResult, error) {
	if err := c.validateBatchRequest(req); err != nil {
		return nil, err
	}

	driver := batch.New(c.s3Client, c.logger)
	return driver.Run(ctx, &batch.Request{
		Op:          req.Op,
		Bucket:      req.Bucket,
		SrcPrefix:   req.SrcPrefix,
		DestBucket:  req.DestBucket,
		DestPrefix:  req.DestPrefix,
		RemoteDir:   req.RemoteDir,
		Pattern:     req.Pattern,
		PatternType: req.PatternType,
		Policy:      req.Policy,
		Session:     req.Session,
		Confirmer:   req.Confirmer,
	})
}

func (c *Client) validateBatchRequest(req *BatchRequest) error {
	switch req.Op {
	case xfertypes.OpCopy, xfertypes.OpMove:
		if err := validation.ValidateBucketName(req.Bucket); err != nil {
			return err
		}
		return validation.ValidateBucketName(req.DestBucket)
	case xfertypes.OpDelete:
		return validation.ValidateBucketName(req.Bucket)
	case xfertypes.OpUpload:
		if req.Session == nil {
			return errors.New("upload", errors.ErrInvalidInput).
				WithMessage("upload requires a remote session")
		}
		if err := validation.ValidateRemotePath(req.RemoteDir); err != nil {
			return err
		}
		return validation.ValidateBucketName(req.DestBucket)
	case xfertypes.OpDownload:
		if req.Session == nil {
			return errors.New("download", errors.ErrInvalidInput).
				WithMessage("download requires a remote session")
		}
		if err := validation.ValidateRemotePath(req.RemoteDir); err != nil {
			return err
		}
		return validation.ValidateBucketName(req.Bucket)
	default:
		return errors.New("run", errors.ErrInvalidInput).
			WithMessage("unsupported batch operation " + string(req.Op))
	}
}
