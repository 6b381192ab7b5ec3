package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/statfungen/transferkit/errors"
)

// sftpSession speaks SFTP over a single SSH connection. SFTP multiplexes
// requests, so concurrent transfers share the session safely.
type sftpSession struct {
	client *sftp.Client
	conn   *ssh.Client
	logger zerolog.Logger
}

func (s *sftpSession) Protocol() Protocol { return ProtocolSFTP }

func (s *sftpSession) Multiplexes() bool { return true }

func (s *sftpSession) List(ctx context.Context, dir string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, wrapSFTP("list", dir, err)
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, FileInfo{
			Name:    e.Name(),
			Path:    path.Join(dir, e.Name()),
			Size:    e.Size(),
			ModTime: e.ModTime(),
			IsDir:   e.IsDir(),
		})
	}
	return infos, nil
}

func (s *sftpSession) Stat(ctx context.Context, p string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}

	fi, err := s.client.Stat(p)
	if err != nil {
		return FileInfo{}, wrapSFTP("stat", p, err)
	}
	return FileInfo{
		Name:    path.Base(p),
		Path:    p,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
	}, nil
}

func (s *sftpSession) Mkdir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Mkdir(dir); err != nil {
		return wrapSFTP("mkdir", dir, err)
	}
	return nil
}

func (s *sftpSession) OpenRead(ctx context.Context, p string, offset int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.client.Open(p)
	if err != nil {
		return nil, wrapSFTP("read", p, err)
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, wrapSFTP("read", p, err)
		}
	}
	return f, nil
}

func (s *sftpSession) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.client.Create(p)
	if err != nil {
		return nil, wrapSFTP("write", p, err)
	}
	return f, nil
}

func (s *sftpSession) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Rename(oldPath, newPath); err != nil {
		return wrapSFTP("rename", oldPath, err)
	}
	return nil
}

func (s *sftpSession) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Remove(p); err != nil {
		return wrapSFTP("remove", p, err)
	}
	return nil
}

func (s *sftpSession) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("sftp channel close failed")
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("ssh disconnect failed")
	}
	return nil
}

func wrapSFTP(op, p string, err error) *errors.Error {
	if os.IsNotExist(err) {
		err = fmt.Errorf("%w: %s", errors.ErrNotFound, p)
	} else if os.IsPermission(err) {
		err = fmt.Errorf("%w: %s", errors.ErrAccessDenied, p)
	}
	return errors.New(op, err).WithKey(p)
}
