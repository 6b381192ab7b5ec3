package remote

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/jlaffaye/ftp"
	"github.com/rs/zerolog"

	"github.com/statfungen/transferkit/errors"
)

// ftpSession speaks plain FTP or explicit-TLS FTPS over jlaffaye/ftp.
//
// FTP has one data channel per control connection, so only one transfer
// can be in flight at a time. The mutex is held for the full life of a
// transfer: OpenRead and OpenWrite acquire it and the returned stream's
// Close releases it.
type ftpSession struct {
	conn   *ftp.ServerConn
	proto  Protocol
	logger zerolog.Logger
	mu     sync.Mutex
}

func (s *ftpSession) Protocol() Protocol { return s.proto }

func (s *ftpSession) Multiplexes() bool { return false }

func (s *ftpSession) List(ctx context.Context, dir string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.conn.List(dir)
	if err != nil {
		return nil, errors.New("list", err).WithKey(dir)
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		infos = append(infos, entryInfo(dir, e))
	}
	return infos, nil
}

func (s *ftpSession) Stat(ctx context.Context, p string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.conn.GetEntry(p)
	if err == nil {
		return entryInfo(path.Dir(p), entry), nil
	}

	// MLST is an extension; fall back to listing the parent.
	entries, lerr := s.conn.List(path.Dir(p))
	if lerr != nil {
		return FileInfo{}, errors.New("stat", fmt.Errorf("%w: %s", errors.ErrNotFound, p))
	}
	name := path.Base(p)
	for _, e := range entries {
		if e.Name == name {
			return entryInfo(path.Dir(p), e), nil
		}
	}
	return FileInfo{}, errors.New("stat", fmt.Errorf("%w: %s", errors.ErrNotFound, p))
}

func (s *ftpSession) Mkdir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.MakeDir(dir); err != nil {
		return errors.New("mkdir", err).WithKey(dir)
	}
	return nil
}

func (s *ftpSession) OpenRead(ctx context.Context, p string, offset int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()

	resp, err := s.conn.RetrFrom(p, uint64(offset)) //nolint:gosec // offset is non-negative
	if err != nil {
		s.mu.Unlock()
		return nil, errors.New("read", err).WithKey(p)
	}
	return &lockedStream{ReadCloser: resp, mu: &s.mu}, nil
}

func (s *ftpSession) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()

	// Stor consumes a reader, so the writer side feeds it through a pipe.
	pr, pw := io.Pipe()
	w := &ftpWriter{pw: pw, mu: &s.mu, done: make(chan error, 1)}
	go func() {
		err := s.conn.Stor(p, pr)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

func (s *ftpSession) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Rename(oldPath, newPath); err != nil {
		return errors.New("rename", err).WithKey(oldPath)
	}
	return nil
}

func (s *ftpSession) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Delete(p); err != nil {
		return errors.New("remove", err).WithKey(p)
	}
	return nil
}

func (s *ftpSession) Close() error {
	if err := s.conn.Quit(); err != nil {
		s.logger.Warn().Err(err).Msg("ftp disconnect failed")
	}
	return nil
}

func entryInfo(dir string, e *ftp.Entry) FileInfo {
	return FileInfo{
		Name:    e.Name,
		Path:    path.Join(dir, e.Name),
		Size:    int64(e.Size), //nolint:gosec // server-reported size
		ModTime: e.Time,
		IsDir:   e.Type == ftp.EntryTypeFolder,
	}
}

// lockedStream releases the session mutex when the transfer closes.
type lockedStream struct {
	io.ReadCloser
	mu   *sync.Mutex
	once sync.Once
}

func (l *lockedStream) Close() error {
	err := l.ReadCloser.Close()
	l.once.Do(l.mu.Unlock)
	return err
}

// ftpWriter adapts the pipe feeding Stor into a WriteCloser. Close waits
// for the store to finish and reports its error, then releases the
// session mutex.
type ftpWriter struct {
	pw   *io.PipeWriter
	mu   *sync.Mutex
	done chan error
	once sync.Once
}

func (w *ftpWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *ftpWriter) Close() error {
	var err error
	w.once.Do(func() {
		_ = w.pw.Close()
		err = <-w.done
		w.mu.Unlock()
	})
	if err != nil {
		return errors.New("write", err)
	}
	return nil
}
