package testutil

import (
	"context"
	"io"

	"github.com/statfungen/transferkit/remote"
)

// MockSession is a mock implementation of the remote.Session interface for
// testing. It allows customization of each operation through function fields.
type MockSession struct {
	ProtocolValue    remote.Protocol
	MultiplexesValue bool

	ListFunc      func(context.Context, string) ([]remote.FileInfo, error)
	StatFunc      func(context.Context, string) (remote.FileInfo, error)
	MkdirFunc     func(context.Context, string) error
	OpenReadFunc  func(context.Context, string, int64) (io.ReadCloser, error)
	OpenWriteFunc func(context.Context, string) (io.WriteCloser, error)
	RenameFunc    func(context.Context, string, string) error
	RemoveFunc    func(context.Context, string) error
	CloseFunc     func() error
}

// Protocol mocks the session protocol.
func (m *MockSession) Protocol() remote.Protocol {
	if m.ProtocolValue != "" {
		return m.ProtocolValue
	}
	return remote.ProtocolSFTP
}

// Multiplexes mocks the session concurrency capability.
func (m *MockSession) Multiplexes() bool {
	return m.MultiplexesValue
}

// List mocks listing a remote directory.
func (m *MockSession) List(ctx context.Context, dir string) ([]remote.FileInfo, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, dir)
	}
	return nil, nil
}

// Stat mocks remote path inspection.
func (m *MockSession) Stat(ctx context.Context, path string) (remote.FileInfo, error) {
	if m.StatFunc != nil {
		return m.StatFunc(ctx, path)
	}
	return remote.FileInfo{}, nil
}

// Mkdir mocks remote directory creation.
func (m *MockSession) Mkdir(ctx context.Context, dir string) error {
	if m.MkdirFunc != nil {
		return m.MkdirFunc(ctx, dir)
	}
	return nil
}

// OpenRead mocks opening a remote file for reading.
func (m *MockSession) OpenRead(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	if m.OpenReadFunc != nil {
		return m.OpenReadFunc(ctx, path, offset)
	}
	return io.NopCloser(nil), nil
}

// OpenWrite mocks opening a remote file for writing.
func (m *MockSession) OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	if m.OpenWriteFunc != nil {
		return m.OpenWriteFunc(ctx, path)
	}
	return nopWriteCloser{}, nil
}

// Rename mocks a remote rename.
func (m *MockSession) Rename(ctx context.Context, oldPath, newPath string) error {
	if m.RenameFunc != nil {
		return m.RenameFunc(ctx, oldPath, newPath)
	}
	return nil
}

// Remove mocks a remote delete.
func (m *MockSession) Remove(ctx context.Context, path string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, path)
	}
	return nil
}

// Close mocks session shutdown.
func (m *MockSession) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }

// Ensure MockSession implements remote.Session
var _ remote.Session = (*MockSession)(nil)
