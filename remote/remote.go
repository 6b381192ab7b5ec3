// Package remote provides a uniform session interface over FTP-family
// file servers. It supports SFTP, explicit-TLS FTPS, and plain FTP, and
// can negotiate the best available protocol for a host automatically.
package remote

import (
	"context"
	"crypto/tls"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Protocol identifies a remote file transfer protocol.
type Protocol string

// Supported protocols.
const (
	// ProtocolAuto tries SFTP, then FTPS, then FTP, and uses the first
	// that connects and authenticates.
	ProtocolAuto Protocol = "auto"

	// ProtocolSFTP is SSH file transfer.
	ProtocolSFTP Protocol = "sftp"

	// ProtocolFTPS is FTP with an explicit TLS upgrade.
	ProtocolFTPS Protocol = "ftps"

	// ProtocolFTP is plain, unencrypted FTP.
	ProtocolFTP Protocol = "ftp"
)

// Default ports per protocol.
const (
	defaultFTPPort = 21
	defaultSSHPort = 22
	defaultTimeout = 30 * time.Second
)

// FileInfo describes one entry of a remote directory.
type FileInfo struct {
	// Name is the entry's leaf name
	Name string

	// Path is the full remote path of the entry
	Path string

	// Size is the entry size in bytes; zero for directories
	Size int64

	// ModTime is the entry's modification time, when the server reports one
	ModTime time.Time

	// IsDir marks a directory entry
	IsDir bool
}

// Session is an authenticated connection to a remote file server.
//
// Implementations differ in how many transfers a single session supports
// at once: SFTP multiplexes requests over one SSH connection, while FTP
// has a single data channel, so FTP sessions serialize reads and writes
// internally. Multiplexes reports which behavior the caller gets.
//
// Close shuts the session down. It never fails: disconnect errors are
// logged and swallowed so that cleanup cannot mask an operation error.
type Session interface {
	// Protocol reports the protocol this session speaks.
	Protocol() Protocol

	// List returns the entries of a remote directory.
	List(ctx context.Context, dir string) ([]FileInfo, error)

	// Stat returns info about a single remote path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Mkdir creates a remote directory. The parent must exist.
	Mkdir(ctx context.Context, dir string) error

	// OpenRead opens a remote file for reading, starting at offset.
	OpenRead(ctx context.Context, path string, offset int64) (io.ReadCloser, error)

	// OpenWrite opens a remote file for writing, truncating it if present.
	// The transfer is not durable until Close returns nil.
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)

	// Rename moves a remote file or directory.
	Rename(ctx context.Context, oldPath, newPath string) error

	// Remove deletes a remote file.
	Remove(ctx context.Context, path string) error

	// Multiplexes reports whether the session supports concurrent
	// transfers. When false, callers must drive transfers one at a time.
	Multiplexes() bool

	// Close disconnects. Always returns nil.
	Close() error
}

// Config carries everything needed to reach a remote server.
type Config struct {
	// Host is the server hostname or address
	Host string

	// Port overrides the protocol's default port when non-zero
	Port int

	// User is the login name
	User string

	// Password is the login password
	Password string

	// PrivateKey is an optional PEM-encoded SSH private key, tried before
	// password auth for SFTP
	PrivateKey []byte

	// Protocol selects the protocol, or ProtocolAuto to negotiate
	Protocol Protocol

	// Timeout bounds each connection attempt; defaults to 30s
	Timeout time.Duration

	// TLSConfig customizes the FTPS TLS handshake; nil gets a default
	// config with the host as ServerName
	TLSConfig *tls.Config

	// HostKeyCallback verifies the SFTP server's host key; nil accepts
	// any host key
	HostKeyCallback ssh.HostKeyCallback

	// Logger receives negotiation warnings and disconnect errors
	Logger zerolog.Logger
}

func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c *Config) port(def int) int {
	if c.Port > 0 {
		return c.Port
	}
	return def
}
