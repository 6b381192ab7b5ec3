package remote

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/jlaffaye/ftp"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/statfungen/transferkit/errors"
)

// Connect establishes a session to the server described by cfg.
//
// With an explicit protocol, only that protocol is tried. With
// ProtocolAuto the candidates are tried in order SFTP, FTPS, FTP; each
// failure is logged as a warning and the next candidate is attempted.
// Only when every candidate fails does Connect return, wrapping
// errors.ErrConnection.
func Connect(cfg *Config) (Session, error) {
	var lastErr error
	for _, proto := range candidates(cfg.Protocol) {
		sess, err := dial(proto, cfg)
		if err == nil {
			cfg.Logger.Info().
				Str("host", cfg.Host).
				Str("protocol", string(proto)).
				Msg("connected")
			return sess, nil
		}
		lastErr = err
		cfg.Logger.Warn().
			Err(err).
			Str("host", cfg.Host).
			Str("protocol", string(proto)).
			Msg("connection attempt failed")
	}

	err := fmt.Errorf("%w: %s: %v", errors.ErrConnection, cfg.Host, lastErr)
	return nil, errors.New("connect", err)
}

// candidates returns the protocols to try, in order of preference.
func candidates(p Protocol) []Protocol {
	switch p {
	case ProtocolSFTP, ProtocolFTPS, ProtocolFTP:
		return []Protocol{p}
	default:
		return []Protocol{ProtocolSFTP, ProtocolFTPS, ProtocolFTP}
	}
}

func dial(proto Protocol, cfg *Config) (Session, error) {
	switch proto {
	case ProtocolSFTP:
		return dialSFTP(cfg)
	case ProtocolFTPS:
		return dialFTP(cfg, true)
	default:
		return dialFTP(cfg, false)
	}
}

func dialSFTP(cfg *Config) (Session, error) {
	auth := make([]ssh.AuthMethod, 0, 2)
	if len(cfg.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	hostKey := cfg.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via nil callback
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         cfg.timeout(),
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.port(defaultSSHPort)))
	sshConn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		_ = sshConn.Close()
		return nil, fmt.Errorf("sftp subsystem: %w", err)
	}

	return &sftpSession{
		client: client,
		conn:   sshConn,
		logger: cfg.Logger,
	}, nil
}

func dialFTP(cfg *Config, useTLS bool) (Session, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.port(defaultFTPPort)))
	opts := []ftp.DialOption{ftp.DialWithTimeout(cfg.timeout())}

	proto := ProtocolFTP
	if useTLS {
		proto = ProtocolFTPS
		tlsCfg := cfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
		}
		opts = append(opts, ftp.DialWithExplicitTLS(tlsCfg))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("ftp dial %s: %w", addr, err)
	}

	if err := conn.Login(cfg.User, cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	return &ftpSession{
		conn:   conn,
		proto:  proto,
		logger: cfg.Logger,
	}, nil
}
