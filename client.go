// Package transferkit provides client initialization and configuration.
//
// The Client provides a high-level interface for moving data between
// remote file servers (SFTP, FTPS, FTP) and S3-compatible object stores,
// supporting single-object operations like upload, download, copy, and
// delete as well as batch runs over whole prefixes.
package transferkit

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/internal/s3api"
	"github.com/statfungen/transferkit/xfertypes"
)

// Client represents a transfer client with configurable options.
// It provides thread-safe access to object-store operations with
// built-in retry logic, concurrency control, and progress tracking.
type Client struct {
	// s3Client is the underlying AWS SDK S3 client
	s3Client s3api.S3API

	// rawClient holds the actual AWS S3 client for operations that need it
	rawClient *s3.Client

	// config holds the AWS configuration
	config aws.Config

	// clientCfg holds the resolved client-level options
	clientCfg xfertypes.ClientConfig

	// logger receives structured operation logs
	logger zerolog.Logger
}

// New creates a new transfer client with the provided options.
// It loads AWS credentials using the default credential chain
// and applies the specified configuration options.
//
// Example:
//
//	client, err := transferkit.New(
//	    transferkit.WithRegion("us-west-2"),
//	    transferkit.WithMaxRetries(3),
//	)
func New(opts ...xfertypes.Option) (*Client, error) {
	clientCfg := &xfertypes.ClientConfig{
		MaxRetries:  3,
		Timeout:     0,
		Concurrency: 5,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}

	var cfg aws.Config
	var err error

	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.New("client initialization", err)
		}
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if clientCfg.MaxRetries > 0 {
		cfg.RetryMaxAttempts = clientCfg.MaxRetries
	}
	if clientCfg.Credentials != nil {
		cfg.Credentials = clientCfg.Credentials
	}

	var s3Opts []func(*s3.Options)

	if clientCfg.Endpoint != "" {
		endpoint := clientCfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if clientCfg.CustomHTTPClient != nil {
		httpClient := clientCfg.CustomHTTPClient
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	} else if clientCfg.Timeout > 0 {
		httpClient := &http.Client{Timeout: clientCfg.Timeout}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	s3Client := s3.NewFromConfig(cfg, s3Opts...)

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if clientCfg.Logger != nil {
		logger = *clientCfg.Logger
	}

	return &Client{
		s3Client:  s3Client,
		rawClient: s3Client,
		config:    cfg,
		clientCfg: *clientCfg,
		logger:    logger,
	}, nil
}

// NewWithClient creates a new transfer client with a custom S3API
// implementation. This is primarily used for testing with mocked clients.
func NewWithClient(s3Client s3api.S3API, opts ...xfertypes.Option) *Client {
	clientCfg := &xfertypes.ClientConfig{Concurrency: 5}
	for _, opt := range opts {
		opt(clientCfg)
	}

	logger := zerolog.Nop()
	if clientCfg.Logger != nil {
		logger = *clientCfg.Logger
	}

	return &Client{
		s3Client:  s3Client,
		config:    aws.Config{},
		clientCfg: *clientCfg,
		logger:    logger,
	}
}

// Logger returns the client's structured logger.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// Close releases any resources held by the client.
// Currently a no-op but included for future extensibility.
func (c *Client) Close() error {
	return nil
}
