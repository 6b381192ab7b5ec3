package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/statfungen/transferkit"
	"github.com/statfungen/transferkit/xfertypes"
)

var rootCmd = &cobra.Command{
	Use:   "transferkit",
	Short: "Move data between file servers and object stores",
	Long: `transferkit transfers files between FTP/FTPS/SFTP servers and
S3-compatible object stores, and copies, moves, deletes, or lists
objects inside the store. Large objects are moved in chunks; batches
report a per-unit tally and exit non-zero if any unit failed.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initConfig(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.transferkit.yaml)")
	flags.String("region", "", "object store region")
	flags.String("endpoint", "", "custom object store endpoint URL")
	flags.Bool("path-style", false, "use path-style object store URLs")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.Bool("log-json", false, "emit JSON logs instead of console output")

	rootCmd.AddCommand(s3Cmd)
	rootCmd.AddCommand(ftpCmd)
}

// initConfig merges flags, TRANSFERKIT_* environment variables, and an
// optional config file, in that order of precedence.
func initConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("TRANSFERKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".transferkit")
			// A missing default config file is fine.
			_ = v.ReadInConfig()
		}
	}

	// Flags not set explicitly pick up config/env values.
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, v.GetString(f.Name)); err != nil {
			bindErr = err
		}
	})
	return bindErr
}

// newLogger builds the process logger from the root flags.
func newLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	jsonLog, _ := cmd.Flags().GetBool("log-json")
	var logger zerolog.Logger
	if jsonLog {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

// newClient builds the transfer client from the root flags.
func newClient(cmd *cobra.Command) (*transferkit.Client, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	opts := []xfertypes.Option{transferkit.WithLogger(logger)}
	if region, _ := cmd.Flags().GetString("region"); region != "" {
		opts = append(opts, transferkit.WithRegion(region))
	}
	if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
		opts = append(opts, transferkit.WithEndpoint(endpoint))
	}
	if pathStyle, _ := cmd.Flags().GetBool("path-style"); pathStyle {
		opts = append(opts, transferkit.WithForcePathStyle(true))
	}

	return transferkit.New(opts...)
}

// parseS3URI splits "s3://bucket/prefix" into bucket and prefix.
func parseS3URI(uri string) (bucket, prefix string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%q is not an s3:// URI", uri)
	}
	bucket, prefix, _ = strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%q has no bucket", uri)
	}
	return bucket, prefix, nil
}

// parseChunkSize parses human-readable sizes like "64MiB" or "100MB".
func parseChunkSize(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid chunk size %q: %w", value, err)
	}
	return int64(size), nil
}

// reportResult prints the batch tally and converts a failed tally into
// the process exit code.
func reportResult(result *xfertypes.BatchResult, err error, logger zerolog.Logger) error {
	if result != nil {
		if len(result.Previewed) > 0 {
			for _, key := range result.Previewed {
				fmt.Println(key)
			}
			logger.Info().Int("previewed", len(result.Previewed)).Msg("dry run, nothing modified")
			return nil
		}
		event := logger.Info()
		if result.Failed > 0 {
			event = logger.Error()
		}
		event.
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Int("skipped", result.Skipped).
			Str("bytes", humanize.IBytes(uint64(result.Bytes))).
			Dur("duration", result.Duration).
			Msg("batch finished")
	}
	return err
}
