package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/statfungen/transferkit"
	"github.com/statfungen/transferkit/remote"
	"github.com/statfungen/transferkit/xfertypes"
)

var ftpCmd = &cobra.Command{
	Use:   "ftp",
	Short: "Transfer files between a remote server and the object store",
	Long: `Connects to a remote file server and uploads, downloads, or lists
files. The protocol is negotiated automatically (SFTP, then FTPS, then
plain FTP) unless one is forced with --protocol.`,
}

var ftpUploadCmd = &cobra.Command{
	Use:   "upload REMOTE_DIR s3://bucket/prefix",
	Short: "Upload a remote directory tree into the store",
	Args:  cobra.ExactArgs(2),
	RunE:  runFTPUpload,
}

var ftpDownloadCmd = &cobra.Command{
	Use:   "download s3://bucket/prefix REMOTE_DIR",
	Short: "Download objects under a prefix onto the remote server",
	Args:  cobra.ExactArgs(2),
	RunE:  runFTPDownload,
}

var ftpListCmd = &cobra.Command{
	Use:   "list REMOTE_DIR",
	Short: "List a remote directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runFTPList,
}

func init() {
	for _, cmd := range []*cobra.Command{ftpUploadCmd, ftpDownloadCmd, ftpListCmd} {
		flags := cmd.Flags()
		flags.String("host", "", "remote server hostname")
		flags.Int("port", 0, "remote server port (default 22 for SFTP, 21 for FTP/FTPS)")
		flags.String("user", "", "remote username")
		flags.String("password-env", "TRANSFERKIT_REMOTE_PASSWORD", "environment variable holding the password")
		flags.String("key-file", "", "SSH private key file for SFTP")
		flags.String("protocol", "", "force a protocol: sftp, ftps, or ftp")
		_ = cmd.MarkFlagRequired("host")
	}

	addBatchFlags(ftpUploadCmd)
	addBatchFlags(ftpDownloadCmd)
	ftpUploadCmd.Flags().Bool("skip-identical", false, "skip files whose destination object has the same size")

	ftpCmd.AddCommand(ftpUploadCmd, ftpDownloadCmd, ftpListCmd)
}

// connectRemote dials the remote server described by the command's flags.
func connectRemote(cmd *cobra.Command) (remote.Session, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	cfg := remote.Config{Logger: logger}
	cfg.Host, _ = flags.GetString("host")
	cfg.Port, _ = flags.GetInt("port")
	cfg.User, _ = flags.GetString("user")

	if passwordEnv, _ := flags.GetString("password-env"); passwordEnv != "" {
		cfg.Password = os.Getenv(passwordEnv)
	}
	if keyFile, _ := flags.GetString("key-file"); keyFile != "" {
		key, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		cfg.PrivateKey = key
	}
	if protocol, _ := flags.GetString("protocol"); protocol != "" {
		cfg.Protocol = remote.Protocol(protocol)
	}

	return remote.Connect(&cfg)
}

func runFTPUpload(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	destBucket, destPrefix, err := parseS3URI(args[1])
	if err != nil {
		return err
	}

	sess, err := connectRemote(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	policy, err := batchPolicy(cmd)
	if err != nil {
		return err
	}
	policy.SkipIdentical, _ = cmd.Flags().GetBool("skip-identical")

	req := &transferkit.BatchRequest{
		Op:         xfertypes.OpUpload,
		RemoteDir:  args[0],
		DestBucket: destBucket,
		DestPrefix: destPrefix,
		Policy:     policy,
		Session:    sess,
	}
	req.Pattern, _ = cmd.Flags().GetString("pattern")
	patternType, _ := cmd.Flags().GetString("pattern-type")
	req.PatternType = xfertypes.PatternType(patternType)

	result, err := client.Run(cmd.Context(), req)
	return reportResult(result, err, client.Logger())
}

func runFTPDownload(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	bucket, prefix, err := parseS3URI(args[0])
	if err != nil {
		return err
	}

	sess, err := connectRemote(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	policy, err := batchPolicy(cmd)
	if err != nil {
		return err
	}

	req := &transferkit.BatchRequest{
		Op:        xfertypes.OpDownload,
		Bucket:    bucket,
		SrcPrefix: prefix,
		RemoteDir: args[1],
		Policy:    policy,
		Session:   sess,
	}
	req.Pattern, _ = cmd.Flags().GetString("pattern")
	patternType, _ := cmd.Flags().GetString("pattern-type")
	req.PatternType = xfertypes.PatternType(patternType)

	result, err := client.Run(cmd.Context(), req)
	return reportResult(result, err, client.Logger())
}

func runFTPList(cmd *cobra.Command, args []string) error {
	sess, err := connectRemote(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	entries, err := sess.List(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(w, "%s/\t(folder)\t\n", e.Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			e.Name,
			humanize.IBytes(uint64(e.Size)),
			e.ModTime.Format(time.RFC3339))
	}
	return nil
}
