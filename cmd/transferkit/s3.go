package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/statfungen/transferkit"
	"github.com/statfungen/transferkit/xfertypes"
)

var s3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "Copy, move, delete, or list objects inside the store",
}

var s3CopyCmd = &cobra.Command{
	Use:   "copy s3://bucket/prefix s3://bucket/prefix",
	Short: "Copy everything a prefix and pattern select",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runS3Batch(cmd, args, xfertypes.OpCopy)
	},
}

var s3MoveCmd = &cobra.Command{
	Use:   "move s3://bucket/prefix s3://bucket/prefix",
	Short: "Copy and then delete everything a prefix and pattern select",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runS3Batch(cmd, args, xfertypes.OpMove)
	},
}

var s3DeleteCmd = &cobra.Command{
	Use:   "delete s3://bucket/prefix",
	Short: "Delete everything a prefix and pattern select",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runS3Batch(cmd, args, xfertypes.OpDelete)
	},
}

var s3ListCmd = &cobra.Command{
	Use:   "list s3://bucket/prefix",
	Short: "List objects under a prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runS3List,
}

func init() {
	for _, cmd := range []*cobra.Command{s3CopyCmd, s3MoveCmd, s3DeleteCmd} {
		addBatchFlags(cmd)
	}
	s3CopyCmd.Flags().String("placement", "preserve", "destination placement: preserve, merge, or rename")
	s3MoveCmd.Flags().String("placement", "preserve", "destination placement: preserve, merge, or rename")

	s3ListCmd.Flags().Bool("versions", false, "list every version, oldest first per key")
	s3ListCmd.Flags().Bool("recursive", false, "descend into sub-folders")

	s3Cmd.AddCommand(s3CopyCmd, s3MoveCmd, s3DeleteCmd, s3ListCmd)
}

// addBatchFlags attaches the flags shared by every batch subcommand.
func addBatchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("pattern", "", "only act on entries matching this pattern")
	flags.String("pattern-type", "glob", "pattern syntax: glob, regex, or exact")
	flags.Bool("recursive", false, "descend into sub-folders")
	flags.Bool("current-version-only", false, "act on the latest version instead of the whole history")
	flags.Int("dry-run", 0, "preview up to N entries without changing anything (-1 for all)")
	flags.Bool("yes", false, "skip the confirmation prompt for destructive operations")
	flags.String("chunk-size", "", "multipart chunk size, e.g. 64MiB")
	flags.Int("concurrency", 0, "units transferred in parallel")
}

// batchPolicy assembles an OperationPolicy from the shared batch flags.
func batchPolicy(cmd *cobra.Command) (xfertypes.OperationPolicy, error) {
	flags := cmd.Flags()
	policy := xfertypes.OperationPolicy{}

	if placement, err := flags.GetString("placement"); err == nil {
		policy.Placement = xfertypes.PlacementPolicy(placement)
	}
	policy.Recursive, _ = flags.GetBool("recursive")
	policy.CurrentVersionOnly, _ = flags.GetBool("current-version-only")
	policy.Concurrency, _ = flags.GetInt("concurrency")

	if flags.Changed("dry-run") {
		policy.DryRun = true
		policy.DryRunLimit, _ = flags.GetInt("dry-run")
	}

	chunkSpec, _ := flags.GetString("chunk-size")
	chunkSize, err := parseChunkSize(chunkSpec)
	if err != nil {
		return policy, err
	}
	policy.ChunkSize = chunkSize

	return policy, nil
}

func runS3Batch(cmd *cobra.Command, args []string, op xfertypes.OpKind) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	bucket, prefix, err := parseS3URI(args[0])
	if err != nil {
		return err
	}

	req := &transferkit.BatchRequest{
		Op:        op,
		Bucket:    bucket,
		SrcPrefix: prefix,
	}
	if len(args) == 2 {
		destBucket, destPrefix, err := parseS3URI(args[1])
		if err != nil {
			return err
		}
		req.DestBucket = destBucket
		req.DestPrefix = destPrefix
	}

	req.Pattern, _ = cmd.Flags().GetString("pattern")
	patternType, _ := cmd.Flags().GetString("pattern-type")
	req.PatternType = xfertypes.PatternType(patternType)

	req.Policy, err = batchPolicy(cmd)
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		req.Confirmer = &stdinConfirmer{}
	}

	result, err := client.Run(cmd.Context(), req)
	return reportResult(result, err, client.Logger())
}

func runS3List(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	bucket, prefix, err := parseS3URI(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if versions, _ := cmd.Flags().GetBool("versions"); versions {
		entries, err := client.ListVersions(cmd.Context(), bucket, prefix)
		if err != nil {
			return err
		}
		for _, v := range entries {
			kind := "version"
			if v.IsDeleteMarker {
				kind = "delete-marker"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				v.Key, v.VersionID, kind,
				humanize.IBytes(uint64(v.Size)),
				v.LastModified.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	var opts []xfertypes.ListOption
	if recursive, _ := cmd.Flags().GetBool("recursive"); !recursive {
		opts = append(opts, transferkit.WithDelimiter("/"))
	}

	for {
		page, err := client.List(cmd.Context(), bucket, prefix, opts...)
		if err != nil {
			return err
		}
		for _, cp := range page.CommonPrefixes {
			fmt.Fprintf(w, "%s\t(folder)\t\n", cp)
		}
		for _, obj := range page.Objects {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				obj.Key,
				humanize.IBytes(uint64(obj.Size)),
				obj.LastModified.Format("2006-01-02 15:04:05"))
		}
		if !page.IsTruncated {
			return nil
		}
		opts = append(opts, transferkit.WithContinuationToken(page.NextContinuationToken))
	}
}
