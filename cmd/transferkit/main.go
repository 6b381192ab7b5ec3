// Command transferkit moves data between FTP/FTPS/SFTP servers and
// S3-compatible object stores, and runs copy/move/delete/list batches
// inside the store itself.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
