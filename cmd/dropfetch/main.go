package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dropkit/dropfetch/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:     "dropfetch",
	Short:   "Download build artifacts from a remote content store",
	Long:    "dropfetch materializes build artifact drops onto the local filesystem with bounded parallelism, automatic retry, and optional integrity checking and tar extraction.",
	Version: fmt.Sprintf("gitVersion=%s, gitCommit=%s", version.GitVersion, version.GitCommit),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newDownloadCommand())
}
