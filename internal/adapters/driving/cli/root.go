// Package cli implements the meddocs command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "meddocs",
	Short: "Document Q&A backend",
	Long: `MedDocs is a backend for question answering over your documents.
Uploaded files are chunked, embedded and indexed; answers cite the
documents and pages they are grounded in.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config file (default ~/.meddocs/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
