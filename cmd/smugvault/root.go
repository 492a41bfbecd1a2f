package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smugvault",
	Short: "One-way archival export of a SmugMug account to a local file tree",
	Long: `smugvault mirrors a SmugMug account's folders, galleries, and photos into
a local directory tree, verifying every download against the checksum the
API reports.

Runs are resumable by design: the local tree is the only state, so an
interrupted run picks up where it stopped, intact files are never fetched
again, and corrupted files are re-downloaded in place. Photo and gallery
metadata land in YAML sidecar files next to the images.

Credentials are OAuth 1.0a tokens stored in the system keychain, an
encrypted file, or environment variables ('smugvault auth login' to set up).`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .smugvault.yaml or $HOME/.smugvault.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
