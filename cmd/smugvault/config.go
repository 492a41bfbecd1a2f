package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"smugvault/pkg/config"
	"smugvault/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage smugvault configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (SMUGVAULT_ prefix)
  - Configuration file (.smugvault.yaml)
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create a configuration file populated with the default values.

The file is created as '.smugvault.yaml' in the current directory unless a
different path is given with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. Credential values
are masked.`,
	Run: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".smugvault.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("File already exists", configPath)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		ui.PrintError("Failed to write config file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Wrote " + configPath)
	fmt.Println("Edit it, then run 'smugvault config validate' to check it.")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Mask secrets before printing.
	shown := *cfg
	shown.SmugMug.APIKey = mask(shown.SmugMug.APIKey)
	shown.SmugMug.APISecret = mask(shown.SmugMug.APISecret)
	shown.SmugMug.AccessToken = mask(shown.SmugMug.AccessToken)
	shown.SmugMug.AccessSecret = mask(shown.SmugMug.AccessSecret)

	out, err := yaml.Marshal(&shown)
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(1)
	}
	fmt.Print(string(out))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if _, err := config.Load(configFile, nil); err != nil {
		ui.PrintError("Configuration invalid", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Configuration valid")
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
