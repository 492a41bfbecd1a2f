package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smugvault/pkg/auth"
	"smugvault/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage SmugMug credentials",
	Long: `Manage stored SmugMug OAuth credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only)

Tokens grant full read access to the account. Never share them.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [nickname]",
	Short: "Store SmugMug credentials securely",
	Long: `Store SmugMug OAuth 1.0a credentials in the system keychain or an
encrypted file.

You will be prompted for:
  - Account nickname (if not provided)
  - API key and API secret
  - Access token and access token secret

Run 'smugvault auth guide' if you don't have these values yet.`,
	Example: `  # Interactive login
  smugvault auth login

  # Login with nickname
  smugvault auth login myaccount`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [nickname]",
	Short: "Remove stored credentials",
	Long: `Remove stored SmugMug credentials.

With --all, every stored account is removed.`,
	Example: `  # Remove one account
  smugvault auth logout myaccount

  # Remove everything
  smugvault auth logout --all`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored SmugMug accounts with sanitized credential information.`,
	Run:   runAuthList,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to obtain API credentials",
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowCredentialGuide()
	},
}

var logoutAll bool

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(guideCmd)

	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove all stored accounts")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var nickname string
	if len(args) > 0 {
		nickname = args[0]
	}

	account, err := auth.PromptAccount(nickname)
	if err != nil {
		ui.PrintError("Failed to read credentials", err.Error())
		os.Exit(1)
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials stored for " + account.Nickname)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if logoutAll {
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove accounts", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("All stored accounts removed")
		return
	}

	if len(args) == 0 {
		ui.PrintError("No account given", "pass a nickname or use --all")
		os.Exit(1)
	}

	if err := manager.Delete(args[0]); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Removed credentials for " + args[0])
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts. Run 'smugvault auth login' to add one.")
		return
	}

	for _, account := range accounts {
		masked := auth.SanitizeAccount(account)
		fmt.Printf("%s\n", masked.Nickname)
		fmt.Printf("  API key:      %s\n", masked.APIKey)
		fmt.Printf("  Access token: %s\n", masked.AccessToken)
		if !masked.LastModified.IsZero() {
			fmt.Printf("  Updated:      %s\n", masked.LastModified.Format("2006-01-02 15:04"))
		}
	}
}
