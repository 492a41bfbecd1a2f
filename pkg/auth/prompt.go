package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptAccount interactively collects a full credential set from the
// terminal. Secrets are read with echo disabled when stdin is a TTY.
func PromptAccount(nickname string) (*Account, error) {
	reader := bufio.NewReader(os.Stdin)

	if nickname == "" {
		var err error
		nickname, err = promptLine(reader, "SmugMug nickname: ")
		if err != nil {
			return nil, err
		}
	}

	apiKey, err := promptLine(reader, "API key: ")
	if err != nil {
		return nil, err
	}
	apiSecret, err := promptSecret(reader, "API secret: ")
	if err != nil {
		return nil, err
	}
	accessToken, err := promptLine(reader, "Access token: ")
	if err != nil {
		return nil, err
	}
	accessSecret, err := promptSecret(reader, "Access token secret: ")
	if err != nil {
		return nil, err
	}

	return &Account{
		Nickname:     nickname,
		APIKey:       apiKey,
		APISecret:    apiSecret,
		AccessToken:  accessToken,
		AccessSecret: accessSecret,
	}, nil
}

func promptLine(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}
	// Piped input falls back to a plain line read.
	return promptLine(reader, "")
}

// ShowCredentialGuide explains where the four OAuth values come from.
func ShowCredentialGuide() {
	fmt.Println("SmugMug API credentials")
	fmt.Println()
	fmt.Println("  1. Apply for an API key at https://api.smugmug.com/api/developer/apply")
	fmt.Println("     You will receive an API key and an API secret.")
	fmt.Println("  2. Authorize the key against your account to obtain an access token")
	fmt.Println("     and access token secret (any OAuth 1.0a helper works; SmugMug's")
	fmt.Println("     console at https://api.smugmug.com/api/v2 can issue them too).")
	fmt.Println("  3. Run 'smugvault auth login' and paste the four values, or export")
	fmt.Println("     SMUGVAULT_API_KEY, SMUGVAULT_API_SECRET, SMUGVAULT_ACCESS_TOKEN")
	fmt.Println("     and SMUGVAULT_ACCESS_SECRET.")
	fmt.Println()
	fmt.Println("  Tokens grant full read access to the account, private content")
	fmt.Println("  included. They are stored in the system keychain when available,")
	fmt.Println("  otherwise in an encrypted file under the config directory.")
}
