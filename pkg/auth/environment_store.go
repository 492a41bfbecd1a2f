package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only and mainly serves CI and scripted runs.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(nickname string) (*Account, error) {
	apiKey := os.Getenv("SMUGVAULT_API_KEY")
	apiSecret := os.Getenv("SMUGVAULT_API_SECRET")
	accessToken := os.Getenv("SMUGVAULT_ACCESS_TOKEN")
	accessSecret := os.Getenv("SMUGVAULT_ACCESS_SECRET")

	if apiKey == "" || apiSecret == "" || accessToken == "" || accessSecret == "" {
		return nil, ErrCredentialsNotFound
	}

	if nickname == "" {
		nickname = os.Getenv("SMUGVAULT_NICKNAME")
	}
	if nickname == "" {
		nickname = "default"
	}

	return &Account{
		Nickname:     nickname,
		APIKey:       apiKey,
		APISecret:    apiSecret,
		AccessToken:  accessToken,
		AccessSecret: accessSecret,
		UserAgent:    os.Getenv("SMUGVAULT_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(nickname string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(nickname string) bool {
	return os.Getenv("SMUGVAULT_API_KEY") != "" &&
		os.Getenv("SMUGVAULT_API_SECRET") != "" &&
		os.Getenv("SMUGVAULT_ACCESS_TOKEN") != "" &&
		os.Getenv("SMUGVAULT_ACCESS_SECRET") != ""
}
