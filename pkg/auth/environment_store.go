package auth

import (
	"os"
	"time"
)

// Variables read by EnvironmentStore. They match the ones the config layer
// reads, so a .env file serves both.
const (
	envClientID     = "MINERALSCRAPER_CLIENT_ID"
	envClientSecret = "MINERALSCRAPER_CLIENT_SECRET"
	envUsername     = "MINERALSCRAPER_USERNAME"
	envPassword     = "MINERALSCRAPER_PASSWORD"
	envUserAgent    = "MINERALSCRAPER_USER_AGENT"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from environment variables. Any name is
// accepted; an empty one becomes "env".
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	clientID := os.Getenv(envClientID)
	clientSecret := os.Getenv(envClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, ErrCredentialsNotFound
	}

	if name == "" {
		name = "env"
	}

	return &Account{
		Name:         name,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Username:     os.Getenv(envUsername),
		Password:     os.Getenv(envPassword),
		UserAgent:    os.Getenv(envUserAgent),
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
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(envClientID) != "" && os.Getenv(envClientSecret) != ""
}
