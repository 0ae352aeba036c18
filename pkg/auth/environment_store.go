package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// Useful for CI runs and one-off shells.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based credential store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables.
func (e *EnvironmentStore) Retrieve(handle string) (*Account, error) {
	authToken := os.Getenv("BMEXPORTER_AUTH_TOKEN")
	csrfToken := os.Getenv("BMEXPORTER_CSRF_TOKEN")
	userAgent := os.Getenv("BMEXPORTER_USER_AGENT")

	if authToken == "" || csrfToken == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables carry no handle, so fall back to "default".
	if handle == "" {
		handle = "default"
	}

	return &Account{
		Handle:       handle,
		AuthToken:    authToken,
		CSRFToken:    csrfToken,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set.
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(handle string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist.
func (e *EnvironmentStore) Exists(handle string) bool {
	return os.Getenv("BMEXPORTER_AUTH_TOKEN") != "" && os.Getenv("BMEXPORTER_CSRF_TOKEN") != ""
}
