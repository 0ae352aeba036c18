package auth

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testAccount(handle string) *Account {
	return &Account{
		Handle:    handle,
		AuthToken: "auth-token-0123456789abcdef",
		CSRFToken: "csrf-token-0123456789abcdef",
		UserAgent: "test-agent",
	}
}

func TestManagerStoreAndRetrieve(t *testing.T) {
	manager, store := NewMockManager()

	if err := manager.Store(testAccount("alice")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("Expected 1 stored account, got %d", store.Count())
	}

	account, err := manager.Retrieve("alice")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if account.AuthToken != "auth-token-0123456789abcdef" {
		t.Errorf("Unexpected auth token: %s", account.AuthToken)
	}
	if account.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	if _, err := manager.Retrieve("nobody"); err == nil {
		t.Error("Retrieving an unknown handle should fail")
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	tests := []struct {
		name    string
		account *Account
	}{
		{"MissingHandle", &Account{AuthToken: "a", CSRFToken: "c"}},
		{"MissingAuthToken", &Account{Handle: "alice", CSRFToken: "c"}},
		{"MissingCSRFToken", &Account{Handle: "alice", AuthToken: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := manager.Store(tt.account); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = ErrStoreUnavailable
	broken.RetrieveError = ErrStoreUnavailable
	working := NewMockStore()

	manager := NewMockManagerWithStores(broken, working)

	if err := manager.Store(testAccount("alice")); err != nil {
		t.Fatalf("Store should fall through to the working store: %v", err)
	}
	if working.Count() != 1 {
		t.Errorf("Expected account in fallback store, got %d", working.Count())
	}

	account, err := manager.Retrieve("alice")
	if err != nil {
		t.Fatalf("Retrieve should fall through: %v", err)
	}
	if account.Handle != "alice" {
		t.Errorf("Unexpected handle: %s", account.Handle)
	}
}

func TestManagerListDeduplicates(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()

	stale := testAccount("alice")
	stale.AuthToken = "stale-token-0123456789abcdef"
	stale.LastModified = time.Now().Add(-time.Hour)
	older.Store(stale)

	fresh := testAccount("alice")
	fresh.LastModified = time.Now()
	newer.Store(fresh)

	bob := testAccount("bob")
	bob.LastModified = time.Now()
	older.Store(bob)

	manager := NewMockManagerWithStores(older, newer)
	accounts, err := manager.List()
	if err != nil {
		t.Fatal(err)
	}

	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts after dedupe, got %d", len(accounts))
	}
	for _, account := range accounts {
		if account.Handle == "alice" && account.AuthToken != "auth-token-0123456789abcdef" {
			t.Error("Dedupe should keep the newest credentials")
		}
	}
}

func TestManagerDelete(t *testing.T) {
	manager, store := NewMockManager()
	manager.Store(testAccount("alice"))

	if err := manager.Delete("alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("Expected empty store, got %d accounts", store.Count())
	}

	if err := manager.Delete("alice"); err == nil {
		t.Error("Deleting a missing handle should fail")
	}
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv("BMEXPORTER_AUTH_TOKEN", "env-auth-token-0123456789")
	t.Setenv("BMEXPORTER_CSRF_TOKEN", "env-csrf-token-0123456789")

	mock := NewMockStore()
	mock.Store(testAccount("alice"))
	manager := NewMockManagerWithStores(mock, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatal(err)
	}
	if account.AuthToken != "env-auth-token-0123456789" {
		t.Errorf("Environment credentials should win, got %s", account.AuthToken)
	}
}

func TestRetrieveDefaultFallsBackToStoredAccount(t *testing.T) {
	t.Setenv("BMEXPORTER_AUTH_TOKEN", "")
	t.Setenv("BMEXPORTER_CSRF_TOKEN", "")

	mock := NewMockStore()
	mock.Store(testAccount("alice"))
	manager := NewMockManagerWithStores(mock, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatal(err)
	}
	if account.Handle != "alice" {
		t.Errorf("Expected stored account, got %s", account.Handle)
	}
}

func TestRetrieveDefaultNoCredentials(t *testing.T) {
	t.Setenv("BMEXPORTER_AUTH_TOKEN", "")
	t.Setenv("BMEXPORTER_CSRF_TOKEN", "")

	manager := NewMockManagerWithStores(NewMockStore(), NewEnvironmentStore())
	if _, err := manager.RetrieveDefault(); err == nil {
		t.Error("Expected error with no credentials anywhere")
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("alice")
	sanitized := SanitizeAccount(account)

	if sanitized.Handle != "alice" {
		t.Errorf("Handle should survive sanitization, got %s", sanitized.Handle)
	}
	if strings.Contains(sanitized.AuthToken, "token-0123456789") {
		t.Errorf("Auth token not masked: %s", sanitized.AuthToken)
	}
	if !strings.Contains(sanitized.AuthToken, "...") {
		t.Errorf("Expected masked form with ellipsis, got %s", sanitized.AuthToken)
	}

	short := &Account{Handle: "bob", AuthToken: "tiny", CSRFToken: "tiny"}
	if got := SanitizeAccount(short).AuthToken; got != "********" {
		t.Errorf("Short secrets should be fully masked, got %s", got)
	}

	if SanitizeAccount(nil) != nil {
		t.Error("Sanitizing nil should return nil")
	}

	// The original must not be modified.
	if account.AuthToken != "auth-token-0123456789abcdef" {
		t.Error("SanitizeAccount must not mutate its argument")
	}
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("BMEXPORTER_PASSPHRASE", "test-passphrase-for-round-trip")

	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	account := testAccount("alice")
	account.LastModified = time.Now()
	if err := store.Store(account); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if !store.Exists("alice") {
		t.Error("Stored account should exist")
	}

	// A fresh store over the same file must decrypt what the first wrote.
	reopened, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Retrieve("alice")
	if err != nil {
		t.Fatalf("Retrieve after reopen failed: %v", err)
	}
	if got.AuthToken != account.AuthToken {
		t.Errorf("Decrypted token mismatch: %s", got.AuthToken)
	}

	if err := reopened.Delete("alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if reopened.Exists("alice") {
		t.Error("Deleted account should not exist")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv("BMEXPORTER_PASSPHRASE", "first-passphrase")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(testAccount("alice")); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BMEXPORTER_PASSPHRASE", "different-passphrase")
	reopened, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reopened.Retrieve("alice"); err == nil {
		t.Error("Retrieval with the wrong passphrase should fail")
	}
}

func TestEnvironmentStoreIsReadOnly(t *testing.T) {
	store := NewEnvironmentStore()

	if err := store.Store(testAccount("alice")); err == nil {
		t.Error("Environment store must reject writes")
	}
	if err := store.Delete("alice"); err == nil {
		t.Error("Environment store must reject deletes")
	}
}
