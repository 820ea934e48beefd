package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func stubKeyring(t *testing.T) map[string]string {
	t.Helper()
	origGet, origSet, origDelete := keyringGet, keyringSet, keyringDelete
	t.Cleanup(func() {
		keyringGet, keyringSet, keyringDelete = origGet, origSet, origDelete
	})

	store := map[string]string{}
	keyringGet = func(service, user string) (string, error) {
		v, ok := store[service+"/"+user]
		if !ok {
			return "", keyring.ErrNotFound
		}
		return v, nil
	}
	keyringSet = func(service, user, secret string) error {
		store[service+"/"+user] = secret
		return nil
	}
	keyringDelete = func(service, user string) error {
		if _, ok := store[service+"/"+user]; !ok {
			return keyring.ErrNotFound
		}
		delete(store, service+"/"+user)
		return nil
	}
	return store
}

func TestLoadTokenUsesEnvVarFirst(t *testing.T) {
	t.Setenv(TokenEnv, "  env-token  ")
	store := stubKeyring(t)
	store["tabreport/api_token"] = "keyring-token"

	got, err := LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() unexpected error: %v", err)
	}
	if got != "env-token" {
		t.Fatalf("LoadToken() = %q, want %q", got, "env-token")
	}
}

func TestLoadTokenFallsBackToKeyring(t *testing.T) {
	t.Setenv(TokenEnv, "")
	t.Setenv("TABREPORT_KEYCHAIN_SERVICE", "svc")
	store := stubKeyring(t)
	store["svc/api_token"] = "  keyring-token  "

	got, err := LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() unexpected error: %v", err)
	}
	if got != "keyring-token" {
		t.Fatalf("LoadToken() = %q, want %q", got, "keyring-token")
	}
}

func TestLoadTokenMissing(t *testing.T) {
	t.Setenv(TokenEnv, "")
	stubKeyring(t)

	_, err := LoadToken()
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("LoadToken() error = %v, want ErrNoToken", err)
	}
}

func TestLoadTokenEmptySecret(t *testing.T) {
	t.Setenv(TokenEnv, "")
	store := stubKeyring(t)
	store["tabreport/api_token"] = "   "

	_, err := LoadToken()
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("LoadToken() error = %v, want ErrNoToken", err)
	}
}

func TestLoadTokenReturnsErrorWhenKeyringFails(t *testing.T) {
	t.Setenv(TokenEnv, "")
	stubKeyring(t)
	keyringGet = func(service, user string) (string, error) {
		return "", errors.New("boom")
	}

	_, err := LoadToken()
	if err == nil {
		t.Fatal("LoadToken() error = nil, want non-nil")
	}
	if !strings.Contains(err.Error(), "failed to read keyring item") {
		t.Fatalf("LoadToken() error = %q, expected keyring read context", err.Error())
	}
}

func TestSaveTokenSavesTrimmedToken(t *testing.T) {
	t.Setenv("TABREPORT_KEYCHAIN_SERVICE", "svc")
	store := stubKeyring(t)

	if err := SaveToken("  my-token  "); err != nil {
		t.Fatalf("SaveToken() unexpected error: %v", err)
	}
	if got := store["svc/api_token"]; got != "my-token" {
		t.Fatalf("stored token = %q, want %q", got, "my-token")
	}
}

func TestSaveTokenRejectsEmptyToken(t *testing.T) {
	store := stubKeyring(t)

	err := SaveToken("   ")
	if err == nil {
		t.Fatal("SaveToken() error = nil, want non-nil")
	}
	if len(store) != 0 {
		t.Fatal("SaveToken() wrote to the keyring for an empty token")
	}
}

func TestSaveTokenReturnsErrorWhenKeyringSetFails(t *testing.T) {
	stubKeyring(t)
	keyringSet = func(service, user, secret string) error {
		return errors.New("write failed")
	}

	err := SaveToken("token")
	if err == nil || !strings.Contains(err.Error(), "failed to store keyring item") {
		t.Fatalf("SaveToken() error = %v, expected keyring write context", err)
	}
}

func TestRemoveTokenIgnoresMissingItem(t *testing.T) {
	store := stubKeyring(t)
	if err := RemoveToken(); err != nil {
		t.Fatalf("RemoveToken() unexpected error: %v", err)
	}

	store["tabreport/api_token"] = "x"
	if err := RemoveToken(); err != nil {
		t.Fatalf("RemoveToken() unexpected error: %v", err)
	}
	if _, ok := store["tabreport/api_token"]; ok {
		t.Fatal("RemoveToken() left the item in place")
	}
}

func TestDBKeyRoundTrip(t *testing.T) {
	store := stubKeyring(t)

	if err := SaveDBKey(" k3y "); err != nil {
		t.Fatalf("SaveDBKey() unexpected error: %v", err)
	}
	if store["tabreport/db_key"] != "k3y" {
		t.Fatalf("stored db key = %q, want %q", store["tabreport/db_key"], "k3y")
	}
	got, err := LoadDBKey()
	if err != nil {
		t.Fatalf("LoadDBKey() unexpected error: %v", err)
	}
	if got != "k3y" {
		t.Fatalf("LoadDBKey() = %q, want %q", got, "k3y")
	}
}
