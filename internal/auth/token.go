package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	defaultSecretService = "tabreport"
	tokenSecretUser      = "api_token"
	dbKeySecretUser      = "db_key"
)

// TokenEnv overrides the stored API token when set.
const TokenEnv = "TABREPORT_API_TOKEN"

var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
)

// ErrNoToken is returned when neither the environment nor the keyring holds a token.
var ErrNoToken = errors.New("api token is not configured; run 'tabreport auth set'")

// LoadToken loads the records API bearer token.
//
// Order of precedence:
// 1) TABREPORT_API_TOKEN environment variable.
// 2) System keyring item referenced by service/account.
func LoadToken() (string, error) {
	if token := strings.TrimSpace(os.Getenv(TokenEnv)); token != "" {
		return token, nil
	}

	token, err := loadSecret(tokenSecretUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SaveToken stores the API token in the system credential store.
func SaveToken(token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return errors.New("api token cannot be empty")
	}
	return saveSecret(tokenSecretUser, trimmed)
}

// RemoveToken deletes the stored API token. A missing item is not an error.
func RemoveToken() error {
	service := secretService()
	err := keyringDelete(service, tokenSecretUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring item service=%q account=%q: %w", service, tokenSecretUser, err)
	}
	return nil
}

// LoadDBKey returns the sqlcipher key for the local cache.
func LoadDBKey() (string, error) {
	return loadSecret(dbKeySecretUser)
}

func SaveDBKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return errors.New("db key cannot be empty")
	}
	return saveSecret(dbKeySecretUser, trimmed)
}

func loadSecret(account string) (string, error) {
	service := secretService()
	secret, err := keyringGet(service, account)
	if err != nil {
		return "", fmt.Errorf(
			"failed to read keyring item service=%q account=%q: %w",
			service,
			account,
			err,
		)
	}
	return strings.TrimSpace(secret), nil
}

func saveSecret(account, secret string) error {
	service := secretService()
	if err := keyringSet(service, account, secret); err != nil {
		return fmt.Errorf(
			"failed to store keyring item service=%q account=%q: %w",
			service,
			account,
			err,
		)
	}
	return nil
}

func secretService() string {
	if value := strings.TrimSpace(os.Getenv("TABREPORT_KEYCHAIN_SERVICE")); value != "" {
		return value
	}
	return defaultSecretService
}
