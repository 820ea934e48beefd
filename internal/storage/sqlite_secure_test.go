//go:build !sqlcipher
// +build !sqlcipher

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenSecureWithoutSQLCipherBuild(t *testing.T) {
	_, err := Open(context.Background(), Config{Mode: ModeSecure, Path: filepath.Join(t.TempDir(), "tabreport.db")})
	if !errors.Is(err, ErrSecureUnsupported) {
		t.Fatalf("Open(secure) error = %v, want ErrSecureUnsupported", err)
	}
}

func TestEnsureDBKeyCreatesOnce(t *testing.T) {
	origLoad, origSave := loadDBKey, saveDBKey
	t.Cleanup(func() { loadDBKey, saveDBKey = origLoad, origSave })

	stored := ""
	loadDBKey = func() (string, error) {
		if stored == "" {
			return "", errors.New("not found")
		}
		return stored, nil
	}
	saveDBKey = func(key string) error {
		stored = key
		return nil
	}

	key, created, err := ensureDBKey()
	if err != nil || !created || key == "" {
		t.Fatalf("ensureDBKey() = (%q, %v, %v), want new key", key, created, err)
	}
	again, created, err := ensureDBKey()
	if err != nil || created || again != key {
		t.Fatalf("ensureDBKey() second call = (%q, %v, %v), want existing key", again, created, err)
	}
}
