package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/auth"
)

type Mode string

const (
	ModePlain  Mode = "plain"
	ModeSecure Mode = "secure"
)

const schemaVersion = 3

type Config struct {
	Mode Mode
	Path string
}

// ErrSecureUnsupported is returned when secure mode is requested from a build
// without the sqlcipher tag.
var ErrSecureUnsupported = errors.New("secure mode requires a sqlcipher-enabled build; rebuild with '-tags sqlcipher'")

// ErrWrongKey means the keyring key does not decrypt the cache file.
var ErrWrongKey = errors.New("db key does not open the local cache; run 'tabreport wipe' to start over")

var (
	loadDBKey = auth.LoadDBKey
	saveDBKey = auth.SaveDBKey
)

// ResolveConfig validates the mode and fills the default cache path.
func ResolveConfig(mode, path string) (Config, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(mode)))
	switch m {
	case "":
		m = ModePlain
	case ModePlain, ModeSecure:
	default:
		return Config{}, fmt.Errorf("unknown db mode %q (want %q or %q)", mode, ModePlain, ModeSecure)
	}

	if p := strings.TrimSpace(path); p != "" {
		return Config{Mode: m, Path: p}, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve user config directory: %w", err)
	}
	return Config{
		Mode: m,
		Path: filepath.Join(configDir, "tabreport", "tabreport.db"),
	}, nil
}

// Open opens the local contract cache and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Mode {
	case ModeSecure:
		db, err = openSecure(cfg.Path)
	case ModePlain, "":
		db, err = openPlainSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown db mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openSecure(path string) (*sql.DB, error) {
	if !secureSQLiteSupported() {
		return nil, ErrSecureUnsupported
	}

	key, created, err := ensureDBKey()
	if err != nil {
		return nil, fmt.Errorf("ensure secure db key: %w", err)
	}
	if created {
		// A new key cannot decrypt an old file.
		exists, err := hasLocalDBFiles(path)
		if err != nil {
			return nil, err
		}
		if exists {
			if err := resetLocalDBFiles(path); err != nil {
				return nil, fmt.Errorf("reset db after key creation: %w", err)
			}
		}
	}
	return openSecureSQLite(path, key)
}

// Wipe removes local database files for the configured path.
func Wipe(cfg Config) error {
	if err := resetLocalDBFiles(cfg.Path); err != nil {
		return fmt.Errorf("wipe local db files: %w", err)
	}
	return nil
}

func ensureDBKey() (key string, created bool, err error) {
	key, err = loadDBKey()
	if err == nil && strings.TrimSpace(key) != "" {
		return key, false, nil
	}

	newKey, err := generateRandomKey()
	if err != nil {
		return "", false, err
	}

	if err := saveDBKey(newKey); err != nil {
		return "", false, err
	}
	return newKey, true, nil
}

func generateRandomKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	const bootstrapSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  version INTEGER NOT NULL
);

INSERT OR IGNORE INTO schema_migrations (id, version) VALUES (1, 1);
`
	if _, err := db.ExecContext(ctx, bootstrapSchema); err != nil {
		return fmt.Errorf("run sqlite migrations: %w", err)
	}

	var currentVersion int
	if err := db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE id = 1").Scan(&currentVersion); err != nil {
		return fmt.Errorf("read sqlite schema version: %w", err)
	}

	if currentVersion > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, schemaVersion)
	}

	migrations := []struct {
		version int
		schema  string
	}{
		{2, v2Schema},
		{3, v3Schema},
	}
	for _, m := range migrations {
		if currentVersion >= m.version {
			continue
		}
		if err := applyMigration(ctx, db, m.version, m.schema); err != nil {
			return err
		}
		currentVersion = m.version
	}
	return nil
}

const v2Schema = `
CREATE TABLE IF NOT EXISTS sync_state (
  collection TEXT PRIMARY KEY,
  last_success_at TEXT,
  last_attempt_at TEXT,
  last_error TEXT
);

CREATE TABLE IF NOT EXISTS app_config (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`

const v3Schema = `
CREATE TABLE IF NOT EXISTS contracts (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  contract_start_date TEXT NOT NULL,
  churn_date TEXT,
  payment_term TEXT NOT NULL,
  amount_arr TEXT NOT NULL,
  arr TEXT NOT NULL,
  position INTEGER NOT NULL,
  last_fetched_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contracts_start ON contracts(contract_start_date, name, position);
`

func applyMigration(ctx context.Context, db *sql.DB, version int, schema string) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite migration v%d transaction: %w", version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("run sqlite v%d migrations: %w", version, err)
	}
	if _, err = tx.ExecContext(ctx, "UPDATE schema_migrations SET version = ? WHERE id = 1", version); err != nil {
		return fmt.Errorf("update sqlite schema version to %d: %w", version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite v%d migrations: %w", version, err)
	}
	return nil
}

func hasLocalDBFiles(path string) (bool, error) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_, err := os.Stat(p)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return false, nil
}

func resetLocalDBFiles(path string) error {
	paths := []string{
		path,
		path + "-wal",
		path + "-shm",
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
