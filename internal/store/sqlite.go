package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"rdwrapper/pkg/realdebrid"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteCache is a realdebrid.TokenCache kept in a SQLite database.
type SQLiteCache struct {
	db *sql.DB
}

var _ realdebrid.TokenCache = (*SQLiteCache)(nil)

func NewSQLite(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteCache{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func (s *SQLiteCache) migrate() error {
	if err := s.importLegacyTokens(); err != nil {
		return fmt.Errorf("failed to import legacy tokens: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", f, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", f, err)
		}
	}

	return nil
}

// importLegacyTokens converts a tokens(username, password, token) table, as
// written by older caches, to the keyed schema. Plaintext passwords are not
// carried over.
func (s *SQLiteCache) importLegacyTokens() error {
	var columns int
	err := s.db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('tokens')").Scan(&columns)
	if err != nil || columns == 0 {
		return err
	}
	var keyed int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('tokens') WHERE name = 'key'").Scan(&keyed); err != nil {
		return err
	}
	if keyed > 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query("SELECT username, password, token FROM tokens")
	if err != nil {
		return err
	}
	type legacyRow struct{ username, password, token string }
	var legacy []legacyRow
	for rows.Next() {
		var username, password, token sql.NullString
		if err := rows.Scan(&username, &password, &token); err != nil {
			_ = rows.Close()
			return err
		}
		if username.String == "" || password.String == "" || token.String == "" {
			continue
		}
		legacy = append(legacy, legacyRow{username.String, password.String, token.String})
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.Exec("DROP TABLE tokens"); err != nil {
		return err
	}
	schema, err := migrationsFS.ReadFile("migrations/001_tokens.sql")
	if err != nil {
		return err
	}
	if _, err := tx.Exec(string(schema)); err != nil {
		return err
	}

	now := time.Now()
	for _, r := range legacy {
		_, err := tx.Exec(
			"INSERT OR REPLACE INTO tokens (key, username, token, updated_at) VALUES (?, ?, ?, ?)",
			realdebrid.CacheKey(r.username, r.password), r.username, r.token, now,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteCache) Get(ctx context.Context, username, password string) (string, bool, error) {
	var token string
	query := "SELECT token FROM tokens WHERE key = ?"
	err := s.db.QueryRowContext(ctx, query, realdebrid.CacheKey(username, password)).Scan(&token)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return token, token != "", nil
}

func (s *SQLiteCache) Set(ctx context.Context, username, password, token string) error {
	query := `
		INSERT INTO tokens (key, username, token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			username = excluded.username,
			token = excluded.token,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, realdebrid.CacheKey(username, password), username, token, time.Now())
	return err
}

func (s *SQLiteCache) Delete(ctx context.Context, username, password string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE key = ?", realdebrid.CacheKey(username, password))
	return err
}
