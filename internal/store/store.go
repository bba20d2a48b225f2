// Package store persists API tokens obtained from username/password logins.
package store

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"rdwrapper/pkg/realdebrid"
)

// DefaultFile is the cache file name used when none is configured.
const DefaultFile = "rdw_token_cache.db"

type Cache interface {
	realdebrid.TokenCache
	io.Closer
}

// DefaultPath places the cache in the system temporary directory.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultFile)
}

// Open picks the backend from the file extension: ".bolt" opens a bbolt
// file, anything else a SQLite database. Missing parent directories are
// created.
func Open(path string) (Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bolt":
		return NewBolt(path)
	default:
		return NewSQLite(path)
	}
}
