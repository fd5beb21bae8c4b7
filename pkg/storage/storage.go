package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ogulcanaydogan/printguard/pkg/model"
)

// ErrCorruptState is returned alongside an empty state when the backing data
// exists but cannot be decoded. Callers should log it and carry on.
var ErrCorruptState = errors.New("corrupt alert state")

// Storage defines the persistence layer for device alert records.
type Storage interface {
	// Load returns all device records. It returns an empty, non-nil state when
	// nothing has been saved yet.
	Load(ctx context.Context) (model.State, error)

	// Save replaces the stored state with the given one as a single unit.
	Save(ctx context.Context, state model.State) error

	// Close releases resources.
	Close() error
}

// Open picks a backend from the file extension: .db, .sqlite and .sqlite3
// use SQLite, .yaml and .yml a YAML file, anything else a JSON file.
//
// A SQLite file that cannot be opened is moved aside and recreated.
func Open(path string, logger *slog.Logger) (Storage, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		db, err := NewSQLite(path)
		if err == nil {
			return db, nil
		}
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, err
		}
		aside := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405"))
		logger.Warn("state database unusable, starting fresh", "path", path, "moved_to", aside, "error", err)
		if renameErr := os.Rename(path, aside); renameErr != nil {
			return nil, fmt.Errorf("move aside corrupt database: %w", renameErr)
		}
		return NewSQLite(path)
	case ".yaml", ".yml":
		return NewFile(path, YAML), nil
	default:
		return NewFile(path, JSON), nil
	}
}
