package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ogulcanaydogan/printguard/pkg/model"
	"gopkg.in/yaml.v3"
)

// Format is a text encoding for the file store.
type Format int

const (
	JSON Format = iota
	YAML
)

// File keeps the whole state in one human-editable file and rewrites it on
// every save.
type File struct {
	path   string
	format Format
}

// NewFile creates a file store. The file does not need to exist yet.
func NewFile(path string, format Format) *File {
	return &File{path: path, format: format}
}

func (f *File) Load(_ context.Context) (model.State, error) {
	state := make(model.State)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("%w: read %s: %v", ErrCorruptState, f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return state, nil
	}

	var decoded model.State
	switch f.format {
	case YAML:
		err = yaml.Unmarshal(data, &decoded)
	default:
		err = json.Unmarshal(data, &decoded)
	}
	if err != nil {
		return make(model.State), fmt.Errorf("%w: parse %s: %v", ErrCorruptState, f.path, err)
	}
	for addr, rec := range decoded {
		state[addr] = rec
	}
	return state, nil
}

func (f *File) Save(_ context.Context, state model.State) error {
	if state == nil {
		state = make(model.State)
	}

	var (
		data []byte
		err  error
	)
	switch f.format {
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(state); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	default:
		data, err = json.MarshalIndent(state, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	return writeFileAtomic(f.path, data, 0o644)
}

func (f *File) Close() error { return nil }

// writeFileAtomic writes to a temporary sibling and renames it over path, so
// readers see either the old or the new content.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
