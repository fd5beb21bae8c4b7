package storage_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/printguard/pkg/model"
	"github.com/ogulcanaydogan/printguard/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFile_LoadMissing(t *testing.T) {
	f := storage.NewFile(filepath.Join(t.TempDir(), "missing.json"), storage.JSON)

	state, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, state)
	assert.Empty(t, state)
}

func TestFile_LoadEmptyAndWhitespace(t *testing.T) {
	for _, content := range []string{"", "  \n\t\n"} {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		state, err := storage.NewFile(path, storage.JSON).Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, state)
	}
}

func TestFile_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"192.168.0.102": {"name": `), 0o644))

	state, err := storage.NewFile(path, storage.JSON).Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrCorruptState)
	assert.NotNil(t, state)
	assert.Empty(t, state)
}

func TestFile_LoadBadDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"10.0.0.1": {"last_seen": "yesterday"}}`), 0o644))

	state, err := storage.NewFile(path, storage.JSON).Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrCorruptState)
	assert.Empty(t, state)
}

func TestFile_LegacyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printer_status_log.json")
	legacy := `{
  "192.168.0.103": {
    "name": "KONICA MINOLTA bizhub C300i",
    "last_seen": "2025-03-02",
    "offline_alerted": false,
    "toner_alerted": {
      "Toner (Yellow)": "2025-02-28"
    }
  },
  "192.168.0.106": {
    "last_seen": "2025-02-01"
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	state, err := storage.NewFile(path, storage.JSON).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, state, 2)
	assert.Equal(t, model.NewDate(2025, time.February, 28), state["192.168.0.103"].TonerAlerted["Toner (Yellow)"])
	assert.Equal(t, model.NewDate(2025, time.February, 1), state["192.168.0.106"].LastSeen)
	assert.Empty(t, state["192.168.0.106"].Name)
}

func TestFile_SaveLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	f := storage.NewFile(path, storage.JSON)
	ctx := context.Background()

	want := sampleState()
	require.NoError(t, f.Save(ctx, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var generic map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "2025-03-02", generic["192.168.0.102"]["last_seen"])
	assert.Equal(t, true, generic["192.168.0.105"]["offline_alerted"])
	assert.Contains(t, string(raw), "\n  \"192.168.0.102\"")

	got, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFile_SaveLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	f := storage.NewFile(path, storage.YAML)
	ctx := context.Background()

	want := sampleState()
	require.NoError(t, f.Save(ctx, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "offline_alerted: true")

	got, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := storage.NewFile(filepath.Join(dir, "state.json"), storage.JSON)

	require.NoError(t, f.Save(context.Background(), sampleState()))
	require.NoError(t, f.Save(context.Background(), model.State{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())

	state, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestOpen_PicksBackendByExtension(t *testing.T) {
	dir := t.TempDir()
	logger := discardLogger()

	for name, want := range map[string]any{
		"state.json": &storage.File{},
		"state.yml":  &storage.File{},
		"state.log":  &storage.File{},
		"state.db":   &storage.SQLite{},
	} {
		store, err := storage.Open(filepath.Join(dir, name), logger)
		require.NoError(t, err, name)
		assert.IsType(t, want, store, name)
		require.NoError(t, store.Close())
	}
}
