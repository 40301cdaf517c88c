package io

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "artifact.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("payload")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be gone after rename")
}

func TestWriteFileAtomic_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWriteJSONAtomic_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	in := map[string]interface{}{"symbol": "GME", "score": 82.5}
	require.NoError(t, WriteJSONAtomic(path, in))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1], "artifact ends with a newline")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "GME", out["symbol"])
	assert.InDelta(t, 82.5, out["score"].(float64), 0.0001)
}

func TestWriteJSONAtomic_UnencodableValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	err := WriteJSONAtomic(path, map[string]interface{}{"bad": func() {}})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written on encode failure")
}
