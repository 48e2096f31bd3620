package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	fp := NewPersistence("./test-data")
	assert.NoError(t, fp.Close(t.Context()))
}

func TestPersistence_HealthCheck(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	assert.NoError(t, fp.HealthCheck(t.Context()))

	missing := NewPersistence(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, missing.HealthCheck(t.Context()))
}

func TestWriteJSONAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "doc.json")

	require.NoError(t, writeJSONAtomic(target, map[string]string{"a": "1"}))
	require.NoError(t, writeJSONAtomic(target, map[string]string{"a": "2"}))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())

	body, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"2"`)
}

func TestFileName_EscapesPathSeparators(t *testing.T) {
	assert.Equal(t, "..%2Fetc.json", fileName("../etc"))
	assert.Equal(t, "user-1.json", fileName("user-1"))
}
