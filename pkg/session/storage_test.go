package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	fs, err := NewFileStorage(path)
	assert.NoError(t, err)

	_, ok := fs.Get("user")
	assert.False(t, ok)

	assert.NoError(t, fs.Set("user", `{"email":"jane@acme.com"}`))
	assert.NoError(t, fs.Set("isLoggedIn", "true"))

	// Reopen from disk.
	reopened, err := NewFileStorage(path)
	assert.NoError(t, err)

	v, ok := reopened.Get("user")
	assert.True(t, ok)
	assert.Equal(t, `{"email":"jane@acme.com"}`, v)

	v, ok = reopened.Get("isLoggedIn")
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestFileStorageRemoveIsDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	fs, err := NewFileStorage(path)
	assert.NoError(t, err)
	assert.NoError(t, fs.Set("user", "x"))
	assert.NoError(t, fs.Remove("user"))

	reopened, err := NewFileStorage(path)
	assert.NoError(t, err)
	_, ok := reopened.Get("user")
	assert.False(t, ok)
}

func TestFileStorageRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs, err := NewFileStorage(path)
	assert.NoError(t, err)
	assert.NoError(t, fs.Set("k", "v"))

	// Truncate the file into invalid JSON.
	assert.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err = NewFileStorage(path)
	assert.Error(t, err)
}
