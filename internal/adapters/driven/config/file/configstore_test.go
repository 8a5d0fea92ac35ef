package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("source.dir", "/srv/docs"))
	require.NoError(t, store.Set("index.batch_size", int64(32)))
	require.NoError(t, store.Set("index.rps", 2.5))
	require.NoError(t, store.Set("verbose", true))
	require.NoError(t, store.Set("languages", []string{"en", "he"}))

	assert.Equal(t, "/srv/docs", store.GetString("source.dir"))
	assert.Equal(t, 32, store.GetInt("index.batch_size"))
	assert.Equal(t, 2.5, store.GetFloat("index.rps"))
	assert.True(t, store.GetBool("verbose"))
	assert.Equal(t, []string{"en", "he"}, store.GetStringSlice("languages"))
}

func TestConfigStore_MissingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	_, ok := store.Get("absent")
	assert.False(t, ok)
	assert.Equal(t, "", store.GetString("absent"))
	assert.Equal(t, 0, store.GetInt("absent"))
	assert.Equal(t, 0.0, store.GetFloat("absent"))
	assert.False(t, store.GetBool("absent"))
	assert.Nil(t, store.GetStringSlice("absent"))
}

func TestConfigStore_TypeMismatches(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("key", "a string"))
	assert.Equal(t, 0, store.GetInt("key"))
	assert.False(t, store.GetBool("key"))
	assert.Nil(t, store.GetStringSlice("key"))
}

func TestConfigStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("completion.provider", "ollama"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "ollama", reopened.GetString("completion.provider"))
}

func TestConfigStore_LoadFlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := "[completion]\nprovider = \"openai\"\nmodel = \"gpt-4o-mini\"\n\n[retry]\nmax_attempts = 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "openai", store.GetString("completion.provider"))
	assert.Equal(t, "gpt-4o-mini", store.GetString("completion.model"))
	assert.Equal(t, 5, store.GetInt("retry.max_attempts"))
}

func TestConfigStore_GetFloatFromInteger(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("rate", int64(3)))
	assert.Equal(t, 3.0, store.GetFloat("rate"))
}
