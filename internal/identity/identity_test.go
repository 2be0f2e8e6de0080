package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsValid(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := New()
		assert.True(t, id.Valid(), id.String())
	}
	assert.NotEqual(t, New().ID, New().ID)
}

func TestValidRejectsForeignShapes(t *testing.T) {
	assert.False(t, Identity{ID: "admin", Name: "x"}.Valid())
	assert.False(t, Identity{ID: "user_abcdefghi", Name: " "}.Valid())
	assert.True(t, Identity{ID: "user_abcdefghi", Name: "CodeMaster7"}.Valid())
}

func TestLoadOrCreatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.json")

	first, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, first.Valid())

	second, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadOrCreateReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	id, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, id.Valid())

	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}
