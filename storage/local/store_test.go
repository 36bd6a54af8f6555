package local

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-dev/portal/core/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err, "Open()")
	t.Cleanup(func() {
		assert.NoError(t, s.Close(), "Close()")
	})
	return s
}

func TestOpen_requiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestStore_token(t *testing.T) {
	s := openTestStore(t)

	// empty store
	tok, err := s.LoadToken()
	require.NoError(t, err)
	assert.Empty(t, tok)

	// round trip
	require.NoError(t, s.SaveToken("jwt-token"))
	tok, err = s.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", tok)

	// overwrite
	require.NoError(t, s.SaveToken("newer-token"))
	tok, _ = s.LoadToken()
	assert.Equal(t, "newer-token", tok)

	// delete
	require.NoError(t, s.DeleteToken())
	tok, _ = s.LoadToken()
	assert.Empty(t, tok)

	// deleting again is fine
	assert.NoError(t, s.DeleteToken())
}

func TestStore_preferences(t *testing.T) {
	s := openTestStore(t)

	// empty store falls back to defaults
	prefs, err := s.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, session.Preferences{}, prefs)

	require.NoError(t, s.SavePreferences(session.Preferences{DarkMode: true}))
	prefs, err = s.LoadPreferences()
	require.NoError(t, err)
	assert.True(t, prefs.DarkMode)

	require.NoError(t, s.SavePreferences(session.Preferences{}))
	prefs, _ = s.LoadPreferences()
	assert.False(t, prefs.DarkMode)
}

// state survives a close/reopen cycle, the whole point of the store
func TestStore_reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveToken("jwt-token"))
	require.NoError(t, s.SavePreferences(session.Preferences{DarkMode: true}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err, "reopen")
	defer s.Close()

	tok, err := s.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", tok)

	prefs, err := s.LoadPreferences()
	require.NoError(t, err)
	assert.True(t, prefs.DarkMode)
}
