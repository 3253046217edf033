package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestStore(t *testing.T) *FileTokenStore {
	t.Helper()
	store, err := NewFileTokenStore(filepath.Join(t.TempDir(), "nested", "ticktick.token"))
	require.NoError(t, err)
	return store
}

func TestFileTokenStore_MissingFile(t *testing.T) {
	store := newTestStore(t)

	token, err := store.LoadToken()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.False(t, store.HasToken())
}

func TestFileTokenStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveToken(&oauth2.Token{
		AccessToken: "abc123",
		TokenType:   "bearer",
		Expiry:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	token, err := store.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	assert.True(t, store.HasToken())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileTokenStore_Overwrite(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveToken(&oauth2.Token{AccessToken: "first"}))
	require.NoError(t, store.SaveToken(&oauth2.Token{AccessToken: "second"}))

	token, err := store.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "second", token)
}

func TestFileTokenStore_ExpiredToken(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.SaveToken(&oauth2.Token{
		AccessToken: "stale",
		Expiry:      now.Add(-time.Second),
	}))

	token, err := store.LoadToken()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.False(t, store.HasToken())

	full, err := store.Token()
	require.NoError(t, err)
	require.NotNil(t, full)
	assert.Equal(t, "stale", full.AccessToken)
}

func TestFileTokenStore_NoExpiry(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveToken(&oauth2.Token{AccessToken: "forever"}))

	token, err := store.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "forever", token)
}

func TestFileTokenStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("not json"), 0o600))

	_, err := store.LoadToken()
	assert.Error(t, err)
}

func TestFileTokenStore_RejectsEmptyToken(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.SaveToken(nil))
	assert.Error(t, store.SaveToken(&oauth2.Token{}))
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestNewFileTokenStore_DefaultPath(t *testing.T) {
	store, err := NewFileTokenStore("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenPath(), store.Path())
	assert.Equal(t, "ticktick.token", filepath.Base(store.Path()))
	assert.Equal(t, "tickmcp", filepath.Base(filepath.Dir(store.Path())))
}

func TestStaticToken(t *testing.T) {
	token, err := StaticToken("fixed").LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "fixed", token)

	assert.ErrorIs(t, StaticToken("fixed").SaveToken(&oauth2.Token{AccessToken: "x"}), ErrReadOnly)
}

func TestChain(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveToken(&oauth2.Token{AccessToken: "stored"}))

	tests := []struct {
		name  string
		chain Chain
		want  string
	}{
		{"static wins", Chain{StaticToken("flag"), store}, "flag"},
		{"empty static falls through", Chain{StaticToken(""), store}, "stored"},
		{"nil loaders skipped", Chain{nil, store}, "stored"},
		{"nothing available", Chain{StaticToken("")}, ""},
		{"empty chain", Chain{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.chain.LoadToken()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChain_PropagatesErrors(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{"), 0o600))

	_, err := Chain{StaticToken(""), store}.LoadToken()
	assert.Error(t, err)
}
