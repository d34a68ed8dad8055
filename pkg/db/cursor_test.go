package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tweetvault/tweetvault/pkg/model"
)

var testCtx = context.Background()

func TestCursorStore_GetUnset(t *testing.T) {
	store, err := NewCursorStore(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(testCtx)
	assert.Equal(t, model.ErrNotFound, err)
}

func TestCursorStore_SetGet(t *testing.T) {
	store, err := NewCursorStore(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(testCtx, "1596530490474737666"))

	id, err := store.Get(testCtx)
	assert.NoError(t, err)
	assert.Equal(t, "1596530490474737666", id)

	// Overwrite
	require.NoError(t, store.Set(testCtx, "1596530490474737999"))

	id, err = store.Get(testCtx)
	assert.NoError(t, err)
	assert.Equal(t, "1596530490474737999", id)
}

func TestCursorStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewCursorStore(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, store.Set(testCtx, "100"))
	require.NoError(t, store.Close())

	store, err = NewCursorStore(Config{Dir: dir})
	require.NoError(t, err)
	defer store.Close()

	id, err := store.Get(testCtx)
	assert.NoError(t, err)
	assert.Equal(t, "100", id)
}
