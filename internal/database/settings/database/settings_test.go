package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bloops-games/joustparty/internal/cache"
	"github.com/bloops-games/joustparty/internal/database"
	"github.com/bloops-games/joustparty/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.New(ctx, &database.Config{FilePath: filepath.Join(t.TempDir(), "settings.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx) })
	return db
}

func TestFetchDefaults(t *testing.T) {
	t.Parallel()

	db := New(newDB(t), nil)
	values, err := db.Fetch()
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), values)
}

func TestSensitivityPersists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sDB := newDB(t)
	c, err := cache.NewARC[string, settings.Values](4)
	require.NoError(t, err)

	db := New(sDB, c)
	require.NoError(t, db.SetSensitivity(ctx, settings.VeryHigh))
	assert.Error(t, db.SetSensitivity(ctx, 0))

	// a second store without the cache reads from bolt
	s, err := New(sDB, nil).Sensitivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.VeryHigh, s)
}
