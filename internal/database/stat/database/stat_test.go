package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bloops-games/joustparty/internal/cache"
	"github.com/bloops-games/joustparty/internal/database"
	"github.com/bloops-games/joustparty/internal/database/stat/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.New(ctx, &database.Config{FilePath: filepath.Join(t.TempDir(), "stats.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx) })

	c, err := cache.NewARC[string, []model.Stat](8)
	require.NoError(t, err)
	return New(db, c)
}

func round(mode string, d time.Duration, conclusions map[string]model.Conclusion) []model.Stat {
	id := uuid.New()
	stats := make([]model.Stat, 0, len(conclusions))
	for addr, c := range conclusions {
		stats = append(stats, model.Stat{
			RoundID:    id,
			Address:    addr,
			Mode:       mode,
			Conclusion: c,
			PlayersNum: len(conclusions),
			Duration:   d,
			CreatedAt:  time.Now(),
		})
	}
	return stats
}

func TestProfileStat(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	require.NoError(t, db.Add(round("ffa", time.Minute, map[string]model.Conclusion{
		"AA": model.ConclusionWon,
		"BB": model.ConclusionOut,
	})...))

	// warm the cache, the next Add has to drop it
	_, err := db.FetchByAddress("AA")
	require.NoError(t, err)

	require.NoError(t, db.Add(round("zombie", 3*time.Minute, map[string]model.Conclusion{
		"AA": model.ConclusionOut,
		"BB": model.ConclusionWon,
	})...))
	require.NoError(t, db.Add(round("ffa", 2*time.Minute, map[string]model.Conclusion{
		"AA": model.ConclusionInterrupted,
	})...))

	profile, err := db.FetchProfileStat("AA")
	require.NoError(t, err)
	assert.Equal(t, 3, profile.Count)
	assert.Equal(t, 1, profile.Wins)
	assert.Equal(t, 1, profile.Outs)
	assert.Equal(t, 1, profile.Interrupted)
	assert.Equal(t, map[string]int{"ffa": 2, "zombie": 1}, profile.Modes)
	assert.Equal(t, 3*time.Minute, profile.LongestRound)
	assert.Equal(t, 2*time.Minute, profile.AvgDuration)

	profile, err = db.FetchProfileStat("BB")
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Count)
}

func TestUnknownAddress(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	_, err := db.FetchProfileStat("ZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}
