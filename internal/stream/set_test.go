package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoved(t *testing.T) {
	t.Parallel()

	snapshots := []Set{
		NewSet("A", "B"),
		NewSet("A", "B", "C"),
		NewSet("B", "C"),
		NewSet("C", "D"),
		NewSet(),
		NewSet("A"),
	}

	removed := Removed(snapshots)
	require.Len(t, removed, 3)
	assert.Equal(t, []string{"A"}, removed[0].Items())
	assert.Equal(t, []string{"B"}, removed[1].Items())
	assert.Equal(t, []string{"C", "D"}, removed[2].Items())
}

func TestDifferAdded(t *testing.T) {
	t.Parallel()

	var d Differ
	added, removed := d.Next(NewSet("A", "B"))
	assert.Equal(t, []string{"A", "B"}, added.Items())
	assert.Zero(t, removed.Len())

	added, removed = d.Next(NewSet("B", "C"))
	assert.Equal(t, []string{"C"}, added.Items())
	assert.Equal(t, []string{"A"}, removed.Items())

	added, removed = d.Next(NewSet("B", "C"))
	assert.Zero(t, added.Len())
	assert.Zero(t, removed.Len())
}

func TestSetEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, NewSet("A", "B").Equal(NewSet("B", "A")))
	assert.False(t, NewSet("A").Equal(NewSet("A", "B")))
	assert.True(t, Set{}.Equal(NewSet()))
}
