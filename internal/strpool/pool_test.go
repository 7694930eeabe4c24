package strpool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	t.Parallel()

	out := Render(func(b *strings.Builder) {
		b.WriteString("state: ")
		b.WriteString("lobby")
	})
	assert.Equal(t, "state: lobby", out)

	b := Get()
	assert.Zero(t, b.Len())
	Put(b)
}
