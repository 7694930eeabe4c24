// Package strpool recycles the builders used to render console output.
package strpool

import (
	"strings"
	"sync"
)

var pool = sync.Pool{
	New: func() any {
		return &strings.Builder{}
	},
}

func Get() *strings.Builder {
	return pool.Get().(*strings.Builder)
}

// Put resets b and returns it to the pool.
func Put(b *strings.Builder) {
	b.Reset()
	pool.Put(b)
}

// Render runs fn with a pooled builder and returns what it wrote.
func Render(fn func(b *strings.Builder)) string {
	b := Get()
	defer Put(b)
	fn(b)
	return b.String()
}
