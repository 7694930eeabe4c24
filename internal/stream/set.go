package stream

import "sort"

// Set is an immutable set of device addresses.
type Set struct {
	m map[string]struct{}
}

func NewSet(items ...string) Set {
	m := make(map[string]struct{}, len(items))
	for _, item := range items {
		m[item] = struct{}{}
	}
	return Set{m: m}
}

func (s Set) Has(item string) bool {
	_, ok := s.m[item]
	return ok
}

func (s Set) Len() int {
	return len(s.m)
}

// Items returns the members in ascending order.
func (s Set) Items() []string {
	items := make([]string, 0, len(s.m))
	for item := range s.m {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// Minus returns the members of s absent from other.
func (s Set) Minus(other Set) Set {
	m := map[string]struct{}{}
	for item := range s.m {
		if !other.Has(item) {
			m[item] = struct{}{}
		}
	}
	return Set{m: m}
}

func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for item := range s.m {
		if !other.Has(item) {
			return false
		}
	}
	return true
}

// Differ turns a sequence of snapshots into added/removed deltas. The first snapshot is
// compared against the empty set.
type Differ struct {
	prev Set
}

func (d *Differ) Next(curr Set) (added, removed Set) {
	added = curr.Minus(d.prev)
	removed = d.prev.Minus(curr)
	d.prev = curr
	return added, removed
}

// Removed runs a Differ over snapshots and keeps only the non-empty removals.
func Removed(snapshots []Set) []Set {
	var (
		d   Differ
		out []Set
	)
	for _, snap := range snapshots {
		if _, removed := d.Next(snap); removed.Len() > 0 {
			out = append(out, removed)
		}
	}
	return out
}
