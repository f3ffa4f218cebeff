package board

import (
	"sort"
	"sync"

	"deltawatch/internal/scope"
)

// Change is a membership change in one of the tracked lists.
type Change struct {
	Kind  Kind       `json:"kind"`
	Name  string     `json:"name"`
	Added bool       `json:"added"`
	Item  scope.Item `json:"item"`
}

// Tracker remembers which names were already announced and what the
// tracked lists looked like on the previous poll.
//
// A name is announced as added at most once per tracker lifetime; it stays
// announced after leaving the board, so flapping names do not re-alert.
// Removals are reported against the previous poll of the same visible list.
type Tracker struct {
	mu        sync.Mutex
	announced map[string]struct{}
	prev      map[Kind]map[string]scope.Item
}

func NewTracker() *Tracker {
	return &Tracker{
		announced: make(map[string]struct{}),
		prev:      make(map[Kind]map[string]scope.Item),
	}
}

// Observe records a poll result seen under dir and returns the changes.
// Additions come first in board order (bull before bear), then removals.
func (t *Tracker) Observe(l scope.Lists, dir Direction) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	var added, removed []Change
	curr := make(map[Kind]map[string]scope.Item, len(Tracked))
	for _, k := range Tracked {
		if !dir.Includes(k) {
			continue
		}
		m := make(map[string]scope.Item)
		for _, it := range itemsOf(l, k) {
			if it.Name == "" {
				continue
			}
			if _, dup := m[it.Name]; !dup {
				m[it.Name] = it
			}
			// a name on both lists is classified by the first tracked list
			if _, ok := t.announced[it.Name]; ok {
				continue
			}
			t.announced[it.Name] = struct{}{}
			added = append(added, Change{Kind: k, Name: it.Name, Added: true, Item: it})
		}
		curr[k] = m
	}

	for _, k := range Tracked {
		p, hadPrev := t.prev[k]
		c, hasCurr := curr[k]
		if !hadPrev || !hasCurr {
			continue
		}
		for _, name := range sortedKeys(p) {
			if _, still := c[name]; !still {
				removed = append(removed, Change{Kind: k, Name: name, Added: false, Item: p[name]})
			}
		}
	}
	t.prev = curr
	return append(added, removed...)
}

// Announced reports whether name has already produced an addition.
func (t *Tracker) Announced(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.announced[name]
	return ok
}

// Reset forgets all history.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.announced = make(map[string]struct{})
	t.prev = make(map[Kind]map[string]scope.Item)
	t.mu.Unlock()
}

func sortedKeys(m map[string]scope.Item) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
