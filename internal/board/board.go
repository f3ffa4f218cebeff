// Package board turns delta-scope results into filtered sections and tracks
// list membership between polls.
package board

import (
	"fmt"
	"sort"
	"strings"

	"deltawatch/internal/scope"
)

type Kind string

const (
	KindBull Kind = "bull"
	KindBear Kind = "bear"
	KindNeut Kind = "neut"
)

// Tracked are the lists whose membership changes raise alerts, in priority order.
var Tracked = []Kind{KindBull, KindBear}

type Direction string

const (
	DirectionAll  Direction = "all"
	DirectionBull Direction = "bull"
	DirectionBear Direction = "bear"
)

// ParseDirection accepts all, bull or bear (case-insensitive). Empty means all.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DirectionAll, nil
	case DirectionAll, DirectionBull, DirectionBear:
		return d, nil
	default:
		return "", fmt.Errorf("invalid direction %q (want all, bull or bear)", s)
	}
}

// Includes reports whether a list of the given kind is shown under d.
// The neutral list is always shown.
func (d Direction) Includes(k Kind) bool {
	switch k {
	case KindNeut:
		return true
	case KindBull, KindBear:
		return d == DirectionAll || d == "" || Kind(d) == k
	}
	return false
}

func itemsOf(l scope.Lists, k Kind) []scope.Item {
	switch k {
	case KindBull:
		return l.Bull
	case KindBear:
		return l.Bear
	case KindNeut:
		return l.Neut
	}
	return nil
}

var titles = map[Kind]string{
	KindBull: "Bull anomalies",
	KindBear: "Bear anomalies",
	KindNeut: "Awaiting breakout",
}

// Entry is a board item with its trend series padded for display.
type Entry struct {
	scope.Item
	Hot         bool      `json:"hot"`
	Trend       []float64 `json:"trend"`
	TrendLabels []string  `json:"trend_labels"`
}

type Section struct {
	Kind  Kind    `json:"kind"`
	Title string  `json:"title"`
	Items []Entry `json:"items"`
}

// Empty reports whether the section has nothing to show.
func (s Section) Empty() bool { return len(s.Items) == 0 }

type Board struct {
	Meta      string          `json:"meta"`
	User      string          `json:"user,omitempty"`
	Timestamp string          `json:"timestamp"`
	Direction Direction       `json:"direction"`
	Key       scope.KeyStatus `json:"key"`
	Sections  []Section       `json:"sections"`
}

// Build lays out the result as bull, bear and neutral sections, dropping the
// directional sections excluded by dir.
func Build(res scope.Result, dir Direction) Board {
	b := Board{
		User:      res.User,
		Timestamp: res.Timestamp,
		Direction: dir,
		Key:       res.KeyStatus(),
	}
	if res.User != "" {
		b.Meta = fmt.Sprintf("VIP (%s) | updated: %s", res.User, res.Timestamp)
	} else {
		b.Meta = "Guest | updated: " + res.Timestamp
	}
	for _, k := range []Kind{KindBull, KindBear, KindNeut} {
		if !dir.Includes(k) {
			continue
		}
		items := itemsOf(res.Data, k)
		sec := Section{Kind: k, Title: titles[k], Items: make([]Entry, 0, len(items))}
		for _, it := range items {
			trend := it.TrendOrZero()
			sec.Items = append(sec.Items, Entry{Item: it, Hot: it.Hot(), Trend: trend, TrendLabels: scope.TrendLabels(len(trend))})
		}
		b.Sections = append(b.Sections, sec)
	}
	return b
}

// Names returns the distinct item names in order of first appearance.
func Names(items []scope.Item) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.Name]; ok || it.Name == "" {
			continue
		}
		seen[it.Name] = struct{}{}
		out = append(out, it.Name)
	}
	return out
}

type Diff struct {
	Added   map[Kind][]string `json:"added"`
	Removed map[Kind][]string `json:"removed"`
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	for _, k := range Tracked {
		if len(d.Added[k]) > 0 || len(d.Removed[k]) > 0 {
			return false
		}
	}
	return true
}

// Compare returns, per tracked list, the names present in curr but not prev
// and vice versa. Names are sorted.
func Compare(prev, curr scope.Lists) Diff {
	d := Diff{Added: map[Kind][]string{}, Removed: map[Kind][]string{}}
	for _, k := range Tracked {
		p := Names(itemsOf(prev, k))
		c := Names(itemsOf(curr, k))
		if a := minus(c, p); len(a) > 0 {
			d.Added[k] = a
		}
		if r := minus(p, c); len(r) > 0 {
			d.Removed[k] = r
		}
	}
	return d
}

func minus(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; !ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
