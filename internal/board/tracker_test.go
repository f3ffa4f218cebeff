package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltawatch/internal/scope"
)

func names(cs []Change, added bool) []string {
	var out []string
	for _, c := range cs {
		if c.Added == added {
			out = append(out, string(c.Kind)+":"+c.Name)
		}
	}
	return out
}

func TestTrackerFirstPollAnnouncesTrackedOnly(t *testing.T) {
	tr := NewTracker()
	got := tr.Observe(scope.Lists{Bull: items("A"), Bear: items("B"), Neut: items("N")}, DirectionAll)

	assert.Equal(t, []string{"bull:A", "bear:B"}, names(got, true))
	assert.Empty(t, names(got, false))
	assert.False(t, tr.Announced("N"))
}

func TestTrackerAnnouncesOnce(t *testing.T) {
	tr := NewTracker()
	tr.Observe(scope.Lists{Bull: items("A")}, DirectionAll)

	got := tr.Observe(scope.Lists{Bull: items("A", "C")}, DirectionAll)
	assert.Equal(t, []string{"bull:C"}, names(got, true))

	// A leaves then returns: removal is reported, return is not re-announced.
	got = tr.Observe(scope.Lists{Bull: items("C")}, DirectionAll)
	assert.Equal(t, []string{"bull:A"}, names(got, false))
	got = tr.Observe(scope.Lists{Bull: items("A", "C")}, DirectionAll)
	assert.Empty(t, got)
}

func TestTrackerBullWinsWhenOnBothLists(t *testing.T) {
	tr := NewTracker()
	got := tr.Observe(scope.Lists{Bull: items("A"), Bear: items("A")}, DirectionAll)
	assert.Equal(t, []string{"bull:A"}, names(got, true))
}

func TestTrackerRespectsDirection(t *testing.T) {
	tr := NewTracker()
	got := tr.Observe(scope.Lists{Bull: items("A"), Bear: items("B")}, DirectionBull)
	assert.Equal(t, []string{"bull:A"}, names(got, true))
	assert.False(t, tr.Announced("B"))

	// switching to bear: B is new to the user, A is not reported as removed
	got = tr.Observe(scope.Lists{Bull: items("A"), Bear: items("B")}, DirectionBear)
	assert.Equal(t, []string{"bear:B"}, names(got, true))
	assert.Empty(t, names(got, false))

	// back to all: nothing re-announced
	got = tr.Observe(scope.Lists{Bull: items("A"), Bear: items("B")}, DirectionAll)
	assert.Empty(t, got)
}

func TestTrackerRemovalCarriesLastItem(t *testing.T) {
	tr := NewTracker()
	tr.Observe(scope.Lists{Bear: []scope.Item{{Name: "X", Score: 77, Msg: "dump"}}}, DirectionAll)
	got := tr.Observe(scope.Lists{}, DirectionAll)

	require.Len(t, got, 1)
	assert.False(t, got[0].Added)
	assert.Equal(t, KindBear, got[0].Kind)
	assert.Equal(t, "dump", got[0].Item.Msg)
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.Observe(scope.Lists{Bull: items("A")}, DirectionAll)
	tr.Reset()
	assert.False(t, tr.Announced("A"))

	got := tr.Observe(scope.Lists{Bull: items("A")}, DirectionAll)
	assert.Equal(t, []string{"bull:A"}, names(got, true))
}
