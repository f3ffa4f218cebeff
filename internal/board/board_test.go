package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltawatch/internal/scope"
)

func items(names ...string) []scope.Item {
	out := make([]scope.Item, 0, len(names))
	for _, n := range names {
		out = append(out, scope.Item{Name: n, Score: 50})
	}
	return out
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": DirectionAll, "ALL": DirectionAll, " bull ": DirectionBull, "bear": DirectionBear} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

func TestDirectionIncludes(t *testing.T) {
	assert.True(t, DirectionAll.Includes(KindBull))
	assert.True(t, DirectionAll.Includes(KindBear))
	assert.True(t, DirectionBull.Includes(KindNeut))
	assert.True(t, DirectionBear.Includes(KindNeut))
	assert.False(t, DirectionBull.Includes(KindBear))
	assert.False(t, DirectionBear.Includes(KindBull))
}

func TestBuildFiltersSections(t *testing.T) {
	res := scope.Result{
		Type:      scope.TierPremium,
		User:      "bob",
		Timestamp: "12:00",
		Data: scope.Lists{
			Bull: []scope.Item{{Name: "A", Score: 85, Trend: []float64{1, 2, 3}}},
			Bear: items("B"),
		},
	}

	all := Build(res, DirectionAll)
	require.Len(t, all.Sections, 3)
	assert.Equal(t, KindBull, all.Sections[0].Kind)
	assert.True(t, all.Sections[0].Items[0].Hot)
	assert.Equal(t, KindBear, all.Sections[1].Kind)
	assert.False(t, all.Sections[1].Items[0].Hot)
	assert.Equal(t, []float64{1, 2, 3}, all.Sections[0].Items[0].Trend)
	assert.Equal(t, []string{"-10m", "-5m", "Now"}, all.Sections[0].Items[0].TrendLabels)
	assert.Equal(t, []float64{0}, all.Sections[1].Items[0].Trend)
	assert.Equal(t, []string{"Now"}, all.Sections[1].Items[0].TrendLabels)
	assert.True(t, all.Sections[2].Empty())
	assert.Equal(t, "VIP (bob) | updated: 12:00", all.Meta)

	bear := Build(scope.Result{Timestamp: "t", Data: res.Data}, DirectionBear)
	require.Len(t, bear.Sections, 2)
	assert.Equal(t, KindBear, bear.Sections[0].Kind)
	assert.Equal(t, KindNeut, bear.Sections[1].Kind)
	assert.Equal(t, "Guest | updated: t", bear.Meta)
}

func TestNamesDedupes(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, Names(items("A", "B", "A", "")))
}

func TestCompare(t *testing.T) {
	prev := scope.Lists{Bull: items("A", "B"), Bear: items("X"), Neut: items("N1")}
	curr := scope.Lists{Bull: items("C", "B", "A"), Bear: nil, Neut: items("N2")}

	d := Compare(prev, curr)
	assert.Equal(t, []string{"C"}, d.Added[KindBull])
	assert.Empty(t, d.Removed[KindBull])
	assert.Equal(t, []string{"X"}, d.Removed[KindBear])
	assert.NotContains(t, d.Added, KindNeut)
	assert.False(t, d.Empty())

	assert.True(t, Compare(curr, curr).Empty())
}
