package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID    string
	Group string
}

func TestIndexBy(t *testing.T) {
	rows := []row{{ID: "a"}, {ID: "b"}, {ID: "a", Group: "last-wins"}}

	indexed := IndexBy(rows, func(r row) string { return r.ID })

	require.Len(t, indexed, 2)
	assert.Equal(t, "last-wins", indexed["a"].Group)
}

func TestGroupByOrderedPreservesFirstSeenOrder(t *testing.T) {
	rows := []row{
		{ID: "1", Group: "b"},
		{ID: "2", Group: "a"},
		{ID: "3", Group: "b"},
		{ID: "4", Group: "c"},
	}

	groups, order := GroupByOrdered(rows, func(r row) string { return r.Group })

	assert.Equal(t, []string{"b", "a", "c"}, order)
	require.Len(t, groups["b"], 2)
	assert.Equal(t, "1", groups["b"][0].ID)
	assert.Equal(t, "3", groups["b"][1].ID)
}
