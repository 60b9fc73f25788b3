package quad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowGetOutOfRangeIsUnbound(t *testing.T) {
	row := Row{BoundCell(5)}
	assert.Equal(t, BoundCell(5), row.Get(0))
	assert.Equal(t, UnboundCell, row.Get(1))
	assert.Equal(t, UnboundCell, row.Get(-1))
}

func TestRowCloneIsIndependent(t *testing.T) {
	row := Row{BoundCell(1), BoundCell(2)}
	clone := row.Clone()
	clone[0] = BoundCell(99)
	assert.Equal(t, BoundCell(1), row[0])
	assert.Equal(t, BoundCell(99), clone[0])
}

func TestBindingTableVarIndex(t *testing.T) {
	bt := &BindingTable{Vars: []string{"s", "p", "o"}}
	assert.Equal(t, 0, bt.VarIndex("s"))
	assert.Equal(t, 2, bt.VarIndex("o"))
	assert.Equal(t, -1, bt.VarIndex("missing"))
}

func TestBindingTableEmpty(t *testing.T) {
	assert.True(t, (&BindingTable{}).Empty())
	assert.False(t, (&BindingTable{Rows: []Row{{}}}).Empty())
}

func TestIdentityTable(t *testing.T) {
	id := IdentityTable()
	assert.Empty(t, id.Vars)
	assert.Len(t, id.Rows, 1)
	assert.False(t, id.Empty())
}
