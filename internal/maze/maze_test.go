package maze

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 5x5 maze with a single corridor from (1,0) down to (1,4):
//
//	1 0 1 1 1
//	1 0 1 1 1
//	1 0 0 0 1
//	1 1 1 0 1
//	1 1 1 0 1
const corridor = `{"maze":[[1,0,1,1,1],[1,0,1,1,1],[1,0,0,0,1],[1,1,1,0,1],[1,1,1,0,1]],"startPosition":{"x":3,"z":0},"endPosition":{"x":9,"z":12},"cellSize":3,"wallHeight":5}`

func TestParse_Valid(t *testing.T) {
	p, err := Parse(json.RawMessage(corridor))
	require.NoError(t, err)

	assert.Equal(t, 5, p.Width())
	assert.Equal(t, 5, p.Height())
	assert.Equal(t, Cell{X: 1, Z: 0}, p.StartCell())
	assert.Equal(t, Cell{X: 3, Z: 4}, p.EndCell())
	assert.JSONEq(t, corridor, string(p.Raw()))
	assert.Equal(t, corridor, string(p.Raw()), "raw bytes must be kept verbatim")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"maze":`},
		{"not an object", `[1,2,3]`},
		{"empty grid", `{"maze":[],"startPosition":{"x":0,"z":0},"endPosition":{"x":0,"z":0},"cellSize":1}`},
		{"ragged grid", `{"maze":[[0,0],[0]],"startPosition":{"x":0,"z":0},"endPosition":{"x":0,"z":0},"cellSize":1}`},
		{"bad cell value", `{"maze":[[0,2]],"startPosition":{"x":0,"z":0},"endPosition":{"x":0,"z":0},"cellSize":1}`},
		{"zero cell size", `{"maze":[[0,0]],"startPosition":{"x":0,"z":0},"endPosition":{"x":1,"z":0},"cellSize":0}`},
		{"missing start", `{"maze":[[0,0]],"endPosition":{"x":1,"z":0},"cellSize":1}`},
		{"start out of bounds", `{"maze":[[0,0]],"startPosition":{"x":-5,"z":0},"endPosition":{"x":1,"z":0},"cellSize":1}`},
		{"end out of bounds", `{"maze":[[0,0]],"startPosition":{"x":0,"z":0},"endPosition":{"x":1,"z":7},"cellSize":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestCellAt(t *testing.T) {
	p, err := Parse(json.RawMessage(corridor))
	require.NoError(t, err)

	c, ok := p.CellAt(6.2, 5.9)
	require.True(t, ok)
	assert.Equal(t, Cell{X: 2, Z: 2}, c)

	c, ok = p.CellAt(0, 0)
	require.True(t, ok)
	assert.Equal(t, Cell{X: 0, Z: 0}, c)

	_, ok = p.CellAt(-3, 0)
	assert.False(t, ok)
	_, ok = p.CellAt(15, 0)
	assert.False(t, ok)
	_, ok = p.CellAt(0, 14)
	assert.False(t, ok)
}

func TestWithCell_ChangesExactlyOneCell(t *testing.T) {
	p, err := Parse(json.RawMessage(corridor))
	require.NoError(t, err)

	edited, err := p.WithCell(Cell{X: 4, Z: 0}, Open)
	require.NoError(t, err)

	assert.Equal(t, Wall, p.Grid[0][4], "original must not change")
	assert.Equal(t, Open, edited.Grid[0][4])

	for z := range p.Grid {
		for x := range p.Grid[z] {
			if x == 4 && z == 0 {
				continue
			}
			assert.Equal(t, p.Grid[z][x], edited.Grid[z][x], "cell (%d,%d)", x, z)
		}
	}

	var fields map[string]any
	require.NoError(t, json.Unmarshal(edited.Raw(), &fields))
	assert.EqualValues(t, 5, fields["wallHeight"], "unknown fields are carried over")

	reparsed, err := Parse(edited.Raw())
	require.NoError(t, err)
	assert.Equal(t, edited.Grid, reparsed.Grid)
}

func TestWithCell_OutOfBounds(t *testing.T) {
	p, err := Parse(json.RawMessage(corridor))
	require.NoError(t, err)

	_, err = p.WithCell(Cell{X: 5, Z: 0}, Wall)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestBFS_IsReachable(t *testing.T) {
	p, err := Parse(json.RawMessage(corridor))
	require.NoError(t, err)

	var oracle Oracle = BFS{}
	assert.True(t, oracle.IsReachable(p.Grid, p.StartCell(), p.EndCell()))

	blocked := CloneGrid(p.Grid)
	blocked[2][2] = Wall
	assert.False(t, oracle.IsReachable(blocked, p.StartCell(), p.EndCell()))

	walledStart := CloneGrid(p.Grid)
	walledStart[0][1] = Wall
	assert.False(t, oracle.IsReachable(walledStart, p.StartCell(), p.EndCell()))

	assert.True(t, oracle.IsReachable(p.Grid, Cell{X: 1, Z: 1}, Cell{X: 1, Z: 1}))
	assert.False(t, oracle.IsReachable(p.Grid, Cell{X: -1, Z: 0}, p.EndCell()))
}

func TestOracleFunc(t *testing.T) {
	called := false
	var o Oracle = OracleFunc(func(grid [][]int, start, end Cell) bool {
		called = true
		return false
	})
	assert.False(t, o.IsReachable(nil, Cell{}, Cell{}))
	assert.True(t, called)
}
