// Package maze holds the coordinator's view of a maze: the payload a host
// generated, the conversion from world coordinates to grid cells, and the
// reachability check that guards live edits.
package maze

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const (
	Open = 0
	Wall = 1
)

var (
	ErrInvalidPayload = errors.New("invalid maze payload")
	ErrOutOfBounds    = errors.New("cell outside the maze")
)

// Position is a point in world space. Only the ground plane matters.
type Position struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Cell addresses grid[Z][X].
type Cell struct {
	X int
	Z int
}

// Payload is a validated maze as sent by the host. The original bytes are
// kept so every recipient gets exactly what the host sent.
type Payload struct {
	Grid     [][]int
	Start    Position
	End      Position
	CellSize float64

	raw json.RawMessage
}

type wirePayload struct {
	Maze          [][]int   `json:"maze"`
	StartPosition *Position `json:"startPosition"`
	EndPosition   *Position `json:"endPosition"`
	CellSize      float64   `json:"cellSize"`
}

// Parse decodes and validates a maze payload. The grid must be a non-empty
// rectangle of 0/1 cells, the cell size positive, and the start and end
// positions must fall inside the grid.
func Parse(raw json.RawMessage) (*Payload, error) {
	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if w.StartPosition == nil || w.EndPosition == nil {
		return nil, fmt.Errorf("%w: missing start or end position", ErrInvalidPayload)
	}
	if w.CellSize <= 0 || math.IsInf(w.CellSize, 0) || math.IsNaN(w.CellSize) {
		return nil, fmt.Errorf("%w: cellSize must be positive", ErrInvalidPayload)
	}
	if err := validateGrid(w.Maze); err != nil {
		return nil, err
	}

	p := &Payload{
		Grid:     w.Maze,
		Start:    *w.StartPosition,
		End:      *w.EndPosition,
		CellSize: w.CellSize,
		raw:      append(json.RawMessage(nil), raw...),
	}
	if _, ok := p.CellAt(p.Start.X, p.Start.Z); !ok {
		return nil, fmt.Errorf("%w: start position outside the grid", ErrInvalidPayload)
	}
	if _, ok := p.CellAt(p.End.X, p.End.Z); !ok {
		return nil, fmt.Errorf("%w: end position outside the grid", ErrInvalidPayload)
	}
	return p, nil
}

func validateGrid(grid [][]int) error {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return fmt.Errorf("%w: empty grid", ErrInvalidPayload)
	}
	width := len(grid[0])
	for z, row := range grid {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidPayload, z, len(row), width)
		}
		for x, v := range row {
			if v != Open && v != Wall {
				return fmt.Errorf("%w: cell (%d,%d) = %d", ErrInvalidPayload, x, z, v)
			}
		}
	}
	return nil
}

// Raw returns the payload bytes to broadcast.
func (p *Payload) Raw() json.RawMessage {
	return p.raw
}

func (p *Payload) Width() int  { return len(p.Grid[0]) }
func (p *Payload) Height() int { return len(p.Grid) }

// CellAt converts world coordinates to the nearest grid cell.
func (p *Payload) CellAt(x, z float64) (Cell, bool) {
	fx := math.Round(x / p.CellSize)
	fz := math.Round(z / p.CellSize)
	if math.IsNaN(fx) || math.IsNaN(fz) {
		return Cell{}, false
	}
	if fx < 0 || fz < 0 || fx >= float64(p.Width()) || fz >= float64(p.Height()) {
		return Cell{}, false
	}
	return Cell{X: int(fx), Z: int(fz)}, true
}

func (p *Payload) StartCell() Cell {
	c, _ := p.CellAt(p.Start.X, p.Start.Z)
	return c
}

func (p *Payload) EndCell() Cell {
	c, _ := p.CellAt(p.End.X, p.End.Z)
	return c
}

// WithCell returns a copy of the payload with one cell changed. The receiver
// is not modified. Fields of the original payload that the coordinator does
// not interpret are carried over.
func (p *Payload) WithCell(c Cell, v int) (*Payload, error) {
	if c.Z < 0 || c.Z >= p.Height() || c.X < 0 || c.X >= p.Width() {
		return nil, ErrOutOfBounds
	}
	if v != Open && v != Wall {
		return nil, fmt.Errorf("%w: cell value %d", ErrInvalidPayload, v)
	}

	grid := CloneGrid(p.Grid)
	grid[c.Z][c.X] = v

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(p.raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	encoded, err := json.Marshal(grid)
	if err != nil {
		return nil, err
	}
	fields["maze"] = encoded
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	return &Payload{
		Grid:     grid,
		Start:    p.Start,
		End:      p.End,
		CellSize: p.CellSize,
		raw:      raw,
	}, nil
}

func CloneGrid(grid [][]int) [][]int {
	out := make([][]int, len(grid))
	for i, row := range grid {
		out[i] = append([]int(nil), row...)
	}
	return out
}
