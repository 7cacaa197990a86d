package maze

// Oracle answers whether end can be reached from start by moving between
// orthogonally adjacent open cells.
type Oracle interface {
	IsReachable(grid [][]int, start, end Cell) bool
}

// BFS is the default Oracle: a breadth-first flood fill from start.
type BFS struct{}

var steps = [4]Cell{{X: 0, Z: 1}, {X: 1, Z: 0}, {X: 0, Z: -1}, {X: -1, Z: 0}}

func (BFS) IsReachable(grid [][]int, start, end Cell) bool {
	if !open(grid, start) || !open(grid, end) {
		return false
	}
	if start == end {
		return true
	}

	visited := make([][]bool, len(grid))
	for i := range grid {
		visited[i] = make([]bool, len(grid[i]))
	}
	visited[start.Z][start.X] = true
	queue := []Cell{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range steps {
			next := Cell{X: cur.X + d.X, Z: cur.Z + d.Z}
			if !open(grid, next) || visited[next.Z][next.X] {
				continue
			}
			if next == end {
				return true
			}
			visited[next.Z][next.X] = true
			queue = append(queue, next)
		}
	}
	return false
}

func open(grid [][]int, c Cell) bool {
	if c.Z < 0 || c.Z >= len(grid) || c.X < 0 || c.X >= len(grid[c.Z]) {
		return false
	}
	return grid[c.Z][c.X] == Open
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(grid [][]int, start, end Cell) bool

func (f OracleFunc) IsReachable(grid [][]int, start, end Cell) bool {
	return f(grid, start, end)
}
