// apps/go-server/internal/hexgrid/hexgrid.go
//
// Hexagonal adjacency over a rectangular row/column index space.
// Odd rows are shifted half a tile to the right, so the two diagonal
// neighbours above and below a tile depend on the row's parity:
//
//	even row r: (r±1, c-1) and (r±1, c)
//	odd  row r: (r±1, c)   and (r±1, c+1)
//
// Left and right neighbours are always (r, c-1) and (r, c+1).
package hexgrid

// Pos addresses a single tile.
type Pos struct {
	R int `json:"r"`
	C int `json:"c"`
}

// Grid is a fixed Rows x Cols board.
type Grid struct {
	Rows int
	Cols int
}

var (
	evenOffsets = [6][2]int{{0, -1}, {0, 1}, {-1, -1}, {-1, 0}, {1, -1}, {1, 0}}
	oddOffsets  = [6][2]int{{0, -1}, {0, 1}, {-1, 0}, {-1, 1}, {1, 0}, {1, 1}}
)

// Contains reports whether p lies inside the grid.
func (g Grid) Contains(p Pos) bool {
	return p.R >= 0 && p.R < g.Rows && p.C >= 0 && p.C < g.Cols
}

// Neighbors returns the up to six in-bounds tiles adjacent to p,
// in the order left, right, upper pair, lower pair.
func (g Grid) Neighbors(p Pos) []Pos {
	offsets := &evenOffsets
	if p.R%2 != 0 {
		offsets = &oddOffsets
	}
	out := make([]Pos, 0, 6)
	for _, o := range offsets {
		n := Pos{R: p.R + o[0], C: p.C + o[1]}
		if g.Contains(n) {
			out = append(out, n)
		}
	}
	return out
}

// Adjacent reports whether a and b share an edge.
func (g Grid) Adjacent(a, b Pos) bool {
	for _, n := range g.Neighbors(a) {
		if n == b {
			return true
		}
	}
	return false
}
