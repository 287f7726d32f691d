// apps/go-server/internal/board/board.go
//
// Mutable tile grid for a single match.
// Responsibilities:
//   - Place the two permanent castles and seed both frontiers.
//   - Maintain frontiers: empty tiles next to a player's land carry a symbol.
//   - Expose tile primitives (capture, destroy, set symbol) for the turn protocol.
//
// A Board is not safe for concurrent use; the owning session serializes access.

package board

import (
	"fmt"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/hexgrid"
)

// State is the occupancy of a tile.
type State string

const (
	Empty         State = "empty"
	RedCastle     State = "red_castle"
	BlueCastle    State = "blue_castle"
	RedTerritory  State = "red_territory"
	BlueTerritory State = "blue_territory"
)

// IsCastle reports whether s is either castle.
func (s State) IsCastle() bool { return s == RedCastle || s == BlueCastle }

// Tile is one cell of the board. Phonetic is set only on empty tiles;
// Owner is set only on castles and territory.
type Tile struct {
	R        int    `json:"r"`
	C        int    `json:"c"`
	State    State  `json:"state"`
	Phonetic string `json:"phonetic,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

// Pos returns the tile's coordinates.
func (t Tile) Pos() hexgrid.Pos { return hexgrid.Pos{R: t.R, C: t.C} }

// Playable reports whether t is an empty tile bearing a symbol.
func (t Tile) Playable() bool { return t.State == Empty && t.Phonetic != "" }

// Board holds the tiles plus the two player identities.
type Board struct {
	grid  hexgrid.Grid
	tiles [][]Tile
	red   string
	blue  string
	src   PhoneticSource
}

// New lays out an empty grid, places red's castle top-right and blue's
// bottom-left, then grows red's and blue's frontiers in that order.
func New(grid hexgrid.Grid, red, blue string, src PhoneticSource) *Board {
	b := &Board{grid: grid, red: red, blue: blue, src: src}
	b.tiles = make([][]Tile, grid.Rows)
	for r := range b.tiles {
		b.tiles[r] = make([]Tile, grid.Cols)
		for c := range b.tiles[r] {
			b.tiles[r][c] = Tile{R: r, C: c, State: Empty}
		}
	}

	rc := b.CastleOf(red)
	b.tiles[rc.R][rc.C].State, b.tiles[rc.R][rc.C].Owner = RedCastle, red
	bc := b.CastleOf(blue)
	b.tiles[bc.R][bc.C].State, b.tiles[bc.R][bc.C].Owner = BlueCastle, blue

	b.GrowFrontier(red)
	b.GrowFrontier(blue)
	return b
}

// Grid returns the board geometry.
func (b *Board) Grid() hexgrid.Grid { return b.grid }

// Tile returns a copy of the tile at p. p must be in bounds.
func (b *Board) Tile(p hexgrid.Pos) Tile { return b.tiles[p.R][p.C] }

// CastleOf returns the castle position of owner, or (-1,-1) for a stranger.
func (b *Board) CastleOf(owner string) hexgrid.Pos {
	switch owner {
	case b.red:
		return hexgrid.Pos{R: 0, C: b.grid.Cols - 1}
	case b.blue:
		return hexgrid.Pos{R: b.grid.Rows - 1, C: 0}
	}
	return hexgrid.Pos{R: -1, C: -1}
}

// castleState is the castle variant belonging to owner.
func (b *Board) castleState(owner string) State {
	if owner == b.red {
		return RedCastle
	}
	return BlueCastle
}

// territoryState is the territory variant belonging to owner.
func (b *Board) territoryState(owner string) State {
	if owner == b.red {
		return RedTerritory
	}
	return BlueTerritory
}

// IsCastleOf reports whether the tile at p is owner's castle.
func (b *Board) IsCastleOf(p hexgrid.Pos, owner string) bool {
	return b.tiles[p.R][p.C].State == b.castleState(owner) && b.tiles[p.R][p.C].Owner == owner
}

// OwnsNeighbor reports whether any tile adjacent to p belongs to owner.
func (b *Board) OwnsNeighbor(p hexgrid.Pos, owner string) bool {
	for _, n := range b.grid.Neighbors(p) {
		if b.tiles[n.R][n.C].Owner == owner {
			return true
		}
	}
	return false
}

// Capture turns the empty tile at p into owner's territory and clears its
// symbol. Non-empty tiles are left alone; the return value reports a change.
func (b *Board) Capture(p hexgrid.Pos, owner string) bool {
	t := &b.tiles[p.R][p.C]
	if t.State != Empty {
		return false
	}
	t.State = b.territoryState(owner)
	t.Owner = owner
	t.Phonetic = ""
	return true
}

// Destroy reverts the territory tile at p to empty and gives it a fresh
// symbol. Castles and empty tiles are left alone.
func (b *Board) Destroy(p hexgrid.Pos) bool {
	t := &b.tiles[p.R][p.C]
	if t.State != RedTerritory && t.State != BlueTerritory {
		return false
	}
	t.State = Empty
	t.Owner = ""
	t.Phonetic = b.src.Next()
	return true
}

// SetPhonetic assigns sym to the empty tile at p.
func (b *Board) SetPhonetic(p hexgrid.Pos, sym string) error {
	t := &b.tiles[p.R][p.C]
	if t.State != Empty {
		return fmt.Errorf("board: tile %d,%d is %s", p.R, p.C, t.State)
	}
	t.Phonetic = sym
	return nil
}

// GrowFrontier gives a symbol to every bare empty tile next to owner's land.
// Existing symbols are kept.
func (b *Board) GrowFrontier(owner string) {
	for r := range b.tiles {
		for c := range b.tiles[r] {
			if b.tiles[r][c].Owner != owner {
				continue
			}
			for _, n := range b.grid.Neighbors(b.tiles[r][c].Pos()) {
				t := &b.tiles[n.R][n.C]
				if t.State == Empty && t.Phonetic == "" {
					t.Phonetic = b.src.Next()
				}
			}
		}
	}
}

// RegenerateFrontier re-rolls the symbol of every playable tile next to
// owner's land.
func (b *Board) RegenerateFrontier(owner string) {
	for r := range b.tiles {
		for c := range b.tiles[r] {
			t := &b.tiles[r][c]
			if t.Playable() && b.OwnsNeighbor(t.Pos(), owner) {
				t.Phonetic = b.src.Next()
			}
		}
	}
}

// Snapshot returns a deep copy of the tiles.
func (b *Board) Snapshot() [][]Tile {
	out := make([][]Tile, len(b.tiles))
	for r := range b.tiles {
		out[r] = append([]Tile(nil), b.tiles[r]...)
	}
	return out
}

// Count returns how many tiles are in state s.
func (b *Board) Count(s State) int {
	n := 0
	for r := range b.tiles {
		for c := range b.tiles[r] {
			if b.tiles[r][c].State == s {
				n++
			}
		}
	}
	return n
}
