package board

import (
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/hexgrid"
)

// Lexicon answers word membership for the solvability search.
type Lexicon interface {
	Contains(word string) bool
}

// prefixLexicon is implemented by lexicons that can rule out dead branches early.
type prefixLexicon interface {
	HasPrefix(prefix string) bool
}

// IsSolvable reports whether owner can form at least one word of at most
// maxLen symbols by chaining adjacent playable tiles, starting from a
// playable tile next to owner's land.
func (b *Board) IsSolvable(owner string, lex Lexicon, maxLen int) bool {
	pl, _ := lex.(prefixLexicon)
	visited := make(map[hexgrid.Pos]bool)
	for r := range b.tiles {
		for c := range b.tiles[r] {
			p := hexgrid.Pos{R: r, C: c}
			if !b.tiles[r][c].Playable() || !b.OwnsNeighbor(p, owner) {
				continue
			}
			if b.findWord(p, "", 0, maxLen, visited, lex, pl) {
				return true
			}
		}
	}
	return false
}

// findWord extends prefix with the tile at p and searches onward. visited
// holds the current path only; tiles are released on the way back so other
// paths may reuse them.
func (b *Board) findWord(p hexgrid.Pos, prefix string, depth, maxLen int, visited map[hexgrid.Pos]bool, lex Lexicon, pl prefixLexicon) bool {
	if visited[p] {
		return false
	}
	t := b.tiles[p.R][p.C]
	if !t.Playable() || depth+1 > maxLen {
		return false
	}
	word := prefix + t.Phonetic
	if lex.Contains(word) {
		return true
	}
	if pl != nil && !pl.HasPrefix(word) {
		return false
	}

	visited[p] = true
	defer delete(visited, p)
	for _, n := range b.grid.Neighbors(p) {
		if b.findWord(n, word, depth+1, maxLen, visited, lex, pl) {
			return true
		}
	}
	return false
}

// EnsureSolvable regenerates owner's frontier until IsSolvable holds or
// maxAttempts regenerations have been spent. It returns the number of
// regenerations performed and whether the board ended up solvable.
func (b *Board) EnsureSolvable(owner string, lex Lexicon, maxLen, maxAttempts int) (int, bool) {
	for attempts := 0; ; attempts++ {
		if b.IsSolvable(owner, lex, maxLen) {
			return attempts, true
		}
		if attempts >= maxAttempts {
			return attempts, false
		}
		b.RegenerateFrontier(owner)
	}
}
