// apps/go-server/internal/settlement/settlement.go
//
// Post-match rating and statistics updates.
// Responsibilities:
//   - Elo expected score and new rating (K = 32).
//   - Per-player counters: total games/wins plus the counters of the
//     match's own mode (ranked, casual, custom).
//   - Persist both players and delete the durable match record.
//
// Settlement only sees the finished match's Outcome snapshot. It never reads
// or writes live session state.

package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/game"
)

// K is the Elo update factor.
const K = 32

// PlayerRecord is the durable per-player row settlement reads and writes.
type PlayerRecord struct {
	ID          string `json:"id"`
	Rating      int    `json:"rating"`
	GamesPlayed int    `json:"gamesPlayed"`
	GamesWon    int    `json:"gamesWon"`

	RankedPlayed int `json:"rankedGamesPlayed"`
	RankedWon    int `json:"rankedGamesWon"`
	CasualPlayed int `json:"casualGamesPlayed"`
	CasualWon    int `json:"casualGamesWon"`
	CustomPlayed int `json:"customGamesPlayed"`
	CustomWon    int `json:"customGamesWon"`
}

// Records is the durable store settlement writes through.
type Records interface {
	FetchPlayer(ctx context.Context, id string) (PlayerRecord, error)
	// PersistPlayers writes both rows atomically.
	PersistPlayers(ctx context.Context, a, b PlayerRecord) error
	DeleteMatch(ctx context.Context, matchID string) error
}

// Result reports what a settlement wrote.
type Result struct {
	MatchID string
	Skipped bool // no winner, nothing written
	Player1 PlayerRecord
	Player2 PlayerRecord
}

// Expected is the Elo expected score of a player rated r against o.
func Expected(r, o int) float64 {
	return 1 / (1 + math.Pow(10, float64(o-r)/400))
}

// NewRating applies one Elo update for score (1 win, 0 loss).
func NewRating(r, o int, score float64) int {
	return int(math.Round(float64(r) + K*(score-Expected(r, o))))
}

// Settler applies outcomes to a Records store.
type Settler struct {
	records Records
}

// New returns a Settler writing through records.
func New(records Records) *Settler {
	return &Settler{records: records}
}

// Settle updates both players for a finished match and removes its durable
// record. Outcomes without a winner are skipped. A failed player write does
// not prevent the match record from being deleted; both errors are returned.
func (s *Settler) Settle(ctx context.Context, o game.Outcome) (Result, error) {
	res := Result{MatchID: o.MatchID}
	if o.Winner == "" {
		res.Skipped = true
		return res, nil
	}

	p1, err := s.records.FetchPlayer(ctx, o.Player1.ID)
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", o.Player1.ID, err)
	}
	p2, err := s.records.FetchPlayer(ctx, o.Player2.ID)
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", o.Player2.ID, err)
	}

	res.Player1, res.Player2 = Apply(p1, p2, o)

	var errs []error
	if err := s.records.PersistPlayers(ctx, res.Player1, res.Player2); err != nil {
		errs = append(errs, fmt.Errorf("persist players: %w", err))
	}
	if err := s.records.DeleteMatch(ctx, o.MatchID); err != nil {
		errs = append(errs, fmt.Errorf("delete match %s: %w", o.MatchID, err))
	}
	return res, errors.Join(errs...)
}

// Apply returns updated copies of p1 and p2 for outcome o. Both ratings are
// computed from the pre-match values.
func Apply(p1, p2 PlayerRecord, o game.Outcome) (PlayerRecord, PlayerRecord) {
	s1, s2 := score(p1.ID, o.Winner), score(p2.ID, o.Winner)
	if o.Mode == game.ModeRanked {
		r1, r2 := p1.Rating, p2.Rating
		p1.Rating = NewRating(r1, r2, s1)
		p2.Rating = NewRating(r2, r1, s2)
	}
	count(&p1, o.Mode, s1 == 1)
	count(&p2, o.Mode, s2 == 1)
	return p1, p2
}

func score(id, winner string) float64 {
	if id == winner {
		return 1
	}
	return 0
}

func count(p *PlayerRecord, mode game.Mode, won bool) {
	w := 0
	if won {
		w = 1
	}
	p.GamesPlayed++
	p.GamesWon += w
	switch mode {
	case game.ModeRanked:
		p.RankedPlayed++
		p.RankedWon += w
	case game.ModeCustom:
		p.CustomPlayed++
		p.CustomWon += w
	default:
		p.CasualPlayed++
		p.CasualWon += w
	}
}
