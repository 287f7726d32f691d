// apps/go-server/internal/game/engine.go
//
// Turn protocol and clock for a single match.
// Responsibilities:
//   - Validate a submitted tile sequence (turn, shape, symbols, dictionary).
//   - Capture the submitted tiles that connect to the mover's land, destroy
//     adjacent enemy territory, and detect a touch on the enemy castle.
//   - Keep the mover's frontier solvable, pay the time bonus, pass the turn.
//   - Count down the turn-holder's clock and end the match on timeout.
//
// Every exported method takes the session lock, so ticks and submissions
// against the same session are serialized. Validation runs before any
// mutation; a rejected submission leaves the session untouched.
package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/board"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/hexgrid"
)

var (
	ErrGameFinished    = errors.New("game is finished")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrEmptySequence   = errors.New("empty sequence")
	ErrWordTooLong     = errors.New("sequence too long")
	ErrDuplicateTiles  = errors.New("duplicate tiles in sequence")
	ErrOutOfBounds     = errors.New("tile out of bounds")
	ErrNoPhonetic      = errors.New("tile has no phonetic")
	ErrNotInDictionary = errors.New("invalid word")
)

// NewSession creates a playing session. Player 1 is red and moves first.
func NewSession(id string, p1, p2 Player, mode Mode, cfg Config, src board.PhoneticSource) *Session {
	grid := hexgrid.Grid{Rows: cfg.Rows, Cols: cfg.Cols}
	s := &Session{
		id:      id,
		players: [2]Player{p1, p2},
		mode:    mode,
		cfg:     cfg,
		board:   board.New(grid, p1.ID, p2.ID, src),
		turn:    p1.ID,
		clock: map[string]int{
			p1.ID: cfg.StartSeconds,
			p2.ID: cfg.StartSeconds,
		},
		status: StatusPlaying,
		now:    time.Now,
	}
	s.lastAction = s.now()
	s.logs = []string{fmt.Sprintf("Game started! %s (Red) vs %s (Blue)", p1.Name, p2.Name)}
	return s
}

// ID returns the match identifier.
func (s *Session) ID() string { return s.id }

// SubmitTurn plays seq for playerID. It returns the word formed and, when
// the move touched the opponent's castle, the final outcome.
func (s *Session) SubmitTurn(playerID string, seq []hexgrid.Pos, lex board.Lexicon) (string, *Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPlaying {
		return "", nil, ErrGameFinished
	}
	if s.turn != playerID {
		return "", nil, ErrNotYourTurn
	}
	word, err := s.validate(seq, lex)
	if err != nil {
		return "", nil, err
	}

	castleTouched := s.capture(playerID, seq)
	s.board.GrowFrontier(playerID)

	if attempts, ok := s.board.EnsureSolvable(playerID, lex, s.cfg.MaxWordLen, s.cfg.RepairAttempts); !ok {
		log.Warn().Str("match", s.id).Str("player", playerID).Int("attempts", attempts).
			Msg("frontier still unsolvable after repair")
	} else if attempts > 0 {
		log.Debug().Str("match", s.id).Str("player", playerID).Int("attempts", attempts).
			Msg("frontier regenerated")
	}

	s.clock[playerID] += s.cfg.MoveBonusSeconds
	s.turn = s.opponent(playerID)
	s.lastAction = s.now()

	if castleTouched {
		return word, s.finish(playerID, ReasonCastleCapture), nil
	}
	s.logs = append(s.logs, fmt.Sprintf("%s played %s", s.name(playerID), word))
	return word, nil, nil
}

// validate checks seq and returns the word it spells, in submitted order.
func (s *Session) validate(seq []hexgrid.Pos, lex board.Lexicon) (string, error) {
	if len(seq) == 0 {
		return "", ErrEmptySequence
	}
	if len(seq) > s.cfg.MaxWordLen {
		return "", fmt.Errorf("%w: %d tiles, at most %d", ErrWordTooLong, len(seq), s.cfg.MaxWordLen)
	}
	seen := make(map[hexgrid.Pos]struct{}, len(seq))
	for _, p := range seq {
		if _, dup := seen[p]; dup {
			return "", ErrDuplicateTiles
		}
		seen[p] = struct{}{}
	}

	var sb strings.Builder
	grid := s.board.Grid()
	for _, p := range seq {
		if !grid.Contains(p) {
			return "", fmt.Errorf("%w: %d,%d", ErrOutOfBounds, p.R, p.C)
		}
		t := s.board.Tile(p)
		if t.Phonetic == "" {
			return "", ErrNoPhonetic
		}
		sb.WriteString(t.Phonetic)
	}
	word := sb.String()
	if !lex.Contains(word) {
		return "", fmt.Errorf("%w: %s", ErrNotInDictionary, word)
	}
	return word, nil
}

// capture applies a validated sequence and reports whether a captured tile
// touches the opponent's castle. Only submitted tiles connected to the
// mover's land (directly, or through other submitted tiles) are captured.
func (s *Session) capture(playerID string, seq []hexgrid.Pos) bool {
	grid := s.board.Grid()
	candidates := make(map[hexgrid.Pos]bool, len(seq))
	for _, p := range seq {
		candidates[p] = true
	}

	captured := make(map[hexgrid.Pos]bool, len(seq))
	queue := make([]hexgrid.Pos, 0, len(seq))
	for _, p := range seq {
		if s.board.OwnsNeighbor(p, playerID) {
			captured[p] = true
			queue = append(queue, p)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range grid.Neighbors(cur) {
			if candidates[n] && !captured[n] {
				captured[n] = true
				queue = append(queue, n)
			}
		}
	}

	opponent := s.opponent(playerID)
	touched := false
	for _, p := range seq {
		if !captured[p] {
			continue
		}
		for _, n := range grid.Neighbors(p) {
			nt := s.board.Tile(n)
			switch {
			case s.board.IsCastleOf(n, opponent):
				touched = true
			case nt.Owner == opponent && !nt.State.IsCastle():
				s.board.Destroy(n)
			}
		}
		s.board.Capture(p, playerID)
	}
	return touched
}

// Tick charges one second to the turn-holder. It returns the outcome when
// the clock runs out.
func (s *Session) Tick() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPlaying {
		return nil
	}
	s.clock[s.turn]--
	if s.clock[s.turn] > 0 {
		return nil
	}
	s.clock[s.turn] = 0
	return s.finish(s.opponent(s.turn), ReasonTimeout)
}

// Abort ends a playing session without a winner. It reports whether the
// session was still playing.
func (s *Session) Abort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPlaying {
		return false
	}
	s.status = StatusFinished
	s.reason = ReasonAborted
	s.finishedAt = s.now()
	s.logs = append(s.logs, "Game aborted by administrator")
	return true
}

// finish moves the session to finished. Callers hold mu.
func (s *Session) finish(winner string, reason Reason) *Outcome {
	s.status = StatusFinished
	s.winner = winner
	s.reason = reason
	s.finishedAt = s.now()
	s.logs = append(s.logs, fmt.Sprintf("Game Over! Winner: %s (%s)", s.name(winner), reason))
	return &Outcome{
		MatchID:    s.id,
		Mode:       s.mode,
		Player1:    s.players[0],
		Player2:    s.players[1],
		Winner:     winner,
		Reason:     reason,
		FinishedAt: s.finishedAt,
	}
}

// View returns a deep copy of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := make(map[string]int, len(s.clock))
	for k, v := range s.clock {
		timer[k] = v
	}
	return View{
		MatchID:        s.id,
		Player1ID:      s.players[0].ID,
		Player2ID:      s.players[1].ID,
		Player1Name:    s.players[0].Name,
		Player2Name:    s.players[1].Name,
		Mode:           s.mode,
		Board:          s.board.Snapshot(),
		Turn:           s.turn,
		Timer:          timer,
		LastActionTime: s.lastAction,
		Status:         s.status,
		Winner:         s.winner,
		Reason:         s.reason,
		Logs:           append([]string(nil), s.logs...),
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsPlayer reports whether id is one of the two participants.
func (s *Session) IsPlayer(id string) bool {
	return s.players[0].ID == id || s.players[1].ID == id
}

func (s *Session) opponent(id string) string {
	if id == s.players[0].ID {
		return s.players[1].ID
	}
	return s.players[0].ID
}

func (s *Session) name(id string) string {
	if id == s.players[1].ID {
		return s.players[1].Name
	}
	return s.players[0].Name
}
