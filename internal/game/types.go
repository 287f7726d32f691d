// apps/go-server/internal/game/types.go
//
// Core type definitions for a single two-player match.
// Defines:
//   - Mode / Status / Reason enums.
//   - Config: board size, clocks, word cap and repair budget.
//   - Session: the live aggregate, guarded by its own mutex.
//   - View / Outcome: read-only snapshots handed to callers and settlement.

package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/board"
)

// Mode is the kind of match, which decides how settlement treats it.
type Mode string

const (
	ModeRanked Mode = "ranked"
	ModeCasual Mode = "casual"
	ModeCustom Mode = "custom"
)

// ParseMode validates a mode string. An empty string means casual.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRanked, ModeCasual, ModeCustom:
		return Mode(s), nil
	case "":
		return ModeCasual, nil
	}
	return "", fmt.Errorf("game: unknown mode %q", s)
}

// Status is the lifecycle state of a session. finished is terminal.
type Status string

const (
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Reason records why a session finished.
type Reason string

const (
	ReasonCastleCapture Reason = "castle_capture"
	ReasonTimeout       Reason = "timeout"
	ReasonAborted       Reason = "aborted" // administrative end, no winner
)

// Config holds the tunables of a match.
type Config struct {
	Rows             int
	Cols             int
	StartSeconds     int // per-player clock at creation
	MoveBonusSeconds int // added to the mover after every accepted turn
	MaxWordLen       int // solvability search depth, in symbols
	RepairAttempts   int // frontier regenerations before giving up
}

// DefaultConfig returns the standard 8x8, 120s + 30s match.
func DefaultConfig() Config {
	return Config{
		Rows:             8,
		Cols:             8,
		StartSeconds:     120,
		MoveBonusSeconds: 30,
		MaxWordLen:       4,
		RepairAttempts:   5,
	}
}

// Player is one participant. Player 1 plays red and moves first.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the live state of one match. All fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	id         string
	players    [2]Player
	mode       Mode
	cfg        Config
	board      *board.Board
	turn       string
	clock      map[string]int // remaining seconds by player id
	lastAction time.Time
	status     Status
	winner     string
	reason     Reason
	finishedAt time.Time
	logs       []string
	now        func() time.Time
}

// View is a deep copy of a session for rendering.
type View struct {
	MatchID        string         `json:"battleId"`
	Player1ID      string         `json:"player1Id"`
	Player2ID      string         `json:"player2Id"`
	Player1Name    string         `json:"player1Name"`
	Player2Name    string         `json:"player2Name"`
	Mode           Mode           `json:"gameMode"`
	Board          [][]board.Tile `json:"board"`
	Turn           string         `json:"turn"`
	Timer          map[string]int `json:"timer"`
	LastActionTime time.Time      `json:"lastActionTime"`
	Status         Status         `json:"status"`
	Winner         string         `json:"winner,omitempty"`
	Reason         Reason         `json:"reason,omitempty"`
	Logs           []string       `json:"logs"`
}

// Outcome describes a finished match for settlement.
type Outcome struct {
	MatchID    string
	Mode       Mode
	Player1    Player
	Player2    Player
	Winner     string // empty when aborted
	Reason     Reason
	FinishedAt time.Time
}

// Loser returns the id of the player who did not win, or "" without a winner.
func (o Outcome) Loser() string {
	switch o.Winner {
	case o.Player1.ID:
		return o.Player2.ID
	case o.Player2.ID:
		return o.Player1.ID
	}
	return ""
}
