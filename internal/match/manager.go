// apps/go-server/internal/match/manager.go
//
// Manager is the engine's entry point: it owns the table of live sessions,
// drives their clocks once per second, and hands finished matches to
// settlement.
//
// Lifecycle of a match:
//   - Create registers both players and the durable battle row (when a
//     registrar is configured), then stores a fresh session. Re-creating an
//     existing ID replaces the old session.
//   - SubmitTurn and Tick may finish the session. On finish the outcome is
//     settled in a background goroutine and the session is evicted after the
//     retention window, so clients can still read the final state.
//   - ForceEnd aborts a session without a winner and evicts it at once.

package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/board"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/game"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/hexgrid"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/settlement"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/store"
)

var (
	// ErrNotFound is returned for unknown (or already evicted) match IDs.
	ErrNotFound       = store.ErrNotFound
	ErrInvalidPlayers = errors.New("a match needs two distinct players")
	ErrInvalidID      = errors.New("match id is required")
)

const (
	DefaultRetention    = 60 * time.Second
	DefaultTickInterval = time.Second
	settleTimeout       = 10 * time.Second
)

// Settler applies a finished match to durable records.
type Settler interface {
	Settle(ctx context.Context, o game.Outcome) (settlement.Result, error)
}

// Registrar writes the durable rows a new match depends on.
type Registrar interface {
	EnsureUser(ctx context.Context, p game.Player) error
	CreateMatch(ctx context.Context, id string, p1, p2 game.Player, mode game.Mode) error
}

// SourceFactory returns the phonetic source for a new match.
type SourceFactory func(matchID string) board.PhoneticSource

// Manager coordinates every live session in the process.
type Manager struct {
	store     store.Store
	lex       board.Lexicon
	cfg       game.Config
	retention time.Duration
	interval  time.Duration
	sources   SourceFactory
	settler   Settler
	registrar Registrar

	wg sync.WaitGroup // in-flight settlements
}

// Option configures a Manager.
type Option func(*Manager)

func WithConfig(cfg game.Config) Option        { return func(m *Manager) { m.cfg = cfg } }
func WithRetention(d time.Duration) Option     { return func(m *Manager) { m.retention = d } }
func WithTickInterval(d time.Duration) Option  { return func(m *Manager) { m.interval = d } }
func WithSettler(s Settler) Option             { return func(m *Manager) { m.settler = s } }
func WithRegistrar(r Registrar) Option         { return func(m *Manager) { m.registrar = r } }
func WithSourceFactory(f SourceFactory) Option { return func(m *Manager) { m.sources = f } }

// WithSeedSalt derives every board's random seed from the match ID and salt,
// so a match ID always deals the same board.
func WithSeedSalt(salt string) Option {
	return WithSourceFactory(func(id string) board.PhoneticSource {
		return board.NewRandomSource(board.SeedFor(id, salt))
	})
}

// New builds a Manager over st, validating words against lex.
func New(st store.Store, lex board.Lexicon, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		lex:       lex,
		cfg:       game.DefaultConfig(),
		retention: DefaultRetention,
		interval:  DefaultTickInterval,
		sources: func(string) board.PhoneticSource {
			return board.NewRandomSource(time.Now().UnixNano())
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new match and returns its initial view.
func (m *Manager) Create(ctx context.Context, id string, p1, p2 game.Player, mode game.Mode) (game.View, error) {
	if id == "" {
		return game.View{}, ErrInvalidID
	}
	if p1.ID == "" || p2.ID == "" || p1.ID == p2.ID {
		return game.View{}, ErrInvalidPlayers
	}

	if m.registrar != nil {
		for _, p := range []game.Player{p1, p2} {
			if err := m.registrar.EnsureUser(ctx, p); err != nil {
				return game.View{}, fmt.Errorf("ensure user %s: %w", p.ID, err)
			}
		}
		if err := m.registrar.CreateMatch(ctx, id, p1, p2, mode); err != nil {
			return game.View{}, fmt.Errorf("create match record: %w", err)
		}
	}

	s := game.NewSession(id, p1, p2, mode, m.cfg, m.sources(id))
	if err := m.store.Save(ctx, s); err != nil {
		return game.View{}, err
	}
	log.Info().Str("match", id).Str("mode", string(mode)).
		Str("red", p1.ID).Str("blue", p2.ID).Msg("match created")
	return s.View(), nil
}

// Get returns the current view of a match.
func (m *Manager) Get(ctx context.Context, id string) (game.View, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return game.View{}, err
	}
	return s.View(), nil
}

// IsPlayer reports whether playerID is one of the two players of match id.
func (m *Manager) IsPlayer(ctx context.Context, id, playerID string) (bool, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return s.IsPlayer(playerID), nil
}

// SubmitTurn plays seq for playerID in match id and returns the word formed.
func (m *Manager) SubmitTurn(ctx context.Context, id, playerID string, seq []hexgrid.Pos) (string, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	word, outcome, err := s.SubmitTurn(playerID, seq, m.lex)
	if err != nil {
		return "", err
	}
	if outcome != nil {
		m.finished(s, *outcome)
	}
	return word, nil
}

// ForceEnd aborts a match without a winner and evicts it immediately.
// Nothing is settled.
func (m *Manager) ForceEnd(ctx context.Context, id string) error {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Abort()
	m.store.Remove(ctx, id, s)
	log.Info().Str("match", id).Msg("match force-ended")
	return nil
}

// Tick advances every playing session's clock by one second.
func (m *Manager) Tick(ctx context.Context) {
	for _, s := range m.store.List(ctx) {
		if o := s.Tick(); o != nil {
			m.finished(s, *o)
		}
	}
}

// Run ticks every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Tick(ctx)
		}
	}
}

// Wait blocks until every in-flight settlement has returned.
func (m *Manager) Wait() { m.wg.Wait() }

// finished settles o in the background and schedules s for eviction.
func (m *Manager) finished(s *game.Session, o game.Outcome) {
	log.Info().Str("match", o.MatchID).Str("winner", o.Winner).
		Str("reason", string(o.Reason)).Msg("match finished")

	if m.settler != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
			defer cancel()
			res, err := m.settler.Settle(ctx, o)
			if err != nil {
				log.Warn().Err(err).Str("match", o.MatchID).Msg("settlement failed")
				return
			}
			if !res.Skipped {
				log.Info().Str("match", o.MatchID).
					Int("rating1", res.Player1.Rating).Int("rating2", res.Player2.Rating).
					Msg("match settled")
			}
		}()
	}

	time.AfterFunc(m.retention, func() {
		if m.store.Remove(context.Background(), o.MatchID, s) {
			log.Debug().Str("match", o.MatchID).Msg("match evicted")
		}
	})
}
