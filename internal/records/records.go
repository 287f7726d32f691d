// apps/go-server/internal/records/records.go
//
// Durable player and match rows.
// The live match never touches this package; the manager writes a battle row
// when a match is created and settlement updates players and deletes the
// battle row once the match is over.

package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/assets"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/game"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/settlement"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrMatchNotFound  = errors.New("match not found")
)

// Store is the sqlite-backed record store. It implements settlement.Records.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ settlement.Records = (*Store)(nil)

// Open opens path, applies the bundled migrations and returns a Store.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db, assets.Migrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) stamp() string { return s.now().UTC().Format(time.RFC3339) }

// EnsureUser inserts a player row with default rating, or refreshes the
// display name of an existing one.
func (s *Store) EnsureUser(ctx context.Context, p game.Player) error {
	now := s.stamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at`,
		p.ID, p.Name, now, now,
	)
	return err
}

// CreateMatch writes the battle row for a new match. Re-creating an ID
// replaces the previous row.
func (s *Store) CreateMatch(ctx context.Context, id string, p1, p2 game.Player, mode game.Mode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO battles (id, player1_id, player2_id, mode, status, created_at)
		VALUES (?, ?, ?, ?, 'playing', ?)
		ON CONFLICT(id) DO UPDATE SET
			player1_id = excluded.player1_id,
			player2_id = excluded.player2_id,
			mode       = excluded.mode,
			status     = 'playing',
			created_at = excluded.created_at`,
		id, p1.ID, p2.ID, string(mode), s.stamp(),
	)
	return err
}

// DeleteMatch removes the battle row. Deleting a missing row returns
// ErrMatchNotFound.
func (s *Store) DeleteMatch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM battles WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return nil
}

// FetchPlayer loads the settlement view of a player.
func (s *Store) FetchPlayer(ctx context.Context, id string) (settlement.PlayerRecord, error) {
	var p settlement.PlayerRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, rating, games_played, games_won,
		       ranked_games_played, ranked_games_won,
		       casual_games_played, casual_games_won,
		       custom_games_played, custom_games_won
		FROM users WHERE id=?`, id,
	).Scan(&p.ID, &p.Rating, &p.GamesPlayed, &p.GamesWon,
		&p.RankedPlayed, &p.RankedWon,
		&p.CasualPlayed, &p.CasualWon,
		&p.CustomPlayed, &p.CustomWon)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	return p, err
}

// PersistPlayers writes both rows in one transaction.
func (s *Store) PersistPlayers(ctx context.Context, a, b settlement.PlayerRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.stamp()
	for _, p := range []settlement.PlayerRecord{a, b} {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET
				rating = ?, games_played = ?, games_won = ?,
				ranked_games_played = ?, ranked_games_won = ?,
				casual_games_played = ?, casual_games_won = ?,
				custom_games_played = ?, custom_games_won = ?,
				updated_at = ?
			WHERE id = ?`,
			p.Rating, p.GamesPlayed, p.GamesWon,
			p.RankedPlayed, p.RankedWon,
			p.CasualPlayed, p.CasualWon,
			p.CustomPlayed, p.CustomWon,
			now, p.ID,
		)
		if err != nil {
			return fmt.Errorf("update %s: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrPlayerNotFound, p.ID)
		}
	}
	return tx.Commit()
}
