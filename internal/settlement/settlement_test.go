package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/game"
)

type fakeRecords struct {
	players    map[string]PlayerRecord
	deleted    []string
	persistErr error
	deleteErr  error
}

func newFake() *fakeRecords {
	return &fakeRecords{players: map[string]PlayerRecord{
		"a": {ID: "a", Rating: 1500},
		"b": {ID: "b", Rating: 1500},
	}}
}

func (f *fakeRecords) FetchPlayer(_ context.Context, id string) (PlayerRecord, error) {
	p, ok := f.players[id]
	if !ok {
		return PlayerRecord{}, errors.New("no such player")
	}
	return p, nil
}

func (f *fakeRecords) PersistPlayers(_ context.Context, a, b PlayerRecord) error {
	if f.persistErr != nil {
		return f.persistErr
	}
	f.players[a.ID] = a
	f.players[b.ID] = b
	return nil
}

func (f *fakeRecords) DeleteMatch(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func outcome(mode game.Mode, winner string) game.Outcome {
	return game.Outcome{
		MatchID: "m1",
		Mode:    mode,
		Player1: game.Player{ID: "a", Name: "Alice"},
		Player2: game.Player{ID: "b", Name: "Bob"},
		Winner:  winner,
		Reason:  game.ReasonCastleCapture,
	}
}

func TestNewRating(t *testing.T) {
	tests := []struct {
		r, o  int
		score float64
		want  int
	}{
		{1500, 1500, 1, 1516},
		{1500, 1500, 0, 1484},
		{1400, 1600, 1, 1424},
		{1600, 1400, 0, 1576},
		{1600, 1400, 1, 1608},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewRating(tt.r, tt.o, tt.score), "%d vs %d score %v", tt.r, tt.o, tt.score)
	}
	assert.InDelta(t, 0.5, Expected(1500, 1500), 1e-9)
	assert.InDelta(t, 1, Expected(1600, 1400)+Expected(1400, 1600), 1e-9)
}

func TestSettleRanked(t *testing.T) {
	rec := newFake()
	res, err := New(rec).Settle(context.Background(), outcome(game.ModeRanked, "a"))
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	a, b := rec.players["a"], rec.players["b"]
	assert.Equal(t, 1516, a.Rating)
	assert.Equal(t, 1484, b.Rating)
	assert.Equal(t, PlayerRecord{ID: "a", Rating: 1516, GamesPlayed: 1, GamesWon: 1, RankedPlayed: 1, RankedWon: 1}, a)
	assert.Equal(t, PlayerRecord{ID: "b", Rating: 1484, GamesPlayed: 1, RankedPlayed: 1}, b)
	assert.Equal(t, []string{"m1"}, rec.deleted)
}

func TestSettleUnrankedKeepsRatings(t *testing.T) {
	tests := []struct {
		mode  game.Mode
		check func(t *testing.T, winner, loser PlayerRecord)
	}{
		{game.ModeCasual, func(t *testing.T, w, l PlayerRecord) {
			assert.Equal(t, 1, w.CasualWon)
			assert.Equal(t, 1, l.CasualPlayed)
			assert.Zero(t, l.CasualWon)
			assert.Zero(t, w.CustomPlayed)
		}},
		{game.ModeCustom, func(t *testing.T, w, l PlayerRecord) {
			assert.Equal(t, 1, w.CustomWon)
			assert.Equal(t, 1, l.CustomPlayed)
			assert.Zero(t, w.CasualPlayed)
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			rec := newFake()
			_, err := New(rec).Settle(context.Background(), outcome(tt.mode, "b"))
			require.NoError(t, err)

			w, l := rec.players["b"], rec.players["a"]
			assert.Equal(t, 1500, w.Rating)
			assert.Equal(t, 1500, l.Rating)
			assert.Equal(t, 1, w.GamesWon)
			assert.Equal(t, 1, l.GamesPlayed)
			assert.Zero(t, w.RankedPlayed)
			tt.check(t, w, l)
		})
	}
}

func TestSettleSkipsWithoutWinner(t *testing.T) {
	rec := newFake()
	res, err := New(rec).Settle(context.Background(), outcome(game.ModeRanked, ""))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1500, rec.players["a"].Rating)
	assert.Empty(t, rec.deleted)
}

func TestSettleFetchFailure(t *testing.T) {
	rec := newFake()
	delete(rec.players, "b")
	_, err := New(rec).Settle(context.Background(), outcome(game.ModeRanked, "a"))
	require.Error(t, err)
	assert.Equal(t, 1500, rec.players["a"].Rating)
	assert.Empty(t, rec.deleted)
}

func TestSettleStillDeletesWhenPersistFails(t *testing.T) {
	rec := newFake()
	boom := errors.New("disk full")
	rec.persistErr = boom

	_, err := New(rec).Settle(context.Background(), outcome(game.ModeRanked, "a"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"m1"}, rec.deleted)
}
