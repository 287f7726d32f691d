package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/board"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/game"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/match"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/records"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/store"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/words"
)

const (
	testSecret   = "test-secret"
	testAdminPwd = "hunter2hunter2"
)

type fakeRecords struct{ deleted []string }

func (f *fakeRecords) DeleteMatch(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	if id == "ghost" {
		return records.ErrMatchNotFound
	}
	return nil
}

type fixture struct {
	srv     *Server
	manager *match.Manager
	records *fakeRecords
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPwd), bcrypt.MinCost)
	require.NoError(t, err)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ADMIN_PASSWORD_HASH", string(hash))

	m := match.New(store.NewMemoryStore(), words.New([]string{"ㄚ"}),
		match.WithSourceFactory(func(string) board.PhoneticSource { return board.NewCycleSource("ㄚ") }))
	rec := &fakeRecords{}
	return &fixture{
		srv:     New(m, rec, words.New([]string{"ㄚ", "ㄚㄚ"})),
		manager: m,
		records: rec,
	}
}

func token(t *testing.T, claim, id string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		claim: id,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, id string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token(t, "id", id)}
}

var admin = map[string]string{"X-Admin-Password": testAdminPwd}

func (f *fixture) create(t *testing.T, id string) {
	t.Helper()
	_, err := f.manager.Create(context.Background(), id,
		game.Player{ID: "a", Name: "Alice"}, game.Player{ID: "b", Name: "Bob"}, game.ModeRanked)
	require.NoError(t, err)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthAndDebug(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/debug/words", nil, nil)
	assert.JSONEq(t, `{"words":2,"longest":2}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestCreateMatch(t *testing.T) {
	f := newFixture(t)
	body := map[string]string{
		"matchId": "m1", "player1Id": "a", "player2Id": "b",
		"player1Name": "Alice", "player2Name": "Bob", "mode": "ranked",
	}

	tests := []struct {
		name    string
		headers map[string]string
		body    any
		want    int
	}{
		{"no password", nil, body, http.StatusUnauthorized},
		{"wrong password", map[string]string{"X-Admin-Password": "nope"}, body, http.StatusUnauthorized},
		{"bad mode", admin, map[string]string{"player1Id": "a", "player2Id": "b", "mode": "blitz"}, http.StatusBadRequest},
		{"same player", admin, map[string]string{"player1Id": "a", "player2Id": "a"}, http.StatusBadRequest},
		{"ok", admin, body, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/matches", tt.body, tt.headers)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	v, err := f.manager.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", v.Player1Name)
	assert.Equal(t, game.ModeRanked, v.Mode)
}

func TestCreateMatchGeneratesID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/matches", map[string]string{"player1Id": "a", "player2Id": "b"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decode(t, rec)
	id, _ := out["battleId"].(string)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, "casual", out["gameMode"])
	assert.Equal(t, "Player 1", out["player1Name"])
}

func TestAdminWithoutHashConfigured(t *testing.T) {
	f := newFixture(t)
	t.Setenv("ADMIN_PASSWORD_HASH", "")
	rec := f.do(t, http.MethodPost, "/matches", map[string]string{}, admin)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetGame(t *testing.T) {
	f := newFixture(t)
	f.create(t, "m1")

	rec := f.do(t, http.MethodGet, "/game/m1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/game/m1", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/game/m1", nil, bearer(t, "a"))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "m1", out["battleId"])
	assert.Equal(t, true, out["isMyTurn"])
	assert.Equal(t, "playing", out["status"])
	assert.Len(t, out["board"], 8)

	rec = f.do(t, http.MethodGet, "/game/m1", nil, map[string]string{"Authorization": "Bearer " + token(t, "userId", "b")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["isMyTurn"])

	rec = f.do(t, http.MethodGet, "/game/missing", nil, bearer(t, "a"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNumericUserIDClaim(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Create(context.Background(), "m1",
		game.Player{ID: "1", Name: "Alice"}, game.Player{ID: "2", Name: "Bob"}, game.ModeCasual)
	require.NoError(t, err)

	signed := func(id any) map[string]string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"userId": id,
			"exp":    time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return map[string]string{"Authorization": "Bearer " + tok}
	}

	rec := f.do(t, http.MethodGet, "/game/m1", nil, signed(1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["isMyTurn"])

	rec = f.do(t, http.MethodGet, "/game/m1", nil, signed(2))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode(t, rec)["isMyTurn"])

	rec = f.do(t, http.MethodGet, "/game/m1", nil, signed(true))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClaimID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "abc", "abc"},
		{"integral float", float64(42), "42"},
		{"large float", float64(1234567890123), "1234567890123"},
		{"json number", json.Number("7"), "7"},
		{"bool", true, ""},
		{"missing", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, claimID(tt.in))
		})
	}
}

func TestMove(t *testing.T) {
	f := newFixture(t)
	f.create(t, "m1")
	seq := map[string]any{"sequence": []map[string]int{{"r": 0, "c": 6}}}

	rec := f.do(t, http.MethodPost, "/game/m1/move", seq, bearer(t, "b"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, game.ErrNotYourTurn.Error(), decode(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/game/m1/move", seq, bearer(t, "a"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"word":"ㄚ"}`, rec.Body.String())

	v, err := f.manager.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "b", v.Turn)

	rec = f.do(t, http.MethodPost, "/game/missing/move", seq, bearer(t, "a"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/game/m1/move", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token(t, "id", "b"))
	raw := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestMoveIsRateLimited(t *testing.T) {
	f := newFixture(t)
	f.create(t, "m1")
	seq := map[string]any{"sequence": []map[string]int{}}

	limited := false
	for i := 0; i < 10; i++ {
		rec := f.do(t, http.MethodPost, "/game/m1/move", seq, bearer(t, "a"))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.True(t, limited)

	// Other players keep their own budget.
	rec := f.do(t, http.MethodPost, "/game/m1/move", seq, bearer(t, "b"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoveRejectsNonParticipants(t *testing.T) {
	f := newFixture(t)
	f.create(t, "m1")
	seq := map[string]any{"sequence": []map[string]int{{"r": 0, "c": 6}}}

	for i := 0; i < 10; i++ {
		rec := f.do(t, http.MethodPost, "/game/m1/move", seq, bearer(t, "zed"))
		require.Equal(t, http.StatusForbidden, rec.Code)
	}
	rec := f.do(t, http.MethodPost, "/game/nowhere/move", seq, bearer(t, "zed"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, f.srv.limiters.size(), "outsiders never get a bucket")

	rec = f.do(t, http.MethodPost, "/game/m1/move", seq, bearer(t, "a"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, f.srv.limiters.size())
}

func TestLimiterSetDropsIdleBuckets(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := newLimiterSet(rate.Every(time.Hour), 2, time.Minute)
	l.now = func() time.Time { return clock }

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"), "burst spent")
	assert.Equal(t, 1, l.size())

	clock = clock.Add(2 * time.Minute)
	assert.True(t, l.allow("b"))
	assert.Equal(t, 1, l.size(), "idle bucket for a swept")

	assert.True(t, l.allow("a"), "a starts a fresh bucket")
	assert.Equal(t, 2, l.size())
}

func TestAdminDelete(t *testing.T) {
	f := newFixture(t)
	f.create(t, "m1")

	rec := f.do(t, http.MethodDelete, "/admin/battles/m1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodDelete, "/admin/battles/m1", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"m1"}, f.records.deleted)

	rec = f.do(t, http.MethodGet, "/game/m1", nil, bearer(t, "a"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/admin/battles/ghost", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Setenv("CLIENT_ORIGIN", "https://play.example")
	f := newFixture(t)

	rec := f.do(t, http.MethodOptions, "/game/m1/move", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://play.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
