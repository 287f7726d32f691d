// apps/go-server/internal/httpserver/routes_match.go
//
// HTTP routes for live matches.
//   - POST   /matches            → admin: create a match (id generated if omitted)
//   - GET    /game/{id}          → player: current view plus isMyTurn
//   - POST   /game/{id}/move     → player: submit a tile sequence (participants only)
//   - DELETE /admin/battles/{id} → admin: drop the durable record and abort the match
//
// Finished matches stay readable for the retention window; after that GET
// returns 404 like any unknown ID.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/game"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/hexgrid"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/match"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/records"
)

// mountMatchRoutes registers the match and admin routes.
func (s *Server) mountMatchRoutes() {
	s.r.With(requireAdmin).Post("/matches", s.handleCreate)
	s.r.With(requireAdmin).Delete("/admin/battles/{id}", s.handleAdminDelete)

	s.r.Route("/game/{id}", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", s.handleGet)
		r.With(s.requireParticipant, s.throttlePlayer).Post("/move", s.handleMove)
	})
}

// -----------------------------------------------------------------------------
// POST /matches

type createReq struct {
	MatchID     string `json:"matchId"`
	Player1ID   string `json:"player1Id"`
	Player2ID   string `json:"player2Id"`
	Player1Name string `json:"player1Name"`
	Player2Name string `json:"player2Name"`
	Mode        string `json:"mode"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MatchID == "" {
		req.MatchID = uuid.New().String()
	}
	p1 := game.Player{ID: req.Player1ID, Name: orDefault(req.Player1Name, "Player 1")}
	p2 := game.Player{ID: req.Player2ID, Name: orDefault(req.Player2Name, "Player 2")}

	v, err := s.matches.Create(r.Context(), req.MatchID, p1, p2, mode)
	switch {
	case errors.Is(err, match.ErrInvalidPlayers), errors.Is(err, match.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("match", req.MatchID).Msg("create match")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

// requireParticipant answers 404 for unknown matches and 403 for callers who
// are not one of its two players.
func (s *Server) requireParticipant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.matches.IsPlayer(r.Context(), chi.URLParam(r, "id"), playerFrom(r))
		switch {
		case err != nil:
			writeError(w, http.StatusNotFound, "Game not found or finished")
			return
		case !ok:
			writeError(w, http.StatusForbidden, "Not a player in this game")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -----------------------------------------------------------------------------
// GET /game/{id}

// gameRes is the view as seen by the requesting player.
type gameRes struct {
	game.View
	IsMyTurn bool `json:"isMyTurn"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	v, err := s.matches.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Game not found or finished")
		return
	}
	_ = json.NewEncoder(w).Encode(gameRes{
		View:     v,
		IsMyTurn: v.Status == game.StatusPlaying && v.Turn == playerFrom(r),
	})
}

// -----------------------------------------------------------------------------
// POST /game/{id}/move

type moveReq struct {
	Sequence []hexgrid.Pos `json:"sequence"`
}

type moveRes struct {
	Success bool   `json:"success"`
	Word    string `json:"word"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	id := chi.URLParam(r, "id")
	word, err := s.matches.SubmitTurn(r.Context(), id, playerFrom(r), req.Sequence)
	switch {
	case errors.Is(err, match.ErrNotFound):
		writeError(w, http.StatusNotFound, "Game not found or finished")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_ = json.NewEncoder(w).Encode(moveRes{Success: true, Word: word})
}

// -----------------------------------------------------------------------------
// DELETE /admin/battles/{id}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.records != nil {
		if err := s.records.DeleteMatch(r.Context(), id); err != nil && !errors.Is(err, records.ErrMatchNotFound) {
			log.Error().Err(err).Str("match", id).Msg("delete battle row")
			writeError(w, http.StatusInternalServerError, "delete_failed")
			return
		}
	}
	if err := s.matches.ForceEnd(r.Context(), id); err != nil && !errors.Is(err, match.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
