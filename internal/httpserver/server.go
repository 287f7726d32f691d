// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the match engine.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/words".
//   - Player endpoints (require JWT): GET /game/{id}, POST /game/{id}/move.
//   - Admin endpoints (require X-Admin-Password): POST /matches,
//     DELETE /admin/battles/{id}.
//
// Notes:
//   - The engine itself is match.Manager; this package only translates HTTP.
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Player identity comes from the "id" claim of an HS256 token issued by
//     the account service, read from the Authorization header or cookie.
//   - The admin password is compared against a bcrypt hash from the env.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/match"
	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/words"
)

// MatchRecords is the durable side of an admin delete.
type MatchRecords interface {
	DeleteMatch(ctx context.Context, id string) error
}

// Server bundles router, match manager, and record store.
type Server struct {
	r        *chi.Mux
	matches  *match.Manager
	records  MatchRecords
	dict     *words.Dictionary
	limiters *limiterSet
}

// New constructs a Server, installs middleware, and registers routes.
// records may be nil when no durable store is configured.
func New(m *match.Manager, records MatchRecords, dict *words.Dictionary) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		matches:  m,
		records:  records,
		dict:     dict,
		limiters: newLimiterSet(rate.Every(200*time.Millisecond), 5, time.Minute),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"zhuyin-battle-go","endpoints":["/health","GET /game/{id}","POST /game/{id}/move","POST /matches"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"words": s.dict.Len(), "longest": s.dict.Longest()})
	})

	s.mountMatchRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:3000.
func corsFromEnv(next http.Handler) http.Handler {
	origin := getEnv("CLIENT_ORIGIN", "http://localhost:3000")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Password")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ctxPlayerKey is the context key type for the authenticated player ID.
type ctxPlayerKey struct{}

// playerFrom returns the player ID stored by requireAuth.
func playerFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxPlayerKey{}).(string)
	return id
}

// requireAuth enforces a valid JWT and injects the player ID into the request context.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerOrCookie(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "No token")
			return
		}
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		id := claimID(claims["id"])
		if id == "" {
			// tokens minted by the lobby service carry a numeric userId
			id = claimID(claims["userId"])
		}
		if id == "" {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxPlayerKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimID renders a string or numeric id claim as a player ID.
func claimID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	}
	return ""
}

// requireAdmin checks X-Admin-Password against the ADMIN_PASSWORD_HASH bcrypt hash.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash := os.Getenv("ADMIN_PASSWORD_HASH")
		if hash == "" {
			writeError(w, http.StatusInternalServerError, "Server configuration error")
			return
		}
		pw := r.Header.Get("X-Admin-Password")
		if pw == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(getEnv("COOKIE_NAME", "zhuyin_token")); err == nil {
		return c.Value
	}
	return ""
}

// limiterSet hands out one token bucket per player. Buckets idle for longer
// than idle are dropped on the next sweep.
type limiterSet struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	idle      time.Duration
	m         map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLimiterSet(every rate.Limit, burst int, idle time.Duration) *limiterSet {
	return &limiterSet{
		every: every,
		burst: burst,
		idle:  idle,
		m:     make(map[string]*limiterEntry),
		now:   time.Now,
	}
}

func (l *limiterSet) allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		for k, e := range l.m {
			if now.Sub(e.seen) >= l.idle {
				delete(l.m, k)
			}
		}
		l.lastSweep = now
	}
	e, ok := l.m[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.m[key] = e
	}
	e.seen = now
	l.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

func (l *limiterSet) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// throttlePlayer rejects requests beyond the caller's move budget with 429.
// It must run after requireParticipant so only players of a live match get a bucket.
func (s *Server) throttlePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiters.allow(playerFrom(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many moves")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- small util --------------------------------

// writeError writes {"error": msg} with status code.
func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
