package board

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"sync"
)

// Alphabet is the Zhuyin symbol set frontier tiles draw from:
// initials, medials, then finals.
var Alphabet = []string{
	"ㄅ", "ㄆ", "ㄇ", "ㄈ", "ㄉ", "ㄊ", "ㄋ", "ㄌ", "ㄍ", "ㄎ", "ㄏ",
	"ㄐ", "ㄑ", "ㄒ", "ㄓ", "ㄔ", "ㄕ", "ㄖ", "ㄗ", "ㄘ", "ㄙ",
	"ㄧ", "ㄨ", "ㄩ",
	"ㄚ", "ㄛ", "ㄜ", "ㄝ", "ㄞ", "ㄟ", "ㄠ", "ㄡ", "ㄢ", "ㄣ", "ㄤ", "ㄥ", "ㄦ",
}

// PhoneticSource supplies symbols for frontier tiles.
type PhoneticSource interface {
	Next() string
}

// SourceFunc adapts a plain function to PhoneticSource.
type SourceFunc func() string

// Next calls f.
func (f SourceFunc) Next() string { return f() }

// randomSource draws uniformly from Alphabet. Safe for concurrent use.
type randomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns a uniform source seeded with seed.
func NewRandomSource(seed int64) PhoneticSource {
	return &randomSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *randomSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Alphabet[s.rng.Intn(len(Alphabet))]
}

// cycleSource replays a fixed symbol list forever.
type cycleSource struct {
	mu      sync.Mutex
	symbols []string
	i       int
}

// NewCycleSource returns a deterministic source that yields symbols in order
// and wraps around. It panics if symbols is empty.
func NewCycleSource(symbols ...string) PhoneticSource {
	if len(symbols) == 0 {
		panic("board: cycle source needs at least one symbol")
	}
	return &cycleSource{symbols: append([]string(nil), symbols...)}
}

func (s *cycleSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sym := s.symbols[s.i%len(s.symbols)]
	s.i++
	return sym
}

// SeedFor derives a reproducible board seed from HMAC(salt, matchID), so a
// match can be replayed from its id when the salt is known.
func SeedFor(matchID, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(matchID))
	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}
