// apps/go-server/internal/words/words.go
//
// Dictionary of valid Zhuyin "words" (short phonetic symbol sequences).
//
// Responsibilities:
//   - Load a newline-delimited word list from DICTIONARY_FILE, or fall back to
//     the embedded default in assets/dictionary.txt.
//   - Hold an immutable membership set plus a prefix set used to prune
//     searches over the board.
//
// Loading rules:
//   • Lines are trimmed; blank lines and lines starting with '#' are skipped.
//   • An unreadable source or an empty list is an error. The server treats
//     it as fatal at startup: with no words no move can ever be validated.

package words

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/assets"
)

// ErrEmpty is returned when a source yields no words.
var ErrEmpty = errors.New("words: dictionary is empty")

// Dictionary is a read-only word set. The zero value contains no words.
type Dictionary struct {
	set      map[string]struct{}
	prefixes map[string]struct{} // every proper and full prefix of every word
	longest  int                 // longest word, in symbols
}

// New builds a dictionary from list. Duplicates are folded.
func New(list []string) *Dictionary {
	d := &Dictionary{
		set:      make(map[string]struct{}, len(list)),
		prefixes: make(map[string]struct{}, len(list)*2),
	}
	for _, w := range list {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		d.set[w] = struct{}{}
		for i := range w {
			if i > 0 {
				d.prefixes[w[:i]] = struct{}{}
			}
		}
		d.prefixes[w] = struct{}{}
		n := Symbols(w)
		if n > d.longest {
			d.longest = n
		}
	}
	return d
}

// Load reads the word list at path, or the embedded default when path is "".
// On failure the returned dictionary is empty, never nil.
func Load(path string) (*Dictionary, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if path == "" {
		rc, err = assets.Dictionary()
	} else {
		rc, err = os.Open(path)
	}
	if err != nil {
		return New(nil), fmt.Errorf("words: open dictionary: %w", err)
	}
	defer rc.Close()

	list, err := Parse(rc)
	if err != nil {
		return New(nil), fmt.Errorf("words: read dictionary: %w", err)
	}
	d := New(list)
	if d.Len() == 0 {
		return d, ErrEmpty
	}
	return d, nil
}

// Parse splits a newline-delimited source into words.
func Parse(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		out = append(out, w)
	}
	return out, sc.Err()
}

// Contains reports whether w is a dictionary word.
func (d *Dictionary) Contains(w string) bool {
	if d == nil {
		return false
	}
	_, ok := d.set[w]
	return ok
}

// HasPrefix reports whether some word starts with p (a word is its own prefix).
func (d *Dictionary) HasPrefix(p string) bool {
	if d == nil {
		return false
	}
	_, ok := d.prefixes[p]
	return ok
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.set)
}

// Longest returns the length of the longest word in symbols.
func (d *Dictionary) Longest() int {
	if d == nil {
		return 0
	}
	return d.longest
}

// Symbols counts the phonetic symbols in w.
func Symbols(w string) int { return utf8.RuneCountInString(w) }
