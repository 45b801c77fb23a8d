// internal/words/words.go
//
// In-memory dictionary for the word-chain engine.
//
// Responsibilities:
//   - Load per-language vocabularies from files or embedded defaults.
//   - Keep dictionary ∪ contributed words sorted for prefix scans.
//   - Keep the per-language blacklist (reported words).
//   - Answer the engine's Dictionary questions.
//
// Sources (Load):
//   1. If WORDS_<LANG>_FILE is set, that file is the vocabulary.
//   2. Otherwise the embedded assets/<lang>.txt defaults are used.
//   The embedded assets/blacklist_<lang>.txt always seeds the blacklist.
//
// File format: one entry per line, blank lines and "#" comments skipped.
// Entries are normalised by the language (NFC, lowercase, single spaces).

package words

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/robalobadob/wordchain/assets"
	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
)

// Sources names optional vocabulary files per language.
type Sources map[lang.Code]string

// Stats summarises one language's vocabulary.
type Stats struct {
	Words       int `json:"words"`
	Contributed int `json:"contributed"`
	Blacklisted int `json:"blacklisted"`
	Playable    int `json:"playable"`
}

// vocab is one language's word sets.
type vocab struct {
	l           lang.Language
	sorted      []string            // dictionary ∪ contributed
	all         map[string]struct{} // same as sorted
	contributed map[string]struct{}
	blacklist   map[string]struct{}
	pool        []string // shape-valid, not blacklisted; nil = stale
}

// Catalog is a concurrency-safe in-memory Dictionary.
type Catalog struct {
	mu     sync.RWMutex
	vocabs map[lang.Code]*vocab
}

var _ game.Dictionary = (*Catalog)(nil)

// NewCatalog returns an empty catalog for every supported language.
func NewCatalog() *Catalog {
	c := &Catalog{vocabs: make(map[lang.Code]*vocab)}
	for _, l := range lang.All() {
		c.vocabs[l.Code()] = &vocab{
			l:           l,
			all:         make(map[string]struct{}),
			contributed: make(map[string]struct{}),
			blacklist:   make(map[string]struct{}),
		}
	}
	return c
}

// Load builds a catalog from src, falling back to embedded defaults.
func Load(src Sources) (*Catalog, error) {
	c := NewCatalog()
	for _, l := range lang.All() {
		code := l.Code()
		list, err := Entries(code, src[code])
		if err != nil {
			return nil, fmt.Errorf("words: load %s: %w", code, err)
		}
		c.Add(code, list...)

		black, err := assets.Blacklist(string(code))
		if err != nil {
			return nil, fmt.Errorf("words: load %s blacklist: %w", code, err)
		}
		for _, w := range black {
			c.blacklistLocked(code, w)
		}
		if c.Stats(code).Words == 0 {
			return nil, fmt.Errorf("words: %s vocabulary is empty", code)
		}
	}
	return c, nil
}

// Entries returns the raw vocabulary for code: the file at path when set,
// the embedded default list otherwise.
func Entries(code lang.Code, path string) ([]string, error) {
	if path != "" {
		return ReadFile(path)
	}
	return assets.WordList(string(code))
}

// ReadFile loads one entry per line, skipping blanks and "#" comments.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return assets.ParseLines(f)
}

// Add inserts canonical dictionary entries.
func (c *Catalog) Add(code lang.Code, entries ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(code, false, entries...)
}

// AddContributed inserts player-contributed entries.
func (c *Catalog) AddContributed(_ context.Context, code lang.Code, entries ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.vocabs[code]; !ok {
		return lang.ErrUnsupported
	}
	c.addLocked(code, true, entries...)
	return nil
}

// Report blacklists word for code.
func (c *Catalog) Report(_ context.Context, code lang.Code, word string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.vocabs[code]; !ok {
		return lang.ErrUnsupported
	}
	c.blacklistLocked(code, word)
	return nil
}

func (c *Catalog) addLocked(code lang.Code, contributed bool, entries ...string) {
	v, ok := c.vocabs[code]
	if !ok {
		return
	}
	added := false
	for _, e := range entries {
		w := v.l.Normalize(e)
		if w == "" {
			continue
		}
		if contributed {
			v.contributed[w] = struct{}{}
		}
		if _, dup := v.all[w]; dup {
			continue
		}
		v.all[w] = struct{}{}
		v.sorted = append(v.sorted, w)
		added = true
	}
	if added {
		sort.Strings(v.sorted)
		v.pool = nil
	}
}

// blacklistLocked expects c.mu held (or exclusive access during Load).
func (c *Catalog) blacklistLocked(code lang.Code, word string) {
	v, ok := c.vocabs[code]
	if !ok {
		return
	}
	if w := v.l.Normalize(word); w != "" {
		v.blacklist[w] = struct{}{}
		v.pool = nil
	}
}

// WordExists implements game.Dictionary.
func (c *Catalog) WordExists(_ context.Context, code lang.Code, text string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vocabs[code]
	if !ok {
		return false, lang.ErrUnsupported
	}
	_, ok = v.all[v.l.Normalize(text)]
	return ok, nil
}

// FindSuccessor implements game.Dictionary with a binary search on the
// sorted vocabulary followed by a prefix scan.
func (c *Catalog) FindSuccessor(_ context.Context, l lang.Language, last string, exclude map[string]struct{}) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vocabs[l.Code()]
	if !ok {
		return "", false, lang.ErrUnsupported
	}
	prefix := l.SuccessorPrefix(last)
	if prefix == "" {
		return "", false, nil
	}
	for i := sort.SearchStrings(v.sorted, prefix); i < len(v.sorted); i++ {
		w := v.sorted[i]
		if !strings.HasPrefix(w, prefix) {
			break
		}
		if _, used := exclude[w]; used {
			continue
		}
		if _, banned := v.blacklist[w]; banned {
			continue
		}
		if l.ShapeValid(strings.Fields(w)) {
			return w, true, nil
		}
	}
	return "", false, nil
}

// RandomCandidate implements game.Dictionary.
func (c *Catalog) RandomCandidate(_ context.Context, l lang.Language) (string, error) {
	pool, err := c.playable(l.Code())
	if err != nil {
		return "", err
	}
	if len(pool) == 0 {
		return "", game.ErrEmptyPool
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	if err != nil {
		return "", err
	}
	return pool[n.Int64()], nil
}

// Blacklist implements game.Dictionary. The returned map is a copy.
func (c *Catalog) Blacklist(_ context.Context, code lang.Code) (map[string]struct{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vocabs[code]
	if !ok {
		return nil, lang.ErrUnsupported
	}
	out := make(map[string]struct{}, len(v.blacklist))
	for w := range v.blacklist {
		out[w] = struct{}{}
	}
	return out, nil
}

// Stats reports vocabulary counts for code.
func (c *Catalog) Stats(code lang.Code) Stats {
	pool, _ := c.playable(code)
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vocabs[code]
	if !ok {
		return Stats{}
	}
	return Stats{
		Words:       len(v.sorted),
		Contributed: len(v.contributed),
		Blacklisted: len(v.blacklist),
		Playable:    len(pool),
	}
}

// WordStats is Stats behind the context-aware signature shared with the
// SQLite dictionary.
func (c *Catalog) WordStats(_ context.Context, code lang.Code) (Stats, error) {
	if _, err := lang.Get(code); err != nil {
		return Stats{}, err
	}
	return c.Stats(code), nil
}

// playable returns (and caches) the seedable words for code.
func (c *Catalog) playable(code lang.Code) ([]string, error) {
	c.mu.RLock()
	v, ok := c.vocabs[code]
	if ok && v.pool != nil {
		pool := v.pool
		c.mu.RUnlock()
		return pool, nil
	}
	c.mu.RUnlock()
	if !ok {
		return nil, lang.ErrUnsupported
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v.pool != nil {
		return v.pool, nil
	}
	pool := make([]string, 0, len(v.sorted))
	for _, w := range v.sorted {
		if _, banned := v.blacklist[w]; banned {
			continue
		}
		if v.l.ShapeValid(strings.Fields(w)) {
			pool = append(pool, w)
		}
	}
	v.pool = pool
	return pool, nil
}
