// internal/store/memory.go
//
// In-memory implementation of Store.
// A lightweight persistence layer for development, tests, or when
// durability is not required.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads, exclusive writes).
//   - Sessions are cloned on the way in and out, so callers never share
//     slices with the stored copy.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
)

type channelKey struct {
	guildID string
	code    lang.Code
}

type rankKey struct {
	guildID   string
	channelID string
	code      lang.Code
}

// Memory is a map-backed Store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[game.SessionKey]*game.Session
	channels map[channelKey]string // (guild, language) → channel
	rankings map[rankKey]map[string]*RankEntry
	coins    map[string]int64
	counters map[lang.Code]*Counters
	seen     map[string]struct{} // applied outcome IDs
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[game.SessionKey]*game.Session),
		channels: make(map[channelKey]string),
		rankings: make(map[rankKey]map[string]*RankEntry),
		coins:    make(map[string]int64),
		counters: make(map[lang.Code]*Counters),
		seen:     make(map[string]struct{}),
	}
}

// Get returns a copy of the stored session.
func (m *Memory) Get(_ context.Context, key game.SessionKey) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.Clone(), nil
	}
	return nil, game.ErrSessionNotFound
}

// Save adds or replaces the session.
func (m *Memory) Save(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Key()] = s.Clone()
	return nil
}

// SetChannel makes channelID the guild's game channel for code, replacing
// any earlier registration.
func (m *Memory) SetChannel(_ context.Context, guildID, channelID string, code lang.Code) error {
	if _, err := lang.Get(code); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[channelKey{guildID: guildID, code: code}] = channelID
	return nil
}

// LanguageFor reports which language channelID is registered for, if any.
func (m *Memory) LanguageFor(_ context.Context, guildID, channelID string) (lang.Code, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range lang.All() {
		if ch, ok := m.channels[channelKey{guildID: guildID, code: l.Code()}]; ok && ch == channelID {
			return l.Code(), true, nil
		}
	}
	return "", false, nil
}

// ReportOutcome adds the outcome's deltas to the player's ranking row.
// Replays of an already applied outcome ID are ignored.
func (m *Memory) ReportOutcome(_ context.Context, o game.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID != "" {
		if _, dup := m.seen[o.ID]; dup {
			return nil
		}
		m.seen[o.ID] = struct{}{}
	}
	k := rankKey{guildID: o.GuildID, channelID: o.ChannelID, code: o.Language}
	rows, ok := m.rankings[k]
	if !ok {
		rows = make(map[string]*RankEntry)
		m.rankings[k] = rows
	}
	r, ok := rows[o.UserID]
	if !ok {
		r = &RankEntry{UserID: o.UserID}
		rows[o.UserID] = r
	}
	r.Name, r.Avatar = o.DisplayName, o.AvatarURL
	r.Won += o.Won
	r.Correct += o.Correct
	r.Total += o.Total
	return nil
}

// GrantCurrency adds amount to the user's balance.
func (m *Memory) GrantCurrency(_ context.Context, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coins[userID] += amount
	return nil
}

// Balance returns the user's coins (0 for unknown users).
func (m *Memory) Balance(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.coins[userID], nil
}

// Leaderboard returns up to limit rows ordered by wins, then correct words.
func (m *Memory) Leaderboard(_ context.Context, guildID, channelID string, code lang.Code, limit int) ([]RankEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	m.mu.RLock()
	out := make([]RankEntry, 0, len(m.rankings[rankKey{guildID, channelID, code}]))
	for _, r := range m.rankings[rankKey{guildID, channelID, code}] {
		out = append(out, *r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Won != out[j].Won {
			return out[i].Won > out[j].Won
		}
		if out[i].Correct != out[j].Correct {
			return out[i].Correct > out[j].Correct
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IncrementWordsPlayed counts one accepted word.
func (m *Memory) IncrementWordsPlayed(_ context.Context, code lang.Code) error {
	m.bump(code, func(c *Counters) { c.WordsPlayed++ })
	return nil
}

// IncrementRoundsPlayed counts one finished round.
func (m *Memory) IncrementRoundsPlayed(_ context.Context, code lang.Code) error {
	m.bump(code, func(c *Counters) { c.RoundsPlayed++ })
	return nil
}

// IncrementQueries counts one dictionary lookup that continued a round.
func (m *Memory) IncrementQueries(_ context.Context, code lang.Code) error {
	m.bump(code, func(c *Counters) { c.Queries++ })
	return nil
}

func (m *Memory) bump(code lang.Code, f func(*Counters)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[code]
	if !ok {
		c = &Counters{}
		m.counters[code] = c
	}
	f(c)
}

// Counters returns the global counters for code.
func (m *Memory) Counters(_ context.Context, code lang.Code) (Counters, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.counters[code]; ok {
		return *c, nil
	}
	return Counters{}, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
