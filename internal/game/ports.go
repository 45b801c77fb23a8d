package game

import (
	"context"
	"errors"

	"github.com/robalobadob/wordchain/internal/lang"
)

var (
	// ErrSessionNotFound is returned by SessionStore.Get for unknown keys.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyPool is returned by Dictionary.RandomCandidate when no word of
	// the language's shape survives the blacklist.
	ErrEmptyPool = errors.New("no candidate words")

	// ErrCorpusExhausted means no seed with a reachable successor was found
	// within the configured attempt budget.
	ErrCorpusExhausted = errors.New("corpus exhausted: no playable seed word")
)

// Dictionary answers vocabulary questions for a language. The vocabulary
// is the union of canonical and contributed words.
type Dictionary interface {
	// WordExists reports dictionary membership, ignoring the blacklist.
	WordExists(ctx context.Context, code lang.Code, text string) (bool, error)

	// FindSuccessor returns one shape-valid, non-blacklisted word that follows
	// last and is not in exclude.
	FindSuccessor(ctx context.Context, l lang.Language, last string, exclude map[string]struct{}) (string, bool, error)

	// RandomCandidate draws a uniformly random shape-valid, non-blacklisted word.
	RandomCandidate(ctx context.Context, l lang.Language) (string, error)

	// Blacklist returns the reported words for a language.
	Blacklist(ctx context.Context, code lang.Code) (map[string]struct{}, error)
}

// SessionStore persists sessions. Save creates or replaces.
type SessionStore interface {
	Get(ctx context.Context, key SessionKey) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// Channels maps registered game channels to their language.
type Channels interface {
	LanguageFor(ctx context.Context, guildID, channelID string) (lang.Code, bool, error)
}

// Reporter receives scoring events and pays out currency.
type Reporter interface {
	ReportOutcome(ctx context.Context, o Outcome) error
	GrantCurrency(ctx context.Context, userID string, amount int64) error
}

// StatsCounter tracks global per-language counters.
type StatsCounter interface {
	IncrementWordsPlayed(ctx context.Context, code lang.Code) error
	IncrementRoundsPlayed(ctx context.Context, code lang.Code) error
	IncrementQueries(ctx context.Context, code lang.Code) error
}

// Messenger delivers notices and reactions to a chat channel.
type Messenger interface {
	Notify(ctx context.Context, channelID string, n Notice) error
	React(ctx context.Context, channelID, messageID string, r Reaction) error
}

// Locker serialises work per key.
type Locker interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
