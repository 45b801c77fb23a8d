// internal/store/store.go
//
// Persistence for the word-chain service.
//
// Two implementations share one Store interface:
//   - Memory: maps behind a RWMutex; state is lost on restart.
//   - SQLite: durable, database/sql + mattn/go-sqlite3.
//
// Both serve the engine's SessionStore, Channels, Reporter and
// StatsCounter ports, plus read models for the admin API.

package store

import (
	"context"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
)

// RankEntry is one player's ranking row in a game channel.
type RankEntry struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	Won     int    `json:"won"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
}

// Counters are the global per-language activity counters.
type Counters struct {
	Queries      int64 `json:"queries"`
	WordsPlayed  int64 `json:"wordsPlayed"`
	RoundsPlayed int64 `json:"roundsPlayed"`
}

// Store is everything the service persists.
type Store interface {
	game.SessionStore
	game.Channels
	game.Reporter
	game.StatsCounter

	// SetChannel makes channelID the guild's game channel for code,
	// replacing any previous channel for that language.
	SetChannel(ctx context.Context, guildID, channelID string, code lang.Code) error

	// Leaderboard returns the top rows by wins, then correct answers.
	Leaderboard(ctx context.Context, guildID, channelID string, code lang.Code, limit int) ([]RankEntry, error)

	// Balance returns a player's coins (0 for unknown players).
	Balance(ctx context.Context, userID string) (int64, error)

	// Counters returns the global counters for code.
	Counters(ctx context.Context, code lang.Code) (Counters, error)

	Close() error
}

const defaultLeaderboardLimit = 20
