// internal/game/types.go
//
// Core type definitions for the word-chain engine.
// Defines:
//   - Session: durable per-(guild, channel, language) game state.
//   - Message / Control: what the chat front-end hands to the engine.
//   - Outcome: scoring events handed to the reward reporter.
//   - Verdict / Notice / Reaction: what the engine decided and what it shows.

package game

import (
	"strings"
	"time"

	"github.com/robalobadob/wordchain/internal/lang"
)

// Player identifies a chat user inside a session.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayerStat is a per-round correct-answer counter (English rounds only).
type PlayerStat struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Correct int    `json:"correct"`
}

// SessionKey addresses exactly one session.
type SessionKey struct {
	GuildID   string
	ChannelID string
	Language  lang.Code
}

// Session holds the state of one game channel for one language.
type Session struct {
	GuildID       string       `json:"guildId"`
	ChannelID     string       `json:"channelId"`
	Language      lang.Code    `json:"language"`
	Running       bool         `json:"running"`
	Words         []string     `json:"words"`         // accepted words of the current round, seed first
	CurrentPlayer Player       `json:"currentPlayer"` // last accepter; empty right after seeding
	PlayerStats   []PlayerStat `json:"playerStats"`   // reset every round
	RoundID       string       `json:"roundId"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Key returns the session's address.
func (s *Session) Key() SessionKey {
	return SessionKey{GuildID: s.GuildID, ChannelID: s.ChannelID, Language: s.Language}
}

// LastWord returns the newest accepted word, or "" for an empty history.
func (s *Session) LastWord() string {
	if len(s.Words) == 0 {
		return ""
	}
	return s.Words[len(s.Words)-1]
}

// Used reports whether word was already accepted this round.
func (s *Session) Used(word string) bool {
	for _, w := range s.Words {
		if w == word {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate freely before saving.
func (s *Session) Clone() *Session {
	c := *s
	c.Words = append([]string(nil), s.Words...)
	c.PlayerStats = append([]PlayerStat(nil), s.PlayerStats...)
	return &c
}

// bumpStat increments the author's round counter and returns the new value.
func (s *Session) bumpStat(p Player) int {
	for i := range s.PlayerStats {
		if s.PlayerStats[i].ID == p.ID {
			s.PlayerStats[i].Correct++
			s.PlayerStats[i].Name = p.Name
			return s.PlayerStats[i].Correct
		}
	}
	s.PlayerStats = append(s.PlayerStats, PlayerStat{ID: p.ID, Name: p.Name, Correct: 1})
	return 1
}

// Message is an inbound chat message from a game channel.
type Message struct {
	ID          string `json:"id"`
	GuildID     string `json:"guildId"`
	ChannelID   string `json:"channelId"`
	AuthorID    string `json:"authorId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Content     string `json:"content"`
}

// ControlKind enumerates the chat control commands.
type ControlKind int

const (
	ControlStart ControlKind = iota + 1
	ControlStop
	ControlReset
)

func (k ControlKind) String() string {
	switch k {
	case ControlStart:
		return "start"
	case ControlStop:
		return "stop"
	case ControlReset:
		return "reset"
	}
	return "unknown"
}

// ParseControl recognises "!start", "!stop" and "!reset" (case-insensitive).
func ParseControl(text string) (ControlKind, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "!start":
		return ControlStart, true
	case "!stop":
		return ControlStop, true
	case "!reset":
		return ControlReset, true
	}
	return 0, false
}

// Control is a parsed control command for a channel.
type Control struct {
	Kind      ControlKind `json:"kind"`
	GuildID   string      `json:"guildId"`
	ChannelID string      `json:"channelId"`
}

// OutcomeKind classifies scoring events.
type OutcomeKind string

const (
	OutcomeCorrectWord OutcomeKind = "correct_word"
	OutcomeWrongWord   OutcomeKind = "wrong_word"
	OutcomeRoundWin    OutcomeKind = "round_win"
)

// Outcome is a scoring-relevant result handed to the Reporter.
// Won/Correct/Total are deltas to add to the player's ranking row.
type Outcome struct {
	ID          string      `json:"id"`
	Kind        OutcomeKind `json:"kind"`
	GuildID     string      `json:"guildId"`
	ChannelID   string      `json:"channelId"`
	UserID      string      `json:"userId"`
	DisplayName string      `json:"displayName"`
	AvatarURL   string      `json:"avatarUrl"`
	Language    lang.Code   `json:"language"`
	Won         int         `json:"won"`
	Correct     int         `json:"correct"`
	Total       int         `json:"total"`
	At          time.Time   `json:"at"`
}

// VerdictKind is the engine's decision for one message or command.
type VerdictKind string

const (
	VerdictIgnored         VerdictKind = "ignored"
	VerdictAccepted        VerdictKind = "accepted"
	VerdictRejectedShape   VerdictKind = "rejected_shape"
	VerdictRejectedTurn    VerdictKind = "rejected_turn"
	VerdictRejectedChain   VerdictKind = "rejected_chain"
	VerdictRejectedRepeat  VerdictKind = "rejected_repeat"
	VerdictRejectedInvalid VerdictKind = "rejected_invalid"
	VerdictRoundWon        VerdictKind = "round_won"
	VerdictStarted         VerdictKind = "started"
	VerdictAlreadyRunning  VerdictKind = "already_running"
	VerdictRolledOver      VerdictKind = "rolled_over"
	VerdictNotRunning      VerdictKind = "not_running"
)

// Verdict describes what happened. Only the fields relevant to Kind are set.
type Verdict struct {
	Kind     VerdictKind `json:"kind"`
	Word     string      `json:"word,omitempty"`
	Expected string      `json:"expected,omitempty"` // required continuation on a chain rejection
	Seed     string      `json:"seed,omitempty"`     // first word of a freshly started round
	Turns    int         `json:"turns,omitempty"`    // words played in a won round, seed excluded
	Winner   *Player     `json:"winner,omitempty"`
}

// Accepted reports whether the verdict committed a word.
func (v Verdict) Accepted() bool {
	return v.Kind == VerdictAccepted || v.Kind == VerdictRoundWon
}

// Reaction is the marker put on a player's message.
type Reaction string

const (
	ReactAccept Reaction = "✅"
	ReactReject Reaction = "❌"
)

// NoticeKind selects the text a Messenger renders.
type NoticeKind string

const (
	NoticeStarted         NoticeKind = "started"
	NoticeAlreadyRunning  NoticeKind = "already_running"
	NoticeRolledOver      NoticeKind = "rolled_over"
	NoticeNotRunning      NoticeKind = "not_running"
	NoticeSeed            NoticeKind = "seed"
	NoticeWrongStart      NoticeKind = "wrong_start"
	NoticeUsed            NoticeKind = "used"
	NoticeInvalid         NoticeKind = "invalid"
	NoticeStreakWin       NoticeKind = "streak_win"
	NoticeDeadEndWin      NoticeKind = "dead_end_win"
	NoticeCorpusExhausted NoticeKind = "corpus_exhausted"
)

// Notice is a language-tagged message for a channel. A positive TTL asks
// the messenger to delete it after that long.
type Notice struct {
	Kind     NoticeKind
	Language lang.Code
	Word     string
	Expected string
	Player   Player
	Turns    int
	Reward   int64
	TTL      time.Duration
}
