// internal/game/engine.go
//
// Word-chain engine: one state machine per (guild, channel, language).
// Responsibilities:
//   - Serialise every mutation of a channel through the Locker.
//   - Validate candidate words (shape → turn → chain → repeat → dictionary).
//   - Append accepted words, detect round wins, reseed new rounds.
//   - Emit reactions, notices, outcome events and counters after commit.
//
// States:
//   STOPPED --start-->       RUNNING (seeded)
//   RUNNING --stop/reset-->  RUNNING (new seed, round counted)
//   RUNNING --win-->         RUNNING (winner rewarded, new seed)
//
// A move is computed on a clone of the loaded session and saved once.
// Side effects run only after the save succeeded, so a storage failure
// leaves the session and every collaborator untouched.

package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordchain/internal/lang"
)

const (
	defaultStreakToWin   = 50
	defaultWinReward     = 100
	defaultCorrectReward = 10
	defaultNoticeTTL     = 3 * time.Second
	defaultSeedAttempts  = 10
	defaultSeedRounds    = 10
)

// Config tunes game rules and rewards.
type Config struct {
	StreakToWin   int           // correct answers in one English round that win it
	WinReward     int64         // coins for a round win
	CorrectReward int64         // coins for an accepted word that keeps the round alive
	NoticeTTL     time.Duration // lifetime of rejection notices
	SeedAttempts  int           // samples per seed round
	SeedRounds    int           // resampling rounds before giving up
}

// DefaultConfig returns the rules the bot ships with.
func DefaultConfig() Config {
	return Config{
		StreakToWin:   defaultStreakToWin,
		WinReward:     defaultWinReward,
		CorrectReward: defaultCorrectReward,
		NoticeTTL:     defaultNoticeTTL,
		SeedAttempts:  defaultSeedAttempts,
		SeedRounds:    defaultSeedRounds,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StreakToWin <= 0 {
		c.StreakToWin = d.StreakToWin
	}
	if c.WinReward < 0 {
		c.WinReward = d.WinReward
	}
	if c.CorrectReward < 0 {
		c.CorrectReward = d.CorrectReward
	}
	if c.NoticeTTL <= 0 {
		c.NoticeTTL = d.NoticeTTL
	}
	if c.SeedAttempts <= 0 {
		c.SeedAttempts = d.SeedAttempts
	}
	if c.SeedRounds <= 0 {
		c.SeedRounds = d.SeedRounds
	}
	return c
}

// Deps are the engine's collaborators. All are required.
type Deps struct {
	Dictionary Dictionary
	Sessions   SessionStore
	Channels   Channels
	Reporter   Reporter
	Stats      StatsCounter
	Messenger  Messenger
	Locker     Locker
}

// Engine runs word-chain games.
type Engine struct {
	cfg Config
	Deps

	now   func() time.Time
	newID func() string
}

// New constructs an Engine.
func New(cfg Config, deps Deps) *Engine {
	return &Engine{
		cfg:   cfg.withDefaults(),
		Deps:  deps,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Dispatch routes raw chat text: control commands to OnControl,
// everything else to OnMessage.
func (e *Engine) Dispatch(ctx context.Context, m Message) (Verdict, error) {
	if kind, ok := ParseControl(m.Content); ok {
		return e.OnControl(ctx, Control{Kind: kind, GuildID: m.GuildID, ChannelID: m.ChannelID})
	}
	return e.OnMessage(ctx, m)
}

// OnMessage treats m as a move attempt in its channel.
func (e *Engine) OnMessage(ctx context.Context, m Message) (Verdict, error) {
	var v Verdict
	err := e.Locker.Do(ctx, m.ChannelID, func(ctx context.Context) error {
		var err error
		v, err = e.handleMessage(ctx, m)
		return err
	})
	if err != nil {
		log.Error().Err(err).
			Str("guild", m.GuildID).Str("channel", m.ChannelID).Str("user", m.AuthorID).
			Msg("message dropped")
		return Verdict{Kind: VerdictIgnored}, err
	}
	return v, nil
}

// OnControl applies a start/stop/reset command to its channel.
func (e *Engine) OnControl(ctx context.Context, c Control) (Verdict, error) {
	var v Verdict
	err := e.Locker.Do(ctx, c.ChannelID, func(ctx context.Context) error {
		var err error
		v, err = e.handleControl(ctx, c)
		return err
	})
	if err != nil {
		log.Error().Err(err).
			Str("guild", c.GuildID).Str("channel", c.ChannelID).Stringer("command", c.Kind).
			Msg("control command dropped")
		return Verdict{Kind: VerdictIgnored}, err
	}
	return v, nil
}

// resolve finds the channel's language and loads (or creates) its session.
// ok is false for channels that are not registered for the game.
func (e *Engine) resolve(ctx context.Context, guildID, channelID string) (lang.Language, *Session, bool, error) {
	code, ok, err := e.Channels.LanguageFor(ctx, guildID, channelID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("resolve channel: %w", err)
	}
	if !ok {
		return nil, nil, false, nil
	}
	l, err := lang.Get(code)
	if err != nil {
		return nil, nil, false, fmt.Errorf("channel language %q: %w", code, err)
	}

	key := SessionKey{GuildID: guildID, ChannelID: channelID, Language: code}
	s, err := e.Sessions.Get(ctx, key)
	if errors.Is(err, ErrSessionNotFound) {
		s = &Session{GuildID: guildID, ChannelID: channelID, Language: code, UpdatedAt: e.now()}
		if err := e.Sessions.Save(ctx, s); err != nil {
			return nil, nil, false, fmt.Errorf("init session: %w", err)
		}
		return l, s, true, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("load session: %w", err)
	}
	return l, s, true, nil
}

func (e *Engine) handleMessage(ctx context.Context, m Message) (Verdict, error) {
	l, sess, ok, err := e.resolve(ctx, m.GuildID, m.ChannelID)
	if err != nil {
		return Verdict{}, err
	}
	if !ok || !sess.Running {
		return Verdict{Kind: VerdictIgnored}, nil
	}

	tokens := l.Tokens(m.Content)
	if !l.ShapeValid(tokens) {
		return Verdict{Kind: VerdictRejectedShape}, nil
	}
	word := strings.Join(tokens, " ")
	logger := log.With().
		Str("guild", m.GuildID).Str("channel", m.ChannelID).
		Str("lang", string(l.Code())).Str("user", m.AuthorID).Str("word", word).
		Logger()

	if len(sess.Words) > 0 && m.AuthorID == sess.CurrentPlayer.ID {
		logger.Debug().Msg("rejected: same player twice")
		e.react(ctx, m, ReactReject)
		return Verdict{Kind: VerdictRejectedTurn, Word: word}, nil
	}

	if last := sess.LastWord(); last != "" && !l.Follows(word, last) {
		expected := l.Continuation(last)
		logger.Debug().Str("expected", expected).Msg("rejected: broken chain")
		e.react(ctx, m, ReactReject)
		e.notify(ctx, m.ChannelID, Notice{Kind: NoticeWrongStart, Language: l.Code(), Word: word, Expected: expected, TTL: e.cfg.NoticeTTL})
		return Verdict{Kind: VerdictRejectedChain, Word: word, Expected: expected}, nil
	}

	if sess.Used(word) {
		logger.Debug().Msg("rejected: already used")
		e.react(ctx, m, ReactReject)
		e.notify(ctx, m.ChannelID, Notice{Kind: NoticeUsed, Language: l.Code(), Word: word, TTL: e.cfg.NoticeTTL})
		return Verdict{Kind: VerdictRejectedRepeat, Word: word}, nil
	}

	valid, err := e.isValid(ctx, l.Code(), word)
	if err != nil {
		return Verdict{}, err
	}
	if !valid {
		logger.Debug().Msg("rejected: not in dictionary")
		e.react(ctx, m, ReactReject)
		e.notify(ctx, m.ChannelID, Notice{Kind: NoticeInvalid, Language: l.Code(), Word: word, TTL: e.cfg.NoticeTTL})
		e.report(ctx, e.outcome(OutcomeWrongWord, m, l.Code(), 0, 0, 1))
		return Verdict{Kind: VerdictRejectedInvalid, Word: word}, nil
	}

	return e.accept(ctx, l, sess, m, word)
}

// accept commits word and, when it ends the round, the next round too.
func (e *Engine) accept(ctx context.Context, l lang.Language, sess *Session, m Message, word string) (Verdict, error) {
	author := Player{ID: m.AuthorID, Name: m.DisplayName}
	next := sess.Clone()
	next.Words = append(next.Words, word)
	next.CurrentPlayer = author
	next.UpdatedAt = e.now()

	// The streak win short-circuits the dead-end check for this turn.
	win := NoticeKind("")
	if l.Code() == lang.English && next.bumpStat(author) >= e.cfg.StreakToWin {
		win = NoticeStreakWin
	}
	if win == "" {
		has, err := e.HasAnswer(ctx, l, word, next.Words)
		if err != nil {
			return Verdict{}, err
		}
		if !has {
			win = NoticeDeadEndWin
		}
	}

	if win == "" {
		if err := e.Sessions.Save(ctx, next); err != nil {
			return Verdict{}, fmt.Errorf("save session: %w", err)
		}
		e.react(ctx, m, ReactAccept)
		e.count(ctx, e.Stats.IncrementWordsPlayed, l.Code())
		e.report(ctx, e.outcome(OutcomeCorrectWord, m, l.Code(), 0, 1, 1))
		e.grant(ctx, author.ID, e.cfg.CorrectReward)
		e.count(ctx, e.Stats.IncrementQueries, l.Code())
		return Verdict{Kind: VerdictAccepted, Word: word}, nil
	}

	turns := len(next.Words) - 1
	seed, err := e.RandomWord(ctx, l)
	if err != nil && !errors.Is(err, ErrCorpusExhausted) {
		return Verdict{}, err
	}
	rolled := e.newRound(next, seed)
	if err := e.Sessions.Save(ctx, rolled); err != nil {
		return Verdict{}, fmt.Errorf("save session: %w", err)
	}

	log.Info().
		Str("guild", m.GuildID).Str("channel", m.ChannelID).Str("lang", string(l.Code())).
		Str("winner", author.ID).Str("reason", string(win)).Int("turns", turns).
		Msg("round won")

	e.react(ctx, m, ReactAccept)
	e.count(ctx, e.Stats.IncrementWordsPlayed, l.Code())
	e.report(ctx, e.outcome(OutcomeCorrectWord, m, l.Code(), 0, 1, 1))
	e.notify(ctx, m.ChannelID, Notice{Kind: win, Language: l.Code(), Player: author, Turns: turns, Reward: e.cfg.WinReward})
	e.report(ctx, e.outcome(OutcomeRoundWin, m, l.Code(), 1, 0, 0))
	e.count(ctx, e.Stats.IncrementRoundsPlayed, l.Code())
	e.announceSeed(ctx, m.ChannelID, l.Code(), seed)
	e.grant(ctx, author.ID, e.cfg.WinReward)

	return Verdict{Kind: VerdictRoundWon, Word: word, Seed: seed, Turns: turns, Winner: &author}, nil
}

func (e *Engine) handleControl(ctx context.Context, c Control) (Verdict, error) {
	l, sess, ok, err := e.resolve(ctx, c.GuildID, c.ChannelID)
	if err != nil {
		return Verdict{}, err
	}
	if !ok {
		return Verdict{Kind: VerdictIgnored}, nil
	}

	switch c.Kind {
	case ControlStart:
		if sess.Running {
			e.notify(ctx, c.ChannelID, Notice{Kind: NoticeAlreadyRunning, Language: l.Code()})
			return Verdict{Kind: VerdictAlreadyRunning}, nil
		}
		seed, err := e.RandomWord(ctx, l)
		if errors.Is(err, ErrCorpusExhausted) {
			e.notify(ctx, c.ChannelID, Notice{Kind: NoticeCorpusExhausted, Language: l.Code()})
			return Verdict{Kind: VerdictNotRunning}, nil
		}
		if err != nil {
			return Verdict{}, err
		}
		if err := e.Sessions.Save(ctx, e.newRound(sess, seed)); err != nil {
			return Verdict{}, fmt.Errorf("save session: %w", err)
		}
		log.Info().Str("guild", c.GuildID).Str("channel", c.ChannelID).Str("seed", seed).Msg("game started")
		e.notify(ctx, c.ChannelID, Notice{Kind: NoticeStarted, Language: l.Code()})
		e.announceSeed(ctx, c.ChannelID, l.Code(), seed)
		return Verdict{Kind: VerdictStarted, Seed: seed}, nil

	case ControlStop, ControlReset:
		if !sess.Running {
			e.notify(ctx, c.ChannelID, Notice{Kind: NoticeNotRunning, Language: l.Code()})
			return Verdict{Kind: VerdictNotRunning}, nil
		}
		seed, err := e.RandomWord(ctx, l)
		if err != nil && !errors.Is(err, ErrCorpusExhausted) {
			return Verdict{}, err
		}
		if err := e.Sessions.Save(ctx, e.newRound(sess, seed)); err != nil {
			return Verdict{}, fmt.Errorf("save session: %w", err)
		}
		log.Info().Str("guild", c.GuildID).Str("channel", c.ChannelID).Stringer("command", c.Kind).Msg("round rolled over")
		e.notify(ctx, c.ChannelID, Notice{Kind: NoticeRolledOver, Language: l.Code()})
		e.count(ctx, e.Stats.IncrementRoundsPlayed, l.Code())
		e.announceSeed(ctx, c.ChannelID, l.Code(), seed)
		return Verdict{Kind: VerdictRolledOver, Seed: seed}, nil
	}
	return Verdict{Kind: VerdictIgnored}, nil
}

// newRound returns sess reseeded with seed. An empty seed (exhausted corpus)
// stops the session instead, keeping words non-empty while running.
func (e *Engine) newRound(sess *Session, seed string) *Session {
	next := sess.Clone()
	next.CurrentPlayer = Player{}
	next.PlayerStats = nil
	next.UpdatedAt = e.now()
	if seed == "" {
		next.Running = false
		next.Words = nil
		next.RoundID = ""
		return next
	}
	next.Running = true
	next.Words = []string{seed}
	next.RoundID = e.newID()
	return next
}

// isValid reports dictionary membership minus the blacklist.
func (e *Engine) isValid(ctx context.Context, code lang.Code, word string) (bool, error) {
	black, err := e.Dictionary.Blacklist(ctx, code)
	if err != nil {
		return false, fmt.Errorf("load blacklist: %w", err)
	}
	if _, banned := black[word]; banned {
		return false, nil
	}
	ok, err := e.Dictionary.WordExists(ctx, code, word)
	if err != nil {
		return false, fmt.Errorf("lookup word: %w", err)
	}
	return ok, nil
}

// HasAnswer reports whether some unused dictionary word can follow last.
func (e *Engine) HasAnswer(ctx context.Context, l lang.Language, last string, used []string) (bool, error) {
	exclude := make(map[string]struct{}, len(used))
	for _, w := range used {
		exclude[w] = struct{}{}
	}
	_, ok, err := e.Dictionary.FindSuccessor(ctx, l, last, exclude)
	if err != nil {
		return false, fmt.Errorf("find successor: %w", err)
	}
	return ok, nil
}

// RandomWord picks a seed that is not a dead end. It samples SeedAttempts
// words per round for at most SeedRounds rounds, then gives up with
// ErrCorpusExhausted.
func (e *Engine) RandomWord(ctx context.Context, l lang.Language) (string, error) {
	for round := 0; round < e.cfg.SeedRounds; round++ {
		for attempt := 0; attempt < e.cfg.SeedAttempts; attempt++ {
			w, err := e.Dictionary.RandomCandidate(ctx, l)
			if errors.Is(err, ErrEmptyPool) {
				return "", ErrCorpusExhausted
			}
			if err != nil {
				return "", fmt.Errorf("random candidate: %w", err)
			}
			ok, err := e.HasAnswer(ctx, l, w, []string{w})
			if err != nil {
				return "", err
			}
			if ok {
				return w, nil
			}
		}
		log.Debug().Str("lang", string(l.Code())).Int("round", round+1).Msg("no playable seed in sample, resampling")
	}
	log.Warn().Str("lang", string(l.Code())).Msg("seed selection gave up")
	return "", ErrCorpusExhausted
}

func (e *Engine) outcome(kind OutcomeKind, m Message, code lang.Code, won, correct, total int) Outcome {
	return Outcome{
		ID:          e.newID(),
		Kind:        kind,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		UserID:      m.AuthorID,
		DisplayName: m.DisplayName,
		AvatarURL:   m.AvatarURL,
		Language:    code,
		Won:         won,
		Correct:     correct,
		Total:       total,
		At:          e.now(),
	}
}

func (e *Engine) announceSeed(ctx context.Context, channelID string, code lang.Code, seed string) {
	if seed == "" {
		e.notify(ctx, channelID, Notice{Kind: NoticeCorpusExhausted, Language: code})
		return
	}
	e.notify(ctx, channelID, Notice{Kind: NoticeSeed, Language: code, Word: seed})
}

// --- best-effort side effects: failures are logged, never returned ---

func (e *Engine) react(ctx context.Context, m Message, r Reaction) {
	if m.ID == "" {
		return
	}
	if err := e.Messenger.React(ctx, m.ChannelID, m.ID, r); err != nil {
		log.Warn().Err(err).Str("channel", m.ChannelID).Str("message", m.ID).Msg("react")
	}
}

func (e *Engine) notify(ctx context.Context, channelID string, n Notice) {
	if err := e.Messenger.Notify(ctx, channelID, n); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Str("notice", string(n.Kind)).Msg("notify")
	}
}

func (e *Engine) report(ctx context.Context, o Outcome) {
	if err := e.Reporter.ReportOutcome(ctx, o); err != nil {
		log.Warn().Err(err).Str("user", o.UserID).Str("kind", string(o.Kind)).Msg("report outcome")
	}
}

func (e *Engine) grant(ctx context.Context, userID string, amount int64) {
	if amount == 0 {
		return
	}
	if err := e.Reporter.GrantCurrency(ctx, userID, amount); err != nil {
		log.Warn().Err(err).Str("user", userID).Int64("amount", amount).Msg("grant currency")
	}
}

func (e *Engine) count(ctx context.Context, inc func(context.Context, lang.Code) error, code lang.Code) {
	if err := inc(ctx, code); err != nil {
		log.Warn().Err(err).Str("lang", string(code)).Msg("bump counter")
	}
}
