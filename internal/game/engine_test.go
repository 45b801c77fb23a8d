package game_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
	"github.com/robalobadob/wordchain/internal/lock"
	"github.com/robalobadob/wordchain/internal/store"
	"github.com/robalobadob/wordchain/internal/words"
)

const (
	guild   = "g1"
	channel = "c1"
)

// recorder is a Messenger that keeps everything it was asked to show.
type recorder struct {
	mu        sync.Mutex
	notices   []game.Notice
	reactions []game.Reaction
	fail      bool
}

func (r *recorder) Notify(_ context.Context, _ string, n game.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	if r.fail {
		return errors.New("chat down")
	}
	return nil
}

func (r *recorder) React(_ context.Context, _, _ string, re game.Reaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reactions = append(r.reactions, re)
	if r.fail {
		return errors.New("chat down")
	}
	return nil
}

func (r *recorder) kinds() []game.NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]game.NoticeKind, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Kind)
	}
	return out
}

func (r *recorder) last() game.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[len(r.notices)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices, r.reactions = nil, nil
}

// flakySessions fails Save on demand.
type flakySessions struct {
	*store.Memory
	fail bool
}

func (f *flakySessions) Save(ctx context.Context, s *game.Session) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Save(ctx, s)
}

type env struct {
	eng      *game.Engine
	st       *store.Memory
	sessions *flakySessions
	msgr     *recorder
	code     lang.Code
}

func newEnv(t *testing.T, cfg game.Config, code lang.Code, vocab ...string) *env {
	t.Helper()
	st := store.NewMemory()
	require.NoError(t, st.SetChannel(context.Background(), guild, channel, code))
	dict := words.NewCatalog()
	dict.Add(code, vocab...)
	e := &env{st: st, sessions: &flakySessions{Memory: st}, msgr: &recorder{}, code: code}
	e.eng = game.New(cfg, game.Deps{
		Dictionary: dict,
		Sessions:   e.sessions,
		Channels:   st,
		Reporter:   st,
		Stats:      st,
		Messenger:  e.msgr,
		Locker:     lock.New(time.Millisecond),
	})
	return e
}

// running stores a running session holding ws.
func (e *env) running(t *testing.T, ws ...string) {
	t.Helper()
	require.NoError(t, e.st.Save(context.Background(), &game.Session{
		GuildID: guild, ChannelID: channel, Language: e.code,
		Running: true, Words: ws, RoundID: "round-0",
	}))
}

func (e *env) session(t *testing.T) *game.Session {
	t.Helper()
	s, err := e.st.Get(context.Background(), game.SessionKey{GuildID: guild, ChannelID: channel, Language: e.code})
	require.NoError(t, err)
	return s
}

func (e *env) play(t *testing.T, user, text string) game.Verdict {
	t.Helper()
	v, err := e.eng.OnMessage(context.Background(), game.Message{
		ID: "m-" + text, GuildID: guild, ChannelID: channel,
		AuthorID: user, DisplayName: "name-" + user, Content: text,
	})
	require.NoError(t, err)
	return v
}

func (e *env) control(t *testing.T, k game.ControlKind) game.Verdict {
	t.Helper()
	v, err := e.eng.OnControl(context.Background(), game.Control{Kind: k, GuildID: guild, ChannelID: channel})
	require.NoError(t, err)
	return v
}

var viVocab = []string{"con mèo", "mèo con", "con gà", "gà con", "mèo lười", "mèo mướp", "mướp đắng", "đắng cay"}

func TestUnregisteredChannelIsIgnored(t *testing.T) {
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)
	v, err := e.eng.OnMessage(context.Background(), game.Message{GuildID: guild, ChannelID: "other", AuthorID: "u1", Content: "con mèo"})
	require.NoError(t, err)
	assert.Equal(t, game.VerdictIgnored, v.Kind)
	assert.Empty(t, e.msgr.kinds())
}

func TestMessagesIgnoredWhileStopped(t *testing.T) {
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)

	v := e.play(t, "u1", "con mèo")
	assert.Equal(t, game.VerdictIgnored, v.Kind)

	// The first message creates the session, stopped.
	s := e.session(t)
	assert.False(t, s.Running)
	assert.Empty(t, s.Words)
}

func TestStartSeedsPlayableWord(t *testing.T) {
	e := newEnv(t, game.Config{}, lang.Vietnamese, "con mèo", "mèo con", "con gà")

	v := e.control(t, game.ControlStart)
	require.Equal(t, game.VerdictStarted, v.Kind)
	assert.NotEqual(t, "con gà", v.Seed, "dead ends are never seeded")

	s := e.session(t)
	assert.True(t, s.Running)
	assert.Equal(t, []string{v.Seed}, s.Words)
	assert.NotEmpty(t, s.RoundID)
	assert.Equal(t, []game.NoticeKind{game.NoticeStarted, game.NoticeSeed}, e.msgr.kinds())
	assert.Equal(t, v.Seed, e.msgr.last().Word)

	e.msgr.reset()
	v = e.control(t, game.ControlStart)
	assert.Equal(t, game.VerdictAlreadyRunning, v.Kind)
	assert.Equal(t, []game.NoticeKind{game.NoticeAlreadyRunning}, e.msgr.kinds())
	assert.Equal(t, s.Words, e.session(t).Words)
}

func TestDispatchRoutesCommands(t *testing.T) {
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)
	v, err := e.eng.Dispatch(context.Background(), game.Message{GuildID: guild, ChannelID: channel, AuthorID: "u1", Content: " !START "})
	require.NoError(t, err)
	assert.Equal(t, game.VerdictStarted, v.Kind)
}

func TestVietnameseMoves(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)
	e.running(t, "con mèo")

	v := e.play(t, "u1", "Mèo  Con")
	require.Equal(t, game.VerdictAccepted, v.Kind)
	assert.Equal(t, "mèo con", v.Word)

	s := e.session(t)
	assert.Equal(t, []string{"con mèo", "mèo con"}, s.Words)
	assert.Equal(t, game.Player{ID: "u1", Name: "name-u1"}, s.CurrentPlayer)
	assert.Equal(t, []game.Reaction{game.ReactAccept}, e.msgr.reactions)
	assert.Empty(t, e.msgr.notices)

	coins, _ := e.st.Balance(ctx, "u1")
	assert.Equal(t, int64(10), coins)
	c, _ := e.st.Counters(ctx, lang.Vietnamese)
	assert.Equal(t, store.Counters{Queries: 1, WordsPlayed: 1}, c)

	// Same player twice: reaction only.
	e.msgr.reset()
	v = e.play(t, "u1", "con gà")
	assert.Equal(t, game.VerdictRejectedTurn, v.Kind)
	assert.Equal(t, []game.Reaction{game.ReactReject}, e.msgr.reactions)
	assert.Empty(t, e.msgr.notices)

	// Broken chain.
	e.msgr.reset()
	v = e.play(t, "u2", "mèo mướp")
	assert.Equal(t, game.VerdictRejectedChain, v.Kind)
	assert.Equal(t, "con", v.Expected)
	n := e.msgr.last()
	assert.Equal(t, game.NoticeWrongStart, n.Kind)
	assert.Equal(t, "con", n.Expected)
	assert.Equal(t, 3*time.Second, n.TTL)

	// Repeat within the round.
	v = e.play(t, "u2", "con mèo")
	assert.Equal(t, game.VerdictRejectedRepeat, v.Kind)
	assert.Equal(t, game.NoticeUsed, e.msgr.last().Kind)

	// Unknown word.
	v = e.play(t, "u2", "con chó")
	assert.Equal(t, game.VerdictRejectedInvalid, v.Kind)
	assert.Equal(t, game.NoticeInvalid, e.msgr.last().Kind)

	// Wrong shape is silent.
	e.msgr.reset()
	v = e.play(t, "u2", "con gà trống")
	assert.Equal(t, game.VerdictRejectedShape, v.Kind)
	assert.Empty(t, e.msgr.reactions)
	assert.Empty(t, e.msgr.notices)

	assert.Equal(t, []string{"con mèo", "mèo con"}, e.session(t).Words)

	rows, err := e.st.Leaderboard(ctx, guild, channel, lang.Vietnamese, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, store.RankEntry{UserID: "u1", Name: "name-u1", Correct: 1, Total: 1}, rows[0])
	assert.Equal(t, store.RankEntry{UserID: "u2", Name: "name-u2", Total: 1}, rows[1])
}

func TestBlacklistedWordIsInvalid(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.SetChannel(ctx, guild, channel, lang.Vietnamese))
	dict := words.NewCatalog()
	dict.Add(lang.Vietnamese, viVocab...)
	require.NoError(t, dict.Report(ctx, lang.Vietnamese, "mèo con"))
	eng := game.New(game.Config{}, game.Deps{
		Dictionary: dict, Sessions: st, Channels: st, Reporter: st, Stats: st,
		Messenger: game.LogMessenger{}, Locker: lock.New(time.Millisecond),
	})
	require.NoError(t, st.Save(ctx, &game.Session{GuildID: guild, ChannelID: channel, Language: lang.Vietnamese, Running: true, Words: []string{"con mèo"}}))

	v, err := eng.OnMessage(ctx, game.Message{GuildID: guild, ChannelID: channel, AuthorID: "u1", Content: "mèo con"})
	require.NoError(t, err)
	assert.Equal(t, game.VerdictRejectedInvalid, v.Kind)
}

func TestDeadEndWinsRound(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)
	e.running(t, "con mèo")

	// Nothing starts with "lười".
	v := e.play(t, "u1", "mèo lười")
	require.Equal(t, game.VerdictRoundWon, v.Kind)
	require.NotNil(t, v.Winner)
	assert.Equal(t, "u1", v.Winner.ID)
	assert.Equal(t, 1, v.Turns)
	require.NotEmpty(t, v.Seed)

	s := e.session(t)
	assert.True(t, s.Running)
	assert.Equal(t, []string{v.Seed}, s.Words)
	assert.NotEqual(t, "round-0", s.RoundID)
	assert.Empty(t, s.CurrentPlayer.ID)

	assert.Equal(t, []game.NoticeKind{game.NoticeDeadEndWin, game.NoticeSeed}, e.msgr.kinds())
	assert.Equal(t, int64(100), e.msgr.notices[0].Reward)

	coins, _ := e.st.Balance(ctx, "u1")
	assert.Equal(t, int64(100), coins)
	c, _ := e.st.Counters(ctx, lang.Vietnamese)
	assert.Equal(t, store.Counters{WordsPlayed: 1, RoundsPlayed: 1}, c)
	rows, _ := e.st.Leaderboard(ctx, guild, channel, lang.Vietnamese, 0)
	require.Len(t, rows, 1)
	assert.Equal(t, store.RankEntry{UserID: "u1", Name: "name-u1", Won: 1, Correct: 1, Total: 1}, rows[0])
}

func TestEnglishStreakWin(t *testing.T) {
	e := newEnv(t, game.Config{StreakToWin: 3}, lang.English,
		"apple", "egg", "goat", "tiger", "rat", "tea")
	e.running(t, "apple")

	moves := []struct{ user, word string }{
		{"u1", "egg"}, {"u2", "goat"}, {"u1", "tiger"}, {"u2", "rat"},
	}
	for _, m := range moves {
		v := e.play(t, m.user, m.word)
		require.Equal(t, game.VerdictAccepted, v.Kind, m.word)
	}
	assert.Equal(t, []game.PlayerStat{
		{ID: "u1", Name: "name-u1", Correct: 2},
		{ID: "u2", Name: "name-u2", Correct: 2},
	}, e.session(t).PlayerStats)

	// Third correct answer for u1. "tea" is also a dead end, but the streak wins first.
	v := e.play(t, "u1", "tea")
	require.Equal(t, game.VerdictRoundWon, v.Kind)
	assert.Equal(t, 5, v.Turns)
	assert.Equal(t, game.NoticeStreakWin, e.msgr.notices[0].Kind)
	assert.Empty(t, e.session(t).PlayerStats)
}

func TestEnglishRules(t *testing.T) {
	e := newEnv(t, game.Config{}, lang.English, "apple", "egg", "eagle", "goat")
	e.running(t, "apple")

	assert.Equal(t, game.VerdictRejectedShape, e.play(t, "u1", "e").Kind)
	assert.Equal(t, game.VerdictRejectedShape, e.play(t, "u1", "egg nog").Kind)

	v := e.play(t, "u1", "goat")
	assert.Equal(t, game.VerdictRejectedChain, v.Kind)
	assert.Equal(t, "e", v.Expected)

	assert.Equal(t, game.VerdictAccepted, e.play(t, "u1", "EGG").Kind)
}

func TestStopRollsOverRunningRound(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)

	// Stopped session: notice only.
	v := e.control(t, game.ControlStop)
	assert.Equal(t, game.VerdictNotRunning, v.Kind)
	assert.Equal(t, []game.NoticeKind{game.NoticeNotRunning}, e.msgr.kinds())
	assert.False(t, e.session(t).Running)

	e.running(t, "con mèo", "mèo con")
	e.msgr.reset()
	for _, k := range []game.ControlKind{game.ControlStop, game.ControlReset} {
		v = e.control(t, k)
		require.Equal(t, game.VerdictRolledOver, v.Kind)
		s := e.session(t)
		assert.True(t, s.Running, "stop starts a fresh round")
		assert.Equal(t, []string{v.Seed}, s.Words)
	}
	assert.Equal(t, []game.NoticeKind{
		game.NoticeRolledOver, game.NoticeSeed,
		game.NoticeRolledOver, game.NoticeSeed,
	}, e.msgr.kinds())
	c, _ := e.st.Counters(ctx, lang.Vietnamese)
	assert.Equal(t, int64(2), c.RoundsPlayed)
}

func TestCorpusExhausted(t *testing.T) {
	// "con mèo" is the only word and nothing follows it.
	e := newEnv(t, game.Config{SeedAttempts: 2, SeedRounds: 2}, lang.Vietnamese, "con mèo")

	v := e.control(t, game.ControlStart)
	assert.Equal(t, game.VerdictNotRunning, v.Kind)
	assert.Equal(t, []game.NoticeKind{game.NoticeCorpusExhausted}, e.msgr.kinds())
	assert.False(t, e.session(t).Running)

	// A dead-end win with no playable seed stops the session.
	e.running(t, "gà con")
	e.msgr.reset()
	v = e.play(t, "u1", "con mèo")
	require.Equal(t, game.VerdictRoundWon, v.Kind)
	assert.Empty(t, v.Seed)
	s := e.session(t)
	assert.False(t, s.Running)
	assert.Empty(t, s.Words)
	assert.Equal(t, []game.NoticeKind{game.NoticeDeadEndWin, game.NoticeCorpusExhausted}, e.msgr.kinds())
}

func TestRandomWordNeverDeadEnd(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)
	vi := lang.MustGet(lang.Vietnamese)
	for i := 0; i < 100; i++ {
		w, err := e.eng.RandomWord(ctx, vi)
		require.NoError(t, err)
		ok, err := e.eng.HasAnswer(ctx, vi, w, []string{w})
		require.NoError(t, err)
		assert.True(t, ok, w)
	}
}

func TestHasAnswerSkipsUsedWords(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)
	vi := lang.MustGet(lang.Vietnamese)

	ok, err := e.eng.HasAnswer(ctx, vi, "gà con", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.eng.HasAnswer(ctx, vi, "gà con", []string{"con mèo", "con gà"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentSubmissionsAcceptOne(t *testing.T) {
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)
	e.running(t, "con mèo")

	var wg sync.WaitGroup
	verdicts := make([]game.Verdict, 2)
	for i, m := range []struct{ user, word string }{{"u1", "mèo con"}, {"u2", "mèo mướp"}} {
		wg.Add(1)
		go func(i int, user, word string) {
			defer wg.Done()
			v, err := e.eng.OnMessage(context.Background(), game.Message{
				GuildID: guild, ChannelID: channel, AuthorID: user, Content: word,
			})
			assert.NoError(t, err)
			verdicts[i] = v
		}(i, m.user, m.word)
	}
	wg.Wait()

	accepted := 0
	for _, v := range verdicts {
		if v.Accepted() {
			accepted++
		} else {
			assert.Equal(t, game.VerdictRejectedChain, v.Kind)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Len(t, e.session(t).Words, 2)
}

func TestStorageFailureDropsMove(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)
	e.running(t, "con mèo")
	e.sessions.fail = true

	v, err := e.eng.OnMessage(ctx, game.Message{ID: "m1", GuildID: guild, ChannelID: channel, AuthorID: "u1", Content: "mèo con"})
	require.Error(t, err)
	assert.Equal(t, game.VerdictIgnored, v.Kind)

	assert.Equal(t, []string{"con mèo"}, e.session(t).Words)
	assert.Empty(t, e.msgr.reactions)
	coins, _ := e.st.Balance(ctx, "u1")
	assert.Zero(t, coins)
	c, _ := e.st.Counters(ctx, lang.Vietnamese)
	assert.Equal(t, store.Counters{}, c)
}

func TestMessengerFailureDoesNotUndoMove(t *testing.T) {
	e := newEnv(t, game.Config{}, lang.Vietnamese, viVocab...)
	e.running(t, "con mèo")
	e.msgr.fail = true

	v := e.play(t, "u1", "mèo con")
	assert.Equal(t, game.VerdictAccepted, v.Kind)
	assert.Equal(t, []string{"con mèo", "mèo con"}, e.session(t).Words)
}
