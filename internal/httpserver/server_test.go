package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
	"github.com/robalobadob/wordchain/internal/lock"
	"github.com/robalobadob/wordchain/internal/store"
	"github.com/robalobadob/wordchain/internal/words"
)

const adminPassword = "correct horse battery"

func newTestServer(t *testing.T, hash string) *Server {
	t.Helper()
	st := store.NewMemory()
	dict := words.NewCatalog()
	dict.Add(lang.Vietnamese, "con mèo", "mèo con")
	dict.Add(lang.English, "apple", "egg")
	eng := game.New(game.Config{}, game.Deps{
		Dictionary: dict,
		Sessions:   st,
		Channels:   st,
		Reporter:   st,
		Stats:      st,
		Messenger:  game.LogMessenger{},
		Locker:     lock.New(10 * time.Millisecond),
	})
	return New(Options{
		Engine:  eng,
		Store:   st,
		Lexicon: dict,
		Auth:    AuthConfig{Secret: "test-secret", AdminUsername: "admin", AdminPasswordHash: hash},
	})
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/auth/login", "", loginReq{Username: "admin", Password: adminPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func hashed(t *testing.T) string {
	t.Helper()
	h, err := HashPassword(adminPassword)
	require.NoError(t, err)
	return h
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	rec := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(t, s, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodOptions, "/channels", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLogin(t *testing.T) {
	t.Run("disabled without hash", func(t *testing.T) {
		s := newTestServer(t, "")
		rec := do(t, s, http.MethodPost, "/auth/login", "", loginReq{Username: "admin", Password: adminPassword})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	s := newTestServer(t, hashed(t))

	rec := do(t, s, http.MethodPost, "/auth/login", "", loginReq{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, s, http.MethodPost, "/auth/login", "", loginReq{Username: "root", Password: adminPassword})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/auth/login", "", loginReq{Username: "admin", Password: adminPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "wordchain_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// The cookie alone authenticates.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	s.Router().ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.JSONEq(t, `{"username":"admin"}`, me.Body.String())
}

func TestGatedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, hashed(t))

	for _, path := range []string{"/debug/words", "/players/u1", "/rankings/g1/c1/vi"} {
		rec := do(t, s, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		rec = do(t, s, http.MethodGet, path, "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestLoginDisabledRejectsSignedTokens(t *testing.T) {
	s := newTestServer(t, "")
	s.auth = AuthConfig{}.withDefaults()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "admin",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("dev_secret_change_me"))
	require.NoError(t, err)

	rec := do(t, s, http.MethodPut, "/channels", tok, setChannelReq{GuildID: "g1", ChannelID: "c1", Language: "en"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, s, http.MethodGet, "/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, ok, err := s.store.LanguageFor(context.Background(), "g1", "c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGameOverHTTP(t *testing.T) {
	s := newTestServer(t, hashed(t))
	tok := login(t, s)

	rec := do(t, s, http.MethodPut, "/channels", tok, setChannelReq{GuildID: "g1", ChannelID: "c1", Language: "VI"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, s, http.MethodPut, "/channels", tok, setChannelReq{GuildID: "g1", ChannelID: "c1", Language: "fr"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/control", tok, controlReq{GuildID: "g1", ChannelID: "c1", Command: "dance"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/control", tok, controlReq{GuildID: "g1", ChannelID: "c1", Command: "start"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v game.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, game.VerdictStarted, v.Kind)

	rec = do(t, s, http.MethodGet, "/sessions/g1/c1/vi", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sess game.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.True(t, sess.Running)
	assert.Equal(t, []string{v.Seed}, sess.Words)

	// The only answer to the seed is the other word, after which nothing is left.
	answer := map[string]string{"con mèo": "mèo con", "mèo con": "con mèo"}[v.Seed]
	rec = do(t, s, http.MethodPost, "/play", tok, game.Message{GuildID: "g1", ChannelID: "c1", AuthorID: "u1", DisplayName: "Alice", Content: answer})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, game.VerdictRoundWon, v.Kind)
	require.NotNil(t, v.Winner)
	assert.Equal(t, "u1", v.Winner.ID)

	rec = do(t, s, http.MethodGet, "/rankings/g1/c1/vi", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []store.RankEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Won)
	assert.Equal(t, "Alice", rows[0].Name)

	rec = do(t, s, http.MethodGet, "/players/u1", tok, nil)
	assert.JSONEq(t, `{"id":"u1","coins":100}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/sessions/g1/c9/vi", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayValidatesInput(t *testing.T) {
	s := newTestServer(t, hashed(t))
	tok := login(t, s)

	rec := do(t, s, http.MethodPost, "/play", tok, game.Message{Content: "con mèo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unregistered channel.
	rec = do(t, s, http.MethodPost, "/play", tok, game.Message{GuildID: "g1", ChannelID: "c1", AuthorID: "u1", Content: "con mèo"})
	require.Equal(t, http.StatusOK, rec.Code)
	var v game.Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, game.VerdictIgnored, v.Kind)
}

func TestDictionaryModeration(t *testing.T) {
	s := newTestServer(t, hashed(t))
	tok := login(t, s)

	rec := do(t, s, http.MethodPost, "/words/contribute", tok, wordsReq{Language: "en", Words: []string{"Eagle", "goat"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/words/report", tok, wordsReq{Language: "en", Word: "egg"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/words/report", tok, wordsReq{Language: "en"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/debug/words", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]struct {
		Words    words.Stats    `json:"words"`
		Counters store.Counters `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, words.Stats{Words: 4, Contributed: 2, Blacklisted: 1, Playable: 3}, out["en"].Words)
	assert.Equal(t, 2, out["vi"].Words.Words)
}
