package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
)

// mountGame registers the admin game routes on r (already behind requireAuth).
func (s *Server) mountGame(r chi.Router) {
	r.Get("/debug/words", s.handleWordStats)
	r.Put("/channels", s.handleSetChannel)
	r.Get("/sessions/{guild}/{channel}/{lang}", s.handleGetSession)
	r.Post("/play", s.handlePlay)
	r.Post("/control", s.handleControl)
	r.Post("/words/report", s.handleReport)
	r.Post("/words/contribute", s.handleContribute)
	r.Get("/rankings/{guild}/{channel}/{lang}", s.handleRankings)
	r.Get("/players/{id}", s.handlePlayer)
}

// langParam parses a language from a URL param or body field, writing 400 on failure.
func langParam(w http.ResponseWriter, raw string) (lang.Code, bool) {
	code, err := lang.Parse(raw)
	if err != nil {
		http.Error(w, `{"error":"unsupported_language"}`, http.StatusBadRequest)
		return "", false
	}
	return code, true
}

// GET /debug/words: vocabulary counts and activity counters per language.
func (s *Server) handleWordStats(w http.ResponseWriter, r *http.Request) {
	out := map[lang.Code]any{}
	for _, l := range lang.All() {
		st, err := s.lex.WordStats(r.Context(), l.Code())
		if err != nil {
			log.Error().Err(err).Str("lang", string(l.Code())).Msg("word stats")
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		c, err := s.store.Counters(r.Context(), l.Code())
		if err != nil {
			log.Error().Err(err).Str("lang", string(l.Code())).Msg("counters")
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		out[l.Code()] = map[string]any{"words": st, "counters": c}
	}
	_ = json.NewEncoder(w).Encode(out)
}

type setChannelReq struct {
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
	Language  string `json:"language"`
}

// PUT /channels registers a guild's game channel for a language.
func (s *Server) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	var req setChannelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.GuildID == "" || req.ChannelID == "" {
		http.Error(w, `{"error":"guildId_and_channelId_required"}`, http.StatusBadRequest)
		return
	}
	code, ok := langParam(w, req.Language)
	if !ok {
		return
	}
	if err := s.store.SetChannel(r.Context(), req.GuildID, req.ChannelID, code); err != nil {
		log.Error().Err(err).Str("guild", req.GuildID).Msg("set channel")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	log.Info().Str("guild", req.GuildID).Str("channel", req.ChannelID).Str("lang", string(code)).Msg("channel registered")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "language": code})
}

// GET /sessions/{guild}/{channel}/{lang}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	code, ok := langParam(w, chi.URLParam(r, "lang"))
	if !ok {
		return
	}
	sess, err := s.store.Get(r.Context(), game.SessionKey{
		GuildID:   chi.URLParam(r, "guild"),
		ChannelID: chi.URLParam(r, "channel"),
		Language:  code,
	})
	if errors.Is(err, game.ErrSessionNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("load session")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(sess)
}

// POST /play injects a chat message into the engine.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var m game.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if m.GuildID == "" || m.ChannelID == "" || m.AuthorID == "" {
		http.Error(w, `{"error":"guildId_channelId_authorId_required"}`, http.StatusBadRequest)
		return
	}
	v, err := s.eng.OnMessage(r.Context(), m)
	if err != nil {
		http.Error(w, `{"error":"engine_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

type controlReq struct {
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
	Command   string `json:"command"` // start | stop | reset, "!" optional
}

// POST /control applies a start/stop/reset command.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	kind, ok := game.ParseControl("!" + strings.TrimPrefix(strings.TrimSpace(req.Command), "!"))
	if !ok {
		http.Error(w, `{"error":"unknown_command"}`, http.StatusBadRequest)
		return
	}
	v, err := s.eng.OnControl(r.Context(), game.Control{Kind: kind, GuildID: req.GuildID, ChannelID: req.ChannelID})
	if err != nil {
		http.Error(w, `{"error":"engine_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

type wordsReq struct {
	Language string   `json:"language"`
	Word     string   `json:"word"`
	Words    []string `json:"words"`
}

// POST /words/report blacklists a word.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req wordsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	code, ok := langParam(w, req.Language)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Word) == "" {
		http.Error(w, `{"error":"word_required"}`, http.StatusBadRequest)
		return
	}
	if err := s.lex.Report(r.Context(), code, req.Word); err != nil {
		log.Error().Err(err).Str("lang", string(code)).Msg("report word")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	log.Info().Str("lang", string(code)).Str("word", req.Word).Msg("word reported")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// POST /words/contribute adds player-contributed words.
func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req wordsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	code, ok := langParam(w, req.Language)
	if !ok {
		return
	}
	entries := req.Words
	if req.Word != "" {
		entries = append(entries, req.Word)
	}
	if len(entries) == 0 {
		http.Error(w, `{"error":"words_required"}`, http.StatusBadRequest)
		return
	}
	if err := s.lex.AddContributed(r.Context(), code, entries...); err != nil {
		log.Error().Err(err).Str("lang", string(code)).Msg("contribute words")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "count": len(entries)})
}

// GET /rankings/{guild}/{channel}/{lang}?limit=N
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	code, ok := langParam(w, chi.URLParam(r, "lang"))
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.store.Leaderboard(r.Context(), chi.URLParam(r, "guild"), chi.URLParam(r, "channel"), code, limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

// GET /players/{id}
func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	coins, err := s.store.Balance(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("user", id).Msg("balance")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "coins": coins})
}
