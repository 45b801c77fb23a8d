package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
)

// Get loads one session. Words and player stats are stored as JSON arrays.
func (s *SQLite) Get(ctx context.Context, key game.SessionKey) (*game.Session, error) {
	var (
		sess          = &game.Session{GuildID: key.GuildID, ChannelID: key.ChannelID, Language: key.Language}
		running       int
		words, pstats string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT running, words, player_id, player_name, player_stats, round_id, updated_at
        FROM game_sessions
        WHERE guild_id=? AND channel_id=? AND language=?`,
		key.GuildID, key.ChannelID, string(key.Language),
	).Scan(&running, &words, &sess.CurrentPlayer.ID, &sess.CurrentPlayer.Name, &pstats, &sess.RoundID, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.Running = running != 0
	if err := json.Unmarshal([]byte(words), &sess.Words); err != nil {
		return nil, fmt.Errorf("decode words: %w", err)
	}
	if err := json.Unmarshal([]byte(pstats), &sess.PlayerStats); err != nil {
		return nil, fmt.Errorf("decode player stats: %w", err)
	}
	return sess, nil
}

// Save upserts the whole session row in one statement.
func (s *SQLite) Save(ctx context.Context, sess *game.Session) error {
	words, err := json.Marshal(nonNil(sess.Words))
	if err != nil {
		return err
	}
	pstats, err := json.Marshal(sess.PlayerStats)
	if err != nil {
		return err
	}
	if sess.PlayerStats == nil {
		pstats = []byte("[]")
	}
	running := 0
	if sess.Running {
		running = 1
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO game_sessions
            (guild_id, channel_id, language, running, words, player_id, player_name, player_stats, round_id, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(guild_id, channel_id, language) DO UPDATE SET
            running=excluded.running,
            words=excluded.words,
            player_id=excluded.player_id,
            player_name=excluded.player_name,
            player_stats=excluded.player_stats,
            round_id=excluded.round_id,
            updated_at=excluded.updated_at`,
		sess.GuildID, sess.ChannelID, string(sess.Language), running, string(words),
		sess.CurrentPlayer.ID, sess.CurrentPlayer.Name, string(pstats), sess.RoundID, sess.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// SetChannel registers channelID as the guild's channel for code.
func (s *SQLite) SetChannel(ctx context.Context, guildID, channelID string, code lang.Code) error {
	if _, err := lang.Get(code); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO guild_channels (guild_id, language, channel_id) VALUES (?, ?, ?)
        ON CONFLICT(guild_id, language) DO UPDATE SET channel_id=excluded.channel_id`,
		guildID, string(code), channelID,
	)
	return err
}

// LanguageFor resolves the language a registered channel plays.
func (s *SQLite) LanguageFor(ctx context.Context, guildID, channelID string) (lang.Code, bool, error) {
	var code string
	err := s.db.QueryRowContext(ctx, `
        SELECT language FROM guild_channels
        WHERE guild_id=? AND channel_id=?
        ORDER BY language DESC
        LIMIT 1`, guildID, channelID,
	).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return lang.Code(code), true, nil
}
