package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
)

/* ----------------------------- Rankings ------------------------------ */

// ReportOutcome records o once (keyed by its ID) and adds its deltas to
// the player's ranking row in the same transaction.
func (s *SQLite) ReportOutcome(ctx context.Context, o game.Outcome) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		if o.ID != "" {
			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO outcomes (id, kind, user_id, created_at) VALUES (?, ?, ?, ?)`,
				o.ID, string(o.Kind), o.UserID, o.At.UTC(),
			)
			if err != nil {
				return fmt.Errorf("record outcome: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return nil
			}
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO rankings (guild_id, channel_id, language, user_id, name, avatar, won, correct, total)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(guild_id, channel_id, language, user_id) DO UPDATE SET
                name=excluded.name,
                avatar=excluded.avatar,
                won=won+excluded.won,
                correct=correct+excluded.correct,
                total=total+excluded.total`,
			o.GuildID, o.ChannelID, string(o.Language), o.UserID, o.DisplayName, o.AvatarURL,
			o.Won, o.Correct, o.Total,
		)
		if err != nil {
			return fmt.Errorf("update ranking: %w", err)
		}
		return nil
	})
}

/**
 * Leaderboard fetches the top players of a game channel.
 *
 * - Ordered by wins DESC, then correct answers DESC, then user id.
 * - Default limit is 20 if not specified.
 */
// Leaderboard returns up to limit rows ordered by wins, then correct words.
func (s *SQLite) Leaderboard(ctx context.Context, guildID, channelID string, code lang.Code, limit int) ([]RankEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT user_id, name, avatar, won, correct, total
        FROM rankings
        WHERE guild_id=? AND channel_id=? AND language=?
        ORDER BY won DESC, correct DESC, user_id ASC
        LIMIT ?`, guildID, channelID, string(code), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RankEntry, 0, limit)
	for rows.Next() {
		var r RankEntry
		if err := rows.Scan(&r.UserID, &r.Name, &r.Avatar, &r.Won, &r.Correct, &r.Total); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

/* ------------------------------- Coins ------------------------------- */

// GrantCurrency upserts the player row and adds amount.
func (s *SQLite) GrantCurrency(ctx context.Context, userID string, amount int64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO players (user_id, coins) VALUES (?, ?)
        ON CONFLICT(user_id) DO UPDATE SET coins=coins+excluded.coins`,
		userID, amount,
	)
	return err
}

// Balance returns the user's coins (0 for unknown users).
func (s *SQLite) Balance(ctx context.Context, userID string) (int64, error) {
	var coins int64
	err := s.db.QueryRowContext(ctx, `SELECT coins FROM players WHERE user_id=?`, userID).Scan(&coins)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return coins, err
}

/* ------------------------------ Counters ----------------------------- */

// IncrementWordsPlayed counts one accepted word.
func (s *SQLite) IncrementWordsPlayed(ctx context.Context, code lang.Code) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO bot_stats (language, words_played) VALUES (?, 1)
        ON CONFLICT(language) DO UPDATE SET words_played=words_played+1`, string(code))
	return err
}

// IncrementRoundsPlayed counts one finished round.
func (s *SQLite) IncrementRoundsPlayed(ctx context.Context, code lang.Code) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO bot_stats (language, rounds_played) VALUES (?, 1)
        ON CONFLICT(language) DO UPDATE SET rounds_played=rounds_played+1`, string(code))
	return err
}

// IncrementQueries counts one dictionary lookup that continued a round.
func (s *SQLite) IncrementQueries(ctx context.Context, code lang.Code) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO bot_stats (language, queries) VALUES (?, 1)
        ON CONFLICT(language) DO UPDATE SET queries=queries+1`, string(code))
	return err
}

// Counters returns the global counters for code.
func (s *SQLite) Counters(ctx context.Context, code lang.Code) (Counters, error) {
	var c Counters
	err := s.db.QueryRowContext(ctx,
		`SELECT queries, words_played, rounds_played FROM bot_stats WHERE language=?`, string(code),
	).Scan(&c.Queries, &c.WordsPlayed, &c.RoundsPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return Counters{}, nil
	}
	return c, err
}
