// internal/store/sqlite_dictionary.go
//
// SQLite-backed game.Dictionary.
//
// Tables:
//   - dictionary_entries: canonical words, bulk loaded by `words load`.
//   - contributed_words:  player contributions.
//   - blacklist:          reported words; never seeded or suggested.
//
// The `vocabulary` view is the union of the first two. Entries are stored
// normalised, so shape filters can work on spaces and character counts.

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
	"github.com/robalobadob/wordchain/internal/words"
)

// prefixCeiling sorts after every continuation of a prefix.
const prefixCeiling = "\U0010FFFF"

// shapeFilter restricts a query on `text` to a language's word shape.
const shapeFilter = `(length(text) - length(replace(text, ' ', ''))) = ? AND length(text) >= ?`

// SQLiteDictionary serves the dictionary tables of a SQLite store.
type SQLiteDictionary struct {
	db *sql.DB
}

var _ game.Dictionary = (*SQLiteDictionary)(nil)

// NewSQLiteDictionary shares s's connection pool.
func NewSQLiteDictionary(s *SQLite) *SQLiteDictionary {
	return &SQLiteDictionary{db: s.db}
}

func shapeArgs(l lang.Language) []any {
	return []any{l.TokenCount() - 1, l.MinLength()}
}

// AddEntries bulk loads canonical entries and returns how many were new.
func (d *SQLiteDictionary) AddEntries(ctx context.Context, code lang.Code, entries ...string) (int, error) {
	return d.insert(ctx, "dictionary_entries", code, entries)
}

// AddContributed stores player-contributed entries.
func (d *SQLiteDictionary) AddContributed(ctx context.Context, code lang.Code, entries ...string) error {
	_, err := d.insert(ctx, "contributed_words", code, entries)
	return err
}

// Report blacklists word for code.
func (d *SQLiteDictionary) Report(ctx context.Context, code lang.Code, word string) error {
	_, err := d.insert(ctx, "blacklist", code, []string{word})
	return err
}

// insert normalises and INSERT OR IGNOREs entries into one of the word tables.
func (d *SQLiteDictionary) insert(ctx context.Context, table string, code lang.Code, entries []string) (int, error) {
	l, err := lang.Get(code)
	if err != nil {
		return 0, err
	}
	added := 0
	err = inTx(ctx, d.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT OR IGNORE INTO %s (language, text) VALUES (?, ?)`, table))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range entries {
			w := l.Normalize(e)
			if w == "" {
				continue
			}
			res, err := stmt.ExecContext(ctx, string(code), w)
			if err != nil {
				return fmt.Errorf("insert %q: %w", w, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			}
		}
		return nil
	})
	return added, err
}

// WordExists implements game.Dictionary.
func (d *SQLiteDictionary) WordExists(ctx context.Context, code lang.Code, text string) (bool, error) {
	l, err := lang.Get(code)
	if err != nil {
		return false, err
	}
	var ok bool
	err = d.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM vocabulary WHERE language=? AND text=?)`,
		string(code), l.Normalize(text),
	).Scan(&ok)
	return ok, err
}

// FindSuccessor implements game.Dictionary with an index range scan on the
// successor prefix. Excluded words are skipped client-side.
func (d *SQLiteDictionary) FindSuccessor(ctx context.Context, l lang.Language, last string, exclude map[string]struct{}) (string, bool, error) {
	prefix := l.SuccessorPrefix(last)
	if prefix == "" {
		return "", false, nil
	}
	args := append([]any{string(l.Code()), prefix, prefix + prefixCeiling}, shapeArgs(l)...)
	args = append(args, string(l.Code()))
	rows, err := d.db.QueryContext(ctx, `
        SELECT text FROM vocabulary
        WHERE language=? AND text >= ? AND text < ? AND `+shapeFilter+`
          AND text NOT IN (SELECT text FROM blacklist WHERE language=?)
        ORDER BY text`, args...)
	if err != nil {
		return "", false, err
	}
	defer rows.Close()

	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return "", false, err
		}
		if _, used := exclude[w]; used {
			continue
		}
		if l.ShapeValid(l.Tokens(w)) {
			return w, true, nil
		}
	}
	return "", false, rows.Err()
}

// RandomCandidate implements game.Dictionary: COUNT the playable pool,
// then pick one row by OFFSET.
func (d *SQLiteDictionary) RandomCandidate(ctx context.Context, l lang.Language) (string, error) {
	const pool = `
        FROM vocabulary
        WHERE language=? AND ` + shapeFilter + `
          AND text NOT IN (SELECT text FROM blacklist WHERE language=?)`
	args := append([]any{string(l.Code())}, shapeArgs(l)...)
	args = append(args, string(l.Code()))

	var n int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(1) `+pool, args...).Scan(&n); err != nil {
		return "", err
	}
	if n == 0 {
		return "", game.ErrEmptyPool
	}
	off, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return "", err
	}
	var w string
	err = d.db.QueryRowContext(ctx,
		`SELECT text `+pool+` ORDER BY text LIMIT 1 OFFSET ?`,
		append(args, off.Int64())...,
	).Scan(&w)
	if err == sql.ErrNoRows {
		// Pool shrank between the two queries.
		return "", game.ErrEmptyPool
	}
	return w, err
}

// Blacklist implements game.Dictionary.
func (d *SQLiteDictionary) Blacklist(ctx context.Context, code lang.Code) (map[string]struct{}, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT text FROM blacklist WHERE language=?`, string(code))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out[w] = struct{}{}
	}
	return out, rows.Err()
}

// WordStats reports vocabulary counts for code.
func (d *SQLiteDictionary) WordStats(ctx context.Context, code lang.Code) (words.Stats, error) {
	l, err := lang.Get(code)
	if err != nil {
		return words.Stats{}, err
	}
	var st words.Stats
	c := string(code)
	err = d.db.QueryRowContext(ctx, `
        SELECT
            (SELECT COUNT(1) FROM vocabulary WHERE language=?),
            (SELECT COUNT(1) FROM contributed_words WHERE language=?),
            (SELECT COUNT(1) FROM blacklist WHERE language=?),
            (SELECT COUNT(1) FROM vocabulary WHERE language=? AND `+shapeFilter+`
                AND text NOT IN (SELECT text FROM blacklist WHERE language=?))`,
		c, c, c, c, l.TokenCount()-1, l.MinLength(), c,
	).Scan(&st.Words, &st.Contributed, &st.Blacklisted, &st.Playable)
	return st, err
}
