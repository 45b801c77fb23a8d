// app.go
//
// Backend wiring for the commands in main.go.
//
// Storage:
//   - DB_PATH set   -> SQLite store (sessions, channels, rankings, coins, counters)
//   - DB_PATH empty -> in-memory store (lost on restart)
//
// Dictionary:
//   - DICTIONARY_BACKEND=memory -> words.Catalog from WORDS_*_FILE or embedded lists
//   - DICTIONARY_BACKEND=sqlite -> store.SQLiteDictionary; an empty language is
//     seeded from the same sources on first start

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordchain/assets"
	"github.com/robalobadob/wordchain/internal/config"
	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/httpserver"
	"github.com/robalobadob/wordchain/internal/lang"
	"github.com/robalobadob/wordchain/internal/store"
	"github.com/robalobadob/wordchain/internal/words"
)

type dictionary interface {
	game.Dictionary
	httpserver.Lexicon
}

type backends struct {
	store store.Store
	dict  dictionary
}

func (b *backends) lexicon() httpserver.Lexicon { return b.dict }

func (b *backends) Close() {
	if err := b.store.Close(); err != nil {
		log.Warn().Err(err).Msg("close store")
	}
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	if cfg.DBPath == "" {
		log.Warn().Msg("DB_PATH not set; sessions and rankings are kept in memory")
		cat, err := words.Load(cfg.WordSources())
		if err != nil {
			return nil, err
		}
		return &backends{store: store.NewMemory(), dict: cat}, nil
	}

	sq, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.DBPath).Str("dictionary", cfg.DictionaryBackend).Msg("sqlite ready")

	if cfg.DictionaryBackend != config.BackendSQLite {
		cat, err := words.Load(cfg.WordSources())
		if err != nil {
			_ = sq.Close()
			return nil, err
		}
		return &backends{store: sq, dict: cat}, nil
	}

	dict := store.NewSQLiteDictionary(sq)
	if err := seedDictionary(ctx, dict, cfg.WordSources()); err != nil {
		_ = sq.Close()
		return nil, err
	}
	return &backends{store: sq, dict: dict}, nil
}

// seedDictionary fills every empty language from its configured source and
// the embedded blacklist.
func seedDictionary(ctx context.Context, dict *store.SQLiteDictionary, src words.Sources) error {
	for _, l := range lang.All() {
		code := l.Code()
		st, err := dict.WordStats(ctx, code)
		if err != nil {
			return err
		}
		if st.Words > 0 {
			continue
		}
		n, err := loadWords(ctx, dict, code, src[code], false)
		if err != nil {
			return err
		}
		black, err := assets.Blacklist(string(code))
		if err != nil {
			return fmt.Errorf("seed %s blacklist: %w", code, err)
		}
		for _, w := range black {
			if err := dict.Report(ctx, code, w); err != nil {
				return err
			}
		}
		log.Info().Str("lang", string(code)).Int("words", n).Int("blacklisted", len(black)).Msg("dictionary seeded")
	}
	return nil
}

// openDictionary opens the SQLite dictionary for the maintenance commands.
func openDictionary(cfg config.Config) (*store.SQLite, *store.SQLiteDictionary, error) {
	if cfg.DBPath == "" {
		return nil, nil, errors.New("DB_PATH is required for dictionary commands")
	}
	sq, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return sq, store.NewSQLiteDictionary(sq), nil
}

// loadWords imports path (or the embedded list) and returns how many entries
// were new.
func loadWords(ctx context.Context, dict *store.SQLiteDictionary, code lang.Code, path string, contributed bool) (int, error) {
	list, err := words.Entries(code, path)
	if err != nil {
		return 0, fmt.Errorf("read %s words: %w", code, err)
	}
	if contributed {
		before, err := dict.WordStats(ctx, code)
		if err != nil {
			return 0, err
		}
		if err := dict.AddContributed(ctx, code, list...); err != nil {
			return 0, err
		}
		after, err := dict.WordStats(ctx, code)
		if err != nil {
			return 0, err
		}
		return after.Contributed - before.Contributed, nil
	}
	return dict.AddEntries(ctx, code, list...)
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
