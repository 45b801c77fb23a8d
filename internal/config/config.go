// internal/config/config.go
//
// Process configuration.
//
// Load order:
//   1. .env in the working directory (optional, via godotenv).
//   2. Process environment, parsed into Config by caarlos0/env.
//
// Every field has a default so `wordchain serve` runs out of the box,
// fully in memory. Set DB_PATH (e.g. ./data/wordchain.db) to persist.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
	"github.com/robalobadob/wordchain/internal/words"
)

// Dictionary backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// DevJWTSecret is the JWT_SECRET default. It is public, so it is refused
// once admin login is enabled or PRODUCTION is set.
const DevJWTSecret = "dev_secret_change_me"

// Config is the whole process configuration.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	Port         string `env:"PORT"          envDefault:"5175"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	Production   bool   `env:"PRODUCTION"    envDefault:"false"`

	// DBPath is the SQLite file. Empty keeps everything in memory.
	DBPath            string `env:"DB_PATH"`
	DictionaryBackend string `env:"DICTIONARY_BACKEND" envDefault:"memory"`
	WordsVIFile       string `env:"WORDS_VI_FILE"`
	WordsENFile       string `env:"WORDS_EN_FILE"`

	BotToken        string `env:"BOT_TOKEN"`
	EnableWordChain bool   `env:"ENABLE_WORD_CHAIN" envDefault:"true"`

	JWTSecret         string `env:"JWT_SECRET"          envDefault:"dev_secret_change_me"`
	JWTExpiresDays    int    `env:"JWT_EXPIRES_DAYS"    envDefault:"14"`
	CookieName        string `env:"COOKIE_NAME"         envDefault:"wordchain_token"`
	AdminUsername     string `env:"ADMIN_USERNAME"      envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	StreakToWin   int           `env:"STREAK_TO_WIN"  envDefault:"50"`
	WinReward     int64         `env:"WIN_REWARD"     envDefault:"100"`
	CorrectReward int64         `env:"CORRECT_REWARD" envDefault:"10"`
	NoticeTTL     time.Duration `env:"NOTICE_TTL"     envDefault:"3s"`
	LockPoll      time.Duration `env:"LOCK_POLL"      envDefault:"5s"`
	SeedAttempts  int           `env:"SEED_ATTEMPTS"  envDefault:"10"`
	SeedRounds    int           `env:"SEED_ROUNDS"    envDefault:"10"`
}

// Load reads .env (if present) and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DictionaryBackend = strings.ToLower(strings.TrimSpace(cfg.DictionaryBackend))
	switch cfg.DictionaryBackend {
	case BackendMemory:
	case BackendSQLite:
		if cfg.DBPath == "" {
			return Config{}, fmt.Errorf("DICTIONARY_BACKEND=sqlite needs DB_PATH")
		}
	default:
		return Config{}, fmt.Errorf("unknown DICTIONARY_BACKEND %q", cfg.DictionaryBackend)
	}
	if cfg.JWTSecret == DevJWTSecret && (cfg.Production || cfg.AdminPasswordHash != "") {
		return Config{}, fmt.Errorf("JWT_SECRET must be changed from the default when PRODUCTION or ADMIN_PASSWORD_HASH is set")
	}
	return cfg, nil
}

// Game returns the engine rules.
func (c Config) Game() game.Config {
	return game.Config{
		StreakToWin:   c.StreakToWin,
		WinReward:     c.WinReward,
		CorrectReward: c.CorrectReward,
		NoticeTTL:     c.NoticeTTL,
		SeedAttempts:  c.SeedAttempts,
		SeedRounds:    c.SeedRounds,
	}
}

// WordSources returns the configured vocabulary files.
func (c Config) WordSources() words.Sources {
	return words.Sources{
		lang.Vietnamese: c.WordsVIFile,
		lang.English:    c.WordsENFile,
	}
}

// SetupLogging applies LOG_LEVEL and LOG_PRETTY to the global logger.
func (c Config) SetupLogging() {
	if lvl, err := zerolog.ParseLevel(c.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if c.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
