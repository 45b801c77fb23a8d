// main.go
//
// Entry point for the word-chain service.
//
// Commands:
//   wordchain [serve]                         HTTP admin API + Discord bot (when BOT_TOKEN is set)
//   wordchain words load --lang L [--file F]  bulk import into the SQLite dictionary
//   wordchain words report --lang L WORD      blacklist a word
//   wordchain channel set --guild G --channel C --lang L
//   wordchain admin hash-password PASSWORD    bcrypt hash for ADMIN_PASSWORD_HASH
//
// Configuration comes from the environment (and .env), see internal/config.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/wordchain/internal/config"
	"github.com/robalobadob/wordchain/internal/discord"
	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/httpserver"
	"github.com/robalobadob/wordchain/internal/lang"
	"github.com/robalobadob/wordchain/internal/lock"
)

var cfg config.Config

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wordchain",
		Short:        "Word-chain game bot for Discord",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			cfg.SetupLogging()
			return nil
		},
		RunE: runServe,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP admin API and the Discord bot",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	})
	root.AddCommand(newWordsCmd())
	root.AddCommand(newChannelCmd())
	root.AddCommand(newAdminCmd())
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.BotToken == "" || !cfg.EnableWordChain {
		log.Warn().Bool("enabled", cfg.EnableWordChain).Msg("Discord disabled; moves only via the HTTP API")
		return serve(ctx, b, newEngine(b, game.LogMessenger{}), nil)
	}
	sess, err := discord.NewSession(cfg.BotToken)
	if err != nil {
		return err
	}
	eng := newEngine(b, discord.NewMessenger(sess))
	return serve(ctx, b, eng, discord.NewBot(sess, eng, b.store))
}

func newEngine(b *backends, m game.Messenger) *game.Engine {
	return game.New(cfg.Game(), game.Deps{
		Dictionary: b.dict,
		Sessions:   b.store,
		Channels:   b.store,
		Reporter:   b.store,
		Stats:      b.store,
		Messenger:  m,
		Locker:     lock.New(cfg.LockPoll),
	})
}

// serve runs the HTTP server and, when present, the bot until ctx ends
// or either of them fails.
func serve(ctx context.Context, b *backends, eng *game.Engine, bot *discord.Bot) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := httpserver.New(httpserver.Options{
		Engine:  eng,
		Store:   b.store,
		Lexicon: b.lexicon(),
		Auth: httpserver.AuthConfig{
			Secret:            cfg.JWTSecret,
			ExpiresDays:       cfg.JWTExpiresDays,
			CookieName:        cfg.CookieName,
			AdminUsername:     cfg.AdminUsername,
			AdminPasswordHash: cfg.AdminPasswordHash,
			Production:        cfg.Production,
		},
		ClientOrigin: cfg.ClientOrigin,
	})

	errc := make(chan error, 2)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting http server")
		err := srv.Start(ctx, ":"+cfg.Port)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errc <- err
	}()
	running := 1
	if bot != nil {
		running++
		go func() { errc <- bot.Run(ctx) }()
	}

	// The first one to stop takes the other down with it.
	var first error
	for i := 0; i < running; i++ {
		if err := <-errc; err != nil && first == nil {
			first = err
		}
		cancel()
	}
	log.Info().Msg("shut down")
	return first
}

func newWordsCmd() *cobra.Command {
	var (
		code        string
		file        string
		contributed bool
	)
	words := &cobra.Command{Use: "words", Short: "Manage the SQLite dictionary"}

	load := &cobra.Command{
		Use:   "load",
		Short: "Import words from a file (or the embedded defaults)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := lang.Parse(code)
			if err != nil {
				return err
			}
			sq, dict, err := openDictionary(cfg)
			if err != nil {
				return err
			}
			defer sq.Close()
			n, err := loadWords(cmd.Context(), dict, c, file, contributed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d new %s words\n", n, c)
			return nil
		},
	}
	load.Flags().StringVar(&code, "lang", "vi", "language code (vi, en)")
	load.Flags().StringVar(&file, "file", "", "word list, one entry per line (default: embedded list)")
	load.Flags().BoolVar(&contributed, "contributed", false, "import as player contributions")

	report := &cobra.Command{
		Use:   "report WORD",
		Short: "Blacklist a word",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := lang.Parse(code)
			if err != nil {
				return err
			}
			sq, dict, err := openDictionary(cfg)
			if err != nil {
				return err
			}
			defer sq.Close()
			word := joinArgs(args)
			if err := dict.Report(cmd.Context(), c, word); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reported %q (%s)\n", word, c)
			return nil
		},
	}
	report.Flags().StringVar(&code, "lang", "vi", "language code (vi, en)")

	words.AddCommand(load, report)
	return words
}

func newChannelCmd() *cobra.Command {
	var guildID, channelID, code string
	channel := &cobra.Command{Use: "channel", Short: "Manage game channels"}
	set := &cobra.Command{
		Use:   "set",
		Short: "Register a guild channel for a language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := lang.Parse(code)
			if err != nil {
				return err
			}
			if cfg.DBPath == "" {
				return errors.New("DB_PATH is required to persist channel registrations")
			}
			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			if err := b.store.SetChannel(cmd.Context(), guildID, channelID, c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "guild %s: %s channel is %s\n", guildID, c, channelID)
			return nil
		},
	}
	set.Flags().StringVar(&guildID, "guild", "", "guild ID")
	set.Flags().StringVar(&channelID, "channel", "", "channel ID")
	set.Flags().StringVar(&code, "lang", "vi", "language code (vi, en)")
	_ = set.MarkFlagRequired("guild")
	_ = set.MarkFlagRequired("channel")
	channel.AddCommand(set)
	return channel
}

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{Use: "admin", Short: "Admin helpers"}
	admin.AddCommand(&cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := httpserver.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	})
	return admin
}
