// internal/discord/bot.go
//
// Discord front-end for the word-chain engine.
//
// Responsibilities:
//   - Open a gateway session with the guild-message and message-content intents.
//   - Forward guild messages from humans to the engine (Dispatch decides
//     between control commands and moves).
//   - "!setchannel vi|en" registers the current channel; needs Manage Server.
//   - Implement game.Messenger: plain sends, auto-deleting sends, reactions.

package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
)

const setChannelCommand = "!setchannel"

// api is the part of *discordgo.Session the bot calls.
type api interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// Dispatcher routes a chat message through the engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, m game.Message) (game.Verdict, error)
}

// ChannelRegistry stores game channel registrations.
type ChannelRegistry interface {
	SetChannel(ctx context.Context, guildID, channelID string, code lang.Code) error
}

// NewSession creates a bot session with the intents the game needs.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord: empty bot token")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	return s, nil
}

// Bot connects a discordgo session to the engine.
type Bot struct {
	sess     *discordgo.Session
	api      api
	engine   Dispatcher
	channels ChannelRegistry
	msgr     *Messenger
	ctx      context.Context
}

// NewBot wires the handlers; call Run to connect.
func NewBot(sess *discordgo.Session, engine Dispatcher, channels ChannelRegistry) *Bot {
	return &Bot{
		sess:     sess,
		api:      sess,
		engine:   engine,
		channels: channels,
		msgr:     NewMessenger(sess),
		ctx:      context.Background(),
	}
}

// Run opens the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	remove := b.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessage(m)
	})
	defer remove()
	b.sess.AddHandlerOnce(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord connected")
	})

	if err := b.sess.Open(); err != nil {
		return fmt.Errorf("discord: open: %w", err)
	}
	<-ctx.Done()
	return b.sess.Close()
}

func (b *Bot) onMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	// No deadline: a message waits for the channel lock as long as it takes.
	ctx := b.ctx

	if fields := strings.Fields(m.Content); len(fields) > 0 && strings.EqualFold(fields[0], setChannelCommand) {
		b.setChannel(ctx, m, fields[1:])
		return
	}

	// Errors are already logged by the engine.
	_, _ = b.engine.Dispatch(ctx, toGameMessage(m))
}

// setChannel handles "!setchannel <vi|en>".
func (b *Bot) setChannel(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	perms, err := b.api.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		log.Warn().Err(err).Str("guild", m.GuildID).Str("user", m.Author.ID).Msg("permission lookup")
		return
	}
	if perms&discordgo.PermissionManageServer == 0 {
		b.send(m.ChannelID, "Bạn cần có quyền `MANAGE_GUILD` để dùng lệnh này", 0)
		return
	}
	code := lang.Vietnamese
	if len(args) > 0 {
		if code, err = lang.Parse(args[0]); err != nil {
			b.send(m.ChannelID, "Dùng: `!setchannel vi` hoặc `!setchannel en`", 0)
			return
		}
	}
	if err := b.channels.SetChannel(ctx, m.GuildID, m.ChannelID, code); err != nil {
		log.Error().Err(err).Str("guild", m.GuildID).Str("channel", m.ChannelID).Msg("set channel")
		return
	}
	log.Info().Str("guild", m.GuildID).Str("channel", m.ChannelID).Str("lang", string(code)).Msg("channel registered")
	b.send(m.ChannelID, fmt.Sprintf("Đã chọn kênh này làm kênh trò chơi (%s).", code), 0)
}

func (b *Bot) send(channelID, text string, ttl time.Duration) {
	if err := b.msgr.sendText(channelID, text, ttl); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("discord send")
	}
}

// toGameMessage maps a gateway message onto the engine's Message.
func toGameMessage(m *discordgo.MessageCreate) game.Message {
	name := m.Author.GlobalName
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}
	if name == "" {
		name = m.Author.Username
	}
	return game.Message{
		ID:          m.ID,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		DisplayName: name,
		AvatarURL:   m.Author.AvatarURL(""),
		Content:     m.Content,
	}
}
