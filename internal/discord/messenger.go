package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordchain/internal/game"
)

// Messenger delivers engine notices and reactions to Discord channels.
type Messenger struct {
	api   api
	after func(time.Duration, func()) *time.Timer
}

var _ game.Messenger = (*Messenger)(nil)

// NewMessenger sends through sess.
func NewMessenger(sess *discordgo.Session) *Messenger {
	return &Messenger{api: sess, after: time.AfterFunc}
}

// Notify renders n and sends it silently. Notices with a TTL are deleted
// after it elapses.
func (m *Messenger) Notify(_ context.Context, channelID string, n game.Notice) error {
	text := Render(n)
	if text == "" {
		return nil
	}
	return m.sendText(channelID, text, n.TTL)
}

// React puts r on the player's message.
func (m *Messenger) React(_ context.Context, channelID, messageID string, r game.Reaction) error {
	return m.api.MessageReactionAdd(channelID, messageID, string(r))
}

func (m *Messenger) sendText(channelID, text string, ttl time.Duration) error {
	msg, err := m.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: text,
		Flags:   discordgo.MessageFlagsSuppressNotifications,
	})
	if err != nil {
		return err
	}
	if ttl > 0 && msg != nil {
		id := msg.ID
		m.after(ttl, func() {
			if err := m.api.ChannelMessageDelete(channelID, id); err != nil {
				log.Debug().Err(err).Str("channel", channelID).Str("message", id).Msg("auto-delete")
			}
		})
	}
	return nil
}
