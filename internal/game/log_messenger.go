package game

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogMessenger writes notices and reactions to the log. Used when no chat
// transport is configured, e.g. when driving the engine over HTTP.
type LogMessenger struct{}

func (LogMessenger) Notify(_ context.Context, channelID string, n Notice) error {
	log.Info().
		Str("channel", channelID).
		Str("notice", string(n.Kind)).
		Str("lang", string(n.Language)).
		Str("word", n.Word).
		Str("expected", n.Expected).
		Str("player", n.Player.ID).
		Dur("ttl", n.TTL).
		Msg("notice")
	return nil
}

func (LogMessenger) React(_ context.Context, channelID, messageID string, r Reaction) error {
	log.Debug().Str("channel", channelID).Str("message", messageID).Str("reaction", string(r)).Msg("react")
	return nil
}
