package discord

import (
	"fmt"

	"github.com/robalobadob/wordchain/internal/game"
	"github.com/robalobadob/wordchain/internal/lang"
)

// Render turns a notice into channel text in the notice's language.
// Vietnamese is the fallback for unknown languages.
func Render(n game.Notice) string {
	if n.Language == lang.English {
		return renderEN(n)
	}
	return renderVI(n)
}

func renderVI(n game.Notice) string {
	switch n.Kind {
	case game.NoticeStarted:
		return "Trò chơi đã bắt đầu!"
	case game.NoticeAlreadyRunning:
		return "Trò chơi vẫn đang tiếp tục. Bạn có thể dùng `!stop`"
	case game.NoticeRolledOver:
		return "Đã kết thúc lượt này! Lượt mới đã bắt đầu!"
	case game.NoticeNotRunning:
		return "Trò chơi chưa bắt đầu. Bạn có thể dùng `!start`"
	case game.NoticeSeed:
		return fmt.Sprintf("Từ bắt đầu: **%s**", n.Word)
	case game.NoticeWrongStart:
		return fmt.Sprintf("Từ này không bắt đầu với tiếng `%s`", n.Expected)
	case game.NoticeUsed:
		return "Từ này đã được sử dụng!"
	case game.NoticeInvalid:
		return fmt.Sprintf("Từ `%s` không có trong từ điển!", n.Word)
	case game.NoticeStreakWin:
		return fmt.Sprintf("%s đã chiến thắng nhờ trả lời đúng đủ số từ tiếng Anh sau %d lượt và nhận được %d xu! Lượt mới đã bắt đầu!",
			mention(n.Player), n.Turns, n.Reward)
	case game.NoticeDeadEndWin:
		return fmt.Sprintf("%s đã chiến thắng sau %d lượt và nhận được %d xu! Lượt mới đã bắt đầu!",
			mention(n.Player), n.Turns, n.Reward)
	case game.NoticeCorpusExhausted:
		return "Không tìm được từ bắt đầu. Trò chơi đã dừng, hãy bổ sung từ điển rồi dùng `!start`"
	}
	return ""
}

func renderEN(n game.Notice) string {
	switch n.Kind {
	case game.NoticeStarted:
		return "The game has started!"
	case game.NoticeAlreadyRunning:
		return "The game is still running. Use `!stop` to end the round"
	case game.NoticeRolledOver:
		return "Round over! A new round has started!"
	case game.NoticeNotRunning:
		return "The game has not started yet. Use `!start`"
	case game.NoticeSeed:
		return fmt.Sprintf("Starting word: **%s**", n.Word)
	case game.NoticeWrongStart:
		return fmt.Sprintf("Word must start with `%s`", n.Expected)
	case game.NoticeUsed:
		return "This word has already been used!"
	case game.NoticeInvalid:
		return fmt.Sprintf("`%s` is not in the dictionary!", n.Word)
	case game.NoticeStreakWin:
		return fmt.Sprintf("%s reached the correct-word streak after %d turns and earned %d coins! A new round has started!",
			mention(n.Player), n.Turns, n.Reward)
	case game.NoticeDeadEndWin:
		return fmt.Sprintf("%s won after %d turns and earned %d coins! A new round has started!",
			mention(n.Player), n.Turns, n.Reward)
	case game.NoticeCorpusExhausted:
		return "No starting word could be found. The game has stopped; add words and use `!start`"
	}
	return ""
}

func mention(p game.Player) string {
	if p.ID == "" {
		return p.Name
	}
	return "<@" + p.ID + ">"
}
