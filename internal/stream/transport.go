package stream

import (
	"context"

	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

// TelegramTransport adapts *telegram.Client to the Transport interface.
//
// Render modes map onto the Bot API as follows: RenderPlain sends text
// with no parse mode, stripping markdown heading markers that Telegram
// cannot display; RenderMarkdown converts the text to MarkdownV2. Both
// happen below the editor, so the dispatched slices the renderer reasons
// about stay verbatim.
type TelegramTransport struct {
	client *telegram.Client
}

// NewTelegramTransport wraps client.
func NewTelegramTransport(client *telegram.Client) *TelegramTransport {
	return &TelegramTransport{client: client}
}

// SendMessage posts a new message and returns its id.
func (t *TelegramTransport) SendMessage(ctx context.Context, chatID int64, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) (int, error) {
	body, parseMode := render(text, mode)
	msg, err := t.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        body,
		ParseMode:   parseMode,
		ReplyMarkup: markup,
	})
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessage replaces the text and markup of an existing message.
func (t *TelegramTransport) EditMessage(ctx context.Context, chatID int64, messageID int, text string, mode RenderMode, markup *telegram.InlineKeyboardMarkup) error {
	body, parseMode := render(text, mode)
	_, err := t.client.EditMessageText(ctx, telegram.EditMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        body,
		ParseMode:   parseMode,
		ReplyMarkup: markup,
	})
	return err
}

func render(text string, mode RenderMode) (body, parseMode string) {
	switch mode {
	case RenderMarkdown:
		return telegram.FormatMarkdownV2(text), telegram.ParseModeMarkdownV2
	default:
		return telegram.StripHeadings(text), ""
	}
}

var _ Transport = (*TelegramTransport)(nil)
