package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/javoxirone/bilagon-ai-bot/internal/locale"
	"github.com/javoxirone/bilagon-ai-bot/internal/provider"
	"github.com/javoxirone/bilagon-ai-bot/internal/store"
	"github.com/javoxirone/bilagon-ai-bot/internal/stream"
	"github.com/javoxirone/bilagon-ai-bot/internal/telegram"
)

// systemPersona is prepended to every provider request.
const systemPersona = `You are a helpful assistant named "Bilag'on".`

const (
	defaultHistoryLimit   = 30
	typingActionInterval  = 5 * time.Second
	defaultDocumentChars  = 8000
	defaultUpdateDeadline = 5 * time.Minute
)

// HandlerConfig wires the Handler's collaborators.
type HandlerConfig struct {
	API         *telegram.Client
	Provider    provider.Provider
	Transcriber provider.Transcriber
	Turns       store.ConversationStore
	Users       store.UserStore
	Controller  *stream.Controller
	Documents   DocumentParser
	Images      ImageTextExtractor
	Metrics     *Metrics
	Tracer      trace.Tracer

	// HistoryLimit caps how many stored turns enter the provider context.
	HistoryLimit int
}

// Handler processes a single Telegram update end to end: commands,
// language callbacks, and the text, voice, document, and photo flows
// that produce a streamed answer.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler validates required collaborators and returns a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.API == nil {
		return nil, errors.New("bot: telegram client is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("bot: provider is required")
	}
	if cfg.Turns == nil || cfg.Users == nil {
		return nil, errors.New("bot: stores are required")
	}
	if cfg.Controller == nil {
		return nil, errors.New("bot: stream controller is required")
	}
	if cfg.Documents == nil {
		cfg.Documents = PlainTextParser{MaxChars: defaultDocumentChars}
	}
	if cfg.Images == nil {
		cfg.Images = NoopImageExtractor{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("bot")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Handler{cfg: cfg}, nil
}

// HandleUpdate dispatches one update. It is called with the chat's lane
// held, so per-chat ordering is already guaranteed.
func (h *Handler) HandleUpdate(ctx context.Context, logger *slog.Logger, upd telegram.Update) error {
	ctx, cancel := context.WithTimeout(ctx, defaultUpdateDeadline)
	defer cancel()

	switch {
	case upd.CallbackQuery != nil:
		return h.handleCallback(ctx, logger, upd.CallbackQuery)
	case upd.Message != nil:
		return h.handleMessage(ctx, logger, upd.Message)
	}
	return nil
}

func (h *Handler) handleMessage(ctx context.Context, logger *slog.Logger, msg *telegram.Message) error {
	lang := h.rememberUser(ctx, logger, msg.From)

	switch {
	case strings.HasPrefix(msg.Text, "/"):
		return h.handleCommand(ctx, logger, msg, lang)
	case msg.Voice != nil:
		h.cfg.Metrics.updateHandled("voice")
		return h.handleVoice(ctx, logger, msg, lang)
	case msg.Document != nil:
		h.cfg.Metrics.updateHandled("document")
		return h.handleDocument(ctx, logger, msg, lang)
	case len(msg.Photo) > 0:
		h.cfg.Metrics.updateHandled("photo")
		return h.handlePhoto(ctx, logger, msg, lang)
	case msg.Text != "":
		h.cfg.Metrics.updateHandled("text")
		return h.answer(ctx, logger, msg.Chat.ID, lang, msg.Text)
	}
	return nil
}

// rememberUser refreshes the user record and returns their language.
// Store failures degrade to the default language rather than blocking
// the update.
func (h *Handler) rememberUser(ctx context.Context, logger *slog.Logger, from *telegram.User) string {
	if from == nil {
		return store.DefaultLanguage
	}
	err := h.cfg.Users.Upsert(ctx, store.User{
		ID:        from.ID,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.Username,
	})
	if err != nil {
		logger.Warn("bot: user upsert failed", "user_id", from.ID, "error", err)
	}
	lang, err := h.cfg.Users.Language(ctx, from.ID)
	if err != nil {
		logger.Warn("bot: language lookup failed", "user_id", from.ID, "error", err)
		return store.DefaultLanguage
	}
	return lang
}

func (h *Handler) handleCommand(ctx context.Context, logger *slog.Logger, msg *telegram.Message, lang string) error {
	cmd, _, _ := strings.Cut(msg.Text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	h.cfg.Metrics.updateHandled("command")
	cat := locale.For(lang)

	switch cmd {
	case "/start":
		if _, err := h.send(ctx, msg.Chat.ID, cat.Greeting, nil); err != nil {
			return err
		}
		_, err := h.send(ctx, msg.Chat.ID, cat.ChooseLanguage, locale.LanguageKeyboard())
		return err
	case "/help":
		_, err := h.send(ctx, msg.Chat.ID, cat.Help, nil)
		return err
	case "/language", "/settings":
		_, err := h.send(ctx, msg.Chat.ID, cat.ChooseLanguage, locale.LanguageKeyboard())
		return err
	case "/new":
		if err := h.cfg.Turns.Reset(ctx, msg.Chat.ID); err != nil {
			return fmt.Errorf("reset conversation: %w", err)
		}
		_, err := h.send(ctx, msg.Chat.ID, cat.NewChatStarted, nil)
		return err
	default:
		logger.Debug("bot: unknown command ignored", "command", cmd)
		return nil
	}
}

func (h *Handler) handleCallback(ctx context.Context, logger *slog.Logger, cb *telegram.CallbackQuery) error {
	h.cfg.Metrics.updateHandled("callback")
	if cb.Message == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID

	if lang := locale.CallbackLanguage(cb.Data); lang != "" {
		if err := h.cfg.Users.SetLanguage(ctx, cb.From.ID, lang); err != nil {
			return fmt.Errorf("set language: %w", err)
		}
		cat := locale.For(lang)
		if err := h.cfg.API.AnswerCallbackQuery(ctx, telegram.AnswerCallbackQueryRequest{
			CallbackQueryID: cb.ID,
			Text:            cat.LanguageChosen,
		}); err != nil {
			logger.Warn("bot: callback answer failed", "error", err)
		}
		// Remove the picker so the chat stays tidy.
		if err := h.cfg.API.DeleteMessage(ctx, chatID, cb.Message.MessageID); err != nil {
			logger.Debug("bot: picker delete failed", "error", err)
		}
		_, err := h.send(ctx, chatID, cat.LanguageChosen, nil)
		return err
	}

	if cb.Data == locale.CallbackNewChat {
		if err := h.cfg.Turns.Reset(ctx, chatID); err != nil {
			return fmt.Errorf("reset conversation: %w", err)
		}
		lang, _ := h.cfg.Users.Language(ctx, cb.From.ID)
		cat := locale.For(lang)
		if err := h.cfg.API.AnswerCallbackQuery(ctx, telegram.AnswerCallbackQueryRequest{
			CallbackQueryID: cb.ID,
		}); err != nil {
			logger.Warn("bot: callback answer failed", "error", err)
		}
		_, err := h.send(ctx, chatID, cat.NewChatStarted, nil)
		return err
	}

	logger.Debug("bot: unknown callback ignored", "data", cb.Data)
	return nil
}

// answer runs the full prompt-to-stream pipeline for one user prompt.
func (h *Handler) answer(ctx context.Context, logger *slog.Logger, chatID int64, lang, prompt string) error {
	ctx, span := h.cfg.Tracer.Start(ctx, "bot.answer",
		trace.WithAttributes(attribute.Int64("chat.id", chatID)))
	defer span.End()

	cat := locale.For(lang)

	if err := h.cfg.Turns.AppendTurn(ctx, chatID, provider.MessageRoleUser, prompt); err != nil {
		return fmt.Errorf("append user turn: %w", err)
	}
	history, err := h.cfg.Turns.ListTurns(ctx, chatID, h.cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	messages := make([]provider.LLMMessage, 0, len(history)+1)
	messages = append(messages, provider.LLMMessage{Role: provider.MessageRoleSystem, Content: systemPersona})
	messages = append(messages, history...)

	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	stream.StartTypingLoop(typingCtx, h.cfg.API, chatID, typingActionInterval)

	chunks, err := h.cfg.Provider.Stream(ctx, provider.CompletionRequest{Messages: messages})
	if err != nil {
		logger.Error("bot: provider stream failed to open", "error", err)
		_, sendErr := h.send(ctx, chatID, cat.SomethingWrong, locale.NewChatKeyboard(lang))
		return errors.Join(err, sendErr)
	}

	res, runErr := h.cfg.Controller.Run(ctx, stream.Request{
		ChatID:      chatID,
		Stream:      chunks,
		Placeholder: cat.Thinking,
		ErrorNotice: cat.SomethingWrong,
		Keyboard:    locale.NewChatKeyboard(lang),
	})
	stopTyping()

	if res.Persist && res.Text != "" {
		if err := h.cfg.Turns.AppendTurn(ctx, chatID, provider.MessageRoleAssistant, res.Text); err != nil {
			logger.Error("bot: assistant turn not persisted", "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("stream answer: %w", runErr)
	}
	logger.Info("bot: answer delivered",
		"chat_id", chatID,
		"messages", res.Messages,
		"chars", len(res.Text),
	)
	return nil
}

func (h *Handler) handleVoice(ctx context.Context, logger *slog.Logger, msg *telegram.Message, lang string) error {
	cat := locale.For(lang)
	if h.cfg.Transcriber == nil {
		_, err := h.send(ctx, msg.Chat.ID, cat.SomethingWrong, nil)
		return err
	}

	audio, err := h.download(ctx, msg.Voice.FileID)
	if err != nil {
		return fmt.Errorf("download voice: %w", err)
	}
	transcript, err := h.cfg.Transcriber.Transcribe(ctx, "voice.ogg", audio)
	if err != nil {
		logger.Error("bot: transcription failed", "error", err)
		_, sendErr := h.send(ctx, msg.Chat.ID, cat.SomethingWrong, nil)
		return errors.Join(err, sendErr)
	}
	h.cfg.Metrics.transcriptChars(len(transcript))
	return h.answer(ctx, logger, msg.Chat.ID, lang, transcript)
}

func (h *Handler) handleDocument(ctx context.Context, logger *slog.Logger, msg *telegram.Message, lang string) error {
	cat := locale.For(lang)

	data, err := h.download(ctx, msg.Document.FileID)
	if err != nil {
		return fmt.Errorf("download document: %w", err)
	}
	text, err := h.cfg.Documents.Parse(ctx, msg.Document.FileName, data)
	if err != nil {
		logger.Warn("bot: document not parsed", "filename", msg.Document.FileName, "error", err)
		notice := cat.SomethingWrong
		if errors.Is(err, ErrEmptyAttachment) {
			notice = cat.EmptyDocument
		}
		_, sendErr := h.send(ctx, msg.Chat.ID, notice, nil)
		return sendErr
	}

	prompt := documentPrompt(text, msg.Caption)
	return h.answer(ctx, logger, msg.Chat.ID, lang, prompt)
}

func (h *Handler) handlePhoto(ctx context.Context, logger *slog.Logger, msg *telegram.Message, lang string) error {
	cat := locale.For(lang)

	// Telegram sends several sizes; the last one is the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	data, err := h.download(ctx, photo.FileID)
	if err != nil {
		return fmt.Errorf("download photo: %w", err)
	}
	text, err := h.cfg.Images.Extract(ctx, "photo.jpg", data)
	if err != nil {
		logger.Info("bot: photo not readable", "error", err)
		_, sendErr := h.send(ctx, msg.Chat.ID, cat.PhotoUnsupported, nil)
		return sendErr
	}
	return h.answer(ctx, logger, msg.Chat.ID, lang, documentPrompt(text, msg.Caption))
}

// documentPrompt quotes extracted file content and appends the user's
// caption as the actual question.
func documentPrompt(content, caption string) string {
	var b strings.Builder
	b.WriteString("The user attached a file with the following content:\n\n")
	b.WriteString("\"\"\"\n")
	b.WriteString(content)
	b.WriteString("\n\"\"\"\n")
	if caption != "" {
		b.WriteString("\n")
		b.WriteString(caption)
	} else {
		b.WriteString("\nSummarize this content for the user.")
	}
	return b.String()
}

func (h *Handler) download(ctx context.Context, fileID string) ([]byte, error) {
	file, err := h.cfg.API.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return h.cfg.API.DownloadFile(ctx, file.FilePath)
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (*telegram.Message, error) {
	return h.cfg.API.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
}
