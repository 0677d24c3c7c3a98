package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dealscope/internal/pipeline"
	"dealscope/pkg/logger"
)

// telegramMessageLimit is Telegram's hard cap per message.
const telegramMessageLimit = 4096

const welcomeText = `Hi! Ask me about your sales pipeline in plain language.

Examples:
- analyze my maritime deals
- show me the latest open deal
- why is the Acme deal predicted to lose?

I will pull matching deals, explain the model's win probabilities and check
recent industry news, then send you a full report.`

// Handler routes incoming Telegram messages into the analysis pipeline and
// replies with the rendered report.
type Handler struct {
	bot            *Bot
	pipeline       *pipeline.Pipeline
	requestTimeout time.Duration
	log            *logger.Logger
}

// NewHandler creates the message handler and registers it on the bot.
func NewHandler(bot *Bot, p *pipeline.Pipeline, requestTimeout time.Duration, log *logger.Logger) *Handler {
	h := &Handler{
		bot:            bot,
		pipeline:       p,
		requestTimeout: requestTimeout,
		log:            log.With("component", "telegram_handler"),
	}
	bot.SetMessageHandler(h.HandleUpdate)
	return h
}

// HandleUpdate processes one incoming update. Called per-update on its own
// goroutine by the bot.
func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	switch text {
	case "/start", "/help":
		if err := h.bot.SendMessage(chatID, welcomeText); err != nil {
			h.log.Errorw("Failed to send welcome message", "error", err)
		}
		return
	}

	ctx := context.Background()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	h.log.Infow("Running analysis for chat",
		"chat_id", chatID,
		"query", text,
	)
	h.bot.SendChatAction(ctx, chatID, tgbotapi.ChatTyping)

	report, err := h.pipeline.Run(ctx, text)
	if err != nil {
		h.log.Errorw("Pipeline run failed", "chat_id", chatID, "error", err)
		if sendErr := h.bot.SendMessage(chatID, "Sorry, I could not analyze that. Please try again."); sendErr != nil {
			h.log.Errorw("Failed to send error reply", "error", sendErr)
		}
		return
	}

	for _, chunk := range splitMessage(report, telegramMessageLimit) {
		if err := h.bot.SendMessageWithContext(ctx, chatID, chunk); err != nil {
			h.log.Errorw("Failed to send report chunk", "chat_id", chatID, "error", err)
			return
		}
	}
}

// splitMessage breaks text into Telegram-sized chunks, preferring line
// boundaries so Markdown blocks stay intact.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
