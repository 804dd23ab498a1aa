package channel

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"sitewatch/internal/alert"
	logx "sitewatch/pkg/logx"
)

// TelegramConfig configures the telegram delivery channel.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// Telegram delivers notifications to a telegram chat. Send-only: the bot
// never polls for updates.
type Telegram struct {
	log    logx.Logger
	bot    *tele.Bot
	chatID int64
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// No poller: this bot only ever sends.
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Telegram{log: log, bot: b, chatID: cfg.ChatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, n alert.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(tele.ChatID(t.chatID), formatTelegram(n), tele.ModeHTML)
	return err
}

func formatTelegram(n alert.Notification) string {
	var b strings.Builder
	b.WriteString(priorityPrefix(n.Priority))
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(n.Title))
	b.WriteString("</b>\n")
	b.WriteString(html.EscapeString(n.Message))
	b.WriteString(fmt.Sprintf("\n<i>%s · %s · %s</i>",
		n.Category, n.RuleType, n.CreatedAt.Format(time.RFC822)))
	if n.ActionRequired && n.ActionRef != "" {
		b.WriteString("\nAction: ")
		b.WriteString(html.EscapeString(n.ActionRef))
	}
	return b.String()
}

func priorityPrefix(p alert.Priority) string {
	switch p {
	case alert.PriorityCritical:
		return "🚨 "
	case alert.PriorityHigh:
		return "⚠️ "
	case alert.PriorityMedium:
		return "ℹ️ "
	default:
		return ""
	}
}
