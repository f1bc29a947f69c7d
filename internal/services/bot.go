package services

import (
	"context"
	"fmt"
	"html"

	tele "gopkg.in/telebot.v3"

	"tournament/internal/models"
)

// Bot posts settlement outcomes to the announcement chat.
type Bot struct {
	bot    *tele.Bot
	chatID int64
}

type BotConfig struct {
	Token  string
	ChatID int64
	// URL overrides the Telegram API endpoint.
	URL string
}

func NewBot(cfg BotConfig) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.URL,
		Token:   cfg.Token,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}

	return &Bot{bot: b, chatID: cfg.ChatID}, nil
}

func (bot *Bot) PublishSettlement(_ context.Context, receipt *models.SettlementReceipt) error {
	return bot.SendMsg(AnnouncementText(receipt))
}

func (bot *Bot) SendMsg(text string) error {
	_, err := bot.bot.Send(&tele.Chat{ID: bot.chatID}, text, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	return err
}

func AnnouncementText(receipt *models.SettlementReceipt) string {
	text := "🏆 <b>" + html.EscapeString(receipt.Challenge) + "</b> settled\n" +
		"Winner: <code>" + html.EscapeString(receipt.Winner) + "</code>\n\n" +
		html.EscapeString(receipt.Message)

	if failed := len(receipt.FailedLegs()); failed > 0 {
		text += "\n\n⚠️ " + fmt.Sprintf("%d transfer(s) need manual follow-up", failed)
	}

	return text
}
