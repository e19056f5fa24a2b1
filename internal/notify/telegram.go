// Package notify reports finished uploads to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bigredeye/gradebook/internal/config"
	"github.com/bigredeye/gradebook/internal/ingest"
	"github.com/bigredeye/gradebook/internal/models"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type StatsSource = func() ingest.Stats

// clientTimeout must outlast the long poll of Run.
const (
	pollTimeout   = 60
	clientTimeout = (pollTimeout + 30) * time.Second
)

type Telegram struct {
	bot    sender
	api    *tgbotapi.BotAPI
	chatID int64
	stats  StatsSource
	log    *zap.Logger
}

// NewTelegram returns nil when no bot token is configured.
func NewTelegram(conf *config.Config, log *zap.Logger, stats StatsSource) (*Telegram, error) {
	if conf.Telegram.BotToken == "" {
		return nil, nil
	}
	client := &http.Client{Timeout: clientTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(conf.Telegram.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot, bot, conf.Telegram.ChatID, stats, log.Named("telegram")}, nil
}

// UploadFinished gives up waiting for the Telegram API once ctx is done.
func (t *Telegram) UploadFinished(ctx context.Context, log *models.UploadLog) error {
	sent := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, formatUpload(log)))
		sent <- err
	}()

	select {
	case err := <-sent:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func formatUpload(log *models.UploadLog) string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Upload %s (%s) by user #%d: %s\n", log.FileName, log.FileID, log.UploadedByID, log.Status)
	fmt.Fprintf(&b, "Rows inserted: %d, rejected: %d", log.RowsInserted, log.RowsFailed)
	if log.Error != "" {
		fmt.Fprintf(&b, "\n%s", log.Error)
	}
	return b.String()
}

// Run answers /stats commands until ctx is done.
func (t *Telegram) Run(ctx context.Context) {
	t.log.Info("Authorized on account", zap.String("username", t.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := t.api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if err := t.handleUpdate(update); err != nil {
				t.log.Error("Failed to handle update", zap.Error(err), zap.Int("update_id", update.UpdateID))
			}
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return
		}
	}
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) error {
	if update.Message == nil || !update.Message.IsCommand() {
		return nil
	}
	t.log.Info("Got command",
		zap.String("user", update.Message.From.UserName),
		zap.String("command", update.Message.Command()),
	)

	text := ""
	switch update.Message.Command() {
	case "stats":
		stats := t.stats()
		text = fmt.Sprintf("Uploads: %d (%d failed)\nRows inserted: %d, rejected: %d",
			stats.Uploads, stats.FailedUploads, stats.RowsInserted, stats.RowsFailed)
	default:
		text = "Unknown command, try /stats"
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	msg.ReplyToMessageID = update.Message.MessageID

	_, err := t.bot.Send(msg)
	return err
}
