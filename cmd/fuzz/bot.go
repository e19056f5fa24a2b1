package main

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bigredeye/gradebook/api"
)

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Reporter posts fuzz run summaries into a chat. A nil Reporter is silent.
type Reporter struct {
	bot  messageSender
	chat int64
}

func NewReporter(token string, chat int64) (*Reporter, error) {
	if token == "" || chat == 0 {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Reporter{bot: bot, chat: chat}, nil
}

func formatSummary(summary string, stats *api.StatsResponse) string {
	b := strings.Builder{}
	b.WriteString("Fuzz run finished\n")
	b.WriteString(summary)
	if stats != nil {
		fmt.Fprintf(&b, "\nServer: %d uploads (%d failed), %d rows inserted, %d rows failed",
			stats.Uploads, stats.FailedUploads, stats.RowsInserted, stats.RowsFailed)
	}
	return b.String()
}

func (r *Reporter) Report(summary string, stats *api.StatsResponse) error {
	if r == nil {
		return nil
	}

	_, err := r.bot.Send(tgbotapi.NewMessage(r.chat, formatSummary(summary, stats)))
	return err
}
