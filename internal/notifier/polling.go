package notifier

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CommandHandler answers one chat command. An empty reply sends nothing.
type CommandHandler func(command string) string

const pollTimeout = 30 // seconds, server side

type getUpdatesRequest struct {
	Offset         int      `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type update struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling long-polls getUpdates and hands text messages from the
// configured chat to handler. It blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: (pollTimeout + 5) * time.Second, Transport: t.Client.Transport}
	offset := 0

	for ctx.Err() == nil {
		var updates []update
		err := t.call(ctx, client, "getUpdates", getUpdatesRequest{
			Offset:         offset,
			Timeout:        pollTimeout,
			AllowedUpdates: []string{"message"},
		}, &updates)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			t.Logger.Warn().Err(err).Msg("telegram poll failed")
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			if strconv.FormatInt(u.Message.Chat.ID, 10) != t.ChatID {
				t.Logger.Warn().Int64("chat", u.Message.Chat.ID).Msg("ignoring command from unknown chat")
				continue
			}
			text := strings.TrimSpace(u.Message.Text)
			t.Logger.Info().Str("command", text).Msg("received command")
			if reply := handler(text); reply != "" {
				if err := t.SendWithRetry(ctx, reply, 0); err != nil {
					t.Logger.Error().Err(err).Msg("send reply")
				}
			}
		}
	}
	t.Logger.Info().Msg("telegram polling stopped")
}
