package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/dexsentry/dexsentry/internal/config"
	"github.com/dexsentry/dexsentry/internal/market"
)

// Dispatcher delivers alert messages through the Telegram Bot API.
type Dispatcher struct {
	http  *resty.Client
	token string
}

type sendMessageRequest struct {
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func New(cfg config.TelegramConfig) *Dispatcher {
	return &Dispatcher{
		http: resty.New().
			SetBaseURL(cfg.APIBaseURL).
			SetTimeout(time.Duration(cfg.TimeoutSecs) * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
		token: cfg.BotToken,
	}
}

// Dispatch sends one message to the given chat. Actions become an inline
// keyboard, one button per action on a single row.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient, message string, actions []market.Action) error {
	req := sendMessageRequest{
		ChatID: recipient,
		Text:   message,
	}
	if len(actions) > 0 {
		row := make([]inlineButton, 0, len(actions))
		for _, a := range actions {
			row = append(row, inlineButton{Text: a.Label, CallbackData: a.Data})
		}
		req.ReplyMarkup = &replyMarkup{InlineKeyboard: [][]inlineButton{row}}
	}

	var out sendMessageResponse
	resp, err := d.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/bot%s/sendMessage", d.token))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("telegram send rejected: %s (%s)", resp.Status(), out.Description)
	}

	log.Debug().Str("chat", recipient).Int("length", len(message)).Msg("Message dispatched")
	return nil
}
