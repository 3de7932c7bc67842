// Package telegram adapts the Telegram Bot API to the bot transport.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ledgerbot/internal/chat"
)

type Client struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(c *Client) {
		if seconds > 0 {
			c.pollTimeout = seconds
		}
	}
}

// New authenticates the token against the Bot API.
func New(token string, opts ...Option) (*Client, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 90 * time.Second}, opts...)
}

// NewWithEndpoint is New against a specific Bot API server and HTTP client.
func NewWithEndpoint(token, endpoint string, httpClient tgbotapi.HTTPClient, opts ...Option) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}
	c := &Client{
		api:         api,
		pollTimeout: 60,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Updates long-polls until ctx is cancelled. Updates that carry neither a
// message nor a button press are dropped.
func (c *Client) Updates(ctx context.Context) <-chan chat.Action {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	in := c.api.GetUpdatesChan(u)

	out := make(chan chat.Action)
	go func() {
		defer close(out)
		defer c.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-in:
				if !ok {
					return
				}
				action, ok := toAction(upd)
				if !ok {
					c.logger.DebugContext(ctx, "ignored update", "update_id", upd.UpdateID)
					continue
				}
				select {
				case out <- action:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// call runs fn bound to ctx. The Bot API client takes no context, so a
// call still running when ctx ends is left to the HTTP client timeout and
// its result discarded.
func call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Send(ctx context.Context, recipient int64, msg chat.Message) error {
	cfg := tgbotapi.NewMessage(recipient, msg.Text)
	cfg.ParseMode = tgbotapi.ModeHTML
	switch {
	case len(msg.Inline) > 0:
		cfg.ReplyMarkup = inlineMarkup(msg.Inline)
	case len(msg.ReplyKeyboard) > 0:
		cfg.ReplyMarkup = replyMarkup(msg.ReplyKeyboard)
	}
	return call(ctx, func() error {
		if _, err := c.api.Send(cfg); err != nil {
			return fmt.Errorf("send to %d: %w", recipient, err)
		}
		return nil
	})
}

// Edit replaces the text of a sent message. Inline buttons are replaced by
// msg's, so an edit without buttons removes them.
func (c *Client) Edit(ctx context.Context, ref chat.MessageRef, msg chat.Message) error {
	var cfg tgbotapi.EditMessageTextConfig
	if len(msg.Inline) > 0 {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(ref.ChatID, ref.MessageID, msg.Text, inlineMarkup(msg.Inline))
	} else {
		cfg = tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, msg.Text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	return call(ctx, func() error {
		if _, err := c.api.Send(cfg); err != nil {
			return fmt.Errorf("edit message %d: %w", ref.MessageID, err)
		}
		return nil
	})
}

func (c *Client) AnswerButton(ctx context.Context, buttonID, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(buttonID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(buttonID, text)
	}
	return call(ctx, func() error {
		if _, err := c.api.Request(cfg); err != nil {
			return fmt.Errorf("answer button: %w", err)
		}
		return nil
	})
}

func (c *Client) SetCommands(ctx context.Context, commands []chat.Command) error {
	cmds := make([]tgbotapi.BotCommand, len(commands))
	for i, cmd := range commands {
		cmds[i] = tgbotapi.BotCommand{Command: cmd.Name, Description: cmd.Description}
	}
	return call(ctx, func() error {
		if _, err := c.api.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
			return fmt.Errorf("set commands: %w", err)
		}
		return nil
	})
}

// toAction converts an update. ok is false for updates the bot ignores.
func toAction(upd tgbotapi.Update) (chat.Action, bool) {
	switch {
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		if cq.From == nil {
			return chat.Action{}, false
		}
		a := chat.Action{
			SenderID: cq.From.ID,
			Kind:     chat.KindButton,
			Payload:  cq.Data,
			ButtonID: cq.ID,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			a.MessageRef = chat.MessageRef{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID}
		}
		return a, true

	case upd.Message != nil:
		m := upd.Message
		if m.From == nil || m.Chat == nil {
			return chat.Action{}, false
		}
		a := chat.Action{
			SenderID:   m.From.ID,
			MessageRef: chat.MessageRef{ChatID: m.Chat.ID, MessageID: m.MessageID},
		}
		if m.IsCommand() {
			a.Kind = chat.KindCommand
			a.Command = m.Command()
			a.Payload = m.CommandArguments()
			return a, true
		}
		if m.Text == "" {
			return chat.Action{}, false
		}
		a.Kind = chat.KindText
		a.Payload = m.Text
		return a, true
	}
	return chat.Action{}, false
}

func inlineMarkup(rows [][]chat.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, len(rows))
	for i, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, len(row))
		for j, btn := range row {
			buttons[j] = tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data)
		}
		out[i] = tgbotapi.NewInlineKeyboardRow(buttons...)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func replyMarkup(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	out := make([][]tgbotapi.KeyboardButton, len(rows))
	for i, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, len(row))
		for j, label := range row {
			buttons[j] = tgbotapi.NewKeyboardButton(label)
		}
		out[i] = tgbotapi.NewKeyboardButtonRow(buttons...)
	}
	return tgbotapi.NewReplyKeyboard(out...)
}
