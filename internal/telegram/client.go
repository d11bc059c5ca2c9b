package telegram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/metrics"
)

// Client abstracts the outbound messaging transport so handlers can be
// exercised with a test double. All sends use Markdown parse mode.
type Client interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendTextMarkup(ctx context.Context, chatID int64, text string, markup telego.ReplyMarkup) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, markup telego.ReplyMarkup) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
	SendFile(ctx context.Context, chatID int64, name string, data []byte, caption string) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	Username() string
}

type client struct {
	bot      *telego.Bot
	username string
	metrics  *metrics.Metrics
}

// NewClient wraps a telego bot. The bot username is resolved once via GetMe
// and used for building referral links.
func NewClient(ctx context.Context, bot *telego.Bot, m *metrics.Metrics) (Client, error) {
	me, err := bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("get bot identity: %w", err)
	}
	return &client{bot: bot, username: me.Username, metrics: m}, nil
}

func (c *client) Username() string {
	return c.username
}

func (c *client) SendText(ctx context.Context, chatID int64, text string) error {
	return c.SendTextMarkup(ctx, chatID, text, nil)
}

func (c *client) SendTextMarkup(ctx context.Context, chatID int64, text string, markup telego.ReplyMarkup) error {
	msg := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown)
	if markup != nil {
		msg = msg.WithReplyMarkup(markup)
	}
	if _, err := c.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	c.metrics.MessagesSent.WithLabelValues("text").Inc()
	return nil
}

func (c *client) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, markup telego.ReplyMarkup) error {
	photo := tu.Photo(tu.ID(chatID), tu.FileFromID(fileID)).
		WithCaption(caption).
		WithParseMode(telego.ModeMarkdown)
	if markup != nil {
		photo = photo.WithReplyMarkup(markup)
	}
	if _, err := c.bot.SendPhoto(ctx, photo); err != nil {
		return fmt.Errorf("send photo to %d: %w", chatID, err)
	}
	c.metrics.MessagesSent.WithLabelValues("photo").Inc()
	return nil
}

func (c *client) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	doc := tu.Document(tu.ID(chatID), tu.FileFromID(fileID)).
		WithCaption(caption).
		WithParseMode(telego.ModeMarkdown)
	if _, err := c.bot.SendDocument(ctx, doc); err != nil {
		return fmt.Errorf("send document to %d: %w", chatID, err)
	}
	c.metrics.MessagesSent.WithLabelValues("document").Inc()
	return nil
}

func (c *client) SendFile(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	doc := tu.Document(tu.ID(chatID), tu.File(tu.NameReader(bytes.NewReader(data), name))).
		WithCaption(caption).
		WithParseMode(telego.ModeMarkdown)
	if _, err := c.bot.SendDocument(ctx, doc); err != nil {
		return fmt.Errorf("send file to %d: %w", chatID, err)
	}
	c.metrics.MessagesSent.WithLabelValues("file").Inc()
	return nil
}

func (c *client) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Text:      text,
		ParseMode: telego.ModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("edit message %d/%d: %w", chatID, messageID, err)
	}
	return nil
}

func (c *client) EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	_, err := c.bot.EditMessageCaption(ctx, &telego.EditMessageCaptionParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Caption:   caption,
		ParseMode: telego.ModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("edit caption %d/%d: %w", chatID, messageID, err)
	}
	return nil
}

func (c *client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	params := tu.CallbackQuery(callbackID)
	if text != "" {
		params = params.WithText(text)
	}
	if err := c.bot.AnswerCallbackQuery(ctx, params); err != nil {
		return fmt.Errorf("answer callback %s: %w", callbackID, err)
	}
	return nil
}
