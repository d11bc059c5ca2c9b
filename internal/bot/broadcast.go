package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/models"
)

// adminSession is the transient composer state for admin flows, stored in
// Redis keyed by admin ID.
type adminSession struct {
	Kind string `json:"kind"` // "broadcast" or "setting"

	// Broadcast composer.
	Target       string `json:"target,omitempty"` // all, verified, unverified, individual
	TargetUserID int64  `json:"target_user_id,omitempty"`
	Step         string `json:"step,omitempty"` // awaiting_target_id, awaiting_content, confirm
	MsgType      string `json:"msg_type,omitempty"`
	Content      string `json:"content,omitempty"`
	FileID       string `json:"file_id,omitempty"`
	Caption      string `json:"caption,omitempty"`

	// Settings editor.
	SettingKey string `json:"setting_key,omitempty"`
}

const (
	sessionBroadcast = "broadcast"
	sessionSetting   = "setting"

	stepAwaitingTargetID = "awaiting_target_id"
	stepAwaitingContent  = "awaiting_content"
	stepConfirm          = "confirm"
)

func (b *Bot) handleBroadcastCommand(ctx context.Context, msg *telego.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📢 All Users").WithCallbackData("broadcast_all"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Verified Only").WithCallbackData("broadcast_verified"),
			tu.InlineKeyboardButton("⏳ Unverified Only").WithCallbackData("broadcast_unverified"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("👤 Individual User").WithCallbackData("message_individual"),
		),
	)
	text := "📢 *BROADCAST CENTER*\n\nWho should receive the message?"
	if err := b.api.SendTextMarkup(ctx, msg.Chat.ID, text, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send broadcast menu failed")
	}
}

func (b *Bot) handleBroadcastType(ctx context.Context, cb *telego.CallbackQuery) {
	if !b.isAdmin(cb.From.ID) {
		b.answer(ctx, cb.ID, "Not authorized")
		return
	}

	sess := adminSession{Kind: sessionBroadcast}
	switch cb.Data {
	case "broadcast_all":
		sess.Target = "all"
	case "broadcast_verified":
		sess.Target = "verified"
	case "broadcast_unverified":
		sess.Target = "unverified"
	case "message_individual":
		sess.Target = "individual"
		sess.Step = stepAwaitingTargetID
	default:
		b.answer(ctx, cb.ID, "")
		return
	}
	if sess.Step == "" {
		sess.Step = stepAwaitingContent
	}

	if err := b.sessions.Set(ctx, cb.From.ID, sess); err != nil {
		b.metrics.Errors.WithLabelValues("session").Inc()
		b.log.Error().Err(err).Int64("admin_id", cb.From.ID).Msg("save broadcast session failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	b.answer(ctx, cb.ID, "")

	chatID, messageID, ok := callbackOrigin(cb)
	if !ok {
		return
	}
	var text string
	if sess.Step == stepAwaitingTargetID {
		text = "👤 *INDIVIDUAL MESSAGE*\n\nSend the target user's Telegram ID:"
	} else {
		text = fmt.Sprintf(
			"✍️ *COMPOSE MESSAGE* (target: %s)\n\n"+
				"Send the content now. Text, photo and document messages are supported.",
			sess.Target)
	}
	if err := b.api.EditText(ctx, chatID, messageID, text); err != nil {
		b.log.Warn().Err(err).Msg("edit broadcast prompt failed")
	}
}

// handleBroadcastCompose consumes the admin's next message while a broadcast
// session is open. Reports whether the message was handled.
func (b *Bot) handleBroadcastCompose(ctx context.Context, msg *telego.Message, sess *adminSession) bool {
	chatID := msg.Chat.ID
	adminID := msg.From.ID

	switch sess.Step {
	case stepAwaitingTargetID:
		id, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
		if err != nil {
			b.notify(ctx, chatID, "❌ Please send a numeric Telegram ID.")
			return true
		}
		target, err := b.users.Get(ctx, id)
		if err != nil {
			b.metrics.Errors.WithLabelValues("store").Inc()
			b.notify(ctx, chatID, errRetryMessage)
			return true
		}
		if target == nil {
			b.notify(ctx, chatID, "❌ No user with that ID. Try again:")
			return true
		}
		sess.TargetUserID = id
		sess.Step = stepAwaitingContent
		if err := b.sessions.Set(ctx, adminID, sess); err != nil {
			b.metrics.Errors.WithLabelValues("session").Inc()
			b.notify(ctx, chatID, errRetryMessage)
			return true
		}
		name := target.Name
		if name == "" {
			name = target.FirstName
		}
		b.notify(ctx, chatID, fmt.Sprintf(
			"✅ Target: *%s* (`%d`)\n\n✍️ Now send the message content:", name, id))
		return true

	case stepAwaitingContent:
		switch {
		case len(msg.Photo) > 0:
			sess.MsgType = "photo"
			sess.FileID = msg.Photo[len(msg.Photo)-1].FileID
			sess.Caption = msg.Caption
		case msg.Document != nil:
			sess.MsgType = "document"
			sess.FileID = msg.Document.FileID
			sess.Caption = msg.Caption
		case strings.TrimSpace(msg.Text) != "":
			sess.MsgType = "text"
			sess.Content = msg.Text
		default:
			b.notify(ctx, chatID, "❌ Unsupported content. Send text, a photo or a document.")
			return true
		}
		sess.Step = stepConfirm
		if err := b.sessions.Set(ctx, adminID, sess); err != nil {
			b.metrics.Errors.WithLabelValues("session").Inc()
			b.notify(ctx, chatID, errRetryMessage)
			return true
		}
		b.sendBroadcastPreview(ctx, chatID, sess)
		return true
	}
	return false
}

func (b *Bot) sendBroadcastPreview(ctx context.Context, chatID int64, sess *adminSession) {
	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Send").WithCallbackData("confirm_send_message"),
			tu.InlineKeyboardButton("✏️ Edit").WithCallbackData("edit_message"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("❌ Cancel").WithCallbackData("cancel_send_message"),
		),
	)

	header := fmt.Sprintf("📋 *PREVIEW* (target: %s)", sess.Target)
	var err error
	switch sess.MsgType {
	case "photo":
		err = b.api.SendPhoto(ctx, chatID, sess.FileID, header+"\n\n"+sess.Caption, keyboard)
	case "document":
		if err = b.api.SendDocument(ctx, chatID, sess.FileID, sess.Caption); err == nil {
			err = b.api.SendTextMarkup(ctx, chatID, header, keyboard)
		}
	default:
		err = b.api.SendTextMarkup(ctx, chatID, header+"\n\n"+sess.Content, keyboard)
	}
	if err != nil {
		b.log.Warn().Err(err).Msg("send broadcast preview failed")
	}
}

func (b *Bot) handleBroadcastConfirmation(ctx context.Context, cb *telego.CallbackQuery) {
	if !b.isAdmin(cb.From.ID) {
		b.answer(ctx, cb.ID, "Not authorized")
		return
	}
	adminID := cb.From.ID

	var sess adminSession
	found, err := b.sessions.Get(ctx, adminID, &sess)
	if err != nil {
		b.metrics.Errors.WithLabelValues("session").Inc()
		b.log.Error().Err(err).Int64("admin_id", adminID).Msg("load broadcast session failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	if !found || sess.Kind != sessionBroadcast || sess.Step != stepConfirm {
		b.answer(ctx, cb.ID, "Session expired. Use /broadcast again.")
		return
	}

	switch cb.Data {
	case "cancel_send_message":
		if err := b.sessions.Delete(ctx, adminID); err != nil {
			b.log.Warn().Err(err).Msg("clear broadcast session failed")
		}
		b.answer(ctx, cb.ID, "Cancelled")
		b.notify(ctx, adminID, "❌ Broadcast cancelled.")
		return

	case "edit_message":
		sess.Step = stepAwaitingContent
		sess.MsgType = ""
		sess.Content = ""
		sess.FileID = ""
		sess.Caption = ""
		if err := b.sessions.Set(ctx, adminID, sess); err != nil {
			b.metrics.Errors.WithLabelValues("session").Inc()
			b.answer(ctx, cb.ID, "Please try again")
			return
		}
		b.answer(ctx, cb.ID, "")
		b.notify(ctx, adminID, "✍️ Send the new message content:")
		return

	case "confirm_send_message":
		if err := b.sessions.Delete(ctx, adminID); err != nil {
			b.log.Warn().Err(err).Msg("clear broadcast session failed")
		}
		b.answer(ctx, cb.ID, "Sending...")
		b.runBroadcast(ctx, adminID, &sess)
	}
}

// runBroadcast resolves the recipient list and delivers the composed message.
// One failed recipient never aborts the run; the admin gets a progress edit
// every ten sends and a final report.
func (b *Bot) runBroadcast(ctx context.Context, adminID int64, sess *adminSession) {
	var (
		recipients []models.User
		err        error
	)
	switch sess.Target {
	case "verified":
		recipients, err = b.users.ByVerified(ctx, true)
	case "unverified":
		recipients, err = b.users.ByVerified(ctx, false)
	case "individual":
		var target *models.User
		target, err = b.users.Get(ctx, sess.TargetUserID)
		if target != nil {
			recipients = []models.User{*target}
		}
	default:
		recipients, err = b.users.All(ctx)
	}
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Str("target", sess.Target).Msg("resolve broadcast recipients failed")
		b.notify(ctx, adminID, errRetryMessage)
		return
	}
	if len(recipients) == 0 {
		b.notify(ctx, adminID, "⚠️ No recipients matched.")
		return
	}

	progressErr := b.api.SendText(ctx, adminID,
		fmt.Sprintf("📤 Sending to %d users...", len(recipients)))
	if progressErr != nil {
		b.log.Warn().Err(progressErr).Msg("send broadcast progress failed")
	}

	sent, failed := 0, 0
	for i, u := range recipients {
		if u.Blocked {
			continue
		}
		var sendErr error
		switch sess.MsgType {
		case "photo":
			sendErr = b.api.SendPhoto(ctx, u.TelegramID, sess.FileID, sess.Caption, nil)
		case "document":
			sendErr = b.api.SendDocument(ctx, u.TelegramID, sess.FileID, sess.Caption)
		default:
			sendErr = b.api.SendText(ctx, u.TelegramID, sess.Content)
		}
		if sendErr != nil {
			failed++
			b.metrics.BroadcastSends.WithLabelValues("failed").Inc()
			b.log.Warn().Err(sendErr).Int64("user_id", u.TelegramID).Msg("broadcast delivery failed")
		} else {
			sent++
			b.metrics.BroadcastSends.WithLabelValues("sent").Inc()
		}

		if (i+1)%10 == 0 {
			b.notify(ctx, adminID, fmt.Sprintf("📤 Progress: %d/%d", i+1, len(recipients)))
		}
		if i < len(recipients)-1 {
			select {
			case <-ctx.Done():
				b.notify(ctx, adminID, "⚠️ Broadcast interrupted by shutdown.")
				return
			case <-time.After(b.broadcastDelay):
			}
		}
	}

	b.notify(ctx, adminID, fmt.Sprintf(
		"✅ *BROADCAST COMPLETE*\n\n📤 Sent: %d\n❌ Failed: %d", sent, failed))
}
