package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/models"
	"tutorbot/internal/utils"
)

// Admin panel button labels.
const (
	btnAdminStats       = "📊 Statistics"
	btnAdminPayments    = "💰 Pending Payments"
	btnAdminWithdrawals = "💸 Pending Withdrawals"
	btnAdminBroadcast   = "📢 Broadcast"
	btnAdminSettings    = "⚙️ Settings"
	btnAdminExport      = "📦 Export"
)

func (b *Bot) handleAdminPanel(ctx context.Context, msg *telego.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}

	keyboard := tu.Keyboard(
		tu.KeyboardRow(
			tu.KeyboardButton(btnAdminStats),
			tu.KeyboardButton(btnAdminPayments),
		),
		tu.KeyboardRow(
			tu.KeyboardButton(btnAdminWithdrawals),
			tu.KeyboardButton(btnAdminBroadcast),
		),
		tu.KeyboardRow(
			tu.KeyboardButton(btnAdminSettings),
			tu.KeyboardButton(btnAdminExport),
		),
		tu.KeyboardRow(tu.KeyboardButton(btnMainMenu)),
	).WithResizeKeyboard()

	text := "🛠 *ADMIN PANEL*\n\nChoose an action.\n\n" +
		"Commands: `/student <id>`, `/trials`, `/addtrial`, `/block <id>`, `/unblock <id>`"
	if err := b.api.SendTextMarkup(ctx, msg.Chat.ID, text, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send admin panel failed")
	}
}

// handleAdminButton dispatches admin reply-keyboard buttons. Reports whether
// the text matched one.
func (b *Bot) handleAdminButton(ctx context.Context, msg *telego.Message, text string) bool {
	switch text {
	case btnAdminStats:
		b.handleStatsCommand(ctx, msg)
	case btnAdminPayments:
		b.listPendingPayments(ctx, msg.Chat.ID)
	case btnAdminWithdrawals:
		b.listPendingWithdrawals(ctx, msg.Chat.ID)
	case btnAdminBroadcast:
		b.handleBroadcastCommand(ctx, msg)
	case btnAdminSettings:
		b.handleSettingsDashboard(ctx, msg)
	case btnAdminExport:
		b.handleExportCommand(ctx, msg)
	default:
		return false
	}
	return true
}

// handleAdminSessionMessage feeds the message into an open admin composer
// session, if any. Reports whether the message was consumed.
func (b *Bot) handleAdminSessionMessage(ctx context.Context, msg *telego.Message) bool {
	adminID := msg.From.ID

	var sess adminSession
	found, err := b.sessions.Get(ctx, adminID, &sess)
	if err != nil {
		b.metrics.Errors.WithLabelValues("session").Inc()
		b.log.Error().Err(err).Int64("admin_id", adminID).Msg("load admin session failed")
		return false
	}
	if !found {
		return false
	}

	// The main menu button abandons the open session. Commands do too, but
	// those are cleared in handleCommand before dispatch.
	text := strings.TrimSpace(msg.Text)
	if text == btnMainMenu {
		if err := b.sessions.Delete(ctx, adminID); err != nil {
			b.log.Warn().Err(err).Msg("clear admin session failed")
		}
		return false
	}

	switch sess.Kind {
	case sessionBroadcast:
		return b.handleBroadcastCompose(ctx, msg, &sess)
	case sessionSetting:
		return b.handleSettingValueInput(ctx, msg, &sess)
	}
	return false
}

func (b *Bot) handleStatsCommand(ctx context.Context, msg *telego.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	chatID := msg.Chat.ID

	report, err := b.StatsReport(ctx)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Msg("build stats failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	b.notify(ctx, chatID, report)
}

// StatsReport assembles the operational overview shared by /stats and the
// daily digest worker.
func (b *Bot) StatsReport(ctx context.Context) (string, error) {
	total, err := b.users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("count users: %w", err)
	}
	verified, err := b.users.ByVerified(ctx, true)
	if err != nil {
		return "", fmt.Errorf("count verified: %w", err)
	}
	joinedToday, err := b.users.CountJoinedSince(ctx, startOfDay(timeNow()))
	if err != nil {
		return "", fmt.Errorf("count joined today: %w", err)
	}
	pendingPayments, err := b.payments.ByStatus(ctx, models.StatusPending)
	if err != nil {
		return "", fmt.Errorf("count pending payments: %w", err)
	}
	pendingWithdrawals, err := b.withdrawals.ByStatus(ctx, models.WithdrawalPending)
	if err != nil {
		return "", fmt.Errorf("count pending withdrawals: %w", err)
	}

	var totalReferrals int
	var outstanding float64
	for _, u := range verified {
		totalReferrals += u.ReferralCount
		outstanding += u.Rewards
	}

	return fmt.Sprintf(
		"📊 *BOT STATISTICS*\n\n"+
			"👥 Total users: %d\n"+
			"✅ Verified: %d\n"+
			"🆕 Joined today: %d\n\n"+
			"💰 Pending payments: %d\n"+
			"💸 Pending withdrawals: %d\n\n"+
			"🎁 Total referrals: %d\n"+
			"🏦 Outstanding rewards: %s",
		total, len(verified), joinedToday,
		len(pendingPayments), len(pendingWithdrawals),
		totalReferrals, utils.FormatCurrency(outstanding),
	), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (b *Bot) listPendingPayments(ctx context.Context, chatID int64) {
	pending, err := b.payments.ByStatus(ctx, models.StatusPending)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Msg("list pending payments failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	if len(pending) == 0 {
		b.notify(ctx, chatID, "✅ No pending payments.")
		return
	}

	const maxListed = 10
	for i, p := range pending {
		if i == maxListed {
			b.notify(ctx, chatID, fmt.Sprintf("... and %d more.", len(pending)-maxListed))
			break
		}
		user, err := b.users.Get(ctx, p.UserID)
		if err != nil || user == nil {
			continue
		}
		caption := fmt.Sprintf(
			"💰 *PENDING PAYMENT*\n\n👤 %s (`%d`)\n💳 %s\n💵 %s",
			orDash(user.Name), p.UserID, methodLabel(p.Method), utils.FormatCurrency(p.Amount))
		keyboard := tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton("✅ Approve").WithCallbackData("admin_approve_payment_"+p.ID),
				tu.InlineKeyboardButton("❌ Reject").WithCallbackData("admin_reject_payment_"+p.ID),
			),
		)
		if err := b.api.SendPhoto(ctx, chatID, p.FileID, caption, keyboard); err != nil {
			// Document receipts cannot be re-sent as photos.
			if err := b.api.SendTextMarkup(ctx, chatID, caption, keyboard); err != nil {
				b.log.Warn().Err(err).Str("payment_id", p.ID).Msg("list pending payment failed")
			}
		}
	}
}

func (b *Bot) listPendingWithdrawals(ctx context.Context, chatID int64) {
	pending, err := b.withdrawals.ByStatus(ctx, models.WithdrawalPending)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Msg("list pending withdrawals failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	if len(pending) == 0 {
		b.notify(ctx, chatID, "✅ No pending withdrawals.")
		return
	}

	for _, w := range pending {
		text := fmt.Sprintf(
			"💸 *PENDING WITHDRAWAL*\n\n"+
				"👤 `%d`\n💰 %s\n💳 %s\n🔢 `%s`\n📛 %s",
			w.UserID, utils.FormatCurrency(w.Amount), methodLabel(w.Method),
			w.AccountNumber, w.AccountName)
		keyboard := tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton("✅ Mark Paid").WithCallbackData("admin_withdraw_paid_"+w.ID),
				tu.InlineKeyboardButton("❌ Reject").WithCallbackData("admin_withdraw_reject_"+w.ID),
			),
		)
		if err := b.api.SendTextMarkup(ctx, chatID, text, keyboard); err != nil {
			b.log.Warn().Err(err).Str("withdrawal_id", w.ID).Msg("list pending withdrawal failed")
		}
	}
}

func (b *Bot) handleSettingsDashboard(ctx context.Context, msg *telego.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}

	all := b.settings.All()
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("⚙️ *SETTINGS*\n\n")
	for _, k := range keys {
		v := all[k]
		// Long message templates would flood the dashboard.
		if strings.Contains(v, "\n") || len(v) > 60 {
			v = "(template)"
		}
		sb.WriteString(fmt.Sprintf("`%s` = %s\n", k, v))
	}
	sb.WriteString("\nUse `/set <key> <value>` to change a value, or `/set <key>` to edit a template.")
	b.notify(ctx, msg.Chat.ID, sb.String())
}

// handleSetCommand updates a setting. With a value inline it writes
// immediately; with only a key it opens an editor session so multi-line
// templates can be sent as the next message.
func (b *Bot) handleSetCommand(ctx context.Context, msg *telego.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	chatID := msg.Chat.ID

	args := strings.Fields(msg.Text)
	if len(args) < 2 {
		b.notify(ctx, chatID, "Usage: `/set <key> <value>` or `/set <key>`")
		return
	}
	key := args[1]
	if !b.settings.Known(key) {
		b.notify(ctx, chatID, fmt.Sprintf("❌ Unknown setting `%s`. See /settings for the key list.", key))
		return
	}

	if len(args) == 2 {
		sess := adminSession{Kind: sessionSetting, SettingKey: key}
		if err := b.sessions.Set(ctx, msg.From.ID, sess); err != nil {
			b.metrics.Errors.WithLabelValues("session").Inc()
			b.log.Error().Err(err).Msg("open settings editor failed")
			b.notify(ctx, chatID, errRetryMessage)
			return
		}
		b.notify(ctx, chatID, fmt.Sprintf(
			"✏️ *EDITING* `%s`\n\nCurrent value:\n%s\n\nSend the new value as your next message.",
			key, b.settings.Get(key)))
		return
	}

	parts := strings.SplitN(msg.Text, key, 2)
	if len(parts) != 2 {
		b.notify(ctx, chatID, "Usage: `/set <key> <value>`")
		return
	}
	b.applySetting(ctx, chatID, key, strings.TrimSpace(parts[1]))
}

// handleSettingValueInput consumes the next admin message as the new value
// for the key opened with /set.
func (b *Bot) handleSettingValueInput(ctx context.Context, msg *telego.Message, sess *adminSession) bool {
	if strings.TrimSpace(msg.Text) == "" {
		b.notify(ctx, msg.Chat.ID, "❌ Please send the new value as text.")
		return true
	}
	if err := b.sessions.Delete(ctx, msg.From.ID); err != nil {
		b.log.Warn().Err(err).Msg("clear settings session failed")
	}
	b.applySetting(ctx, msg.Chat.ID, sess.SettingKey, msg.Text)
	return true
}

func (b *Bot) applySetting(ctx context.Context, chatID int64, key, value string) {
	if err := b.settings.Set(ctx, key, value); err != nil {
		b.metrics.Errors.WithLabelValues("settings").Inc()
		b.log.Error().Err(err).Str("key", key).Msg("save setting failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	b.log.Info().Str("key", key).Msg("setting updated")
	b.notify(ctx, chatID, fmt.Sprintf("✅ `%s` updated.", key))
}

// handleBlockCommand blocks or unblocks a user by Telegram ID.
func (b *Bot) handleBlockCommand(ctx context.Context, msg *telego.Message, block bool) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	chatID := msg.Chat.ID

	verb := "/block"
	if !block {
		verb = "/unblock"
	}
	args := strings.Fields(msg.Text)
	if len(args) != 2 {
		b.notify(ctx, chatID, fmt.Sprintf("Usage: `%s <telegram_id>`", verb))
		return
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		b.notify(ctx, chatID, "❌ Please provide a numeric Telegram ID.")
		return
	}

	user, err := b.users.Get(ctx, id)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	if user == nil {
		b.notify(ctx, chatID, "❌ No user with that ID.")
		return
	}

	if err := b.users.Update(ctx, id, map[string]any{"blocked": block}); err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", id).Msg("update block flag failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	if block {
		b.log.Info().Int64("user_id", id).Msg("user blocked")
		b.notify(ctx, chatID, fmt.Sprintf("🚫 User `%d` blocked.", id))
	} else {
		b.log.Info().Int64("user_id", id).Msg("user unblocked")
		b.notify(ctx, chatID, fmt.Sprintf("✅ User `%d` unblocked.", id))
	}
}
