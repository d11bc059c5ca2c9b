package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/utils"
)

// handleStudentCommand shows the admin detail card for one student,
// including everyone they referred, with a delete action.
func (b *Bot) handleStudentCommand(ctx context.Context, msg *telego.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	chatID := msg.Chat.ID

	args := strings.Fields(msg.Text)
	if len(args) != 2 {
		b.notify(ctx, chatID, "Usage: `/student <telegram_id>`")
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
		b.log.Error().Err(err).Int64("user_id", id).Msg("load student failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	if user == nil {
		b.notify(ctx, chatID, "❌ No user with that ID.")
		return
	}

	referrals, err := b.users.ByReferrer(ctx, id)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", id).Msg("load referrals failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	verified := "no"
	if user.IsVerified {
		verified = "yes"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		"👤 *STUDENT DETAIL*\n\n"+
			"Name: %s\n"+
			"ID: `%d`\n"+
			"Phone: %s\n"+
			"Stream: %s\n"+
			"Step: %s\n"+
			"Payment: %s\n"+
			"Verified: %s\n"+
			"Balance: %s (lifetime %s)\n",
		orDash(user.Name), user.TelegramID, orDash(user.Phone),
		orDash(user.StudentType), user.RegistrationStep,
		orDash(user.PaymentStatus), verified,
		utils.FormatCurrency(user.Rewards), utils.FormatCurrency(user.TotalRewards)))

	sb.WriteString(fmt.Sprintf("\n🎁 *Referrals (%d):*\n", len(referrals)))
	if len(referrals) == 0 {
		sb.WriteString("none\n")
	}
	for _, r := range referrals {
		status := "unverified"
		if r.IsVerified {
			status = "verified"
		}
		sb.WriteString(fmt.Sprintf("• %s (`%d`) - %s\n", orDash(r.Name), r.TelegramID, status))
	}

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🗑 Delete Student").
				WithCallbackData(fmt.Sprintf("admin_delete_user_%d", id)),
		),
	)
	if err := b.api.SendTextMarkup(ctx, chatID, sb.String(), keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send student detail failed")
	}
}

// handleDeleteStudentPrompt swaps the delete button for a confirmation.
func (b *Bot) handleDeleteStudentPrompt(ctx context.Context, cb *telego.CallbackQuery) {
	if !b.isAdmin(cb.From.ID) {
		b.answer(ctx, cb.ID, "Not authorized")
		return
	}
	id := strings.TrimPrefix(cb.Data, "admin_delete_user_")
	b.answer(ctx, cb.ID, "")

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("⚠️ Yes, delete").WithCallbackData("admin_delete_confirm_"+id),
			tu.InlineKeyboardButton("Cancel").WithCallbackData("admin_delete_cancel"),
		),
	)
	text := fmt.Sprintf(
		"⚠️ *DELETE STUDENT* `%s`?\n\nThe record is removed permanently. Referral links from other students stay as they are.", id)
	if err := b.api.SendTextMarkup(ctx, cb.From.ID, text, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send delete prompt failed")
	}
}

// handleDeleteStudentConfirm removes the user record.
func (b *Bot) handleDeleteStudentConfirm(ctx context.Context, cb *telego.CallbackQuery) {
	if !b.isAdmin(cb.From.ID) {
		b.answer(ctx, cb.ID, "Not authorized")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, "admin_delete_confirm_"), 10, 64)
	if err != nil {
		b.answer(ctx, cb.ID, "Bad user ID")
		return
	}

	if err := b.users.Delete(ctx, id); err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", id).Msg("delete student failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	b.log.Info().Int64("user_id", id).Int64("admin_id", cb.From.ID).Msg("student deleted")
	b.answer(ctx, cb.ID, "Student deleted")

	if chatID, messageID, ok := callbackOrigin(cb); ok {
		text := fmt.Sprintf("🗑 Student `%d` deleted by admin %d.", id, cb.From.ID)
		if err := b.api.EditText(ctx, chatID, messageID, text); err != nil {
			b.log.Warn().Err(err).Msg("edit delete result failed")
		}
	}
}

func (b *Bot) handleDeleteStudentCancel(ctx context.Context, cb *telego.CallbackQuery) {
	b.answer(ctx, cb.ID, "Cancelled")
	if chatID, messageID, ok := callbackOrigin(cb); ok {
		if err := b.api.EditText(ctx, chatID, messageID, "Deletion cancelled."); err != nil {
			b.log.Warn().Err(err).Msg("edit delete cancel failed")
		}
	}
}
