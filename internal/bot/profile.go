package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/models"
	"tutorbot/internal/utils"
)

func (b *Bot) handleMyProfile(ctx context.Context, msg *telego.Message, user *models.User) {
	chatID := msg.Chat.ID

	if user == nil {
		b.notify(ctx, chatID, "❌ *No profile yet.*\n\nUse "+btnRegister+" to begin.")
		return
	}

	status := "⏳ Not verified"
	if user.IsVerified {
		status = "✅ Verified"
	}
	payout := "not set"
	if user.PayoutMethod != "" {
		payout = fmt.Sprintf("%s / `%s` / %s",
			methodLabel(user.PayoutMethod), user.AccountNumber, user.AccountName)
	}

	text := fmt.Sprintf(
		"👤 *MY PROFILE*\n\n"+
			"Name: %s\n"+
			"Phone: %s\n"+
			"Stream: %s\n"+
			"Status: %s\n\n"+
			"💰 *Rewards*\n"+
			"Balance: %s\n"+
			"Lifetime earned: %s\n"+
			"Referrals: %d\n\n"+
			"🏦 Payout account: %s",
		orDash(user.Name), orDash(user.Phone), orDash(user.StudentType), status,
		utils.FormatCurrency(user.Rewards), utils.FormatCurrency(user.TotalRewards),
		user.ReferralCount, payout,
	)

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💸 Withdraw").WithCallbackData("profile_withdraw_start"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🏦 Update Payout Account").WithCallbackData("profile_change_payment"),
		),
	)
	if err := b.api.SendTextMarkup(ctx, chatID, text, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send profile failed")
	}
}

// handleWithdrawStart validates the preconditions in order, reserves the full
// balance with a compare-and-swap to zero, records the withdrawal and asks
// the admins to pay it out. A failed record insert refunds the reservation.
func (b *Bot) handleWithdrawStart(ctx context.Context, cb *telego.CallbackQuery, user *models.User) {
	chatID := cb.From.ID

	if allowed, reason := b.settings.FeatureStatus("withdrawal"); !allowed {
		b.answer(ctx, cb.ID, "")
		b.notify(ctx, chatID, reason)
		return
	}
	if user == nil || !user.IsVerified {
		b.answer(ctx, cb.ID, "")
		b.notify(ctx, chatID, "❌ *Only verified students can withdraw.*")
		return
	}
	min := b.settings.MinWithdrawalAmount()
	if user.Rewards < min {
		b.answer(ctx, cb.ID, "")
		b.notify(ctx, chatID, fmt.Sprintf(
			"❌ *Minimum withdrawal is %s.*\n\nYour balance: %s. Keep inviting!",
			utils.FormatCurrency(min), utils.FormatCurrency(user.Rewards)))
		return
	}
	if user.PayoutMethod == "" || user.AccountNumber == "" || user.AccountName == "" {
		b.answer(ctx, cb.ID, "")
		b.startPayoutProfile(ctx, chatID, user,
			"🏦 *SET UP YOUR PAYOUT ACCOUNT FIRST*\n\nChoose where we should send your money:")
		return
	}
	b.answer(ctx, cb.ID, "")

	amount := user.Rewards
	ok, err := b.users.ZeroRewards(ctx, user.TelegramID, amount)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("reserve withdrawal failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	if !ok {
		// Balance moved between the profile view and the click.
		b.notify(ctx, chatID, "⚠️ Your balance changed. Please open your profile and try again.")
		return
	}

	w := &models.Withdrawal{
		UserID:        user.TelegramID,
		Amount:        amount,
		Method:        user.PayoutMethod,
		AccountNumber: user.AccountNumber,
		AccountName:   user.AccountName,
		Status:        models.WithdrawalPending,
	}
	if err := b.withdrawals.Create(ctx, w); err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("create withdrawal failed")
		if refundErr := b.users.AddRewards(ctx, user.TelegramID, amount); refundErr != nil {
			b.log.Error().Err(refundErr).
				Int64("user_id", user.TelegramID).
				Float64("amount", amount).
				Msg("refund failed reservation failed")
		}
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	b.notify(ctx, chatID, fmt.Sprintf(
		"✅ *WITHDRAWAL REQUESTED*\n\n"+
			"💰 Amount: %s\n"+
			"🏦 Account: %s / `%s`\n\n"+
			"⏳ An admin will process it shortly.",
		utils.FormatCurrency(amount), methodLabel(w.Method), w.AccountNumber))

	adminText := fmt.Sprintf(
		"💸 *NEW WITHDRAWAL REQUEST*\n\n"+
			"👤 %s (`%d`)\n"+
			"💰 Amount: %s\n"+
			"💳 Method: %s\n"+
			"🔢 Account: `%s`\n"+
			"📛 Holder: %s",
		orDash(user.Name), user.TelegramID, utils.FormatCurrency(amount),
		methodLabel(w.Method), w.AccountNumber, w.AccountName)
	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Mark Paid").WithCallbackData("admin_withdraw_paid_"+w.ID),
			tu.InlineKeyboardButton("❌ Reject").WithCallbackData("admin_withdraw_reject_"+w.ID),
		),
	)
	for _, adminID := range b.adminIDs() {
		if err := b.api.SendTextMarkup(ctx, adminID, adminText, keyboard); err != nil {
			b.metrics.Errors.WithLabelValues("notify").Inc()
			b.log.Warn().Err(err).Int64("admin_id", adminID).Msg("notify admin of withdrawal failed")
		}
	}
}

func (b *Bot) handleChangePaymentStart(ctx context.Context, cb *telego.CallbackQuery, user *models.User) {
	b.answer(ctx, cb.ID, "")
	if user == nil {
		return
	}
	b.startPayoutProfile(ctx, cb.From.ID, user,
		"🏦 *UPDATE PAYOUT ACCOUNT*\n\nChoose where we should send your money:")
}

func (b *Bot) startPayoutProfile(ctx context.Context, chatID int64, user *models.User, prompt string) {
	err := b.users.Update(ctx, user.TelegramID, map[string]any{
		"payout_step": models.PayoutStepAwaitingMethod,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("start payout profile failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("TeleBirr").WithCallbackData("payment_update_telebirr"),
			tu.InlineKeyboardButton("CBE Birr").WithCallbackData("payment_update_cbebirr"),
		),
	)
	if err := b.api.SendTextMarkup(ctx, chatID, prompt, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send payout method prompt failed")
	}
}

func (b *Bot) handlePayoutMethodUpdate(ctx context.Context, cb *telego.CallbackQuery, user *models.User) {
	method := strings.TrimPrefix(cb.Data, "payment_update_")
	if user == nil || user.PayoutStep != models.PayoutStepAwaitingMethod || !validMethod(method) {
		b.answer(ctx, cb.ID, "")
		return
	}

	err := b.users.Update(ctx, user.TelegramID, map[string]any{
		"payout_method": method,
		"payout_step":   models.PayoutStepAwaitingAccount,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("save payout method failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	b.answer(ctx, cb.ID, "")

	if chatID, messageID, ok := callbackOrigin(cb); ok {
		text := "✅ Method: *" + methodLabel(method) + "*\n\n" +
			"🔢 Now send your *account number* (phone number for TeleBirr):"
		if err := b.api.EditText(ctx, chatID, messageID, text); err != nil {
			b.log.Warn().Err(err).Msg("edit payout method message failed")
		}
	}
}

// handlePayoutInput consumes text while the user is mid payout-profile setup.
// Reports whether the message was handled.
func (b *Bot) handlePayoutInput(ctx context.Context, msg *telego.Message, user *models.User) bool {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch user.PayoutStep {
	case models.PayoutStepAwaitingAccount:
		if !utils.ValidateAccountNumber(text) {
			b.notify(ctx, chatID, "❌ *Invalid account number.* Please enter 5-20 characters.")
			return true
		}
		err := b.users.Update(ctx, user.TelegramID, map[string]any{
			"account_number": text,
			"payout_step":    models.PayoutStepAwaitingName,
		})
		if err != nil {
			b.metrics.Errors.WithLabelValues("store").Inc()
			b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("save account number failed")
			b.notify(ctx, chatID, errRetryMessage)
			return true
		}
		b.notify(ctx, chatID, "✅ Account number saved.\n\n📛 Now send the *account holder name*:")
		return true

	case models.PayoutStepAwaitingName:
		if !utils.ValidateAccountName(text) {
			b.notify(ctx, chatID, "❌ *Invalid name.* Please enter at least 2 characters.")
			return true
		}
		err := b.users.Update(ctx, user.TelegramID, map[string]any{
			"account_name": text,
			"payout_step":  models.PayoutStepNone,
		})
		if err != nil {
			b.metrics.Errors.WithLabelValues("store").Inc()
			b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("save account name failed")
			b.notify(ctx, chatID, errRetryMessage)
			return true
		}
		b.notify(ctx, chatID,
			"✅ *PAYOUT ACCOUNT SAVED*\n\n"+
				"Open "+btnMyProfile+" and tap Withdraw when you are ready.")
		return true
	}
	return false
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
