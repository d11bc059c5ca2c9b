package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"

	"tutorbot/internal/models"
	"tutorbot/internal/utils"
)

// handleApprovePayment applies the admin approval. The pending-status guard
// makes the decision idempotent: a second click on either button is a no-op.
// Ordering matters. User fields are written first, then the payment flips to
// its terminal status (the commit point), then the referral is credited, and
// notifications go out last. A crash in between leaves the payment pending
// and the whole sequence safely retryable.
func (b *Bot) handleApprovePayment(ctx context.Context, cb *telego.CallbackQuery) {
	if !b.isAdmin(cb.From.ID) {
		b.answer(ctx, cb.ID, "Not authorized")
		return
	}
	paymentID := strings.TrimPrefix(cb.Data, "admin_approve_payment_")

	payment, err := b.payments.ByID(ctx, paymentID)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Str("payment_id", paymentID).Msg("load payment failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	if payment == nil {
		b.answer(ctx, cb.ID, "Payment not found")
		return
	}
	if payment.Status != models.StatusPending {
		b.answer(ctx, cb.ID, "Already decided: "+payment.Status)
		return
	}

	now := timeNow()
	// joined_at moves to the approval moment so the daily cohort counts
	// verified students, not raw /start contacts.
	err = b.users.Update(ctx, payment.UserID, map[string]any{
		"payment_status": models.PaymentApproved,
		"is_verified":    true,
		"joined_at":      now,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", payment.UserID).Msg("verify user failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}

	adminID := cb.From.ID
	err = b.payments.Update(ctx, paymentID, map[string]any{
		"status":      models.StatusApproved,
		"approved_by": adminID,
		"decided_at":  now,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Str("payment_id", paymentID).Msg("approve payment failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	b.metrics.PaymentDecisions.WithLabelValues("approved").Inc()

	b.creditReferral(ctx, payment.UserID)

	b.answer(ctx, cb.ID, "Payment approved ✅")
	b.markDecided(ctx, cb, fmt.Sprintf("✅ APPROVED by admin %d", adminID))
	b.notify(ctx, payment.UserID,
		"🎉 *PAYMENT APPROVED!*\n\n"+
			"✅ You are now a verified student.\n"+
			"🎁 Use "+btnInviteEarn+" to invite friends and earn rewards.")
	if user, err := b.users.Get(ctx, payment.UserID); err == nil && user != nil {
		b.showMainMenu(ctx, payment.UserID, user)
	}
}

func (b *Bot) handleRejectPayment(ctx context.Context, cb *telego.CallbackQuery) {
	if !b.isAdmin(cb.From.ID) {
		b.answer(ctx, cb.ID, "Not authorized")
		return
	}
	paymentID := strings.TrimPrefix(cb.Data, "admin_reject_payment_")

	payment, err := b.payments.ByID(ctx, paymentID)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Str("payment_id", paymentID).Msg("load payment failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	if payment == nil {
		b.answer(ctx, cb.ID, "Payment not found")
		return
	}
	if payment.Status != models.StatusPending {
		b.answer(ctx, cb.ID, "Already decided: "+payment.Status)
		return
	}

	// The user returns to the screenshot step so a corrected receipt can be
	// submitted without redoing registration.
	err = b.users.Update(ctx, payment.UserID, map[string]any{
		"payment_status":    models.PaymentRejected,
		"registration_step": models.StepAwaitingScreenshot,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", payment.UserID).Msg("reject user payment failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}

	now := timeNow()
	adminID := cb.From.ID
	err = b.payments.Update(ctx, paymentID, map[string]any{
		"status":      models.StatusRejected,
		"rejected_by": adminID,
		"decided_at":  now,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Str("payment_id", paymentID).Msg("reject payment failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	b.metrics.PaymentDecisions.WithLabelValues("rejected").Inc()

	b.answer(ctx, cb.ID, "Payment rejected ❌")
	b.markDecided(ctx, cb, fmt.Sprintf("❌ REJECTED by admin %d", adminID))
	b.notify(ctx, payment.UserID,
		"❌ *PAYMENT REJECTED*\n\n"+
			"Your receipt could not be verified. Please double check the amount "+
			"and account, then send a new screenshot.")
}

// creditReferral credits the approved user's referrer, if any. Crediting is
// best-effort after the payment commit point; failures are logged.
func (b *Bot) creditReferral(ctx context.Context, userID int64) {
	user, err := b.users.Get(ctx, userID)
	if err != nil || user == nil || user.ReferrerID == nil {
		if err != nil {
			b.metrics.Errors.WithLabelValues("store").Inc()
			b.log.Error().Err(err).Int64("user_id", userID).Msg("load user for referral credit failed")
		}
		return
	}

	referrerID := *user.ReferrerID
	reward := b.settings.ReferralReward()
	if err := b.users.CreditReferral(ctx, referrerID, reward); err != nil {
		b.metrics.Errors.WithLabelValues("referral").Inc()
		b.log.Error().Err(err).
			Int64("referrer_id", referrerID).
			Int64("user_id", userID).
			Msg("credit referral failed")
		return
	}
	b.metrics.ReferralsCredited.Inc()
	b.log.Info().
		Int64("referrer_id", referrerID).
		Int64("user_id", userID).
		Float64("reward", reward).
		Msg("referral credited")

	name := user.Name
	if name == "" {
		name = user.FirstName
	}
	b.notify(ctx, referrerID, fmt.Sprintf(
		"🎉 *REFERRAL REWARD!*\n\n"+
			"Your invite *%s* just got verified.\n"+
			"💰 +%s added to your balance.",
		name, utils.FormatCurrency(reward)))
}

// markDecided stamps the decision outcome onto the admin's message so stale
// buttons show what happened.
func (b *Bot) markDecided(ctx context.Context, cb *telego.CallbackQuery, stamp string) {
	chatID, messageID, ok := callbackOrigin(cb)
	if !ok {
		return
	}
	var err error
	if caption := callbackCaption(cb); caption != "" {
		err = b.api.EditCaption(ctx, chatID, messageID, caption+"\n\n"+stamp)
	} else {
		err = b.api.EditText(ctx, chatID, messageID, stamp)
	}
	if err != nil {
		b.log.Warn().Err(err).Msg("stamp decision failed")
	}
}

// handleWithdrawalDecision settles a pending withdrawal. Marking it paid only
// flips the status; a rejection refunds the reserved amount back onto the
// user's withdrawable balance. Total lifetime rewards are never touched.
func (b *Bot) handleWithdrawalDecision(ctx context.Context, cb *telego.CallbackQuery, paid bool) {
	if !b.isAdmin(cb.From.ID) {
		b.answer(ctx, cb.ID, "Not authorized")
		return
	}
	prefix := "admin_withdraw_paid_"
	if !paid {
		prefix = "admin_withdraw_reject_"
	}
	withdrawalID := strings.TrimPrefix(cb.Data, prefix)

	w, err := b.withdrawals.ByID(ctx, withdrawalID)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Str("withdrawal_id", withdrawalID).Msg("load withdrawal failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	if w == nil {
		b.answer(ctx, cb.ID, "Withdrawal not found")
		return
	}
	if w.Status != models.WithdrawalPending {
		b.answer(ctx, cb.ID, "Already decided: "+w.Status)
		return
	}

	status := models.WithdrawalCompleted
	if !paid {
		status = models.WithdrawalRejected
	}
	now := timeNow()
	adminID := cb.From.ID
	err = b.withdrawals.Update(ctx, withdrawalID, map[string]any{
		"status":     status,
		"decided_by": adminID,
		"decided_at": now,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Str("withdrawal_id", withdrawalID).Msg("decide withdrawal failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}

	if paid {
		b.answer(ctx, cb.ID, "Marked as paid ✅")
		b.markDecided(ctx, cb, fmt.Sprintf("✅ PAID by admin %d", adminID))
		b.notify(ctx, w.UserID, fmt.Sprintf(
			"✅ *WITHDRAWAL PAID*\n\n💰 %s has been sent to your %s account.",
			utils.FormatCurrency(w.Amount), methodLabel(w.Method)))
		return
	}

	if err := b.users.AddRewards(ctx, w.UserID, w.Amount); err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).
			Int64("user_id", w.UserID).
			Float64("amount", w.Amount).
			Msg("refund rejected withdrawal failed")
	}
	b.answer(ctx, cb.ID, "Withdrawal rejected ❌")
	b.markDecided(ctx, cb, fmt.Sprintf("❌ REJECTED by admin %d", adminID))
	b.notify(ctx, w.UserID, fmt.Sprintf(
		"❌ *WITHDRAWAL REJECTED*\n\n"+
			"%s has been returned to your balance. "+
			"Please verify your payout details and try again.",
		utils.FormatCurrency(w.Amount)))
}
