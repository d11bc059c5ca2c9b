package bot

import (
	"context"
	"strings"

	"github.com/mymmrac/telego"

	"tutorbot/internal/models"
)

// HandleMessage routes one inbound message. Dispatch order: commands, admin
// composer sessions, contact cards, payment screenshots, payout-profile
// steps, registration steps, then menu buttons. Every step check reads the
// persisted record, never process-local memory.
func (b *Bot) HandleMessage(ctx context.Context, msg *telego.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	b.metrics.UpdatesProcessed.WithLabelValues("message").Inc()

	userID := msg.From.ID
	user, err := b.users.Get(ctx, userID)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", userID).Msg("load user failed")
		b.notify(ctx, msg.Chat.ID, errRetryMessage)
		return
	}
	if user != nil && user.Blocked {
		return
	}

	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, user)
		return
	}

	if b.isAdmin(userID) {
		if b.handleAdminSessionMessage(ctx, msg) {
			return
		}
		// File materials arrive as a document with the command in the caption.
		if msg.Document != nil && strings.HasPrefix(strings.TrimSpace(msg.Caption), "/addtrial") {
			b.handleAddTrialCommand(ctx, msg)
			return
		}
		if b.handleAdminButton(ctx, msg, text) {
			return
		}
	}

	// Navigation works from any registration state.
	switch text {
	case btnCancelRegistration:
		b.handleCancelRegistration(ctx, msg, user)
		return
	case btnMainMenu:
		b.showMainMenu(ctx, msg.Chat.ID, user)
		return
	}

	if msg.Contact != nil {
		b.handleContactShared(ctx, msg, user)
		return
	}

	if user != nil && user.RegistrationStep == models.StepAwaitingScreenshot &&
		(len(msg.Photo) > 0 || msg.Document != nil) {
		b.handlePaymentScreenshot(ctx, msg, user)
		return
	}

	if user != nil && user.PayoutStep != models.PayoutStepNone && text != "" {
		if b.handlePayoutInput(ctx, msg, user) {
			return
		}
	}

	if user != nil && user.RegistrationStep == models.StepAwaitingName && text != "" {
		b.handleNameInput(ctx, msg, user)
		return
	}

	switch text {
	case btnRegister:
		b.handleRegister(ctx, msg, user)
	case btnPayFee:
		b.handlePayFee(ctx, msg, user)
	case btnInviteEarn:
		b.handleInviteEarn(ctx, msg, user)
	case btnLeaderboard:
		b.handleLeaderboard(ctx, msg)
	case btnMyProfile:
		b.handleMyProfile(ctx, msg, user)
	case btnFreeTrial:
		b.handleTrialMaterials(ctx, msg)
	case btnRules:
		b.handleRules(ctx, msg)
	case btnHelp:
		b.handleHelp(ctx, msg)
	default:
		b.showMainMenu(ctx, msg.Chat.ID, user)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *telego.Message, user *models.User) {
	text := strings.TrimSpace(msg.Text)
	cmd := text
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}

	// A command always abandons an open composer session, so /cancel (or any
	// other command) cannot leave a stale broadcast or settings editor behind.
	if b.isAdmin(msg.From.ID) {
		if err := b.sessions.Delete(ctx, msg.From.ID); err != nil {
			b.log.Warn().Err(err).Msg("clear admin session failed")
		}
	}

	switch cmd {
	case "/start":
		b.handleStart(ctx, msg, user)
	case "/help":
		b.handleHelp(ctx, msg)
	case "/cancel":
		b.handleCancelRegistration(ctx, msg, user)
	case "/admin":
		b.handleAdminPanel(ctx, msg)
	case "/stats":
		b.handleStatsCommand(ctx, msg)
	case "/broadcast":
		b.handleBroadcastCommand(ctx, msg)
	case "/export":
		b.handleExportCommand(ctx, msg)
	case "/settings":
		b.handleSettingsDashboard(ctx, msg)
	case "/set":
		b.handleSetCommand(ctx, msg)
	case "/block":
		b.handleBlockCommand(ctx, msg, true)
	case "/unblock":
		b.handleBlockCommand(ctx, msg, false)
	case "/student":
		b.handleStudentCommand(ctx, msg)
	case "/addtrial":
		b.handleAddTrialCommand(ctx, msg)
	case "/trials":
		b.handleTrialAdminList(ctx, msg)
	default:
		b.showMainMenu(ctx, msg.Chat.ID, user)
	}
}

// HandleCallback routes one inbound callback query.
func (b *Bot) HandleCallback(ctx context.Context, cb *telego.CallbackQuery) {
	if cb == nil {
		return
	}
	b.metrics.UpdatesProcessed.WithLabelValues("callback").Inc()

	userID := cb.From.ID
	user, err := b.users.Get(ctx, userID)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", userID).Msg("load user failed")
		b.answer(ctx, cb.ID, "")
		return
	}
	if user != nil && user.Blocked {
		b.answer(ctx, cb.ID, "")
		return
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "stream_"):
		b.handleStreamSelection(ctx, cb, user)
	case strings.HasPrefix(data, "payment_update_"):
		b.handlePayoutMethodUpdate(ctx, cb, user)
	case strings.HasPrefix(data, "payment_"):
		b.handlePaymentMethodSelection(ctx, cb, user)
	case strings.HasPrefix(data, "admin_approve_payment_"):
		b.handleApprovePayment(ctx, cb)
	case strings.HasPrefix(data, "admin_reject_payment_"):
		b.handleRejectPayment(ctx, cb)
	case strings.HasPrefix(data, "admin_withdraw_paid_"):
		b.handleWithdrawalDecision(ctx, cb, true)
	case strings.HasPrefix(data, "admin_withdraw_reject_"):
		b.handleWithdrawalDecision(ctx, cb, false)
	case strings.HasPrefix(data, "admin_delete_user_"):
		b.handleDeleteStudentPrompt(ctx, cb)
	case strings.HasPrefix(data, "admin_delete_confirm_"):
		b.handleDeleteStudentConfirm(ctx, cb)
	case data == "admin_delete_cancel":
		b.handleDeleteStudentCancel(ctx, cb)
	case strings.HasPrefix(data, "admin_trial_delete_"):
		b.handleDeleteTrialMaterial(ctx, cb)
	case data == "profile_withdraw_start":
		b.handleWithdrawStart(ctx, cb, user)
	case data == "profile_change_payment":
		b.handleChangePaymentStart(ctx, cb, user)
	case strings.HasPrefix(data, "trial_view_"):
		b.handleViewTrialMaterial(ctx, cb)
	case strings.HasPrefix(data, "broadcast_") || data == "message_individual":
		b.handleBroadcastType(ctx, cb)
	case data == "confirm_send_message" || data == "cancel_send_message" || data == "edit_message":
		b.handleBroadcastConfirmation(ctx, cb)
	case strings.HasPrefix(data, "export_"):
		b.handleExportType(ctx, cb)
	default:
		b.answer(ctx, cb.ID, "")
	}
}

// callbackOrigin extracts the chat and message the callback button lives on.
func callbackOrigin(cb *telego.CallbackQuery) (int64, int, bool) {
	if cb.Message == nil {
		return 0, 0, false
	}
	return cb.Message.GetChat().ID, cb.Message.GetMessageID(), true
}

// callbackCaption returns the caption of the originating message, if the
// message is still accessible.
func callbackCaption(cb *telego.CallbackQuery) string {
	if m, ok := cb.Message.(*telego.Message); ok {
		return m.Caption
	}
	return ""
}
