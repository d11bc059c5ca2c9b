package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/models"
	"tutorbot/internal/utils"
)

// handlePayFee shows payment instructions and arms the screenshot step.
// Requires a completed registration; duplicate submissions while a payment is
// pending or after approval are refused.
func (b *Bot) handlePayFee(ctx context.Context, msg *telego.Message, user *models.User) {
	chatID := msg.Chat.ID

	if user == nil || user.RegistrationStep != models.StepCompleted &&
		user.RegistrationStep != models.StepAwaitingScreenshot {
		b.notify(ctx, chatID, "❌ *Please complete registration first.*\n\nUse "+btnRegister+" to begin.")
		return
	}
	switch user.PaymentStatus {
	case models.PaymentPending:
		b.notify(ctx, chatID, "⏳ *Your payment is already under review.*\n\nPlease wait for admin approval.")
		return
	case models.PaymentApproved:
		b.notify(ctx, chatID, "✅ *Your payment is already approved.*")
		return
	}

	if user.RegistrationStep != models.StepAwaitingScreenshot {
		err := b.users.Update(ctx, user.TelegramID, map[string]any{
			"registration_step": models.StepAwaitingScreenshot,
		})
		if err != nil {
			b.metrics.Errors.WithLabelValues("store").Inc()
			b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("arm screenshot step failed")
			b.notify(ctx, chatID, errRetryMessage)
			return
		}
	}

	fee := utils.FormatCurrency(b.settings.RegistrationFee())
	account := b.settings.Get("payment_account_" + user.PaymentMethod)
	text := fmt.Sprintf(
		"💰 *PAYMENT INSTRUCTIONS*\n\n"+
			"Amount: *%s*\n"+
			"Method: *%s*\n"+
			"Account: `%s`\n\n"+
			"📸 After paying, send the receipt *screenshot* here as a photo or document.",
		fee, methodLabel(user.PaymentMethod), account,
	)
	keyboard := tu.Keyboard(
		tu.KeyboardRow(tu.KeyboardButton(btnMainMenu)),
	).WithResizeKeyboard()
	if err := b.api.SendTextMarkup(ctx, chatID, text, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send payment instructions failed")
	}
}

// handlePaymentScreenshot records a pending payment for the submitted receipt
// and fans the screenshot out to every admin with decision buttons.
func (b *Bot) handlePaymentScreenshot(ctx context.Context, msg *telego.Message, user *models.User) {
	chatID := msg.Chat.ID

	switch user.PaymentStatus {
	case models.PaymentPending:
		b.notify(ctx, chatID, "⏳ *Your payment is already under review.*")
		return
	case models.PaymentApproved:
		b.notify(ctx, chatID, "✅ *Your payment is already approved.*")
		return
	}

	fileID := screenshotFileID(msg)
	if fileID == "" {
		b.notify(ctx, chatID, "❌ Please send the receipt as a *photo* or *document*.")
		return
	}

	payment := &models.Payment{
		UserID: user.TelegramID,
		Amount: b.settings.RegistrationFee(),
		Method: user.PaymentMethod,
		FileID: fileID,
		Status: models.StatusPending,
	}
	if err := b.payments.Create(ctx, payment); err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("create payment failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	err := b.users.Update(ctx, user.TelegramID, map[string]any{
		"payment_status":    models.PaymentPending,
		"registration_step": models.StepCompleted,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("mark payment pending failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	b.notify(ctx, chatID,
		"✅ *Screenshot received!*\n\n⏳ Your payment is now under admin review. "+
			"You will be notified once it is decided.")

	caption := fmt.Sprintf(
		"💰 *NEW PAYMENT SUBMISSION*\n\n"+
			"👤 Name: %s\n"+
			"🆔 ID: `%d`\n"+
			"📱 Phone: %s\n"+
			"🎓 Stream: %s\n"+
			"💳 Method: %s\n"+
			"💵 Amount: %s",
		user.Name, user.TelegramID, user.Phone, user.StudentType,
		methodLabel(user.PaymentMethod), utils.FormatCurrency(payment.Amount),
	)
	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Approve").WithCallbackData("admin_approve_payment_"+payment.ID),
			tu.InlineKeyboardButton("❌ Reject").WithCallbackData("admin_reject_payment_"+payment.ID),
		),
	)
	for _, adminID := range b.adminIDs() {
		var sendErr error
		if len(msg.Photo) > 0 {
			sendErr = b.api.SendPhoto(ctx, adminID, fileID, caption, keyboard)
		} else {
			// Document receipts are forwarded without decision buttons and
			// followed by a separate decision message.
			if sendErr = b.api.SendDocument(ctx, adminID, fileID, caption); sendErr == nil {
				sendErr = b.api.SendTextMarkup(ctx, adminID, "Decide payment `"+payment.ID+"`:", keyboard)
			}
		}
		if sendErr != nil {
			b.metrics.Errors.WithLabelValues("notify").Inc()
			b.log.Warn().Err(sendErr).Int64("admin_id", adminID).Msg("forward payment to admin failed")
		}
	}
}

func screenshotFileID(msg *telego.Message) string {
	if len(msg.Photo) > 0 {
		// Largest photo size is last.
		return msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Document != nil {
		return msg.Document.FileID
	}
	return ""
}

func methodLabel(method string) string {
	switch method {
	case models.MethodTelebirr:
		return "TeleBirr"
	case models.MethodCBEBirr:
		return "CBE Birr"
	}
	return method
}
