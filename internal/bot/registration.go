package bot

import (
	"context"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/models"
	"tutorbot/internal/utils"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

// handleRegister enters the registration flow. All previously collected
// registration fields are reset; referral state and join date survive.
func (b *Bot) handleRegister(ctx context.Context, msg *telego.Message, user *models.User) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if allowed, reason := b.settings.FeatureStatus("registration"); !allowed {
		b.notify(ctx, chatID, reason)
		return
	}
	if user != nil && user.IsVerified {
		b.notify(ctx, chatID, "✅ *You are already registered!*")
		return
	}

	if user == nil {
		user = &models.User{
			TelegramID: userID,
			JoinedAt:   timeNow(),
		}
	}
	user.FirstName = msg.From.FirstName
	user.Username = msg.From.Username
	user.IsVerified = false
	user.RegistrationStep = models.StepAwaitingName
	user.PaymentStatus = models.PaymentNotStarted
	user.Name = ""
	user.Phone = ""
	user.StudentType = ""
	user.PaymentMethod = ""

	if err := b.users.Save(ctx, user); err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", userID).Msg("start registration failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	keyboard := tu.Keyboard(
		tu.KeyboardRow(tu.KeyboardButton(btnCancelRegistration)),
	).WithResizeKeyboard()

	text := b.settings.Message("reg_start", nil)
	if err := b.api.SendTextMarkup(ctx, chatID, text, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send registration prompt failed")
	}
}

func (b *Bot) handleNameInput(ctx context.Context, msg *telego.Message, user *models.User) {
	chatID := msg.Chat.ID
	name := strings.TrimSpace(msg.Text)

	if !utils.ValidateName(name) {
		b.notify(ctx, chatID, "❌ *Invalid Name.* Please enter your full name (2-50 characters).")
		return
	}

	err := b.users.Update(ctx, user.TelegramID, map[string]any{
		"name":              name,
		"registration_step": models.StepAwaitingPhone,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("save name failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	keyboard := tu.Keyboard(
		tu.KeyboardRow(tu.KeyboardButton(btnSharePhone).WithRequestContact()),
		tu.KeyboardRow(tu.KeyboardButton(btnCancelRegistration)),
	).WithResizeKeyboard().WithOneTimeKeyboard()

	text := b.settings.Message("reg_name_saved", map[string]string{"name": name})
	if err := b.api.SendTextMarkup(ctx, chatID, text, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send phone prompt failed")
	}
}

// handleContactShared accepts a shared contact card. The card must belong to
// the submitting user.
func (b *Bot) handleContactShared(ctx context.Context, msg *telego.Message, user *models.User) {
	chatID := msg.Chat.ID
	contact := msg.Contact

	if user == nil || user.RegistrationStep != models.StepAwaitingPhone ||
		contact.UserID != msg.From.ID {
		b.notify(ctx, chatID, "❌ *Please share your OWN phone number* using the button.")
		return
	}

	err := b.users.Update(ctx, user.TelegramID, map[string]any{
		"phone":             contact.PhoneNumber,
		"registration_step": models.StepAwaitingStream,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("save phone failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Natural Science").WithCallbackData("stream_natural")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Social Science").WithCallbackData("stream_social")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Technology").WithCallbackData("stream_technology")),
	)

	text := b.settings.Message("reg_phone_saved", map[string]string{"phone": contact.PhoneNumber})
	if err := b.api.SendTextMarkup(ctx, chatID, text, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send stream prompt failed")
	}
}

func (b *Bot) handleStreamSelection(ctx context.Context, cb *telego.CallbackQuery, user *models.User) {
	stream := strings.TrimPrefix(cb.Data, "stream_")
	if user == nil || user.RegistrationStep != models.StepAwaitingStream || !validStream(stream) {
		b.answer(ctx, cb.ID, "")
		return
	}

	err := b.users.Update(ctx, user.TelegramID, map[string]any{
		"student_type":      stream,
		"registration_step": models.StepAwaitingPaymentMethod,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("save stream failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	b.answer(ctx, cb.ID, "")

	chatID, messageID, ok := callbackOrigin(cb)
	if !ok {
		return
	}
	text := "✅ Stream saved: *" + strings.ToUpper(stream) + "*\n\n" +
		"💳 *SELECT PAYMENT METHOD*\n\nChoose your preferred payment platform:"
	if err := b.api.EditText(ctx, chatID, messageID, text); err != nil {
		b.log.Warn().Err(err).Msg("edit stream message failed")
	}
	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("TeleBirr").WithCallbackData("payment_telebirr")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("CBE Birr").WithCallbackData("payment_cbebirr")),
	)
	if err := b.api.SendTextMarkup(ctx, chatID, "💳 Select below:", keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send payment method prompt failed")
	}
}

func (b *Bot) handlePaymentMethodSelection(ctx context.Context, cb *telego.CallbackQuery, user *models.User) {
	method := strings.TrimPrefix(cb.Data, "payment_")
	if user == nil || user.RegistrationStep != models.StepAwaitingPaymentMethod || !validMethod(method) {
		b.answer(ctx, cb.ID, "")
		return
	}

	err := b.users.Update(ctx, user.TelegramID, map[string]any{
		"payment_method":    method,
		"registration_step": models.StepCompleted,
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("save payment method failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	b.answer(ctx, cb.ID, "")

	if chatID, messageID, ok := callbackOrigin(cb); ok {
		if err := b.api.EditText(ctx, chatID, messageID, b.settings.Message("reg_success", nil)); err != nil {
			b.log.Warn().Err(err).Msg("edit registration success failed")
		}
		user.RegistrationStep = models.StepCompleted
		user.PaymentMethod = method
		b.showMainMenu(ctx, chatID, user)
	}
}

// handleCancelRegistration resets an in-flight registration. Completed or
// never-started registrations are left untouched.
func (b *Bot) handleCancelRegistration(ctx context.Context, msg *telego.Message, user *models.User) {
	chatID := msg.Chat.ID

	if user == nil || user.RegistrationStep == models.StepNotStarted ||
		user.RegistrationStep == models.StepCompleted {
		b.showMainMenu(ctx, chatID, user)
		return
	}

	err := b.users.Update(ctx, user.TelegramID, map[string]any{
		"registration_step": models.StepNotStarted,
		"payment_status":    models.PaymentNotStarted,
		"name":              "",
		"phone":             "",
		"student_type":      "",
		"payment_method":    "",
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("user_id", user.TelegramID).Msg("cancel registration failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	user.RegistrationStep = models.StepNotStarted
	user.PaymentStatus = models.PaymentNotStarted
	b.notify(ctx, chatID, "❌ Registration cancelled. Returning to main menu.")
	b.showMainMenu(ctx, chatID, user)
}

func validStream(stream string) bool {
	switch stream {
	case models.StreamNatural, models.StreamSocial, models.StreamTechnology:
		return true
	}
	return false
}

func validMethod(method string) bool {
	switch method {
	case models.MethodTelebirr, models.MethodCBEBirr:
		return true
	}
	return false
}
