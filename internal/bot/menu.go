package bot

import (
	"context"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/models"
	"tutorbot/internal/utils"
)

// Main menu button labels.
const (
	btnRegister           = "📝 Register"
	btnPayFee             = "💰 Pay Fee"
	btnInviteEarn         = "🎁 Invite & Earn"
	btnLeaderboard        = "🏆 Leaderboard"
	btnMyProfile          = "👤 My Profile"
	btnFreeTrial          = "📚 Free Trial"
	btnRules              = "📌 Rules"
	btnHelp               = "❓ Help"
	btnCancelRegistration = "❌ Cancel Registration"
	btnMainMenu           = "🏠 Main Menu"
	btnSharePhone         = "📱 Share Phone Number"
)

func (b *Bot) handleStart(ctx context.Context, msg *telego.Message, user *models.User) {
	userID := msg.From.ID

	if user == nil {
		user = &models.User{
			TelegramID:       userID,
			FirstName:        msg.From.FirstName,
			Username:         msg.From.Username,
			RegistrationStep: models.StepNotStarted,
			PaymentStatus:    models.PaymentNotStarted,
			JoinedAt:         timeNow(),
		}
		if err := b.users.Save(ctx, user); err != nil {
			b.metrics.Errors.WithLabelValues("store").Inc()
			b.log.Error().Err(err).Int64("user_id", userID).Msg("create user failed")
			b.notify(ctx, msg.Chat.ID, errRetryMessage)
			return
		}
	}

	if payload := startPayload(msg.Text); strings.HasPrefix(payload, "ref_") {
		b.attributeReferral(ctx, user, payload)
	}

	b.showMainMenu(ctx, msg.Chat.ID, user)
}

// startPayload extracts the deep-link parameter from a /start command.
func startPayload(text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (b *Bot) showMainMenu(ctx context.Context, chatID int64, user *models.User) {
	welcome := b.settings.Message("welcome_message", map[string]string{
		"fee":    utils.FormatCurrency(b.settings.RegistrationFee()),
		"reward": utils.FormatCurrency(b.settings.ReferralReward()),
	})

	keyboard := b.mainMenuKeyboard(user)
	if err := b.api.SendTextMarkup(ctx, chatID, welcome, keyboard); err != nil {
		b.metrics.Errors.WithLabelValues("send").Inc()
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send main menu failed")
	}
}

// mainMenuKeyboard assembles the reply keyboard from verification status and
// feature toggles.
func (b *Bot) mainMenuKeyboard(user *models.User) *telego.ReplyKeyboardMarkup {
	verified := user != nil && user.IsVerified
	registrationOn, _ := b.settings.FeatureStatus("registration")
	referralOn, _ := b.settings.FeatureStatus("referral")
	trialOn, _ := b.settings.FeatureStatus("trial")

	var rows [][]telego.KeyboardButton

	if !verified && registrationOn {
		rows = append(rows, tu.KeyboardRow(tu.KeyboardButton(btnRegister)))
	}
	if verified {
		if referralOn {
			rows = append(rows, tu.KeyboardRow(
				tu.KeyboardButton(btnInviteEarn),
				tu.KeyboardButton(btnLeaderboard),
			))
		}
	} else {
		rows = append(rows, tu.KeyboardRow(tu.KeyboardButton(btnPayFee)))
	}

	commonRow := []telego.KeyboardButton{}
	if trialOn {
		commonRow = append(commonRow, tu.KeyboardButton(btnFreeTrial))
	}
	commonRow = append(commonRow, tu.KeyboardButton(btnMyProfile))
	rows = append(rows, commonRow)

	rows = append(rows, tu.KeyboardRow(
		tu.KeyboardButton(btnRules),
		tu.KeyboardButton(btnHelp),
	))

	return tu.Keyboard(rows...).WithResizeKeyboard()
}

func (b *Bot) handleRules(ctx context.Context, msg *telego.Message) {
	rules := "📌 *RULES*\n\n" +
		"1. Register with your real name and your own phone number.\n" +
		"2. Pay the registration fee and upload a clear receipt screenshot.\n" +
		"3. One account per student. Self-referrals are not rewarded.\n" +
		"4. Referral rewards are credited only after the invited student is verified.\n" +
		"5. Abusive behaviour leads to a permanent block."
	b.notify(ctx, msg.Chat.ID, rules)
}

func (b *Bot) handleHelp(ctx context.Context, msg *telego.Message) {
	help := "❓ *HELP*\n\n" +
		"• " + btnRegister + " - start tutorial registration\n" +
		"• " + btnPayFee + " - submit your payment screenshot\n" +
		"• " + btnInviteEarn + " - get your referral link and stats\n" +
		"• " + btnMyProfile + " - view your profile and withdraw rewards\n" +
		"• " + btnFreeTrial + " - browse free trial materials\n\n" +
		"Still stuck? Contact support."
	b.notify(ctx, msg.Chat.ID, help)
}
