package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"tutorbot/internal/models"
	"tutorbot/internal/utils"
)

// attributeReferral links a "ref_<id>" deep-link payload to the user. The
// link is write-once: an existing referrer, a self-referral or a referrer
// that does not exist all leave the record unchanged. No reward moves here;
// crediting happens only when the referred user's payment is approved.
func (b *Bot) attributeReferral(ctx context.Context, user *models.User, payload string) {
	if allowed, _ := b.settings.FeatureStatus("referral"); !allowed {
		return
	}
	if user.ReferrerID != nil {
		return
	}

	referrerID, err := strconv.ParseInt(strings.TrimPrefix(payload, "ref_"), 10, 64)
	if err != nil || referrerID == user.TelegramID {
		return
	}

	referrer, err := b.users.Get(ctx, referrerID)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Int64("referrer_id", referrerID).Msg("load referrer failed")
		return
	}
	if referrer == nil {
		return
	}

	if err := b.users.SetReferrer(ctx, user.TelegramID, referrerID); err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).
			Int64("user_id", user.TelegramID).
			Int64("referrer_id", referrerID).
			Msg("set referrer failed")
		return
	}
	user.ReferrerID = &referrerID
	b.log.Info().
		Int64("user_id", user.TelegramID).
		Int64("referrer_id", referrerID).
		Msg("referral attributed")

	name := user.FirstName
	if name == "" {
		name = strconv.FormatInt(user.TelegramID, 10)
	}
	b.notify(ctx, referrerID, fmt.Sprintf(
		"👋 *%s* joined through your invite link!\n\n"+
			"💰 You will earn %s once they register and get verified.",
		name, utils.FormatCurrency(b.settings.ReferralReward())))
}

func (b *Bot) handleInviteEarn(ctx context.Context, msg *telego.Message, user *models.User) {
	chatID := msg.Chat.ID

	if allowed, reason := b.settings.FeatureStatus("referral"); !allowed {
		b.notify(ctx, chatID, reason)
		return
	}
	if user == nil || !user.IsVerified {
		b.notify(ctx, chatID, "❌ *Only verified students can invite.*\n\nComplete registration and payment first.")
		return
	}

	link := fmt.Sprintf("https://t.me/%s?start=ref_%d", b.api.Username(), user.TelegramID)
	text := fmt.Sprintf(
		"🎁 *INVITE & EARN*\n\n"+
			"Share your personal link and earn *%s* for every friend who "+
			"registers and gets verified:\n\n"+
			"`%s`\n\n"+
			"📊 *Your stats*\n"+
			"👥 Referrals: %d\n"+
			"💰 Balance: %s\n"+
			"🏦 Lifetime earned: %s",
		utils.FormatCurrency(b.settings.ReferralReward()),
		link,
		user.ReferralCount,
		utils.FormatCurrency(user.Rewards),
		utils.FormatCurrency(user.TotalRewards),
	)
	b.notify(ctx, chatID, text)
}

func (b *Bot) handleLeaderboard(ctx context.Context, msg *telego.Message) {
	chatID := msg.Chat.ID

	top, err := b.users.TopReferrers(ctx, 10)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Msg("load leaderboard failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 *TOP REFERRERS*\n\n")
	medals := []string{"🥇", "🥈", "🥉"}
	shown := 0
	for _, u := range top {
		if u.ReferralCount == 0 {
			continue
		}
		rank := fmt.Sprintf("%d.", shown+1)
		if shown < len(medals) {
			rank = medals[shown]
		}
		name := u.Name
		if name == "" {
			name = u.FirstName
		}
		sb.WriteString(fmt.Sprintf("%s %s - %d referrals\n", rank, maskName(name), u.ReferralCount))
		shown++
	}
	if shown == 0 {
		sb.WriteString("No referrals yet. Be the first!")
	}
	b.notify(ctx, chatID, sb.String())
}

// maskName keeps the first name and shortens the rest to initials.
func maskName(name string) string {
	parts := strings.Fields(name)
	if len(parts) <= 1 {
		return name
	}
	out := parts[0]
	for _, p := range parts[1:] {
		r := []rune(p)
		out += " " + string(r[0]) + "."
	}
	return out
}
