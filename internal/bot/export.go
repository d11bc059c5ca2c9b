package bot

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/models"
)

func (b *Bot) handleExportCommand(ctx context.Context, msg *telego.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("👥 Users (CSV)").WithCallbackData("export_users_csv"),
			tu.InlineKeyboardButton("👥 Users (JSON)").WithCallbackData("export_users_json"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💰 Payments (CSV)").WithCallbackData("export_payments_csv"),
			tu.InlineKeyboardButton("💸 Withdrawals (CSV)").WithCallbackData("export_withdrawals_csv"),
		),
	)
	text := "📦 *EXPORT DATA*\n\nChoose a dataset:"
	if err := b.api.SendTextMarkup(ctx, msg.Chat.ID, text, keyboard); err != nil {
		b.log.Warn().Err(err).Msg("send export menu failed")
	}
}

func (b *Bot) handleExportType(ctx context.Context, cb *telego.CallbackQuery) {
	if !b.isAdmin(cb.From.ID) {
		b.answer(ctx, cb.ID, "Not authorized")
		return
	}
	chatID := cb.From.ID

	var (
		name string
		data []byte
		err  error
	)
	stamp := timeNow().Format("2006-01-02")
	switch cb.Data {
	case "export_users_csv":
		name = "users_" + stamp + ".csv"
		data, err = b.exportUsersCSV(ctx)
	case "export_users_json":
		name = "users_" + stamp + ".json"
		data, err = b.exportUsersJSON(ctx)
	case "export_payments_csv":
		name = "payments_" + stamp + ".csv"
		data, err = b.exportPaymentsCSV(ctx)
	case "export_withdrawals_csv":
		name = "withdrawals_" + stamp + ".csv"
		data, err = b.exportWithdrawalsCSV(ctx)
	default:
		b.answer(ctx, cb.ID, "")
		return
	}
	if err != nil {
		b.metrics.Errors.WithLabelValues("export").Inc()
		b.log.Error().Err(err).Str("export", cb.Data).Msg("build export failed")
		b.answer(ctx, cb.ID, "Export failed")
		return
	}
	b.answer(ctx, cb.ID, "Preparing export...")

	if err := b.api.SendFile(ctx, chatID, name, data, "📦 Export ready"); err != nil {
		b.metrics.Errors.WithLabelValues("export").Inc()
		b.log.Error().Err(err).Str("file", name).Msg("send export failed")
		b.notify(ctx, chatID, errRetryMessage)
	}
}

func (b *Bot) exportUsersCSV(ctx context.Context) ([]byte, error) {
	users, err := b.users.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"telegram_id", "name", "username", "phone", "stream", "payment_method",
		"registration_step", "payment_status", "verified", "referrer_id",
		"referral_count", "rewards", "total_rewards", "blocked", "joined_at",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, u := range users {
		referrer := ""
		if u.ReferrerID != nil {
			referrer = strconv.FormatInt(*u.ReferrerID, 10)
		}
		row := []string{
			strconv.FormatInt(u.TelegramID, 10),
			u.Name,
			u.Username,
			u.Phone,
			u.StudentType,
			u.PaymentMethod,
			u.RegistrationStep,
			u.PaymentStatus,
			strconv.FormatBool(u.IsVerified),
			referrer,
			strconv.Itoa(u.ReferralCount),
			strconv.FormatFloat(u.Rewards, 'f', 2, 64),
			strconv.FormatFloat(u.TotalRewards, 'f', 2, 64),
			strconv.FormatBool(u.Blocked),
			u.JoinedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Bot) exportUsersJSON(ctx context.Context) ([]byte, error) {
	users, err := b.users.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode users: %w", err)
	}
	return data, nil
}

func (b *Bot) exportPaymentsCSV(ctx context.Context) ([]byte, error) {
	var all []models.Payment
	for _, status := range []string{models.StatusPending, models.StatusApproved, models.StatusRejected} {
		batch, err := b.payments.ByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("load %s payments: %w", status, err)
		}
		all = append(all, batch...)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"id", "user_id", "amount", "method", "status", "decided_at", "created_at"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, p := range all {
		decided := ""
		if p.DecidedAt != nil {
			decided = p.DecidedAt.Format(time.RFC3339)
		}
		row := []string{
			p.ID,
			strconv.FormatInt(p.UserID, 10),
			strconv.FormatFloat(p.Amount, 'f', 2, 64),
			p.Method,
			p.Status,
			decided,
			p.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Bot) exportWithdrawalsCSV(ctx context.Context) ([]byte, error) {
	var all []models.Withdrawal
	for _, status := range []string{models.WithdrawalPending, models.WithdrawalCompleted, models.WithdrawalRejected} {
		batch, err := b.withdrawals.ByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("load %s withdrawals: %w", status, err)
		}
		all = append(all, batch...)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"id", "user_id", "amount", "method", "account_number", "account_name", "status", "decided_at", "created_at"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, wd := range all {
		decided := ""
		if wd.DecidedAt != nil {
			decided = wd.DecidedAt.Format(time.RFC3339)
		}
		row := []string{
			wd.ID,
			strconv.FormatInt(wd.UserID, 10),
			strconv.FormatFloat(wd.Amount, 'f', 2, 64),
			wd.Method,
			wd.AccountNumber,
			wd.AccountName,
			wd.Status,
			decided,
			wd.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
