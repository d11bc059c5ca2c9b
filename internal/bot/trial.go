package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tutorbot/internal/models"
)

func (b *Bot) handleTrialMaterials(ctx context.Context, msg *telego.Message) {
	chatID := msg.Chat.ID

	if allowed, reason := b.settings.FeatureStatus("trial"); !allowed {
		b.notify(ctx, chatID, reason)
		return
	}

	materials, err := b.trials.All(ctx)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Msg("load trial materials failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	if len(materials) == 0 {
		b.notify(ctx, chatID, "📚 *FREE TRIAL*\n\nNo trial materials are available right now. Check back soon!")
		return
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(materials))
	for _, m := range materials {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(m.Title).WithCallbackData("trial_view_"+m.ID),
		))
	}
	text := "📚 *FREE TRIAL MATERIALS*\n\nPick a sample to preview the tutorial quality:"
	if err := b.api.SendTextMarkup(ctx, chatID, text, tu.InlineKeyboard(rows...)); err != nil {
		b.log.Warn().Err(err).Msg("send trial list failed")
	}
}

// handleAddTrialCommand creates a trial material. Text materials come as
// "/addtrial <title> | <content>"; attaching a document with the command in
// its caption stores a file material instead.
func (b *Bot) handleAddTrialCommand(ctx context.Context, msg *telego.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	chatID := msg.Chat.ID

	source := msg.Text
	if source == "" {
		source = msg.Caption
	}
	args := strings.TrimSpace(strings.TrimPrefix(source, "/addtrial"))

	material := &models.TrialMaterial{}
	switch {
	case msg.Document != nil:
		if args == "" {
			b.notify(ctx, chatID, "Usage: attach the file with caption `/addtrial <title>`")
			return
		}
		material.Title = args
		material.FileID = msg.Document.FileID
		material.Type = models.MaterialDocument
		if msg.Document.MimeType == "application/pdf" {
			material.Type = models.MaterialPDF
		}
	default:
		title, content, ok := strings.Cut(args, "|")
		title, content = strings.TrimSpace(title), strings.TrimSpace(content)
		if !ok || title == "" || content == "" {
			b.notify(ctx, chatID, "Usage: `/addtrial <title> | <content>`, or attach a file with caption `/addtrial <title>`")
			return
		}
		material.Title = title
		material.Content = content
		material.Type = models.MaterialText
	}

	if err := b.trials.Add(ctx, material); err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Msg("add trial material failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	b.log.Info().Str("material_id", material.ID).Str("title", material.Title).Msg("trial material added")
	b.notify(ctx, chatID, fmt.Sprintf("✅ Trial material *%s* added (`%s`).", material.Title, material.ID))
}

// handleTrialAdminList shows every material with a delete button.
func (b *Bot) handleTrialAdminList(ctx context.Context, msg *telego.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	chatID := msg.Chat.ID

	materials, err := b.trials.All(ctx)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Msg("load trial materials failed")
		b.notify(ctx, chatID, errRetryMessage)
		return
	}
	if len(materials) == 0 {
		b.notify(ctx, chatID, "📚 No trial materials. Add one with `/addtrial`.")
		return
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(materials))
	for _, m := range materials {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🗑 "+m.Title).WithCallbackData("admin_trial_delete_"+m.ID),
		))
	}
	text := "📚 *TRIAL MATERIALS*\n\nTap one to delete it:"
	if err := b.api.SendTextMarkup(ctx, chatID, text, tu.InlineKeyboard(rows...)); err != nil {
		b.log.Warn().Err(err).Msg("send trial admin list failed")
	}
}

func (b *Bot) handleDeleteTrialMaterial(ctx context.Context, cb *telego.CallbackQuery) {
	if !b.isAdmin(cb.From.ID) {
		b.answer(ctx, cb.ID, "Not authorized")
		return
	}
	materialID := strings.TrimPrefix(cb.Data, "admin_trial_delete_")

	if err := b.trials.Delete(ctx, materialID); err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Str("material_id", materialID).Msg("delete trial material failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	b.log.Info().Str("material_id", materialID).Msg("trial material deleted")
	b.answer(ctx, cb.ID, "Material deleted")
	if chatID, messageID, ok := callbackOrigin(cb); ok {
		if err := b.api.EditText(ctx, chatID, messageID, "🗑 Material `"+materialID+"` deleted."); err != nil {
			b.log.Warn().Err(err).Msg("edit trial delete result failed")
		}
	}
}

func (b *Bot) handleViewTrialMaterial(ctx context.Context, cb *telego.CallbackQuery) {
	chatID := cb.From.ID
	materialID := strings.TrimPrefix(cb.Data, "trial_view_")

	material, err := b.trials.ByID(ctx, materialID)
	if err != nil {
		b.metrics.Errors.WithLabelValues("store").Inc()
		b.log.Error().Err(err).Str("material_id", materialID).Msg("load trial material failed")
		b.answer(ctx, cb.ID, "Please try again")
		return
	}
	if material == nil {
		b.answer(ctx, cb.ID, "Material no longer available")
		return
	}
	b.answer(ctx, cb.ID, "")

	switch material.Type {
	case models.MaterialText:
		b.notify(ctx, chatID, "📖 *"+material.Title+"*\n\n"+material.Content)
	default:
		if err := b.api.SendDocument(ctx, chatID, material.FileID, "📚 "+material.Title); err != nil {
			b.log.Warn().Err(err).Str("material_id", materialID).Msg("send trial material failed")
			b.notify(ctx, chatID, errRetryMessage)
		}
	}
}
