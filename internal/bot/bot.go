package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"github.com/rs/zerolog"

	"tutorbot/internal/metrics"
	"tutorbot/internal/session"
	"tutorbot/internal/settings"
	"tutorbot/internal/store"
	"tutorbot/internal/telegram"
)

const errRetryMessage = "❌ Something went wrong. Please try again later or contact support."

// Bot holds every handler dependency. All per-user flow state lives on the
// durable user record; only admin composer flows use the session store.
type Bot struct {
	api         telegram.Client
	users       store.UserStore
	payments    store.PaymentStore
	withdrawals store.WithdrawalStore
	trials      store.TrialStore
	settings    *settings.Service
	sessions    session.Store
	metrics     *metrics.Metrics
	log         zerolog.Logger

	admins map[int64]struct{}

	// Inter-message delay for bulk broadcast, shortened in tests.
	broadcastDelay time.Duration
}

type Deps struct {
	API         telegram.Client
	Users       store.UserStore
	Payments    store.PaymentStore
	Withdrawals store.WithdrawalStore
	Trials      store.TrialStore
	Settings    *settings.Service
	Sessions    session.Store
	Metrics     *metrics.Metrics
	Log         zerolog.Logger
	AdminIDs    []int64
}

func New(deps Deps) *Bot {
	admins := make(map[int64]struct{}, len(deps.AdminIDs))
	for _, id := range deps.AdminIDs {
		admins[id] = struct{}{}
	}
	return &Bot{
		api:            deps.API,
		users:          deps.Users,
		payments:       deps.Payments,
		withdrawals:    deps.Withdrawals,
		trials:         deps.Trials,
		settings:       deps.Settings,
		sessions:       deps.Sessions,
		metrics:        deps.Metrics,
		log:            deps.Log.With().Str("component", "bot").Logger(),
		admins:         admins,
		broadcastDelay: 100 * time.Millisecond,
	}
}

// Start consumes updates via long polling until ctx is cancelled.
func (b *Bot) Start(ctx context.Context, tgBot *telego.Bot) error {
	updates, err := tgBot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(tgBot, updates)
	if err != nil {
		return fmt.Errorf("create bot handler: %w", err)
	}

	handler.Handle(func(c *th.Context, update telego.Update) error {
		b.HandleMessage(c.Context(), update.Message)
		return nil
	}, th.AnyMessage())

	handler.Handle(func(c *th.Context, update telego.Update) error {
		b.HandleCallback(c.Context(), update.CallbackQuery)
		return nil
	}, th.AnyCallbackQuery())

	return handler.Start()
}

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

func (b *Bot) adminIDs() []int64 {
	ids := make([]int64, 0, len(b.admins))
	for id := range b.admins {
		ids = append(ids, id)
	}
	return ids
}

// notify sends a best-effort message. Failures are logged and swallowed so
// they never abort the caller's primary transaction.
func (b *Bot) notify(ctx context.Context, chatID int64, text string) {
	if err := b.api.SendText(ctx, chatID, text); err != nil {
		b.metrics.Errors.WithLabelValues("notify").Inc()
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("notification failed")
	}
}

// answer acknowledges a callback query, best-effort.
func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.api.AnswerCallback(ctx, callbackID, text); err != nil {
		b.log.Warn().Err(err).Msg("answer callback failed")
	}
}
