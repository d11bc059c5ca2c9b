package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tutorbot/internal/telegram"
)

// DailyStats delivers an operational digest to every admin once per day.
// A Redis marker keyed by date keeps restarts from re-sending the digest.
type DailyStats struct {
	api    telegram.Client
	redis  *redis.Client
	log    zerolog.Logger
	admins []int64

	report   func(context.Context) (string, error)
	interval time.Duration
}

func NewDailyStats(api telegram.Client, rdb *redis.Client, log zerolog.Logger, admins []int64, report func(context.Context) (string, error)) *DailyStats {
	return &DailyStats{
		api:      api,
		redis:    rdb,
		log:      log.With().Str("component", "dailystats").Logger(),
		admins:   admins,
		report:   report,
		interval: time.Hour,
	}
}

// Run ticks hourly and sends the digest on the first tick of a new day.
func (w *DailyStats) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Msg("daily stats worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("daily stats worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *DailyStats) tick(ctx context.Context) {
	day := time.Now().UTC().Format("2006-01-02")
	key := fmt.Sprintf("dailystats:%s", day)

	set, err := w.redis.SetNX(ctx, key, "sent", 48*time.Hour).Result()
	if err != nil {
		w.log.Error().Err(err).Msg("daily stats dedupe check failed")
		return
	}
	if !set {
		return
	}

	text, err := w.report(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("build daily stats failed")
		// Released so the next tick retries.
		if delErr := w.redis.Del(ctx, key).Err(); delErr != nil {
			w.log.Warn().Err(delErr).Msg("release daily stats marker failed")
		}
		return
	}

	header := "🗓 *DAILY DIGEST* (" + day + ")\n\n"
	for _, adminID := range w.admins {
		if err := w.api.SendText(ctx, adminID, header+text); err != nil {
			w.log.Warn().Err(err).Int64("admin_id", adminID).Msg("send daily stats failed")
		}
	}
	w.log.Info().Str("day", day).Msg("daily stats sent")
}
