package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tutorbot/internal/models"
)

// Defaults is the documented fallback table. Every configurable key appears
// here; unknown keys are rejected on write.
var Defaults = map[string]string{
	"registration_fee":       "500",
	"referral_reward":        "30",
	"min_referrals_withdraw": "4",
	"min_withdrawal_amount":  "120",

	"maintenance_mode":     "false",
	"registration_enabled": "true",
	"referral_enabled":     "true",
	"withdrawal_enabled":   "true",
	"tutorial_enabled":     "true",
	"trial_enabled":        "true",

	"payment_account_telebirr": "+251 9XX XXX XXXX",
	"payment_account_cbebirr":  "1000 XXXXXXXX",

	"maintenance_message":           "🚧 Bot is under maintenance. Please check back later.",
	"registration_disabled_message": "❌ Registration is temporarily closed.",
	"referral_disabled_message":     "❌ Referral program is currently paused.",
	"withdrawal_disabled_message":   "❌ Withdrawals are temporarily suspended.",
	"tutorials_disabled_message":    "❌ Tutorial access is currently unavailable.",

	"welcome_message": "🎯 *TUTORIAL REGISTRATION BOT*\n\n📚 Register for comprehensive tutorials\n💰 Registration fee: {fee}\n🎁 Earn {reward} per referral\n\nChoose an option below:",
	"reg_start":       "👤 *ENTER YOUR FULL NAME*\n\nPlease type your full name:",
	"reg_name_saved":  "✅ Name saved: *{name}*\n\n📱 *SHARE YOUR PHONE NUMBER*\n\nPlease share your phone number using the button below:",
	"reg_phone_saved": "✅ Phone saved: *{phone}*\n\n🎓 *SELECT YOUR STREAM*\n\nChoose your field of study:",
	"reg_success":     "🎉 *REGISTRATION SUCCESSFUL!*\n\n✅ Your registration is complete\n💰 Use the Pay Fee button to submit your payment\n⏳ Admin approval follows payment",
}

// Service resolves dynamic configuration with a read-through in-process
// cache. Writes go to the settings table and are followed by Refresh.
type Service struct {
	db  *gorm.DB
	log zerolog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

func New(db *gorm.DB, log zerolog.Logger) *Service {
	cache := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		cache[k] = v
	}
	return &Service{
		db:    db,
		log:   log.With().Str("component", "settings").Logger(),
		cache: cache,
	}
}

// Refresh reloads every stored override on top of the defaults table.
func (s *Service) Refresh(ctx context.Context) error {
	var rows []models.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	cache := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		cache[k] = v
	}
	for _, row := range rows {
		cache[row.Key] = row.Value
	}

	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	return nil
}

// Known reports whether key is part of the configuration surface.
func (s *Service) Known(key string) bool {
	_, ok := Defaults[key]
	return ok
}

// Set persists a new value for a known key and refreshes the cache.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if !s.Known(key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	row := models.Setting{Key: key, Value: value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return s.Refresh(ctx)
}

func (s *Service) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.cache[key]; ok {
		return v
	}
	return Defaults[key]
}

// All returns a copy of the resolved configuration.
func (s *Service) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.cache))
	for k, v := range s.cache {
		out[k] = v
	}
	return out
}

func (s *Service) GetFloat(key string) float64 {
	v, err := strconv.ParseFloat(s.Get(key), 64)
	if err != nil {
		v, _ = strconv.ParseFloat(Defaults[key], 64)
	}
	return v
}

func (s *Service) GetInt(key string) int {
	v, err := strconv.Atoi(s.Get(key))
	if err != nil {
		v, _ = strconv.Atoi(Defaults[key])
	}
	return v
}

func (s *Service) GetBool(key string) bool {
	return strings.EqualFold(s.Get(key), "true")
}

// Message resolves a message template and substitutes {placeholder} variables.
func (s *Service) Message(key string, vars map[string]string) string {
	text := s.Get(key)
	for k, v := range vars {
		text = strings.ReplaceAll(text, "{"+k+"}", v)
	}
	return text
}

// Typed accessors for the financial knobs.

func (s *Service) RegistrationFee() float64 { return s.GetFloat("registration_fee") }
func (s *Service) ReferralReward() float64 { return s.GetFloat("referral_reward") }
func (s *Service) MinWithdrawalAmount() float64 { return s.GetFloat("min_withdrawal_amount") }

// FeatureStatus checks maintenance mode and the per-feature toggle. When the
// feature is unavailable it returns the user-facing message to send.
func (s *Service) FeatureStatus(feature string) (bool, string) {
	if s.GetBool("maintenance_mode") {
		return false, s.Get("maintenance_message")
	}
	switch feature {
	case "registration":
		if !s.GetBool("registration_enabled") {
			return false, s.Get("registration_disabled_message")
		}
	case "referral":
		if !s.GetBool("referral_enabled") {
			return false, s.Get("referral_disabled_message")
		}
	case "withdrawal":
		if !s.GetBool("withdrawal_enabled") {
			return false, s.Get("withdrawal_disabled_message")
		}
	case "tutorial":
		if !s.GetBool("tutorial_enabled") {
			return false, s.Get("tutorials_disabled_message")
		}
	case "trial":
		if !s.GetBool("trial_enabled") {
			return false, s.Get("tutorials_disabled_message")
		}
	}
	return true, ""
}
