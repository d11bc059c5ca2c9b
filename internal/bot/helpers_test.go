package bot

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tutorbot/internal/metrics"
	"tutorbot/internal/models"
	"tutorbot/internal/settings"
)

const (
	testAdminID = int64(900)
	testUserID  = int64(100)
)

type testEnv struct {
	bot         *Bot
	api         *fakeClient
	users       *fakeUsers
	payments    *fakePayments
	withdrawals *fakeWithdrawals
	trials      *fakeTrials
	sessions    *fakeSessions
	settings    *settings.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		t.Fatalf("migrate settings: %v", err)
	}

	env := &testEnv{
		api:         newFakeClient(),
		users:       newFakeUsers(),
		payments:    newFakePayments(),
		withdrawals: newFakeWithdrawals(),
		trials:      newFakeTrials(),
		sessions:    newFakeSessions(),
		settings:    settings.New(db, zerolog.Nop()),
	}
	env.bot = New(Deps{
		API:         env.api,
		Users:       env.users,
		Payments:    env.payments,
		Withdrawals: env.withdrawals,
		Trials:      env.trials,
		Settings:    env.settings,
		Sessions:    env.sessions,
		Metrics:     metrics.Registry("test"),
		Log:         zerolog.Nop(),
		AdminIDs:    []int64{testAdminID},
	})
	env.bot.broadcastDelay = 0
	return env
}

func textMessage(userID int64, text string) *telego.Message {
	return &telego.Message{
		MessageID: 1,
		Chat:      telego.Chat{ID: userID},
		From:      &telego.User{ID: userID, FirstName: "Test"},
		Text:      text,
	}
}

func contactMessage(userID int64, contactUserID int64, phone string) *telego.Message {
	msg := textMessage(userID, "")
	msg.Contact = &telego.Contact{PhoneNumber: phone, UserID: contactUserID}
	return msg
}

func photoMessage(userID int64, fileID string) *telego.Message {
	msg := textMessage(userID, "")
	msg.Photo = []telego.PhotoSize{{FileID: fileID}}
	return msg
}

func callback(userID int64, data string) *telego.CallbackQuery {
	return &telego.CallbackQuery{
		ID:   "cb-1",
		From: telego.User{ID: userID, FirstName: "Test"},
		Data: data,
		Message: &telego.Message{
			MessageID: 7,
			Chat:      telego.Chat{ID: userID},
		},
	}
}
