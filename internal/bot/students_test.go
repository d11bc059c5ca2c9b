package bot

import (
	"context"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorbot/internal/models"
)

func TestStudentDetailShowsReferrals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	studentID := int64(42)
	require.NoError(t, env.users.Save(ctx, &models.User{
		TelegramID: studentID, Name: "Abebe Kebede", IsVerified: true,
	}))
	for i, name := range []string{"Sara Tesfaye", "Dawit Alemu"} {
		require.NoError(t, env.users.Save(ctx, &models.User{
			TelegramID: int64(500 + i), Name: name, ReferrerID: &studentID,
		}))
	}

	env.bot.HandleMessage(ctx, textMessage(testAdminID, "/student 42"))

	msgs := env.api.messagesTo(testAdminID)
	require.NotEmpty(t, msgs)
	detail := msgs[len(msgs)-1].Text
	assert.Contains(t, detail, "Abebe Kebede")
	assert.Contains(t, detail, "Referrals (2)")
	assert.Contains(t, detail, "Sara Tesfaye")
	assert.Contains(t, detail, "Dawit Alemu")
}

func TestStudentDetailUnknownID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.bot.HandleMessage(ctx, textMessage(testAdminID, "/student 999"))

	msgs := env.api.messagesTo(testAdminID)
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1].Text, "No user with that ID")
}

func TestDeleteStudentConfirmFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.users.Save(ctx, &models.User{TelegramID: 42, Name: "Abebe"}))

	env.bot.HandleCallback(ctx, callback(testAdminID, "admin_delete_user_42"))
	msgs := env.api.messagesTo(testAdminID)
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1].Text, "DELETE STUDENT")

	// Not deleted until the admin confirms.
	u, _ := env.users.Get(ctx, int64(42))
	require.NotNil(t, u)

	env.bot.HandleCallback(ctx, callback(testAdminID, "admin_delete_confirm_42"))
	u, _ = env.users.Get(ctx, int64(42))
	assert.Nil(t, u)
}

func TestDeleteStudentCancelKeepsRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.users.Save(ctx, &models.User{TelegramID: 42, Name: "Abebe"}))

	env.bot.HandleCallback(ctx, callback(testAdminID, "admin_delete_user_42"))
	env.bot.HandleCallback(ctx, callback(testAdminID, "admin_delete_cancel"))

	u, _ := env.users.Get(ctx, int64(42))
	assert.NotNil(t, u)
}

func TestDeleteStudentRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.users.Save(ctx, &models.User{TelegramID: 42, Name: "Abebe"}))
	require.NoError(t, env.users.Save(ctx, &models.User{TelegramID: testUserID}))

	env.bot.HandleCallback(ctx, callback(testUserID, "admin_delete_confirm_42"))

	u, _ := env.users.Get(ctx, int64(42))
	assert.NotNil(t, u)
}

func TestAddTrialTextMaterial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.bot.HandleMessage(ctx, textMessage(testAdminID, "/addtrial Sample Lesson | First ten derivatives, worked out."))

	materials, err := env.trials.All(ctx)
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, "Sample Lesson", materials[0].Title)
	assert.Equal(t, models.MaterialText, materials[0].Type)
	assert.Equal(t, "First ten derivatives, worked out.", materials[0].Content)
}

func TestAddTrialDocumentMaterial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := textMessage(testAdminID, "")
	msg.Caption = "/addtrial Algebra Notes"
	msg.Document = &telego.Document{FileID: "doc-77", MimeType: "application/pdf"}
	env.bot.HandleMessage(ctx, msg)

	materials, err := env.trials.All(ctx)
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, "Algebra Notes", materials[0].Title)
	assert.Equal(t, models.MaterialPDF, materials[0].Type)
	assert.Equal(t, "doc-77", materials[0].FileID)
}

func TestAddTrialRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.users.Save(ctx, &models.User{TelegramID: testUserID}))

	env.bot.HandleMessage(ctx, textMessage(testUserID, "/addtrial Sneaky | content"))

	materials, err := env.trials.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, materials)
}

func TestDeleteTrialMaterial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m := &models.TrialMaterial{Title: "Old Sample", Type: models.MaterialText, Content: "stale"}
	require.NoError(t, env.trials.Add(ctx, m))

	env.bot.HandleCallback(ctx, callback(testAdminID, "admin_trial_delete_"+m.ID))

	materials, err := env.trials.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, materials)
}

func TestCommandAbandonsComposerSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedAudience(ctx, t, env)

	env.bot.HandleMessage(ctx, textMessage(testAdminID, "/broadcast"))
	env.bot.HandleCallback(ctx, callback(testAdminID, "broadcast_all"))

	env.bot.HandleMessage(ctx, textMessage(testAdminID, "/cancel"))

	var sess adminSession
	found, err := env.sessions.Get(ctx, testAdminID, &sess)
	require.NoError(t, err)
	assert.False(t, found)

	// The next plain message must not be swallowed as broadcast content.
	env.bot.HandleMessage(ctx, textMessage(testAdminID, "hello there"))
	for _, m := range env.api.messagesTo(testAdminID) {
		assert.NotContains(t, m.Text, "PREVIEW")
	}
}
