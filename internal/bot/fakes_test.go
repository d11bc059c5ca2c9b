package bot

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"

	"tutorbot/internal/models"
)

// fakeUsers is an in-memory UserStore with the same write-once and atomic
// semantics as the SQL implementation.
type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*models.User
	fail  bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[int64]*models.User)}
}

var errStore = context.DeadlineExceeded

func (f *fakeUsers) Get(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errStore
	}
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) Save(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStore
	}
	copied := *u
	f.users[u.TelegramID] = &copied
	return nil
}

func (f *fakeUsers) Update(_ context.Context, id int64, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStore
	}
	u, ok := f.users[id]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "phone":
			u.Phone = v.(string)
		case "student_type":
			u.StudentType = v.(string)
		case "payment_method":
			u.PaymentMethod = v.(string)
		case "registration_step":
			u.RegistrationStep = v.(string)
		case "payment_status":
			u.PaymentStatus = v.(string)
		case "is_verified":
			u.IsVerified = v.(bool)
		case "payout_method":
			u.PayoutMethod = v.(string)
		case "account_number":
			u.AccountNumber = v.(string)
		case "account_name":
			u.AccountName = v.(string)
		case "payout_step":
			u.PayoutStep = v.(string)
		case "blocked":
			u.Blocked = v.(bool)
		case "joined_at":
			u.JoinedAt = v.(time.Time)
		}
	}
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) SetReferrer(_ context.Context, id, referrerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStore
	}
	u, ok := f.users[id]
	if !ok || u.ReferrerID != nil || id == referrerID {
		return nil
	}
	u.ReferrerID = &referrerID
	return nil
}

func (f *fakeUsers) CreditReferral(_ context.Context, id int64, reward float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStore
	}
	u, ok := f.users[id]
	if !ok {
		return nil
	}
	u.ReferralCount++
	u.Rewards += reward
	u.TotalRewards += reward
	return nil
}

func (f *fakeUsers) AddRewards(_ context.Context, id int64, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.Rewards += amount
	}
	return nil
}

func (f *fakeUsers) ZeroRewards(_ context.Context, id int64, expected float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.Rewards != expected {
		return false, nil
	}
	u.Rewards = 0
	return true, nil
}

func (f *fakeUsers) All(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errStore
	}
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

func (f *fakeUsers) ByVerified(ctx context.Context, verified bool) ([]models.User, error) {
	all, err := f.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range all {
		if u.IsVerified == verified {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) ByReferrer(ctx context.Context, referrerID int64) ([]models.User, error) {
	all, err := f.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range all {
		if u.ReferrerID != nil && *u.ReferrerID == referrerID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) TopReferrers(ctx context.Context, n int) ([]models.User, error) {
	all, err := f.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ReferralCount > all[j].ReferralCount })
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (f *fakeUsers) Count(ctx context.Context) (int64, error) {
	all, err := f.All(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (f *fakeUsers) CountJoinedSince(ctx context.Context, since time.Time) (int64, error) {
	all, err := f.All(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, u := range all {
		if !u.JoinedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type fakePayments struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	fail     bool
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: make(map[string]*models.Payment)}
}

func (f *fakePayments) Create(_ context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStore
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	copied := *p
	f.payments[p.ID] = &copied
	return nil
}

func (f *fakePayments) ByID(_ context.Context, id string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakePayments) ByStatus(_ context.Context, status string) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.Status == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePayments) Update(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "status":
			p.Status = v.(string)
		case "approved_by":
			id := v.(int64)
			p.ApprovedBy = &id
		case "rejected_by":
			id := v.(int64)
			p.RejectedBy = &id
		case "decided_at":
			t := v.(time.Time)
			p.DecidedAt = &t
		}
	}
	return nil
}

type fakeWithdrawals struct {
	mu          sync.Mutex
	withdrawals map[string]*models.Withdrawal
	fail        bool
}

func newFakeWithdrawals() *fakeWithdrawals {
	return &fakeWithdrawals{withdrawals: make(map[string]*models.Withdrawal)}
}

func (f *fakeWithdrawals) Create(_ context.Context, w *models.Withdrawal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStore
	}
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	copied := *w
	f.withdrawals[w.ID] = &copied
	return nil
}

func (f *fakeWithdrawals) ByID(_ context.Context, id string) (*models.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.withdrawals[id]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (f *fakeWithdrawals) ByStatus(_ context.Context, status string) ([]models.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range f.withdrawals {
		if w.Status == status {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeWithdrawals) Update(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.withdrawals[id]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "status":
			w.Status = v.(string)
		case "decided_by":
			id := v.(int64)
			w.DecidedBy = &id
		case "decided_at":
			t := v.(time.Time)
			w.DecidedAt = &t
		}
	}
	return nil
}

type fakeTrials struct {
	mu        sync.Mutex
	materials map[string]*models.TrialMaterial
}

func newFakeTrials() *fakeTrials {
	return &fakeTrials{materials: make(map[string]*models.TrialMaterial)}
}

func (f *fakeTrials) Add(_ context.Context, m *models.TrialMaterial) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	copied := *m
	f.materials[m.ID] = &copied
	return nil
}

func (f *fakeTrials) All(_ context.Context) ([]models.TrialMaterial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.TrialMaterial, 0, len(f.materials))
	for _, m := range f.materials {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (f *fakeTrials) ByID(_ context.Context, id string) (*models.TrialMaterial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.materials[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (f *fakeTrials) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.materials, id)
	return nil
}

// fakeSessions is an in-memory session.Store.
type fakeSessions struct {
	mu   sync.Mutex
	data map[int64][]byte
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: make(map[int64][]byte)}
}

func (f *fakeSessions) Get(_ context.Context, userID int64, dest any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[userID]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeSessions) Set(_ context.Context, userID int64, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[userID] = raw
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, userID)
	return nil
}

// sentMessage is one recorded outbound send.
type sentMessage struct {
	Kind   string // text, photo, document, file, edit, edit_caption, answer
	ChatID int64
	Text   string
	FileID string
	Name   string
}

// fakeClient records every outbound call for assertions.
type fakeClient struct {
	mu       sync.Mutex
	sent     []sentMessage
	failFor  map[int64]bool
	username string
}

func newFakeClient() *fakeClient {
	return &fakeClient{failFor: make(map[int64]bool), username: "tutor_test_bot"}
}

func (c *fakeClient) record(m sentMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFor[m.ChatID] {
		return errStore
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeClient) SendText(_ context.Context, chatID int64, text string) error {
	return c.record(sentMessage{Kind: "text", ChatID: chatID, Text: text})
}

func (c *fakeClient) SendTextMarkup(_ context.Context, chatID int64, text string, _ telego.ReplyMarkup) error {
	return c.record(sentMessage{Kind: "text", ChatID: chatID, Text: text})
}

func (c *fakeClient) SendPhoto(_ context.Context, chatID int64, fileID, caption string, _ telego.ReplyMarkup) error {
	return c.record(sentMessage{Kind: "photo", ChatID: chatID, Text: caption, FileID: fileID})
}

func (c *fakeClient) SendDocument(_ context.Context, chatID int64, fileID, caption string) error {
	return c.record(sentMessage{Kind: "document", ChatID: chatID, Text: caption, FileID: fileID})
}

func (c *fakeClient) SendFile(_ context.Context, chatID int64, name string, data []byte, caption string) error {
	return c.record(sentMessage{Kind: "file", ChatID: chatID, Text: string(data), Name: name})
}

func (c *fakeClient) EditText(_ context.Context, chatID int64, _ int, text string) error {
	return c.record(sentMessage{Kind: "edit", ChatID: chatID, Text: text})
}

func (c *fakeClient) EditCaption(_ context.Context, chatID int64, _ int, caption string) error {
	return c.record(sentMessage{Kind: "edit_caption", ChatID: chatID, Text: caption})
}

func (c *fakeClient) AnswerCallback(_ context.Context, callbackID, text string) error {
	return c.record(sentMessage{Kind: "answer", ChatID: 0, Text: text, Name: callbackID})
}

func (c *fakeClient) Username() string { return c.username }

func (c *fakeClient) messagesTo(chatID int64) []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sentMessage
	for _, m := range c.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}
