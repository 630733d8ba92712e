package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/model"
	"github.com/vvv-blip/baccarat-bot/internal/notify"
	"github.com/vvv-blip/baccarat-bot/internal/repository"
)

// memSessions mirrors SessionRepository, including the version check.
type memSessions struct {
	mu       sync.Mutex
	sessions map[int64]*model.Session
	failNext error
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[int64]*model.Session{}}
}

func (m *memSessions) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memSessions) Create(_ context.Context, s *model.Session) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	if _, ok := m.sessions[s.ChatID]; ok {
		return nil, repository.ErrSessionExists
	}
	saved := s.Clone()
	saved.Version = 1
	m.sessions[s.ChatID] = saved
	return saved.Clone(), nil
}

func (m *memSessions) Replace(_ context.Context, s *model.Session) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	saved := s.Clone()
	saved.Version = 1
	if old, ok := m.sessions[s.ChatID]; ok {
		saved.Version = old.Version + 1
	}
	m.sessions[s.ChatID] = saved
	return saved.Clone(), nil
}

func (m *memSessions) Get(_ context.Context, chatID int64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *memSessions) Update(_ context.Context, s *model.Session) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	old, ok := m.sessions[s.ChatID]
	if !ok || old.Version != s.Version {
		return nil, repository.ErrVersionConflict
	}
	saved := s.Clone()
	saved.Version++
	m.sessions[s.ChatID] = saved
	return saved.Clone(), nil
}

func (m *memSessions) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
	return nil
}

func (m *memSessions) peek(chatID int64) *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		return s.Clone()
	}
	return nil
}

type memDeposits struct {
	mu      sync.Mutex
	pending map[string][]*model.PendingDeposit
}

func newMemDeposits() *memDeposits {
	return &memDeposits{pending: map[string][]*model.PendingDeposit{}}
}

func (d *memDeposits) Create(_ context.Context, roundID string, chatID, userID int64, amount decimal.Decimal) (*model.PendingDeposit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dep := &model.PendingDeposit{RoundID: roundID, ChatID: chatID, UserID: userID, Amount: amount}
	for i, old := range d.pending[roundID] {
		if old.UserID == userID {
			d.pending[roundID][i] = dep
			return dep, nil
		}
	}
	d.pending[roundID] = append(d.pending[roundID], dep)
	return dep, nil
}

func (d *memDeposits) ListByRound(_ context.Context, roundID string) ([]*model.PendingDeposit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*model.PendingDeposit(nil), d.pending[roundID]...), nil
}

func (d *memDeposits) Delete(_ context.Context, roundID string, userID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.pending[roundID][:0]
	for _, dep := range d.pending[roundID] {
		if dep.UserID != userID {
			kept = append(kept, dep)
		}
	}
	d.pending[roundID] = kept
	return nil
}

func (d *memDeposits) DeleteByRound(_ context.Context, roundID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, roundID)
	return nil
}

// count returns the stakes pending in any round of chatID.
func (d *memDeposits) count(chatID int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, deps := range d.pending {
		for _, dep := range deps {
			if dep.ChatID == chatID {
				n++
			}
		}
	}
	return n
}

type memWallets struct {
	mu     sync.Mutex
	byUser map[int64]*model.Wallet
	// raceWith is stored by the first Create call, as if another /start won.
	raceWith *model.Wallet
}

func newMemWallets() *memWallets {
	return &memWallets{byUser: map[int64]*model.Wallet{}}
}

func (w *memWallets) Create(_ context.Context, userID int64, address, secret string) (*model.Wallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.raceWith != nil {
		w.byUser[userID] = w.raceWith
		w.raceWith = nil
	}
	if _, ok := w.byUser[userID]; ok {
		return nil, repository.ErrWalletExists
	}
	wallet := &model.Wallet{UserID: userID, Address: address, Secret: secret}
	w.byUser[userID] = wallet
	return wallet, nil
}

func (w *memWallets) GetByUserID(_ context.Context, userID int64) (*model.Wallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if wallet, ok := w.byUser[userID]; ok {
		return wallet, nil
	}
	return nil, repository.ErrWalletNotFound
}

func (w *memWallets) Exists(ctx context.Context, userID int64) (bool, error) {
	_, err := w.GetByUserID(ctx, userID)
	return err == nil, nil
}

type memJournal struct {
	mu     sync.Mutex
	txs    []*model.LedgerTransaction
	rounds []*model.Round
}

func (j *memJournal) RecordTransaction(_ context.Context, tx *model.LedgerTransaction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.txs = append(j.txs, tx)
	return nil
}

func (j *memJournal) RecordRound(_ context.Context, round *model.Round) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rounds = append(j.rounds, round)
	return nil
}

func (j *memJournal) roundCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.rounds)
}

func (j *memJournal) ChatStats(_ context.Context, chatID int64) (*model.ChatStats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	stats := &model.ChatStats{TotalPaid: decimal.Zero}
	for _, r := range j.rounds {
		if r.ChatID != chatID {
			continue
		}
		stats.Rounds++
		if r.BetAmount.IsPositive() {
			stats.PaidRounds++
		}
		stats.TotalPaid = stats.TotalPaid.Add(r.TotalPaid)
	}
	return stats, nil
}

func (j *memJournal) TransactionsByUser(_ context.Context, userID int64, limit int) ([]*model.LedgerTransaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*model.LedgerTransaction
	for i := len(j.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if j.txs[i].UserID == userID {
			out = append(out, j.txs[i])
		}
	}
	return out, nil
}

type memUsers struct {
	mu      sync.Mutex
	users   map[int64]*model.User
	upserts int
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[int64]*model.User{}}
}

func (u *memUsers) Upsert(_ context.Context, user *model.User) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.upserts++
	saved := *user
	u.users[user.TelegramID] = &saved
	return &saved, nil
}

func (u *memUsers) GetByID(_ context.Context, telegramID int64) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user, ok := u.users[telegramID]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrUserNotFound
}

var errCacheMiss = errors.New("cache miss")

type memCache struct {
	mu    sync.Mutex
	users map[int64]model.User
}

func newMemCache() *memCache {
	return &memCache{users: map[int64]model.User{}}
}

func (c *memCache) Get(_ context.Context, userID int64) (*model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[userID]
	if !ok {
		return nil, errCacheMiss
	}
	return &u, nil
}

func (c *memCache) Set(_ context.Context, user *model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user.TelegramID] = *user
	return nil
}

type memConfig struct {
	values map[string]string
}

func (c *memConfig) Get(_ context.Context, key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", repository.ErrConfigNotFound
	}
	return v, nil
}

func (c *memConfig) Set(_ context.Context, key, value string) error {
	c.values[key] = value
	return nil
}

type sentMessage struct {
	chatID int64
	id     int
	msg    notify.Message
}

// recorder is a Notifier that keeps everything it was asked to do.
type recorder struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	deleted []int
	pinned  []int
}

func (r *recorder) Send(_ context.Context, chatID int64, msg notify.Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.sent = append(r.sent, sentMessage{chatID: chatID, id: r.nextID, msg: msg})
	return r.nextID, nil
}

func (r *recorder) Delete(_ context.Context, _ int64, messageID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, messageID)
	return nil
}

func (r *recorder) Pin(_ context.Context, _ int64, messageID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinned = append(r.pinned, messageID)
	return nil
}

func (r *recorder) textsTo(chatID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.sent {
		if m.chatID == chatID {
			out = append(out, m.msg.Text)
		}
	}
	return out
}

func (r *recorder) received(chatID int64, substr string) bool {
	for _, text := range r.textsTo(chatID) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func (r *recorder) pinnedIDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.pinned...)
}

func (r *recorder) wasDeleted(messageID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.deleted {
		if id == messageID {
			return true
		}
	}
	return false
}

type fixedSupport string

func (s fixedSupport) SupportHandle(context.Context) string { return string(s) }

type fallbackNames struct{}

func (fallbackNames) DisplayName(_ context.Context, userID int64) string {
	return model.FallbackName(userID)
}
