// Package memstore provides in-memory stores for service and handler tests.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnriTapel/logitrades/internal/domain"
)

type Users struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func NewUsers() *Users {
	return &Users{users: make(map[uuid.UUID]domain.User)}
}

func (s *Users) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return errors.Join(domain.ErrConflict, errors.New("users_username_key"))
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return errors.Join(domain.ErrConflict, errors.New("users_email_key"))
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (s *Users) find(match func(domain.User) bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Users) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.Username == username })
}

func (s *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.ID == id })
}

func (s *Users) update(id uuid.UUID, fn func(u *domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

func (s *Users) MarkVerified(_ context.Context, id uuid.UUID) error {
	return s.update(id, func(u *domain.User) { u.IsVerified = true })
}

func (s *Users) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return s.update(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (s *Users) SetActive(id uuid.UUID, active bool) error {
	return s.update(id, func(u *domain.User) { u.IsActive = active })
}

type Tokens struct {
	mu      sync.Mutex
	refresh map[string]domain.RefreshToken
	oneTime map[uuid.UUID]domain.OneTimeToken
	Now     func() time.Time
}

func NewTokens() *Tokens {
	return &Tokens{
		refresh: make(map[string]domain.RefreshToken),
		oneTime: make(map[uuid.UUID]domain.OneTimeToken),
		Now:     time.Now,
	}
}

func (s *Tokens) CreateRefresh(_ context.Context, t *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.refresh[t.Token]; dup {
		return domain.ErrConflict
	}
	t.ID = uuid.New()
	t.CreatedAt = s.Now()
	s.refresh[t.Token] = *t
	return nil
}

func (s *Tokens) GetActiveRefresh(_ context.Context, token string) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.refresh[token]
	if !ok || t.Revoked || !t.ExpiresAt.After(s.Now()) {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *Tokens) RevokeRefresh(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.refresh[token]; ok {
		t.Revoked = true
		s.refresh[token] = t
	}
	return nil
}

func (s *Tokens) RevokeAllRefresh(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.refresh {
		if t.UserID == userID {
			t.Revoked = true
			s.refresh[k] = t
		}
	}
	return nil
}

// ActiveRefreshCount counts unrevoked refresh tokens of a user.
func (s *Tokens) ActiveRefreshCount(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.refresh {
		if t.UserID == userID && !t.Revoked {
			n++
		}
	}
	return n
}

func (s *Tokens) ReplaceOneTime(_ context.Context, t *domain.OneTimeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, old := range s.oneTime {
		if old.UserID == t.UserID && old.Kind == t.Kind {
			old.Used = true
			s.oneTime[id] = old
		}
	}
	t.ID = uuid.New()
	t.CreatedAt = s.Now()
	s.oneTime[t.ID] = *t
	return nil
}

func (s *Tokens) GetUnusedOneTime(_ context.Context, kind domain.TokenKind, token string) (*domain.OneTimeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.oneTime {
		if t.Token == token && t.Kind == kind && !t.Used {
			out := t
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Tokens) MarkOneTimeUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.oneTime[id]
	if !ok || t.Used {
		return domain.ErrNotFound
	}
	t.Used = true
	s.oneTime[id] = t
	return nil
}

// ExpireOneTime moves the expiry of a stored token into the past.
func (s *Tokens) ExpireOneTime(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.oneTime {
		if t.Token == token {
			t.ExpiresAt = s.Now().Add(-time.Minute)
			s.oneTime[id] = t
		}
	}
}

type Trades struct {
	mu     sync.Mutex
	trades map[uuid.UUID]domain.Trade
	// FailInsert makes every write fail with this error when set.
	FailInsert error
}

func NewTrades() *Trades {
	return &Trades{trades: make(map[uuid.UUID]domain.Trade)}
}

func (s *Trades) put(t *domain.Trade) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	s.trades[t.ID] = *t
}

func (s *Trades) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

func (s *Trades) Create(_ context.Context, t *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsert != nil {
		return s.FailInsert
	}
	s.put(t)
	return nil
}

func (s *Trades) InsertBatch(_ context.Context, trades []*domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsert != nil {
		return s.FailInsert
	}
	for _, t := range trades {
		s.put(t)
	}
	return nil
}

func (s *Trades) Update(_ context.Context, t *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.trades[t.ID]
	if !ok || old.UserID != t.UserID {
		return domain.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	s.trades[t.ID] = *t
	return nil
}

func (s *Trades) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *Trades) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Trade{}
	for _, t := range s.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, nil
}

func (s *Trades) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok || t.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.trades, id)
	return nil
}

func (s *Trades) DeleteMany(_ context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted []uuid.UUID
	for _, id := range ids {
		if t, ok := s.trades[id]; ok && t.UserID == userID {
			delete(s.trades, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// Locker is an in-process import lock keyed by user.
type Locker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func NewLocker() *Locker {
	return &Locker{held: make(map[uuid.UUID]bool)}
}

func (l *Locker) Acquire(_ context.Context, userID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[userID] {
		return nil, domain.ErrImportInProgress
	}
	l.held[userID] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, userID)
	}, nil
}

type Events struct {
	mu     sync.Mutex
	events map[uuid.UUID][]domain.TradeEvent
}

func NewEvents() *Events {
	return &Events{events: make(map[uuid.UUID][]domain.TradeEvent)}
}

func (e *Events) Publish(_ context.Context, userID uuid.UUID, ev domain.TradeEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events[userID] = append(e.events[userID], ev)
	return nil
}

func (e *Events) For(userID uuid.UUID) []domain.TradeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.TradeEvent(nil), e.events[userID]...)
}

type Mailer struct {
	mu            sync.Mutex
	Verifications []Mail
	Resets        []Mail
}

type Mail struct {
	To       string
	Username string
	Token    string
}

func (m *Mailer) SendVerification(to, username, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Verifications = append(m.Verifications, Mail{to, username, token})
}

func (m *Mailer) SendPasswordReset(to, username, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets = append(m.Resets, Mail{to, username, token})
}

func (m *Mailer) LastVerification() (Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Verifications) == 0 {
		return Mail{}, false
	}
	return m.Verifications[len(m.Verifications)-1], true
}

func (m *Mailer) LastReset() (Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Resets) == 0 {
		return Mail{}, false
	}
	return m.Resets[len(m.Resets)-1], true
}
