// Package memory is an in-memory store.Store. It is safe for concurrent use
// and backs tests and local runs without a database. Data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
	"github.com/shopspring/decimal"
)

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users         map[string]*domain.User
	transactions  map[string]*domain.Transaction
	notifications map[string]*domain.Notification
	activity      []domain.Activity
	chat          []domain.ChatMessage
	imports       map[string]*domain.Import

	accounts      *table[domain.Account]
	categories    *table[domain.Category]
	budgets       *table[domain.Budget]
	familyMembers *table[domain.FamilyMember]
	bills         *table[domain.Bill]
	stocks        *table[domain.StockHolding]
	crypto        *table[domain.CryptoHolding]
	metals        *table[domain.MetalHolding]
}

// New creates an empty store seeded with the given default categories.
func New(defaults ...domain.Category) *Store {
	s := &Store{
		now:           time.Now,
		users:         map[string]*domain.User{},
		transactions:  map[string]*domain.Transaction{},
		notifications: map[string]*domain.Notification{},
		imports:       map[string]*domain.Import{},
	}
	s.accounts = newTable(s, "accounts", func(v *domain.Account) (*string, *string, *time.Time, *time.Time) {
		return &v.ID, &v.UserID, &v.CreatedAt, &v.UpdatedAt
	})
	s.categories = newTable(s, "categories", func(v *domain.Category) (*string, *string, *time.Time, *time.Time) {
		return &v.ID, &v.UserID, &v.CreatedAt, nil
	})
	s.budgets = newTable(s, "budgets", func(v *domain.Budget) (*string, *string, *time.Time, *time.Time) {
		return &v.ID, &v.UserID, &v.CreatedAt, &v.UpdatedAt
	})
	s.familyMembers = newTable(s, "family_members", func(v *domain.FamilyMember) (*string, *string, *time.Time, *time.Time) {
		return &v.ID, &v.UserID, &v.CreatedAt, &v.UpdatedAt
	})
	s.bills = newTable(s, "bills", func(v *domain.Bill) (*string, *string, *time.Time, *time.Time) {
		return &v.ID, &v.UserID, &v.CreatedAt, &v.UpdatedAt
	})
	s.stocks = newTable(s, "stocks", func(v *domain.StockHolding) (*string, *string, *time.Time, *time.Time) {
		return &v.ID, &v.UserID, &v.CreatedAt, &v.UpdatedAt
	})
	s.crypto = newTable(s, "crypto", func(v *domain.CryptoHolding) (*string, *string, *time.Time, *time.Time) {
		return &v.ID, &v.UserID, &v.CreatedAt, &v.UpdatedAt
	})
	s.metals = newTable(s, "precious_metals", func(v *domain.MetalHolding) (*string, *string, *time.Time, *time.Time) {
		return &v.ID, &v.UserID, &v.CreatedAt, &v.UpdatedAt
	})
	for _, c := range defaults {
		c.UserID = ""
		c.IsDefault = true
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		s.categories.rows[c.ID] = &c
	}
	return s
}

// table is a generic owner-scoped map. meta exposes the id, owner and
// timestamp fields of a row; updated may be nil.
type table[T any] struct {
	s    *Store
	name string
	rows map[string]*T
	meta func(v *T) (id, userID *string, created, updated *time.Time)
}

func newTable[T any](s *Store, name string, meta func(v *T) (*string, *string, *time.Time, *time.Time)) *table[T] {
	return &table[T]{s: s, name: name, rows: map[string]*T{}, meta: meta}
}

func (t *table[T]) owner(v *T) string {
	_, userID, _, _ := t.meta(v)
	return *userID
}

func (t *table[T]) visible(v *T, userID string) bool {
	o := t.owner(v)
	return o == userID || (t.name == "categories" && o == "")
}

func (t *table[T]) List(ctx context.Context, userID string) ([]T, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.listLocked(userID), nil
}

func (t *table[T]) listLocked(userID string) []T {
	out := []T{}
	for _, v := range t.rows {
		if t.visible(v, userID) {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		_, _, ci, _ := t.meta(&out[i])
		_, _, cj, _ := t.meta(&out[j])
		return ci.Before(*cj)
	})
	return out
}

func (t *table[T]) Get(ctx context.Context, userID, id string) (*T, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	v, ok := t.rows[id]
	if !ok || !t.visible(v, userID) {
		return nil, fmt.Errorf("Get %s: %w", t.name, store.ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

func (t *table[T]) Create(ctx context.Context, v *T) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	id, _, created, updated := t.meta(v)
	if *id == "" {
		*id = uuid.New().String()
	}
	now := t.s.now()
	*created = now
	if updated != nil {
		*updated = now
	}
	cp := *v
	t.rows[*id] = &cp
	return nil
}

func (t *table[T]) Update(ctx context.Context, v *T) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	id, userID, created, updated := t.meta(v)
	cur, ok := t.rows[*id]
	if !ok || !t.visible(cur, *userID) {
		return fmt.Errorf("Update %s: %w", t.name, store.ErrNotFound)
	}
	if t.owner(cur) != *userID {
		return fmt.Errorf("Update %s: %w", t.name, store.ErrForbidden)
	}
	_, _, curCreated, _ := t.meta(cur)
	*created = *curCreated
	if updated != nil {
		*updated = t.s.now()
	}
	cp := *v
	t.rows[*id] = &cp
	return nil
}

func (t *table[T]) Delete(ctx context.Context, userID, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	cur, ok := t.rows[id]
	if !ok || !t.visible(cur, userID) {
		return fmt.Errorf("Delete %s: %w", t.name, store.ErrNotFound)
	}
	if t.owner(cur) != userID {
		return fmt.Errorf("Delete %s: %w", t.name, store.ErrForbidden)
	}
	delete(t.rows, id)
	return nil
}

func (s *Store) Accounts() store.Owned[domain.Account]           { return s.accounts }
func (s *Store) Categories() store.Owned[domain.Category]        { return s.categories }
func (s *Store) Budgets() store.Owned[domain.Budget]             { return s.budgets }
func (s *Store) FamilyMembers() store.Owned[domain.FamilyMember] { return s.familyMembers }
func (s *Store) Bills() store.Bills                              { return &bills{table: s.bills} }
func (s *Store) Holdings() store.Holdings                        { return &holdings{s: s} }

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Users

func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("GetUser: %w", store.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) EnsureUser(ctx context.Context, userID, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		now := s.now()
		u = &domain.User{ID: userID, Email: email, Currency: domain.DefaultCurrency, Theme: "system", CreatedAt: now, UpdatedAt: now}
		s.users[userID] = u
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return fmt.Errorf("UpdateUser: %w", store.ErrNotFound)
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) SetAvatarURL(ctx context.Context, userID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("SetAvatarURL: %w", store.ErrNotFound)
	}
	u.AvatarURL = url
	u.UpdatedAt = s.now()
	return nil
}

// Transactions

func (s *Store) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Transaction{}
	for _, t := range s.transactions {
		if t.UserID != userID || !matches(t, f) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredOn.Equal(out[j].OccurredOn) {
			return out[i].OccurredOn.After(out[j].OccurredOn)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.Transaction{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(t *domain.Transaction, f store.TransactionFilter) bool {
	switch {
	case !f.Start.IsZero() && t.OccurredOn.Before(f.Start):
		return false
	case !f.End.IsZero() && !t.OccurredOn.Before(f.End):
		return false
	case f.Type != "" && t.Type != f.Type:
		return false
	case f.CategoryID != "" && (t.CategoryID == nil || *t.CategoryID != f.CategoryID):
		return false
	case f.AccountID != "" && !linked(t, f.AccountID):
		return false
	}
	return true
}

func linked(t *domain.Transaction, accountID string) bool {
	return (t.AccountID != nil && *t.AccountID == accountID) || (t.ToAccountID != nil && *t.ToAccountID == accountID)
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, fmt.Errorf("GetTransaction: %w", store.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

// applyDeltasLocked checks every account before changing any balance.
func (s *Store) applyDeltasLocked(userID string, deltas []domain.BalanceDelta) error {
	for _, d := range deltas {
		a, ok := s.accounts.rows[d.AccountID]
		if !ok || a.UserID != userID {
			return fmt.Errorf("account %s: %w", d.AccountID, store.ErrNotFound)
		}
	}
	now := s.now()
	for _, d := range deltas {
		a := s.accounts.rows[d.AccountID]
		a.Balance = a.Balance.Add(d.Amount)
		a.UpdatedAt = now
	}
	return nil
}

func (s *Store) insertLocked(t *domain.Transaction) error {
	if err := s.applyDeltasLocked(t.UserID, t.BalanceEffects()); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	s.fillCategoryNameLocked(t)
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

func (s *Store) fillCategoryNameLocked(t *domain.Transaction) {
	t.CategoryName = ""
	if t.CategoryID == nil {
		return
	}
	if c, ok := s.categories.rows[*t.CategoryID]; ok {
		t.CategoryName = c.Name
	}
}

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertLocked(t); err != nil {
		return fmt.Errorf("CreateTransaction: %w", err)
	}
	return nil
}

func (s *Store) CreateTransactions(ctx context.Context, ts []domain.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch first so a failure leaves nothing behind.
	var all []domain.BalanceDelta
	for _, t := range ts {
		all = append(all, t.BalanceEffects()...)
	}
	if len(ts) > 0 {
		for _, d := range all {
			if a, ok := s.accounts.rows[d.AccountID]; !ok || a.UserID != ts[0].UserID {
				return 0, fmt.Errorf("CreateTransactions: account %s: %w", d.AccountID, store.ErrNotFound)
			}
		}
	}
	for i := range ts {
		if err := s.insertLocked(&ts[i]); err != nil {
			return i, fmt.Errorf("CreateTransactions: %w", err)
		}
	}
	return len(ts), nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.transactions[t.ID]
	if !ok || cur.UserID != t.UserID {
		return fmt.Errorf("UpdateTransaction: %w", store.ErrNotFound)
	}
	deltas := domain.MergeDeltas(domain.Reverse(cur.BalanceEffects()), t.BalanceEffects())
	if err := s.applyDeltasLocked(t.UserID, deltas); err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = s.now()
	s.fillCategoryNameLocked(t)
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.transactions[id]
	if !ok || cur.UserID != userID {
		return nil, fmt.Errorf("DeleteTransaction: %w", store.ErrNotFound)
	}
	if err := s.applyDeltasLocked(userID, domain.Reverse(cur.BalanceEffects())); err != nil {
		return nil, fmt.Errorf("DeleteTransaction: %w", err)
	}
	delete(s.transactions, id)
	return cur, nil
}

// Bills

type bills struct {
	*table[domain.Bill]
}

func (b *bills) PayBill(ctx context.Context, userID, id string, pay store.BillPayment) (*domain.Bill, *domain.Transaction, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := b.rows[id]
	if !ok || cur.UserID != userID {
		return nil, nil, fmt.Errorf("PayBill: %w", store.ErrNotFound)
	}
	bill := *cur
	txn, err := pay(&bill)
	if err != nil {
		return nil, nil, fmt.Errorf("PayBill: %w", err)
	}
	if txn != nil {
		if err := s.insertLocked(txn); err != nil {
			return nil, nil, fmt.Errorf("PayBill: %w", err)
		}
	}
	bill.UpdatedAt = s.now()
	stored := bill
	b.rows[id] = &stored
	return &bill, txn, nil
}

func (b *bills) ListReminderCandidates(ctx context.Context, today time.Time) ([]domain.Bill, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	day := truncateDay(today)
	out := []domain.Bill{}
	for _, bill := range b.rows {
		if bill.IsPaid {
			continue
		}
		if truncateDay(bill.DueDate).AddDate(0, 0, -bill.ReminderDays).After(day) {
			continue
		}
		if bill.LastRemindedOn != nil && !truncateDay(*bill.LastRemindedOn).Before(day) {
			continue
		}
		out = append(out, *bill)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (b *bills) MarkReminded(ctx context.Context, id string, day time.Time) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	bill, ok := b.rows[id]
	if !ok {
		return fmt.Errorf("MarkReminded: %w", store.ErrNotFound)
	}
	d := truncateDay(day)
	bill.LastRemindedOn = &d
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Holdings

type holdings struct {
	s *Store
}

func (h *holdings) Stocks() store.Owned[domain.StockHolding]  { return h.s.stocks }
func (h *holdings) Crypto() store.Owned[domain.CryptoHolding] { return h.s.crypto }
func (h *holdings) Metals() store.Owned[domain.MetalHolding]  { return h.s.metals }

func (h *holdings) UpdateCryptoPrices(ctx context.Context, userID string, prices map[string]decimal.Decimal, at time.Time) (int, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	n := 0
	for _, c := range h.s.crypto.rows {
		p, ok := prices[c.CoinID]
		if c.UserID != userID || !ok {
			continue
		}
		ts := at
		c.CurrentPrice = p
		c.PriceUpdatedAt = &ts
		c.UpdatedAt = h.s.now()
		n++
	}
	return n, nil
}

func (h *holdings) UpdateMetalPrices(ctx context.Context, userID string, prices map[domain.Metal]decimal.Decimal) (int, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	n := 0
	for _, m := range h.s.metals.rows {
		p, ok := prices[m.Metal]
		if m.UserID != userID || !ok {
			continue
		}
		m.CurrentPricePerGram = p
		m.UpdatedAt = h.s.now()
		n++
	}
	return n, nil
}

// Notifications

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = s.now()
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Notification{}
	for _, n := range s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("MarkNotificationRead: %w", store.ErrNotFound)
	}
	n.IsRead = true
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.notifications {
		if v.UserID == userID && !v.IsRead {
			v.IsRead = true
			n++
		}
	}
	return n, nil
}

// Activity

func (s *Store) LogActivity(ctx context.Context, a *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = s.now()
	s.activity = append(s.activity, *a)
	return nil
}

func (s *Store) ListActivity(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Activity{}
	for i := len(s.activity) - 1; i >= 0; i-- {
		if s.activity[i].UserID != userID {
			continue
		}
		out = append(out, s.activity[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Chat

func (s *Store) AppendChatMessage(ctx context.Context, m *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = s.now()
	s.chat = append(s.chat, *m)
	return nil
}

func (s *Store) ChatHistory(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var mine []domain.ChatMessage
	for _, m := range s.chat {
		if m.UserID == userID {
			mine = append(mine, m)
		}
	}
	if limit > 0 && len(mine) > limit {
		mine = mine[len(mine)-limit:]
	}
	return append([]domain.ChatMessage{}, mine...), nil
}

func (s *Store) ClearChat(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chat[:0]
	for _, m := range s.chat {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	s.chat = kept
	return nil
}

// Imports

func (s *Store) CreateImport(ctx context.Context, imp *domain.Import) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if imp.ID == "" {
		imp.ID = uuid.New().String()
	}
	if imp.Status == "" {
		imp.Status = domain.ImportPending
	}
	now := s.now()
	imp.CreatedAt, imp.UpdatedAt = now, now
	cp := *imp
	s.imports[imp.ID] = &cp
	return nil
}

func (s *Store) GetImport(ctx context.Context, userID, id string) (*domain.Import, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	imp, ok := s.imports[id]
	if !ok || imp.UserID != userID {
		return nil, fmt.Errorf("GetImport: %w", store.ErrNotFound)
	}
	cp := *imp
	return &cp, nil
}

func (s *Store) ListImports(ctx context.Context, userID string, limit int) ([]domain.Import, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Import{}
	for _, imp := range s.imports {
		if imp.UserID == userID {
			out = append(out, *imp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateImportStatus(ctx context.Context, id string, status domain.ImportStatus, created int, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	imp, ok := s.imports[id]
	if !ok {
		return fmt.Errorf("UpdateImportStatus: %w", store.ErrNotFound)
	}
	imp.Status = status
	imp.TransactionsCreated = created
	imp.Error = errMsg
	imp.UpdatedAt = s.now()
	return nil
}

func (s *Store) SetImportJob(ctx context.Context, id, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	imp, ok := s.imports[id]
	if !ok {
		return fmt.Errorf("SetImportJob: %w", store.ErrNotFound)
	}
	imp.JobID = jobID
	return nil
}

var _ store.Store = (*Store)(nil)
