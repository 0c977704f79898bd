// Package memstore is an in-memory port.LedgerStore. It keeps the same
// version-checked commit semantics as the Postgres store and is used when no
// DATABASE_URL is configured, and by tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Store is a thread-safe in-memory ledger. Entities are stored as state
// values, so callers always receive their own copy.
type Store struct {
	mu sync.RWMutex

	customers       map[string]domain.Customer
	customerByNatID map[string]string // userID + "/" + nationalID -> id

	accounts      map[string]domain.AccountState
	accountByIBAN map[string]string

	debitCards   map[string]domain.DebitCardState
	debitByNo    map[string]string
	creditCards  map[string]domain.CreditCardState
	creditByNo   map[string]string
	transactions []domain.Transaction
}

// New creates an empty store.
func New() *Store {
	return &Store{
		customers:       make(map[string]domain.Customer),
		customerByNatID: make(map[string]string),
		accounts:        make(map[string]domain.AccountState),
		accountByIBAN:   make(map[string]string),
		debitCards:      make(map[string]domain.DebitCardState),
		debitByNo:       make(map[string]string),
		creditCards:     make(map[string]domain.CreditCardState),
		creditByNo:      make(map[string]string),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// ============================================================
// Customers
// ============================================================

func (s *Store) InsertCustomer(ctx context.Context, c *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.UserID + "/" + c.NationalID
	if _, ok := s.customerByNatID[key]; ok {
		return &domain.ErrDuplicate{Resource: "customer", Key: c.NationalID}
	}
	s.customers[c.ID] = *c
	s.customerByNatID[key] = c.ID
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "customer", ID: id}
	}
	return &c, nil
}

// ============================================================
// Accounts
// ============================================================

func (s *Store) InsertAccount(ctx context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := a.State()
	if _, ok := s.accountByIBAN[st.IBAN]; ok {
		return &domain.ErrDuplicate{Resource: "account", Key: st.IBAN}
	}
	s.accounts[st.ID] = st
	s.accountByIBAN[st.IBAN] = st.ID
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.accounts[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: id}
	}
	return domain.AccountFromState(st), nil
}

// ============================================================
// Cards
// ============================================================

func (s *Store) InsertDebitCard(ctx context.Context, c *domain.DebitCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := c.State()
	if _, ok := s.debitByNo[st.CardNo]; ok {
		return &domain.ErrDuplicate{Resource: "debit card", Key: domain.MaskCardNumber(st.CardNo)}
	}
	s.debitCards[st.ID] = st
	s.debitByNo[st.CardNo] = st.ID
	return nil
}

func (s *Store) GetDebitCardByNumber(ctx context.Context, cardNo string) (*domain.DebitCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.debitByNo[cardNo]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "debit card", ID: domain.MaskCardNumber(cardNo)}
	}
	return domain.DebitCardFromState(s.debitCards[id]), nil
}

func (s *Store) InsertCreditCard(ctx context.Context, c *domain.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := c.State()
	if _, ok := s.creditByNo[st.CardNo]; ok {
		return &domain.ErrDuplicate{Resource: "credit card", Key: domain.MaskCardNumber(st.CardNo)}
	}
	s.creditCards[st.ID] = st
	s.creditByNo[st.CardNo] = st.ID
	return nil
}

func (s *Store) GetCreditCardByNumber(ctx context.Context, cardNo string) (*domain.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.creditByNo[cardNo]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "credit card", ID: domain.MaskCardNumber(cardNo)}
	}
	return domain.CreditCardFromState(s.creditCards[id]), nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) SumTransactions(ctx context.Context, q domain.TransactionQuery) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	// Newest insert first, so equal timestamps keep commit order reversed.
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if q.Matches(&s.transactions[i]) {
			total = total.Add(s.transactions[i].Amount)
		}
	}
	return total, nil
}

func (s *Store) CountTransactions(ctx context.Context, q domain.TransactionQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	// Newest insert first, so equal timestamps keep commit order reversed.
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if q.Matches(&s.transactions[i]) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListTransactions(ctx context.Context, q domain.TransactionQuery) ([]*domain.Transaction, error) {
	s.mu.RLock()
	var out []*domain.Transaction
	// Newest insert first, so equal timestamps keep commit order reversed.
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if q.Matches(&s.transactions[i]) {
			tx := s.transactions[i]
			out = append(out, &tx)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// ============================================================
// Commit
// ============================================================

// Commit checks every version first and only then writes, all under one
// lock, so a changeset is applied entirely or not at all.
func (s *Store) Commit(ctx context.Context, cs *domain.Changeset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range cs.Accounts {
		cur, ok := s.accounts[a.ID()]
		if !ok {
			return &domain.ErrNotFound{Resource: "account", ID: a.ID()}
		}
		if cur.Version != a.Version() {
			return &domain.ErrVersionConflict{Resource: "account", ID: a.ID()}
		}
	}
	for _, c := range cs.DebitCards {
		cur, ok := s.debitCards[c.ID()]
		if !ok {
			return &domain.ErrNotFound{Resource: "debit card", ID: c.ID()}
		}
		if cur.Version != c.Version() {
			return &domain.ErrVersionConflict{Resource: "debit card", ID: c.ID()}
		}
	}
	for _, c := range cs.CreditCards {
		cur, ok := s.creditCards[c.ID()]
		if !ok {
			return &domain.ErrNotFound{Resource: "credit card", ID: c.ID()}
		}
		if cur.Version != c.Version() {
			return &domain.ErrVersionConflict{Resource: "credit card", ID: c.ID()}
		}
	}

	for _, a := range cs.Accounts {
		st := a.State()
		st.Version++
		s.accounts[st.ID] = st
	}
	for _, c := range cs.DebitCards {
		st := c.State()
		st.Version++
		s.debitCards[st.ID] = st
	}
	for _, c := range cs.CreditCards {
		st := c.State()
		st.Version++
		s.creditCards[st.ID] = st
	}
	for _, tx := range cs.Transactions {
		s.transactions = append(s.transactions, *tx)
	}
	return nil
}
