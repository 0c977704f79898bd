package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"
	"github.com/boddenberg/bank-ledger-go/internal/infra/identity"
	"github.com/boddenberg/bank-ledger-go/internal/infra/memstore"
	"github.com/boddenberg/bank-ledger-go/internal/infra/observability"
	"github.com/boddenberg/bank-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/bank-ledger-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- Fakes ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type seqIDs struct{ n atomic.Int64 }

func (g *seqIDs) NewID() string { return fmt.Sprintf("id-%04d", g.n.Add(1)) }

// conflictStore rejects the first `failures` commits with a version conflict
// and counts account reads. A pending beforeCommit runs once, ahead of the
// next commit.
type conflictStore struct {
	*memstore.Store
	failures     atomic.Int32
	commits      atomic.Int32
	accountReads atomic.Int32
	beforeCommit atomic.Pointer[func()]
}

func (s *conflictStore) Commit(ctx context.Context, cs *domain.Changeset) error {
	if fn := s.beforeCommit.Swap(nil); fn != nil {
		(*fn)()
	}
	s.commits.Add(1)
	if s.failures.Add(-1) >= 0 {
		return &domain.ErrVersionConflict{Resource: "account", ID: "injected"}
	}
	return s.Store.Commit(ctx, cs)
}

func (s *conflictStore) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.accountReads.Add(1)
	return s.Store.GetAccount(ctx, id)
}

// --- Fixture ---

const (
	owner     = "user-1"
	stranger  = "user-2"
	debitNo   = "4000123412341234"
	creditNo  = "5000123412341234"
	secret    = "123"
	expiresAt = "2030-12-31"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *service.LedgerService
	store   *conflictStore
	clock   *fakeClock
	metrics *observability.Metrics
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &conflictStore{Store: memstore.New()}
	clock := &fakeClock{now: t0}
	metrics := observability.NewMetrics()

	cfg := service.DefaultLedgerConfig()
	cfg.SecretCost = bcrypt.MinCost
	cfg.Conflict = resilience.ConflictPolicy{MaxAttempts: 3, Backoff: []time.Duration{time.Millisecond, 2 * time.Millisecond}}

	svc := service.NewLedgerService(store, clock, &seqIDs{}, identity.ContextProvider{}, cfg, metrics, zap.NewNop())
	return &fixture{
		svc:     svc,
		store:   store,
		clock:   clock,
		metrics: metrics,
		ctx:     identity.WithUserID(context.Background(), owner),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) customer(t *testing.T) *domain.CustomerView {
	t.Helper()
	c, err := f.svc.CreateCustomer(f.ctx, &domain.CreateCustomerRequest{
		Name: "Ada Lovelace", NationalID: "11111111111", BirthDate: "1990-01-02", BirthPlace: "London",
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

func (f *fixture) account(t *testing.T, customerID, iban, balance string) *domain.AccountView {
	t.Helper()
	a, err := f.svc.CreateAccount(f.ctx, &domain.CreateAccountRequest{
		CustomerID: customerID, Name: "Main", IBAN: iban, InitialBalance: dec(balance),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func (f *fixture) debitCard(t *testing.T, accountID string) *domain.DebitCardView {
	t.Helper()
	c, err := f.svc.CreateDebitCard(f.ctx, &domain.CreateDebitCardRequest{
		AccountID: accountID, CardNo: debitNo, ExpireAt: expiresAt, Secret: secret,
	})
	if err != nil {
		t.Fatalf("create debit card: %v", err)
	}
	return c
}

func (f *fixture) creditCard(t *testing.T, customerID, limit string) *domain.CreditCardView {
	t.Helper()
	c, err := f.svc.CreateCreditCard(f.ctx, &domain.CreateCreditCardRequest{
		CustomerID: customerID, CardNo: creditNo, ExpireAt: expiresAt, Secret: secret, Limit: dec(limit),
	})
	if err != nil {
		t.Fatalf("create credit card: %v", err)
	}
	return c
}

func (f *fixture) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	a, err := f.store.Store.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance()
}

func (f *fixture) debt(t *testing.T) decimal.Decimal {
	t.Helper()
	c, err := f.store.GetCreditCardByNumber(context.Background(), creditNo)
	if err != nil {
		t.Fatalf("get credit card: %v", err)
	}
	return c.CurrentDebt()
}

func (f *fixture) accountTxCount(t *testing.T, accountID string) int {
	t.Helper()
	n, err := f.store.CountTransactions(context.Background(), domain.TransactionQuery{
		Owner: domain.AccountOwner(accountID),
		From:  time.Time{},
		To:    time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func expectKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if !domain.IsKind(err, kind) {
		t.Fatalf("expected %s, got %v", kind, err)
	}
}

// --- Deposit / Withdraw ---

func TestWithdraw_FullBalance(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100.00")

	tx, err := f.svc.Withdraw(f.ctx, a.ID, dec("100.00"), "rent")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !f.balance(t, a.ID).IsZero() {
		t.Errorf("expected balance 0, got %s", f.balance(t, a.ID))
	}
	if tx.Type != domain.TxWithdraw || !tx.Amount.Equal(dec("100")) || tx.AccountID != a.ID {
		t.Errorf("unexpected transaction: %+v", tx)
	}
	if tx.DebitCardID != "" || tx.CreditCardID != "" {
		t.Errorf("expected a single owner reference, got %+v", tx)
	}
	if n := f.accountTxCount(t, a.ID); n != 1 {
		t.Errorf("expected 1 transaction, got %d", n)
	}
}

func TestWithdraw_Rejections(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "50")

	tests := []struct {
		name   string
		amount string
		kind   domain.ErrorKind
	}{
		{"zero", "0", domain.KindInvalidAmount},
		{"negative", "-1", domain.KindInvalidAmount},
		{"above balance", "50.01", domain.KindInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Withdraw(f.ctx, a.ID, dec(tt.amount), "")
			expectKind(t, err, tt.kind)
		})
	}

	if !f.balance(t, a.ID).Equal(dec("50")) {
		t.Errorf("balance changed on rejected withdraws: %s", f.balance(t, a.ID))
	}
	if n := f.accountTxCount(t, a.ID); n != 0 {
		t.Errorf("expected no transactions, got %d", n)
	}
}

func TestDeposit_InactiveAccount(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "0")

	if _, err := f.svc.SetAccountActive(f.ctx, a.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := f.svc.Deposit(f.ctx, a.ID, dec("10"), "")
	expectKind(t, err, domain.KindAccountInactive)

	if _, err := f.svc.SetAccountActive(f.ctx, a.ID, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if _, err := f.svc.Deposit(f.ctx, a.ID, dec("10.25"), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !f.balance(t, a.ID).Equal(dec("10.25")) {
		t.Errorf("expected 10.25, got %s", f.balance(t, a.ID))
	}
}

func TestDeposit_ExactDecimalArithmetic(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "0")

	for i := 0; i < 10; i++ {
		if _, err := f.svc.Deposit(f.ctx, a.ID, dec("0.10"), ""); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	if !f.balance(t, a.ID).Equal(dec("1")) {
		t.Errorf("expected exactly 1.00, got %s", f.balance(t, a.ID))
	}
}

// --- Concurrency ---

func TestWithdraw_ConcurrentFullBalance(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100")

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.Withdraw(f.ctx, a.ID, dec("100"), "")
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case domain.IsKind(err, domain.KindInsufficientBalance), domain.IsKind(err, domain.KindConcurrencyConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one success, got %d", succeeded)
	}
	if !f.balance(t, a.ID).IsZero() {
		t.Errorf("expected balance 0, got %s", f.balance(t, a.ID))
	}
	if n := f.accountTxCount(t, a.ID); n != 1 {
		t.Errorf("expected 1 transaction, got %d", n)
	}
}

func TestWithdraw_ConcurrentNeverNegative(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100")

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Withdraw(f.ctx, a.ID, dec("10"), ""); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	got := f.balance(t, a.ID)
	if got.IsNegative() {
		t.Fatalf("balance went negative: %s", got)
	}
	want := dec("100").Sub(decimal.NewFromInt(int64(succeeded.Load()) * 10))
	if !got.Equal(want) {
		t.Errorf("balance %s does not match %d successful withdraws", got, succeeded.Load())
	}
	if n := f.accountTxCount(t, a.ID); n != int(succeeded.Load()) {
		t.Errorf("expected %d transactions, got %d", succeeded.Load(), n)
	}
}

func TestCreditCardSpend_ConcurrentWithinLimit(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	f.creditCard(t, c.ID, "100")

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		succeeded atomic.Int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.CreditCardSpend(f.ctx, creditNo, secret, dec("30"), "")
			switch {
			case err == nil:
				succeeded.Add(1)
			case domain.IsKind(err, domain.KindLimitExceeded), domain.IsKind(err, domain.KindConcurrencyConflict):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	debt := f.debt(t)
	if debt.IsNegative() || debt.GreaterThan(dec("100")) {
		t.Fatalf("debt out of bounds: %s", debt)
	}
	if n := succeeded.Load(); n > 3 {
		t.Fatalf("expected at most 3 spends to fit the limit, got %d", n)
	}
	want := decimal.NewFromInt(int64(succeeded.Load()) * 30)
	if !debt.Equal(want) {
		t.Errorf("debt %s does not match %d successful spends", debt, succeeded.Load())
	}

	card, err := f.store.GetCreditCardByNumber(context.Background(), creditNo)
	if err != nil {
		t.Fatalf("get credit card: %v", err)
	}
	n, err := f.store.CountTransactions(context.Background(), domain.TransactionQuery{
		Owner: domain.CreditCardOwner(card.ID()),
		To:    time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != int(succeeded.Load()) {
		t.Errorf("expected %d transactions, got %d", succeeded.Load(), n)
	}
}

func TestGuard_RetriesVersionConflict(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "0")

	f.store.failures.Store(2)
	if _, err := f.svc.Deposit(f.ctx, a.ID, dec("5"), ""); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := f.store.commits.Load(); got != 3 {
		t.Errorf("expected 3 commit attempts, got %d", got)
	}
	if !f.balance(t, a.ID).Equal(dec("5")) {
		t.Errorf("expected 5, got %s", f.balance(t, a.ID))
	}

	snap, err := f.metrics.GetLedgerSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, op := range snap.Operations {
		if op.Operation == service.OpDeposit {
			if op.ConflictRetries != 2 {
				t.Errorf("expected 2 conflict retries, got %d", op.ConflictRetries)
			}
			if op.Outcomes[observability.OutcomeSuccess] != 1 {
				t.Errorf("expected 1 success, got %v", op.Outcomes)
			}
			return
		}
	}
	t.Error("deposit missing from snapshot")
}

func TestGuard_ExhaustionIsConcurrencyConflict(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "40")

	f.store.failures.Store(100)
	_, err := f.svc.Withdraw(f.ctx, a.ID, dec("10"), "")
	expectKind(t, err, domain.KindConcurrencyConflict)

	if got := f.store.commits.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	f.store.failures.Store(0)
	if !f.balance(t, a.ID).Equal(dec("40")) {
		t.Errorf("balance changed: %s", f.balance(t, a.ID))
	}
	if n := f.accountTxCount(t, a.ID); n != 0 {
		t.Errorf("expected no transactions, got %d", n)
	}
}

func TestGuard_BusinessErrorsAreNotRetried(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "10")

	f.store.accountReads.Store(0)
	_, err := f.svc.Withdraw(f.ctx, a.ID, dec("11"), "")
	expectKind(t, err, domain.KindInsufficientBalance)

	if got := f.store.accountReads.Load(); got != 1 {
		t.Errorf("expected a single attempt, got %d account reads", got)
	}
}

// --- Ownership ---

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "10")
	f.debitCard(t, a.ID)
	f.creditCard(t, c.ID, "100")

	other := identity.WithUserID(context.Background(), stranger)

	_, err := f.svc.Deposit(other, a.ID, dec("1"), "")
	expectKind(t, err, domain.KindNotOwned)

	_, err = f.svc.DebitCardSpend(other, debitNo, secret, dec("1"), "")
	expectKind(t, err, domain.KindNotOwned)

	_, err = f.svc.CreditCardSpend(other, creditNo, secret, dec("1"), "")
	expectKind(t, err, domain.KindNotOwned)

	_, err = f.svc.Withdraw(f.ctx, "missing", dec("1"), "")
	expectKind(t, err, domain.KindNotFound)

	_, err = f.svc.CreditCardSpend(f.ctx, "9999999999999999", secret, dec("1"), "")
	expectKind(t, err, domain.KindNotFound)

	_, err = f.svc.Deposit(context.Background(), a.ID, dec("1"), "")
	expectKind(t, err, domain.KindUnauthenticated)

	_, err = f.svc.CreateAccount(other, &domain.CreateAccountRequest{CustomerID: c.ID, Name: "x", IBAN: "DE999"})
	expectKind(t, err, domain.KindNotOwned)

	if !f.balance(t, a.ID).Equal(dec("10")) {
		t.Errorf("balance changed: %s", f.balance(t, a.ID))
	}
}

// --- Debit card ---

func TestDebitCardSpend_DayBoundary(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "20000")
	f.debitCard(t, a.ID)

	f.clock.Set(time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC))
	if _, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("5000"), "late"); err != nil {
		t.Fatalf("spend at 23:59:59: %v", err)
	}

	f.clock.Set(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC))
	if _, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("5000"), "early"); err != nil {
		t.Fatalf("spend at 00:00:01: %v", err)
	}

	_, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("0.01"), "")
	expectKind(t, err, domain.KindDailyLimitExceeded)

	var dl *domain.ErrDailyLimitExceeded
	if !errors.As(err, &dl) || !dl.SpentToday.Equal(dec("5000")) || !dl.Limit.Equal(dec("5000")) {
		t.Errorf("expected figures on the error, got %+v", err)
	}
	if !f.balance(t, a.ID).Equal(dec("10000")) {
		t.Errorf("expected 10000, got %s", f.balance(t, a.ID))
	}
}

func TestDebitCardSpend_OwnedByCard(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100")
	card := f.debitCard(t, a.ID)

	tx, err := f.svc.DebitCardSpend(f.ctx, " "+debitNo+" ", secret, dec("40"), "coffee")
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if tx.Type != domain.TxDebitCardSpend || tx.DebitCardID != card.ID || tx.AccountID != "" {
		t.Errorf("unexpected transaction: %+v", tx)
	}
	if !f.balance(t, a.ID).Equal(dec("60")) {
		t.Errorf("expected 60, got %s", f.balance(t, a.ID))
	}
}

func TestDebitCardSpend_Rejections(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100")
	f.debitCard(t, a.ID)

	tests := []struct {
		name   string
		cardNo string
		secret string
		amount string
		kind   domain.ErrorKind
	}{
		{"short card number", "4000", secret, "1", domain.KindInvalidCardNumber},
		{"letters in card number", "40001234123412ab", secret, "1", domain.KindInvalidCardNumber},
		{"missing secret", debitNo, "", "1", domain.KindSecretRequired},
		{"short secret", debitNo, "12", "1", domain.KindSecretFormatInvalid},
		{"wrong secret", debitNo, "999", "1", domain.KindInvalidSecret},
		{"above balance", debitNo, secret, "100.01", domain.KindInsufficientBalance},
		{"zero", debitNo, secret, "0", domain.KindInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.DebitCardSpend(f.ctx, tt.cardNo, tt.secret, dec(tt.amount), "")
			expectKind(t, err, tt.kind)
		})
	}

	if _, err := f.svc.SetDebitCardActive(f.ctx, debitNo, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("1"), "")
	expectKind(t, err, domain.KindCardInactive)

	if _, err := f.svc.SetDebitCardActive(f.ctx, debitNo, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	f.clock.Set(time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC))
	_, err = f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("1"), "")
	expectKind(t, err, domain.KindCardExpired)

	if !f.balance(t, a.ID).Equal(dec("100")) {
		t.Errorf("balance changed: %s", f.balance(t, a.ID))
	}
}

func TestDebitCardSpend_UsableThroughExpiryDay(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100")
	f.debitCard(t, a.ID)

	f.clock.Set(time.Date(2030, 12, 31, 23, 0, 0, 0, time.UTC))
	if _, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("1"), ""); err != nil {
		t.Fatalf("expected card usable on its expiry date, got %v", err)
	}

	f.clock.Set(time.Date(2030, 12, 31, 23, 59, 59, 500_000_000, time.UTC))
	if _, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("1"), ""); err != nil {
		t.Fatalf("expected card usable in the last second of its expiry date, got %v", err)
	}

	f.clock.Set(time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC))
	_, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("1"), "")
	expectKind(t, err, domain.KindCardExpired)
	if !f.balance(t, a.ID).Equal(dec("98")) {
		t.Errorf("expected 98, got %s", f.balance(t, a.ID))
	}
}

func TestDebitCardSpend_CardBlockedBeforeCommit(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100")
	f.debitCard(t, a.ID)

	var blockErr error
	block := func() { _, blockErr = f.svc.SetDebitCardActive(f.ctx, debitNo, false) }
	f.store.beforeCommit.Store(&block)

	_, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("10"), "")
	if blockErr != nil {
		t.Fatalf("block card: %v", blockErr)
	}
	expectKind(t, err, domain.KindCardInactive)
	if !f.balance(t, a.ID).Equal(dec("100")) {
		t.Errorf("balance changed: %s", f.balance(t, a.ID))
	}
	if n := f.accountTxCount(t, a.ID); n != 0 {
		t.Errorf("expected no account transactions, got %d", n)
	}
}

func TestDebitCardSpend_LimitLoweredBeforeCommit(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100")
	f.debitCard(t, a.ID)

	var lowerErr error
	lower := func() { _, lowerErr = f.svc.SetDebitCardDailyLimit(f.ctx, debitNo, dec("5")) }
	f.store.beforeCommit.Store(&lower)

	_, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("10"), "")
	if lowerErr != nil {
		t.Fatalf("lower limit: %v", lowerErr)
	}
	expectKind(t, err, domain.KindDailyLimitExceeded)
	if !f.balance(t, a.ID).Equal(dec("100")) {
		t.Errorf("balance changed: %s", f.balance(t, a.ID))
	}
}

// --- Credit card ---

func TestCreditCardSpend_LimitExceeded(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	f.creditCard(t, c.ID, "500.00")

	_, err := f.svc.CreditCardSpend(f.ctx, creditNo, secret, dec("600.00"), "")
	expectKind(t, err, domain.KindLimitExceeded)
	if !f.debt(t).IsZero() {
		t.Errorf("expected debt 0, got %s", f.debt(t))
	}

	if _, err := f.svc.CreditCardSpend(f.ctx, creditNo, secret, dec("500.00"), ""); err != nil {
		t.Fatalf("spend up to limit: %v", err)
	}
	_, err = f.svc.CreditCardSpend(f.ctx, creditNo, secret, dec("0.01"), "")
	expectKind(t, err, domain.KindLimitExceeded)
	if !f.debt(t).Equal(dec("500")) {
		t.Errorf("expected debt 500, got %s", f.debt(t))
	}
}

func TestCreditCardPay_InsufficientBalanceLeavesBothUntouched(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "30.00")
	f.creditCard(t, c.ID, "500")
	if _, err := f.svc.CreditCardSpend(f.ctx, creditNo, secret, dec("50.00"), ""); err != nil {
		t.Fatalf("spend: %v", err)
	}

	_, err := f.svc.CreditCardPay(f.ctx, creditNo, secret, a.ID, dec("40.00"), "")
	expectKind(t, err, domain.KindInsufficientBalance)

	if !f.balance(t, a.ID).Equal(dec("30")) {
		t.Errorf("balance changed: %s", f.balance(t, a.ID))
	}
	if !f.debt(t).Equal(dec("50")) {
		t.Errorf("debt changed: %s", f.debt(t))
	}
	if n := f.accountTxCount(t, a.ID); n != 0 {
		t.Errorf("expected no account transactions, got %d", n)
	}
}

func TestCreditCardPay(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100")
	card := f.creditCard(t, c.ID, "500")
	if _, err := f.svc.CreditCardSpend(f.ctx, creditNo, secret, dec("50"), ""); err != nil {
		t.Fatalf("spend: %v", err)
	}

	_, err := f.svc.CreditCardPay(f.ctx, creditNo, secret, a.ID, dec("60"), "")
	expectKind(t, err, domain.KindPaymentExceedsDebt)

	_, err = f.svc.CreditCardPay(f.ctx, creditNo, secret, a.ID, dec("0"), "")
	expectKind(t, err, domain.KindInvalidAmount)

	tx, err := f.svc.CreditCardPay(f.ctx, creditNo, secret, a.ID, dec("50"), "statement")
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if tx.Type != domain.TxCreditCardPayment || tx.AccountID != a.ID || tx.RelatedCreditCardID != card.ID || tx.CreditCardID != "" {
		t.Errorf("unexpected transaction: %+v", tx)
	}
	if !f.debt(t).IsZero() {
		t.Errorf("expected debt 0, got %s", f.debt(t))
	}
	if !f.balance(t, a.ID).Equal(dec("50")) {
		t.Errorf("expected balance 50, got %s", f.balance(t, a.ID))
	}
}

func TestCreditCardPay_ForeignAccount(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	f.creditCard(t, c.ID, "500")

	other := identity.WithUserID(context.Background(), stranger)
	oc, err := f.svc.CreateCustomer(other, &domain.CreateCustomerRequest{Name: "Bob", NationalID: "222", BirthDate: "1980-05-05"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	oa, err := f.svc.CreateAccount(other, &domain.CreateAccountRequest{CustomerID: oc.ID, Name: "Bob", IBAN: "DE777", InitialBalance: dec("100")})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	_, err = f.svc.CreditCardPay(f.ctx, creditNo, secret, oa.ID, dec("1"), "")
	expectKind(t, err, domain.KindNotOwned)
}
