package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"
	"github.com/boddenberg/bank-ledger-go/internal/infra/identity"
)

func TestAccountSummary(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "100")

	// Earlier in the month.
	f.clock.Set(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if _, err := f.svc.Deposit(f.ctx, a.ID, dec("50"), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// Previous month, outside both windows.
	f.clock.Set(time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC))
	if _, err := f.svc.Deposit(f.ctx, a.ID, dec("7"), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	f.clock.Set(t0)
	if _, err := f.svc.Deposit(f.ctx, a.ID, dec("20"), ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.svc.Withdraw(f.ctx, a.ID, dec("30"), ""); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	s, err := f.svc.AccountSummary(f.ctx, a.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !s.Balance.Equal(dec("147")) {
		t.Errorf("expected balance 147, got %s", s.Balance)
	}
	if s.Today != "2026-03-10" || s.MonthStart != "2026-03-01" {
		t.Errorf("unexpected windows: %s %s", s.Today, s.MonthStart)
	}
	if s.TodayCount != 2 || !s.TodayIn.Equal(dec("20")) || !s.TodayOut.Equal(dec("30")) {
		t.Errorf("unexpected today figures: %+v", s)
	}
	if s.MonthCount != 3 || !s.MonthIn.Equal(dec("70")) || !s.MonthOut.Equal(dec("30")) {
		t.Errorf("unexpected month figures: %+v", s)
	}
}

func TestDebitCardSpendSummary(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "10000")
	f.debitCard(t, a.ID)

	f.clock.Set(time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC))
	if _, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("300"), ""); err != nil {
		t.Fatalf("spend: %v", err)
	}
	f.clock.Set(t0)
	if _, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("1200"), ""); err != nil {
		t.Fatalf("spend: %v", err)
	}

	s, err := f.svc.DebitCardSpendSummary(f.ctx, debitNo)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Card != domain.CardDebit || s.CardNo != "************1234" {
		t.Errorf("unexpected card fields: %+v", s)
	}
	if !s.TodaySpend.Equal(dec("1200")) || !s.MonthSpend.Equal(dec("1500")) {
		t.Errorf("unexpected totals: today=%s month=%s", s.TodaySpend, s.MonthSpend)
	}
	if s.RemainingToday == nil || !s.RemainingToday.Equal(dec("3800")) {
		t.Errorf("expected 3800 remaining, got %v", s.RemainingToday)
	}
}

func TestCreditCardSpendSummary_NoSpendIsZero(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	f.creditCard(t, c.ID, "500")

	s, err := f.svc.CreditCardSpendSummary(f.ctx, creditNo)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !s.TodaySpend.IsZero() || !s.MonthSpend.IsZero() {
		t.Errorf("expected zero totals, got %+v", s)
	}
	if s.DailyLimit != nil {
		t.Error("credit card summary must not carry a daily limit")
	}
}

func TestGetCreditCard_Available(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	f.creditCard(t, c.ID, "500")
	if _, err := f.svc.CreditCardSpend(f.ctx, creditNo, secret, dec("120.50"), ""); err != nil {
		t.Fatalf("spend: %v", err)
	}

	v, err := f.svc.GetCreditCard(f.ctx, creditNo)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !v.CurrentDebt.Equal(dec("120.50")) || !v.Available.Equal(dec("379.50")) {
		t.Errorf("unexpected view: %+v", v)
	}

	other := identity.WithUserID(context.Background(), stranger)
	_, err = f.svc.GetCreditCard(other, creditNo)
	expectKind(t, err, domain.KindNotOwned)
}

func TestStatement_NewestFirstAndLimited(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "0")

	for i := 1; i <= 5; i++ {
		f.clock.Set(t0.Add(time.Duration(i) * time.Minute))
		if _, err := f.svc.Deposit(f.ctx, a.ID, dec("1"), ""); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}

	st, err := f.svc.Statement(f.ctx, a.ID, time.Time{}, time.Time{}, 3)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(st.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(st.Transactions))
	}
	for i := 1; i < len(st.Transactions); i++ {
		if st.Transactions[i].CreatedAt.After(st.Transactions[i-1].CreatedAt) {
			t.Errorf("statement not ordered newest first at %d", i)
		}
	}
	if !st.Transactions[0].CreatedAt.Equal(t0.Add(5 * time.Minute)) {
		t.Errorf("expected newest first, got %s", st.Transactions[0].CreatedAt)
	}

	_, err = f.svc.Statement(f.ctx, a.ID, t0, t0, 0)
	expectKind(t, err, domain.KindInvalidInput)
}

// --- Administration ---

func TestSetDebitCardDailyLimit(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "10000")
	f.debitCard(t, a.ID)

	_, err := f.svc.SetDebitCardDailyLimit(f.ctx, debitNo, dec("0"))
	expectKind(t, err, domain.KindInvalidDailyLimit)

	v, err := f.svc.SetDebitCardDailyLimit(f.ctx, debitNo, dec("8000"))
	if err != nil {
		t.Fatalf("set limit: %v", err)
	}
	if !v.DailyLimit.Equal(dec("8000")) {
		t.Errorf("expected 8000, got %s", v.DailyLimit)
	}
	if _, err := f.svc.DebitCardSpend(f.ctx, debitNo, secret, dec("7000"), ""); err != nil {
		t.Fatalf("spend under new limit: %v", err)
	}
}

func TestChangeCardSecret(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	f.creditCard(t, c.ID, "500")

	err := f.svc.ChangeCardSecret(f.ctx, domain.CardCredit, creditNo, "000", "4321")
	expectKind(t, err, domain.KindInvalidSecret)

	err = f.svc.ChangeCardSecret(f.ctx, domain.CardCredit, creditNo, secret, "12345")
	expectKind(t, err, domain.KindSecretFormatInvalid)

	if err := f.svc.ChangeCardSecret(f.ctx, domain.CardCredit, creditNo, secret, "4321"); err != nil {
		t.Fatalf("change secret: %v", err)
	}

	_, err = f.svc.CreditCardSpend(f.ctx, creditNo, secret, dec("1"), "")
	expectKind(t, err, domain.KindInvalidSecret)
	if _, err := f.svc.CreditCardSpend(f.ctx, creditNo, "4321", dec("1"), ""); err != nil {
		t.Fatalf("spend with new secret: %v", err)
	}
}

// --- Registration ---

func TestRegistration_Duplicates(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "0")
	f.debitCard(t, a.ID)

	_, err := f.svc.CreateCustomer(f.ctx, &domain.CreateCustomerRequest{Name: "Again", NationalID: "11111111111", BirthDate: "1990-01-02"})
	expectKind(t, err, domain.KindDuplicate)

	_, err = f.svc.CreateAccount(f.ctx, &domain.CreateAccountRequest{CustomerID: c.ID, Name: "Second", IBAN: "de 001"})
	expectKind(t, err, domain.KindDuplicate)

	_, err = f.svc.CreateDebitCard(f.ctx, &domain.CreateDebitCardRequest{AccountID: a.ID, CardNo: debitNo, ExpireAt: expiresAt, Secret: secret})
	expectKind(t, err, domain.KindDuplicate)
}

func TestRegistration_Validation(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t)
	a := f.account(t, c.ID, "DE001", "0")

	_, err := f.svc.CreateAccount(f.ctx, &domain.CreateAccountRequest{CustomerID: c.ID, Name: "Neg", IBAN: "DE002", InitialBalance: dec("-1")})
	expectKind(t, err, domain.KindInvalidAmount)

	_, err = f.svc.CreateDebitCard(f.ctx, &domain.CreateDebitCardRequest{AccountID: a.ID, CardNo: debitNo, ExpireAt: "2020-01-01", Secret: secret})
	expectKind(t, err, domain.KindInvalidInput)

	_, err = f.svc.CreateDebitCard(f.ctx, &domain.CreateDebitCardRequest{AccountID: a.ID, CardNo: debitNo, ExpireAt: expiresAt, Secret: ""})
	expectKind(t, err, domain.KindSecretRequired)

	_, err = f.svc.CreateCreditCard(f.ctx, &domain.CreateCreditCardRequest{CustomerID: c.ID, CardNo: creditNo, ExpireAt: expiresAt, Secret: secret, Limit: dec("0")})
	expectKind(t, err, domain.KindInvalidAmount)

	card := f.debitCard(t, a.ID)
	if !card.DailyLimit.Equal(domain.DefaultDailyLimit) {
		t.Errorf("expected default daily limit, got %s", card.DailyLimit)
	}
}
