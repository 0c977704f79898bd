package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Accounts
// ============================================================

// AccountCategory classifies an account.
type AccountCategory string

const (
	AccountCurrent AccountCategory = "current"
	AccountSavings AccountCategory = "savings"
)

// ParseAccountCategory accepts "" (current), "current" or "savings".
func ParseAccountCategory(s string) (AccountCategory, error) {
	switch AccountCategory(strings.ToLower(strings.TrimSpace(s))) {
	case "", AccountCurrent:
		return AccountCurrent, nil
	case AccountSavings:
		return AccountSavings, nil
	}
	return "", &ErrValidation{Field: "account_type", Message: "must be current or savings"}
}

// AccountState is the persisted shape of an Account. Stores read and write
// it; everything else goes through Account's methods.
type AccountState struct {
	ID         string
	CustomerID string
	Name       string
	IBAN       string
	Balance    decimal.Decimal
	Category   AccountCategory
	Active     bool
	Version    int64
	CreatedAt  time.Time
}

// Account is a customer's money account. The balance never goes negative.
type Account struct {
	s AccountState
}

// NewAccount validates and builds a fresh, active account at version 0.
func NewAccount(id, customerID, name, iban string, category AccountCategory, initial decimal.Decimal, now time.Time) (*Account, error) {
	name = strings.TrimSpace(name)
	iban = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
	if name == "" {
		return nil, &ErrValidation{Field: "name", Message: "required"}
	}
	if iban == "" || len(iban) > 34 {
		return nil, &ErrValidation{Field: "iban", Message: "required, at most 34 characters"}
	}
	if initial.IsNegative() {
		return nil, &ErrValidation{Code: KindInvalidAmount, Field: "initial_balance", Message: "cannot be negative"}
	}
	return &Account{s: AccountState{
		ID:         id,
		CustomerID: customerID,
		Name:       name,
		IBAN:       iban,
		Balance:    initial,
		Category:   category,
		Active:     true,
		CreatedAt:  now,
	}}, nil
}

// AccountFromState rebuilds an Account loaded from storage.
func AccountFromState(s AccountState) *Account {
	return &Account{s: s}
}

// State returns a copy of the persisted fields.
func (a *Account) State() AccountState { return a.s }

func (a *Account) ID() string                { return a.s.ID }
func (a *Account) CustomerID() string        { return a.s.CustomerID }
func (a *Account) IBAN() string              { return a.s.IBAN }
func (a *Account) Balance() decimal.Decimal  { return a.s.Balance }
func (a *Account) Active() bool              { return a.s.Active }
func (a *Account) Version() int64            { return a.s.Version }
func (a *Account) Category() AccountCategory { return a.s.Category }

// Deposit adds amount to the balance.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if err := RequirePositive(amount); err != nil {
		return err
	}
	if !a.s.Active {
		return &ErrAccountInactive{AccountID: a.s.ID}
	}
	a.s.Balance = a.s.Balance.Add(amount)
	return nil
}

// Withdraw removes amount from the balance.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if err := RequirePositive(amount); err != nil {
		return err
	}
	if !a.s.Active {
		return &ErrAccountInactive{AccountID: a.s.ID}
	}
	if a.s.Balance.LessThan(amount) {
		return &ErrInsufficientFunds{Available: a.s.Balance, Required: amount}
	}
	a.s.Balance = a.s.Balance.Sub(amount)
	return nil
}

// SetActive toggles whether the account accepts money movement.
func (a *Account) SetActive(active bool) { a.s.Active = active }
