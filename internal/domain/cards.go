package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// CardKind distinguishes debit from credit cards in errors and views.
type CardKind string

const (
	CardDebit  CardKind = "debit"
	CardCredit CardKind = "credit"
)

// DefaultDailyLimit applies to debit cards created without an explicit limit.
var DefaultDailyLimit = decimal.NewFromInt(5000)

// ============================================================
// Card number and verification code
// ============================================================

// NormalizeCardNumber trims the input and requires exactly 16 ASCII digits.
func NormalizeCardNumber(raw string) (string, error) {
	n := strings.TrimSpace(raw)
	if len(n) != 16 {
		return "", &ErrValidation{Code: KindInvalidCardNumber, Field: "card_no", Message: "must be exactly 16 digits"}
	}
	for i := 0; i < len(n); i++ {
		if n[i] < '0' || n[i] > '9' {
			return "", &ErrValidation{Code: KindInvalidCardNumber, Field: "card_no", Message: "must be exactly 16 digits"}
		}
	}
	return n, nil
}

// MaskCardNumber keeps the last four digits.
func MaskCardNumber(n string) string {
	if len(n) < 4 {
		return n
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

func checkSecretFormat(code string) error {
	if strings.TrimSpace(code) == "" {
		return &ErrValidation{Code: KindSecretRequired, Field: "secret", Message: "required"}
	}
	if len(code) < 3 || len(code) > 4 {
		return &ErrValidation{Code: KindSecretFormatInvalid, Field: "secret", Message: "must be 3 or 4 characters"}
	}
	return nil
}

// HashSecret validates the verification code format and returns its bcrypt hash.
func HashSecret(code string, cost int) (string, error) {
	if err := checkSecretFormat(code); err != nil {
		return "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// verifySecret compares code against hash; bcrypt compares in constant time.
func verifySecret(kind CardKind, hash, code string) error {
	if err := checkSecretFormat(code); err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return &ErrInvalidSecret{Card: kind}
	}
	return nil
}

func ensureUsable(kind CardKind, active bool, expireAt, now time.Time) error {
	if !active {
		return &ErrCardInactive{Card: kind}
	}
	if !now.Before(expireAt) {
		return &ErrCardExpired{Card: kind, ExpireAt: expiryDate(expireAt)}
	}
	return nil
}

// expiryDate renders the last day a card is usable; expireAt is the
// exclusive end of that day.
func expiryDate(expireAt time.Time) string {
	return expireAt.Add(-time.Nanosecond).Format(time.DateOnly)
}

// ============================================================
// Debit card
// ============================================================

// DebitCardState is the persisted shape of a DebitCard.
type DebitCardState struct {
	ID         string
	AccountID  string
	CardNo     string
	ExpireAt   time.Time
	SecretHash string
	Active     bool
	DailyLimit decimal.Decimal
	Version    int64
	CreatedAt  time.Time
}

// DebitCard spends from its account, capped per calendar day.
type DebitCard struct {
	s DebitCardState
}

// NewDebitCard builds an active card. secretHash must come from HashSecret.
func NewDebitCard(id, accountID, cardNo string, expireAt time.Time, secretHash string, dailyLimit decimal.Decimal, now time.Time) (*DebitCard, error) {
	if !dailyLimit.IsPositive() {
		return nil, &ErrValidation{Code: KindInvalidDailyLimit, Field: "daily_limit", Message: "must be greater than zero"}
	}
	return &DebitCard{s: DebitCardState{
		ID:         id,
		AccountID:  accountID,
		CardNo:     cardNo,
		ExpireAt:   expireAt,
		SecretHash: secretHash,
		Active:     true,
		DailyLimit: dailyLimit,
		CreatedAt:  now,
	}}, nil
}

func DebitCardFromState(s DebitCardState) *DebitCard { return &DebitCard{s: s} }

func (c *DebitCard) State() DebitCardState       { return c.s }
func (c *DebitCard) ID() string                  { return c.s.ID }
func (c *DebitCard) AccountID() string           { return c.s.AccountID }
func (c *DebitCard) CardNo() string              { return c.s.CardNo }
func (c *DebitCard) DailyLimit() decimal.Decimal { return c.s.DailyLimit }
func (c *DebitCard) Active() bool                { return c.s.Active }
func (c *DebitCard) Version() int64              { return c.s.Version }

// EnsureUsable fails when the card is inactive or expired at now.
func (c *DebitCard) EnsureUsable(now time.Time) error {
	return ensureUsable(CardDebit, c.s.Active, c.s.ExpireAt, now)
}

// VerifySecret checks code against the stored hash.
func (c *DebitCard) VerifySecret(code string) error {
	return verifySecret(CardDebit, c.s.SecretHash, code)
}

// CheckDailyLimit fails when spentToday + amount would pass the daily limit.
func (c *DebitCard) CheckDailyLimit(spentToday, amount decimal.Decimal) error {
	if spentToday.Add(amount).GreaterThan(c.s.DailyLimit) {
		return &ErrDailyLimitExceeded{Limit: c.s.DailyLimit, SpentToday: spentToday, Requested: amount}
	}
	return nil
}

func (c *DebitCard) SetDailyLimit(limit decimal.Decimal) error {
	if !limit.IsPositive() {
		return &ErrValidation{Code: KindInvalidDailyLimit, Field: "daily_limit", Message: "must be greater than zero"}
	}
	c.s.DailyLimit = limit
	return nil
}

// SetSecretHash replaces the stored verification hash.
func (c *DebitCard) SetSecretHash(hash string) { c.s.SecretHash = hash }

func (c *DebitCard) SetActive(active bool) { c.s.Active = active }

// ============================================================
// Credit card
// ============================================================

// CreditCardState is the persisted shape of a CreditCard.
type CreditCardState struct {
	ID          string
	CustomerID  string
	CardNo      string
	ExpireAt    time.Time
	SecretHash  string
	Limit       decimal.Decimal
	CurrentDebt decimal.Decimal
	Active      bool
	Version     int64
	CreatedAt   time.Time
}

// CreditCard accumulates debt up to its limit. 0 <= debt <= limit always.
type CreditCard struct {
	s CreditCardState
}

// NewCreditCard builds an active card with zero debt.
func NewCreditCard(id, customerID, cardNo string, expireAt time.Time, secretHash string, limit decimal.Decimal, now time.Time) (*CreditCard, error) {
	if !limit.IsPositive() {
		return nil, &ErrValidation{Code: KindInvalidAmount, Field: "limit", Message: "must be greater than zero"}
	}
	return &CreditCard{s: CreditCardState{
		ID:          id,
		CustomerID:  customerID,
		CardNo:      cardNo,
		ExpireAt:    expireAt,
		SecretHash:  secretHash,
		Limit:       limit,
		CurrentDebt: decimal.Zero,
		Active:      true,
		CreatedAt:   now,
	}}, nil
}

func CreditCardFromState(s CreditCardState) *CreditCard { return &CreditCard{s: s} }

func (c *CreditCard) State() CreditCardState       { return c.s }
func (c *CreditCard) ID() string                   { return c.s.ID }
func (c *CreditCard) CustomerID() string           { return c.s.CustomerID }
func (c *CreditCard) CardNo() string               { return c.s.CardNo }
func (c *CreditCard) Limit() decimal.Decimal       { return c.s.Limit }
func (c *CreditCard) CurrentDebt() decimal.Decimal { return c.s.CurrentDebt }
func (c *CreditCard) Active() bool                 { return c.s.Active }
func (c *CreditCard) Version() int64               { return c.s.Version }

// Available is the remaining headroom under the limit.
func (c *CreditCard) Available() decimal.Decimal { return c.s.Limit.Sub(c.s.CurrentDebt) }

func (c *CreditCard) EnsureUsable(now time.Time) error {
	return ensureUsable(CardCredit, c.s.Active, c.s.ExpireAt, now)
}

func (c *CreditCard) VerifySecret(code string) error {
	return verifySecret(CardCredit, c.s.SecretHash, code)
}

// Spend adds amount to the debt.
func (c *CreditCard) Spend(amount decimal.Decimal, now time.Time) error {
	if err := RequirePositive(amount); err != nil {
		return err
	}
	if err := c.EnsureUsable(now); err != nil {
		return err
	}
	if c.s.CurrentDebt.Add(amount).GreaterThan(c.s.Limit) {
		return &ErrLimitExceeded{Limit: c.s.Limit, Current: c.s.CurrentDebt, Requested: amount}
	}
	c.s.CurrentDebt = c.s.CurrentDebt.Add(amount)
	return nil
}

// Pay reduces the debt. Amounts above the debt are clamped, so the debt
// bottoms out at zero. It returns the amount actually applied.
func (c *CreditCard) Pay(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := RequirePositive(amount); err != nil {
		return decimal.Zero, err
	}
	applied := MinAmount(amount, c.s.CurrentDebt)
	c.s.CurrentDebt = c.s.CurrentDebt.Sub(applied)
	return applied, nil
}

func (c *CreditCard) SetSecretHash(hash string) { c.s.SecretHash = hash }

func (c *CreditCard) SetActive(active bool) { c.s.Active = active }
