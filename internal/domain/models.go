// Package domain defines the ledger entities, their invariant-preserving
// mutators and the request/response shapes exchanged with API callers.
// Nothing here knows about persistence or transport.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Registration requests
// ============================================================

// CreateCustomerRequest registers a customer for the calling identity.
type CreateCustomerRequest struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	BirthDate  string `json:"birth_date"` // YYYY-MM-DD
	BirthPlace string `json:"birth_place,omitempty"`
}

type CreateAccountRequest struct {
	CustomerID     string          `json:"customer_id"`
	Name           string          `json:"name"`
	IBAN           string          `json:"iban"`
	AccountType    string          `json:"account_type,omitempty"` // current, savings
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type CreateDebitCardRequest struct {
	AccountID string `json:"account_id"`
	CardNo    string `json:"card_no"`
	ExpireAt  string `json:"expire_at"` // YYYY-MM-DD
	Secret    string `json:"secret"`
}

type CreateCreditCardRequest struct {
	CustomerID string          `json:"customer_id"`
	CardNo     string          `json:"card_no"`
	ExpireAt   string          `json:"expire_at"`
	Secret     string          `json:"secret"`
	Limit      decimal.Decimal `json:"limit"`
}

// ============================================================
// Money movement requests
// ============================================================

// MoneyRequest is the body of deposit and withdraw.
type MoneyRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

// CardSpendRequest is the body of debit and credit card spends.
type CardSpendRequest struct {
	CardNo string          `json:"card_no"`
	Secret string          `json:"secret"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

// CreditCardPayRequest pays card debt from an account.
type CreditCardPayRequest struct {
	CardNo    string          `json:"card_no"`
	Secret    string          `json:"secret"`
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
}

// ============================================================
// Administration requests
// ============================================================

type DailyLimitRequest struct {
	CardNo     string          `json:"card_no"`
	DailyLimit decimal.Decimal `json:"daily_limit"`
}

type ChangeSecretRequest struct {
	CardNo        string `json:"card_no"`
	CurrentSecret string `json:"current_secret"`
	NewSecret     string `json:"new_secret"`
}

// CardRequest identifies a card by number. Card numbers travel in request
// bodies so they stay out of URLs and access logs.
type CardRequest struct {
	CardNo string `json:"card_no"`
}

type CardStatusRequest struct {
	CardNo string `json:"card_no"`
	Active bool   `json:"active"`
}

type AccountStatusRequest struct {
	Active bool `json:"active"`
}

// DevTokenRequest asks the development token endpoint for a bearer token.
type DevTokenRequest struct {
	UserID string `json:"user_id"`
}

type DevTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ============================================================
// Views
// ============================================================

type CustomerView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	NationalID string    `json:"national_id"`
	BirthDate  string    `json:"birth_date"`
	BirthPlace string    `json:"birth_place,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type AccountView struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	Name        string          `json:"name"`
	IBAN        string          `json:"iban"`
	Balance     decimal.Decimal `json:"balance"`
	AccountType AccountCategory `json:"account_type"`
	Active      bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DebitCardView never carries secret material.
type DebitCardView struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	CardNo     string          `json:"card_no"`
	ExpireAt   string          `json:"expire_at"`
	DailyLimit decimal.Decimal `json:"daily_limit"`
	Active     bool            `json:"is_active"`
}

type CreditCardView struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	CardNo      string          `json:"card_no"`
	ExpireAt    string          `json:"expire_at"`
	Limit       decimal.Decimal `json:"limit"`
	CurrentDebt decimal.Decimal `json:"current_debt"`
	Available   decimal.Decimal `json:"available_limit"`
	Active      bool            `json:"is_active"`
}

type TransactionView struct {
	ID                  string          `json:"id"`
	Type                TransactionType `json:"type"`
	Amount              decimal.Decimal `json:"amount"`
	Note                string          `json:"note,omitempty"`
	AccountID           string          `json:"account_id,omitempty"`
	DebitCardID         string          `json:"debit_card_id,omitempty"`
	CreditCardID        string          `json:"credit_card_id,omitempty"`
	RelatedCreditCardID string          `json:"related_credit_card_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// CardSpendSummary totals a card's spend transactions for today and the
// current month. DailyLimit and RemainingToday are only set for debit cards.
type CardSpendSummary struct {
	CardNo         string           `json:"card_no"`
	Card           CardKind         `json:"card"`
	Today          string           `json:"today"`
	TodaySpend     decimal.Decimal  `json:"today_spend"`
	MonthStart     string           `json:"month_start"`
	MonthSpend     decimal.Decimal  `json:"month_spend"`
	DailyLimit     *decimal.Decimal `json:"daily_limit,omitempty"`
	RemainingToday *decimal.Decimal `json:"remaining_today,omitempty"`
}

// AccountSummary reports balance plus today/month activity of an account.
// In totals deposits, Out totals withdrawals.
type AccountSummary struct {
	AccountID  string          `json:"account_id"`
	Balance    decimal.Decimal `json:"balance"`
	Today      string          `json:"today"`
	TodayCount int             `json:"today_tx_count"`
	TodayIn    decimal.Decimal `json:"today_in_total"`
	TodayOut   decimal.Decimal `json:"today_out_total"`
	MonthStart string          `json:"month_start"`
	MonthCount int             `json:"month_tx_count"`
	MonthIn    decimal.Decimal `json:"month_in_total"`
	MonthOut   decimal.Decimal `json:"month_out_total"`
}

// Statement lists an account's transactions in [From, To), newest first.
type Statement struct {
	AccountID    string            `json:"account_id"`
	From         time.Time         `json:"from"`
	To           time.Time         `json:"to"`
	Transactions []TransactionView `json:"transactions"`
}

// ============================================================
// Mapping helpers
// ============================================================

func (c *Customer) View() CustomerView {
	return CustomerView{
		ID:         c.ID,
		Name:       c.Name,
		NationalID: c.NationalID,
		BirthDate:  c.BirthDate.Format(time.DateOnly),
		BirthPlace: c.BirthPlace,
		CreatedAt:  c.CreatedAt,
	}
}

func (a *Account) View() AccountView {
	return AccountView{
		ID:          a.s.ID,
		CustomerID:  a.s.CustomerID,
		Name:        a.s.Name,
		IBAN:        a.s.IBAN,
		Balance:     a.s.Balance,
		AccountType: a.s.Category,
		Active:      a.s.Active,
		CreatedAt:   a.s.CreatedAt,
	}
}

func (c *DebitCard) View() DebitCardView {
	return DebitCardView{
		ID:         c.s.ID,
		AccountID:  c.s.AccountID,
		CardNo:     MaskCardNumber(c.s.CardNo),
		ExpireAt:   expiryDate(c.s.ExpireAt),
		DailyLimit: c.s.DailyLimit,
		Active:     c.s.Active,
	}
}

func (c *CreditCard) View() CreditCardView {
	return CreditCardView{
		ID:          c.s.ID,
		CustomerID:  c.s.CustomerID,
		CardNo:      MaskCardNumber(c.s.CardNo),
		ExpireAt:    expiryDate(c.s.ExpireAt),
		Limit:       c.s.Limit,
		CurrentDebt: c.s.CurrentDebt,
		Available:   c.Available(),
		Active:      c.s.Active,
	}
}

func (t *Transaction) View() TransactionView {
	return TransactionView{
		ID:                  t.ID,
		Type:                t.Type,
		Amount:              t.Amount,
		Note:                t.Note,
		AccountID:           t.AccountID,
		DebitCardID:         t.DebitCardID,
		CreditCardID:        t.CreditCardID,
		RelatedCreditCardID: t.RelatedCreditCardID,
		CreatedAt:           t.CreatedAt,
	}
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(field, s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, &ErrValidation{Field: field, Message: "must be a date formatted YYYY-MM-DD"}
	}
	return t, nil
}
