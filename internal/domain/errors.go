package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the ledger.
//
// Every error exposes a Kind so callers (HTTP mapper, retry guard, tests)
// can tell failures apart without matching on message text.

// ErrorKind identifies a failure class.
type ErrorKind string

const (
	KindInvalidAmount       ErrorKind = "InvalidAmount"
	KindInvalidCardNumber   ErrorKind = "InvalidCardNumber"
	KindSecretRequired      ErrorKind = "SecretRequired"
	KindSecretFormatInvalid ErrorKind = "SecretFormatInvalid"
	KindInvalidDailyLimit   ErrorKind = "InvalidDailyLimit"
	KindInvalidInput        ErrorKind = "InvalidInput"

	KindAccountInactive     ErrorKind = "AccountInactive"
	KindCardInactive        ErrorKind = "CardInactive"
	KindCardExpired         ErrorKind = "CardExpired"
	KindInsufficientBalance ErrorKind = "InsufficientBalance"
	KindLimitExceeded       ErrorKind = "LimitExceeded"
	KindDailyLimitExceeded  ErrorKind = "DailyLimitExceeded"
	KindPaymentExceedsDebt  ErrorKind = "PaymentExceedsDebt"
	KindInvalidSecret       ErrorKind = "InvalidSecret"

	KindUnauthenticated ErrorKind = "Unauthenticated"
	KindNotFound        ErrorKind = "NotFound"
	KindNotOwned        ErrorKind = "NotOwned"
	KindDuplicate       ErrorKind = "Duplicate"

	KindConcurrencyConflict ErrorKind = "ConcurrencyConflict"
	KindVersionConflict     ErrorKind = "VersionConflict"
	KindCircuitOpen         ErrorKind = "CircuitOpen"

	KindUnknown ErrorKind = ""
)

type kinded interface {
	Kind() ErrorKind
}

// KindOf returns the kind of the first typed ledger error in err's chain,
// or KindUnknown.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// ============================================================
// Validation
// ============================================================

// ErrValidation indicates bad caller input. Code is one of the validation kinds.
type ErrValidation struct {
	Code    ErrorKind
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

func (e *ErrValidation) Kind() ErrorKind {
	if e.Code == "" {
		return KindInvalidInput
	}
	return e.Code
}

func invalidAmount(amount decimal.Decimal) error {
	return &ErrValidation{Code: KindInvalidAmount, Field: "amount", Message: fmt.Sprintf("must be greater than zero, got %s", amount)}
}

// ============================================================
// Ledger state
// ============================================================

// ErrAccountInactive indicates a deactivated account was asked to move money.
type ErrAccountInactive struct {
	AccountID string
}

func (e *ErrAccountInactive) Error() string {
	return fmt.Sprintf("account is not active: %s", e.AccountID)
}

func (e *ErrAccountInactive) Kind() ErrorKind { return KindAccountInactive }

// ErrCardInactive indicates a deactivated card.
type ErrCardInactive struct {
	Card CardKind
}

func (e *ErrCardInactive) Error() string {
	return fmt.Sprintf("%s card is not active", e.Card)
}

func (e *ErrCardInactive) Kind() ErrorKind { return KindCardInactive }

// ErrCardExpired indicates a card past its expiry date.
type ErrCardExpired struct {
	Card     CardKind
	ExpireAt string
}

func (e *ErrCardExpired) Error() string {
	return fmt.Sprintf("%s card expired at %s", e.Card, e.ExpireAt)
}

func (e *ErrCardExpired) Kind() ErrorKind { return KindCardExpired }

// ErrInsufficientFunds indicates not enough balance for the operation.
type ErrInsufficientFunds struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient balance: available=%s required=%s", e.Available.StringFixed(2), e.Required.StringFixed(2))
}

func (e *ErrInsufficientFunds) Kind() ErrorKind { return KindInsufficientBalance }

// ErrLimitExceeded indicates a credit card spend above the remaining limit.
type ErrLimitExceeded struct {
	Limit     decimal.Decimal
	Current   decimal.Decimal
	Requested decimal.Decimal
}

func (e *ErrLimitExceeded) Error() string {
	return fmt.Sprintf("limit exceeded: limit=%s current=%s requested=%s",
		e.Limit.StringFixed(2), e.Current.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *ErrLimitExceeded) Kind() ErrorKind { return KindLimitExceeded }

// ErrDailyLimitExceeded indicates a debit card spend above what is left of today's limit.
type ErrDailyLimitExceeded struct {
	Limit      decimal.Decimal
	SpentToday decimal.Decimal
	Requested  decimal.Decimal
}

func (e *ErrDailyLimitExceeded) Error() string {
	return fmt.Sprintf("daily limit exceeded: limit=%s spent_today=%s requested=%s",
		e.Limit.StringFixed(2), e.SpentToday.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *ErrDailyLimitExceeded) Kind() ErrorKind { return KindDailyLimitExceeded }

// ErrPaymentExceedsDebt indicates a credit card payment larger than the current debt.
type ErrPaymentExceedsDebt struct {
	CurrentDebt decimal.Decimal
	Requested   decimal.Decimal
}

func (e *ErrPaymentExceedsDebt) Error() string {
	return fmt.Sprintf("payment exceeds debt: current_debt=%s requested=%s",
		e.CurrentDebt.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *ErrPaymentExceedsDebt) Kind() ErrorKind { return KindPaymentExceedsDebt }

// ErrInvalidSecret indicates a card verification code mismatch.
type ErrInvalidSecret struct {
	Card CardKind
}

func (e *ErrInvalidSecret) Error() string {
	return fmt.Sprintf("invalid %s card verification code", e.Card)
}

func (e *ErrInvalidSecret) Kind() ErrorKind { return KindInvalidSecret }

// ============================================================
// Authorization
// ============================================================

// ErrUnauthorized indicates no authenticated identity or a bad token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

func (e *ErrUnauthorized) Kind() ErrorKind { return KindUnauthenticated }

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *ErrNotFound) Kind() ErrorKind { return KindNotFound }

// ErrForbidden indicates the caller does not own the resource.
type ErrForbidden struct {
	Resource string
	ID       string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s %s is not owned by caller", e.Resource, e.ID)
}

func (e *ErrForbidden) Kind() ErrorKind { return KindNotOwned }

// ErrDuplicate indicates a unique attribute (iban, card number, national id) already exists.
type ErrDuplicate struct {
	Resource string
	Key      string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Key)
}

func (e *ErrDuplicate) Kind() ErrorKind { return KindDuplicate }

// ============================================================
// Concurrency / infrastructure
// ============================================================

// ErrVersionConflict is returned by a store when an update's version token
// no longer matches. It never reaches callers: the retry guard turns it into
// ErrConflict after the last attempt.
type ErrVersionConflict struct {
	Resource string
	ID       string
}

func (e *ErrVersionConflict) Error() string {
	return fmt.Sprintf("version conflict on %s %s", e.Resource, e.ID)
}

func (e *ErrVersionConflict) Kind() ErrorKind { return KindVersionConflict }

// ErrConflict is the user-facing concurrency failure.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "the operation collided with another request, please try again"
}

func (e *ErrConflict) Kind() ErrorKind { return KindConcurrencyConflict }

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

func (e *ErrCircuitOpen) Kind() ErrorKind { return KindCircuitOpen }
