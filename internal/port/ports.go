// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// CustomerStore persists customers. Finds return *domain.ErrNotFound when
// the customer does not exist.
type CustomerStore interface {
	InsertCustomer(ctx context.Context, c *domain.Customer) error
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
}

// AccountStore persists accounts. InsertAccount returns *domain.ErrDuplicate
// when the IBAN is taken.
type AccountStore interface {
	InsertAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}

// CardStore persists debit and credit cards, looked up by card number.
type CardStore interface {
	InsertDebitCard(ctx context.Context, c *domain.DebitCard) error
	GetDebitCardByNumber(ctx context.Context, cardNo string) (*domain.DebitCard, error)
	InsertCreditCard(ctx context.Context, c *domain.CreditCard) error
	GetCreditCardByNumber(ctx context.Context, cardNo string) (*domain.CreditCard, error)
}

// TransactionReader answers Spend Accounting queries. No matching rows is
// a zero sum, never an error.
type TransactionReader interface {
	SumTransactions(ctx context.Context, q domain.TransactionQuery) (decimal.Decimal, error)
	CountTransactions(ctx context.Context, q domain.TransactionQuery) (int, error)
	// ListTransactions returns matches newest first, at most q.Limit when positive.
	ListTransactions(ctx context.Context, q domain.TransactionQuery) ([]*domain.Transaction, error)
}

// LedgerStore is the full persistence port of the ledger.
//
// Commit applies a changeset atomically. Each entity in it is written only
// if its stored version still equals the version it was loaded with; the
// stored version is then incremented. On any mismatch nothing is written
// and *domain.ErrVersionConflict is returned.
type LedgerStore interface {
	CustomerStore
	AccountStore
	CardStore
	TransactionReader
	Commit(ctx context.Context, cs *domain.Changeset) error
	Ping(ctx context.Context) error
}

// Clock supplies "now" for expiry checks and spend windows.
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies opaque unique identifiers.
type IDGenerator interface {
	NewID() string
}

// IdentityProvider yields the authenticated caller's stable identity.
type IdentityProvider interface {
	Identity(ctx context.Context) (string, bool)
}
