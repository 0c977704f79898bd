package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Ledger transactions
// ============================================================

// TransactionType enumerates ledger entries.
type TransactionType string

const (
	TxDeposit           TransactionType = "deposit"
	TxWithdraw          TransactionType = "withdraw"
	TxDebitCardSpend    TransactionType = "debit_card_spend"
	TxCreditCardSpend   TransactionType = "credit_card_spend"
	TxCreditCardPayment TransactionType = "credit_card_payment"
)

// OwnerKind says which reference owns a transaction.
type OwnerKind string

const (
	OwnerAccount    OwnerKind = "account"
	OwnerDebitCard  OwnerKind = "debit_card"
	OwnerCreditCard OwnerKind = "credit_card"
)

// Owner is the single entity a transaction is booked against.
type Owner struct {
	Kind OwnerKind
	ID   string
}

func AccountOwner(id string) Owner    { return Owner{Kind: OwnerAccount, ID: id} }
func DebitCardOwner(id string) Owner  { return Owner{Kind: OwnerDebitCard, ID: id} }
func CreditCardOwner(id string) Owner { return Owner{Kind: OwnerCreditCard, ID: id} }

// Transaction is an immutable ledger entry. Exactly one of AccountID,
// DebitCardID, CreditCardID is set. RelatedCreditCardID is only filled on
// credit card payments and is not an owner reference.
type Transaction struct {
	ID                  string
	Type                TransactionType
	Amount              decimal.Decimal
	Note                string
	AccountID           string
	DebitCardID         string
	CreditCardID        string
	RelatedCreditCardID string
	CreatedAt           time.Time
}

// NewTransaction validates amount > 0 and a single non-empty owner.
func NewTransaction(id string, typ TransactionType, amount decimal.Decimal, note string, owner Owner, now time.Time) (*Transaction, error) {
	if err := RequirePositive(amount); err != nil {
		return nil, err
	}
	if owner.ID == "" {
		return nil, &ErrValidation{Field: "owner", Message: "exactly one owner reference must be set"}
	}
	tx := &Transaction{ID: id, Type: typ, Amount: amount, Note: note, CreatedAt: now}
	switch owner.Kind {
	case OwnerAccount:
		tx.AccountID = owner.ID
	case OwnerDebitCard:
		tx.DebitCardID = owner.ID
	case OwnerCreditCard:
		tx.CreditCardID = owner.ID
	default:
		return nil, &ErrValidation{Field: "owner", Message: "unknown owner kind " + string(owner.Kind)}
	}
	return tx, nil
}

// Owner returns the transaction's single owner reference.
func (t *Transaction) Owner() Owner {
	switch {
	case t.AccountID != "":
		return AccountOwner(t.AccountID)
	case t.DebitCardID != "":
		return DebitCardOwner(t.DebitCardID)
	default:
		return CreditCardOwner(t.CreditCardID)
	}
}

// TransactionQuery selects transactions of an owner created inside
// the half-open window [From, To). Empty Types matches every type.
type TransactionQuery struct {
	Owner Owner
	Types []TransactionType
	From  time.Time
	To    time.Time
	Limit int
}

// Matches reports whether tx satisfies q, ignoring Limit.
func (q TransactionQuery) Matches(tx *Transaction) bool {
	if tx.Owner() != q.Owner {
		return false
	}
	if tx.CreatedAt.Before(q.From) || !tx.CreatedAt.Before(q.To) {
		return false
	}
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if t == tx.Type {
			return true
		}
	}
	return false
}

// ============================================================
// Changeset
// ============================================================

// Changeset is one atomic write: version-checked entity updates plus the
// transactions they produced. Stores apply all of it or none of it.
type Changeset struct {
	Accounts     []*Account
	DebitCards   []*DebitCard
	CreditCards  []*CreditCard
	Transactions []*Transaction
}
