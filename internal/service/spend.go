package service

import (
	"context"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// Spend accounting
// ============================================================

// window is a half-open interval [from, to).
type window struct {
	from, to time.Time
}

// dayWindow is [today 00:00, tomorrow 00:00) in now's location.
func dayWindow(now time.Time) window {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return window{from: start, to: start.AddDate(0, 0, 1)}
}

// monthWindow is [first of month 00:00, first of next month 00:00).
func monthWindow(now time.Time) window {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return window{from: start, to: start.AddDate(0, 1, 0)}
}

func (w window) query(owner domain.Owner, types ...domain.TransactionType) domain.TransactionQuery {
	return domain.TransactionQuery{Owner: owner, Types: types, From: w.from, To: w.to}
}

// spentInWindow sums owner's transactions of the given type inside w.
// No matching transactions is zero.
func (s *LedgerService) spentInWindow(ctx context.Context, owner domain.Owner, typ domain.TransactionType, w window) (decimal.Decimal, error) {
	return s.store.SumTransactions(ctx, w.query(owner, typ))
}
