package service

import (
	"context"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// DefaultStatementLimit caps a statement when the caller gives no limit.
const DefaultStatementLimit = 50

// MaxStatementLimit is the largest accepted statement limit.
const MaxStatementLimit = 500

// ============================================================
// Read-only views
// ============================================================

// GetAccount returns an owned account.
func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (*domain.AccountView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetAccount")
	defer span.End()

	userID, err := s.caller(ctx)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	account, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	v := account.View()
	return &v, nil
}

// GetCreditCard returns an owned credit card with its available limit.
func (s *LedgerService) GetCreditCard(ctx context.Context, cardNo string) (*domain.CreditCardView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetCreditCard")
	defer span.End()

	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	userID, err := s.caller(ctx)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	card, err := s.ownedCreditCard(ctx, userID, cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	v := card.View()
	return &v, nil
}

// DebitCardSpendSummary totals today's and this month's debit card spend and
// what is left of today's limit.
func (s *LedgerService) DebitCardSpendSummary(ctx context.Context, cardNo string) (*domain.CardSpendSummary, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DebitCardSpendSummary")
	defer span.End()

	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	userID, err := s.caller(ctx)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	card, _, err := s.ownedDebitCard(ctx, userID, cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	summary, err := s.cardSpendSummary(ctx, domain.DebitCardOwner(card.ID()), domain.TxDebitCardSpend)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	summary.CardNo = domain.MaskCardNumber(cardNo)
	summary.Card = domain.CardDebit

	limit := card.DailyLimit()
	remaining := decimal.Max(limit.Sub(summary.TodaySpend), decimal.Zero)
	summary.DailyLimit = &limit
	summary.RemainingToday = &remaining
	return summary, nil
}

// CreditCardSpendSummary totals today's and this month's credit card spend.
func (s *LedgerService) CreditCardSpendSummary(ctx context.Context, cardNo string) (*domain.CardSpendSummary, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreditCardSpendSummary")
	defer span.End()

	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	userID, err := s.caller(ctx)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	card, err := s.ownedCreditCard(ctx, userID, cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	summary, err := s.cardSpendSummary(ctx, domain.CreditCardOwner(card.ID()), domain.TxCreditCardSpend)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	summary.CardNo = domain.MaskCardNumber(cardNo)
	summary.Card = domain.CardCredit
	return summary, nil
}

// cardSpendSummary sums the day and month windows concurrently.
func (s *LedgerService) cardSpendSummary(ctx context.Context, owner domain.Owner, typ domain.TransactionType) (*domain.CardSpendSummary, error) {
	now := s.now()
	day, month := dayWindow(now), monthWindow(now)

	summary := &domain.CardSpendSummary{
		Today:      day.from.Format(time.DateOnly),
		MonthStart: month.from.Format(time.DateOnly),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.spentInWindow(gctx, owner, typ, day)
		summary.TodaySpend = v
		return err
	})
	g.Go(func() error {
		v, err := s.spentInWindow(gctx, owner, typ, month)
		summary.MonthSpend = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// AccountSummary reports the account balance with transaction counts and
// deposit/withdraw totals for today and this month.
func (s *LedgerService) AccountSummary(ctx context.Context, accountID string) (*domain.AccountSummary, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AccountSummary")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	userID, err := s.caller(ctx)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	account, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	now := s.now()
	day, month := dayWindow(now), monthWindow(now)
	owner := domain.AccountOwner(account.ID())

	summary := &domain.AccountSummary{
		AccountID:  account.ID(),
		Balance:    account.Balance(),
		Today:      day.from.Format(time.DateOnly),
		MonthStart: month.from.Format(time.DateOnly),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range []struct {
		win     window
		count   *int
		in, out *decimal.Decimal
	}{
		{day, &summary.TodayCount, &summary.TodayIn, &summary.TodayOut},
		{month, &summary.MonthCount, &summary.MonthIn, &summary.MonthOut},
	} {
		w := w
		g.Go(func() error {
			n, err := s.store.CountTransactions(gctx, w.win.query(owner))
			*w.count = n
			return err
		})
		g.Go(func() error {
			v, err := s.spentInWindow(gctx, owner, domain.TxDeposit, w.win)
			*w.in = v
			return err
		})
		g.Go(func() error {
			v, err := s.spentInWindow(gctx, owner, domain.TxWithdraw, w.win)
			*w.out = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		recordSpan(span, err)
		return nil, err
	}
	return summary, nil
}

// Statement lists an owned account's transactions in [from, to), newest
// first. A zero from/to defaults to the current month; limit <= 0 uses
// DefaultStatementLimit.
func (s *LedgerService) Statement(ctx context.Context, accountID string, from, to time.Time, limit int) (*domain.Statement, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Statement")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	userID, err := s.caller(ctx)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}
	account, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	month := monthWindow(s.now())
	if from.IsZero() {
		from = month.from
	}
	if to.IsZero() {
		to = month.to
	}
	if !from.Before(to) {
		err := &domain.ErrValidation{Field: "from", Message: "must be before to"}
		recordSpan(span, err)
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultStatementLimit
	case limit > MaxStatementLimit:
		limit = MaxStatementLimit
	}

	txs, err := s.store.ListTransactions(ctx, domain.TransactionQuery{
		Owner: domain.AccountOwner(account.ID()),
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	st := &domain.Statement{
		AccountID:    account.ID(),
		From:         from,
		To:           to,
		Transactions: make([]domain.TransactionView, 0, len(txs)),
	}
	for _, tx := range txs {
		st.Transactions = append(st.Transactions, tx.View())
	}
	return st, nil
}
