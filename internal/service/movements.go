package service

import (
	"context"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Operation names used in metrics and logs.
const (
	OpDeposit          = "deposit"
	OpWithdraw         = "withdraw"
	OpDebitCardSpend   = "debit_card_spend"
	OpCreditCardSpend  = "credit_card_spend"
	OpCreditCardPay    = "credit_card_pay"
	OpSetDailyLimit    = "set_daily_limit"
	OpSetActive        = "set_active"
	OpChangeCardSecret = "change_card_secret"
)

// ============================================================
// Money movement
// ============================================================
//
// Each operation runs Resolve&Authorize → EnsureUsable → VerifySecret →
// window spend → invariant check → mutate → commit, inside the conflict
// guard. The entity update and its transaction are committed together.

// Deposit credits an owned account.
func (s *LedgerService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, note string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Deposit")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var tx *domain.Transaction
	err := s.guarded(ctx, OpDeposit, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		account, err := s.ownedAccount(ctx, userID, accountID)
		if err != nil {
			return err
		}
		if err := account.Deposit(amount); err != nil {
			return err
		}
		tx, err = s.newTransaction(domain.TxDeposit, amount, note, domain.AccountOwner(account.ID()))
		if err != nil {
			return err
		}
		return s.store.Commit(ctx, &domain.Changeset{
			Accounts:     []*domain.Account{account},
			Transactions: []*domain.Transaction{tx},
		})
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit completed",
		zap.String("account_id", accountID),
		zap.String("amount", amount.String()),
		zap.String("transaction_id", tx.ID),
	)
	return tx, nil
}

// Withdraw debits an owned account. The balance never goes negative.
func (s *LedgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, note string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Withdraw")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var tx *domain.Transaction
	err := s.guarded(ctx, OpWithdraw, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		account, err := s.ownedAccount(ctx, userID, accountID)
		if err != nil {
			return err
		}
		if err := account.Withdraw(amount); err != nil {
			return err
		}
		tx, err = s.newTransaction(domain.TxWithdraw, amount, note, domain.AccountOwner(account.ID()))
		if err != nil {
			return err
		}
		return s.store.Commit(ctx, &domain.Changeset{
			Accounts:     []*domain.Account{account},
			Transactions: []*domain.Transaction{tx},
		})
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdraw completed",
		zap.String("account_id", accountID),
		zap.String("amount", amount.String()),
		zap.String("transaction_id", tx.ID),
	)
	return tx, nil
}

// DebitCardSpend pays from the card's account, capped by the card's daily
// limit over [today 00:00, tomorrow 00:00).
func (s *LedgerService) DebitCardSpend(ctx context.Context, cardNo, secret string, amount decimal.Decimal, note string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DebitCardSpend")
	defer span.End()

	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	var tx *domain.Transaction
	err = s.guarded(ctx, OpDebitCardSpend, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		card, account, err := s.ownedDebitCard(ctx, userID, cardNo)
		if err != nil {
			return err
		}
		now := s.now()
		if err := card.EnsureUsable(now); err != nil {
			return err
		}
		if err := card.VerifySecret(secret); err != nil {
			return err
		}
		owner := domain.DebitCardOwner(card.ID())
		spentToday, err := s.spentInWindow(ctx, owner, domain.TxDebitCardSpend, dayWindow(now))
		if err != nil {
			return err
		}
		if err := card.CheckDailyLimit(spentToday, amount); err != nil {
			return err
		}
		if err := account.Withdraw(amount); err != nil {
			return err
		}
		tx, err = s.newTransaction(domain.TxDebitCardSpend, amount, note, owner)
		if err != nil {
			return err
		}
		// The card rides along unchanged so a concurrent block, limit or
		// secret change fails this commit.
		return s.store.Commit(ctx, &domain.Changeset{
			Accounts:     []*domain.Account{account},
			DebitCards:   []*domain.DebitCard{card},
			Transactions: []*domain.Transaction{tx},
		})
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("debit card spend completed",
		zap.String("card", domain.MaskCardNumber(cardNo)),
		zap.String("amount", amount.String()),
		zap.String("transaction_id", tx.ID),
	)
	return tx, nil
}

// CreditCardSpend adds to the card's debt up to its limit.
func (s *LedgerService) CreditCardSpend(ctx context.Context, cardNo, secret string, amount decimal.Decimal, note string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreditCardSpend")
	defer span.End()

	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	var tx *domain.Transaction
	err = s.guarded(ctx, OpCreditCardSpend, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		card, err := s.ownedCreditCard(ctx, userID, cardNo)
		if err != nil {
			return err
		}
		now := s.now()
		if err := card.EnsureUsable(now); err != nil {
			return err
		}
		if err := card.VerifySecret(secret); err != nil {
			return err
		}
		if err := card.Spend(amount, now); err != nil {
			return err
		}
		tx, err = s.newTransaction(domain.TxCreditCardSpend, amount, note, domain.CreditCardOwner(card.ID()))
		if err != nil {
			return err
		}
		return s.store.Commit(ctx, &domain.Changeset{
			CreditCards:  []*domain.CreditCard{card},
			Transactions: []*domain.Transaction{tx},
		})
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit card spend completed",
		zap.String("card", domain.MaskCardNumber(cardNo)),
		zap.String("amount", amount.String()),
		zap.String("transaction_id", tx.ID),
	)
	return tx, nil
}

// CreditCardPay moves amount from an owned account onto an owned card's
// debt. The payment must fit both the balance and the current debt; the
// account and the card are committed together.
func (s *LedgerService) CreditCardPay(ctx context.Context, cardNo, secret, accountID string, amount decimal.Decimal, note string) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreditCardPay")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	if err := domain.RequirePositive(amount); err != nil {
		recordSpan(span, err)
		return nil, err
	}
	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	var tx *domain.Transaction
	err = s.guarded(ctx, OpCreditCardPay, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		card, err := s.ownedCreditCard(ctx, userID, cardNo)
		if err != nil {
			return err
		}
		account, err := s.ownedAccount(ctx, userID, accountID)
		if err != nil {
			return err
		}
		if err := card.EnsureUsable(s.now()); err != nil {
			return err
		}
		if err := card.VerifySecret(secret); err != nil {
			return err
		}
		if account.Balance().LessThan(amount) {
			return &domain.ErrInsufficientFunds{Available: account.Balance(), Required: amount}
		}
		if card.CurrentDebt().LessThan(amount) {
			return &domain.ErrPaymentExceedsDebt{CurrentDebt: card.CurrentDebt(), Requested: amount}
		}
		if err := account.Withdraw(amount); err != nil {
			return err
		}
		if _, err := card.Pay(amount); err != nil {
			return err
		}
		tx, err = s.newTransaction(domain.TxCreditCardPayment, amount, note, domain.AccountOwner(account.ID()))
		if err != nil {
			return err
		}
		tx.RelatedCreditCardID = card.ID()
		return s.store.Commit(ctx, &domain.Changeset{
			Accounts:     []*domain.Account{account},
			CreditCards:  []*domain.CreditCard{card},
			Transactions: []*domain.Transaction{tx},
		})
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit card payment completed",
		zap.String("card", domain.MaskCardNumber(cardNo)),
		zap.String("account_id", accountID),
		zap.String("amount", amount.String()),
		zap.String("transaction_id", tx.ID),
	)
	return tx, nil
}

func (s *LedgerService) newTransaction(typ domain.TransactionType, amount decimal.Decimal, note string, owner domain.Owner) (*domain.Transaction, error) {
	return domain.NewTransaction(s.ids.NewID(), typ, amount, note, owner, s.now())
}
