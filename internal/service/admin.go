package service

import (
	"context"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Administration of owned entities
// ============================================================
//
// These change versioned entities, so they run under the conflict guard
// like money movement, but append no transaction.

// SetDebitCardDailyLimit replaces the card's daily spend limit.
func (s *LedgerService) SetDebitCardDailyLimit(ctx context.Context, cardNo string, limit decimal.Decimal) (*domain.DebitCardView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SetDebitCardDailyLimit")
	defer span.End()

	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	var updated *domain.DebitCard
	err = s.guarded(ctx, OpSetDailyLimit, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		card, _, err := s.ownedDebitCard(ctx, userID, cardNo)
		if err != nil {
			return err
		}
		if err := card.SetDailyLimit(limit); err != nil {
			return err
		}
		if err := s.store.Commit(ctx, &domain.Changeset{DebitCards: []*domain.DebitCard{card}}); err != nil {
			return err
		}
		updated = card
		return nil
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("debit card daily limit changed",
		zap.String("card", domain.MaskCardNumber(cardNo)),
		zap.String("daily_limit", limit.String()),
	)
	v := updated.View()
	return &v, nil
}

// SetAccountActive activates or deactivates an owned account.
func (s *LedgerService) SetAccountActive(ctx context.Context, accountID string, active bool) (*domain.AccountView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SetAccountActive")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID), attribute.Bool("active", active))

	var updated *domain.Account
	err := s.guarded(ctx, OpSetActive, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		account, err := s.ownedAccount(ctx, userID, accountID)
		if err != nil {
			return err
		}
		account.SetActive(active)
		if err := s.store.Commit(ctx, &domain.Changeset{Accounts: []*domain.Account{account}}); err != nil {
			return err
		}
		updated = account
		return nil
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account status changed", zap.String("account_id", accountID), zap.Bool("active", active))
	v := updated.View()
	return &v, nil
}

// SetDebitCardActive activates or deactivates an owned debit card.
func (s *LedgerService) SetDebitCardActive(ctx context.Context, cardNo string, active bool) (*domain.DebitCardView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SetDebitCardActive")
	defer span.End()

	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	var updated *domain.DebitCard
	err = s.guarded(ctx, OpSetActive, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		card, _, err := s.ownedDebitCard(ctx, userID, cardNo)
		if err != nil {
			return err
		}
		card.SetActive(active)
		if err := s.store.Commit(ctx, &domain.Changeset{DebitCards: []*domain.DebitCard{card}}); err != nil {
			return err
		}
		updated = card
		return nil
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("debit card status changed", zap.String("card", domain.MaskCardNumber(cardNo)), zap.Bool("active", active))
	v := updated.View()
	return &v, nil
}

// SetCreditCardActive activates or deactivates an owned credit card.
func (s *LedgerService) SetCreditCardActive(ctx context.Context, cardNo string, active bool) (*domain.CreditCardView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SetCreditCardActive")
	defer span.End()

	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return nil, err
	}

	var updated *domain.CreditCard
	err = s.guarded(ctx, OpSetActive, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		card, err := s.ownedCreditCard(ctx, userID, cardNo)
		if err != nil {
			return err
		}
		card.SetActive(active)
		if err := s.store.Commit(ctx, &domain.Changeset{CreditCards: []*domain.CreditCard{card}}); err != nil {
			return err
		}
		updated = card
		return nil
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit card status changed", zap.String("card", domain.MaskCardNumber(cardNo)), zap.Bool("active", active))
	v := updated.View()
	return &v, nil
}

// ChangeCardSecret verifies the current code and stores the hash of the new one.
func (s *LedgerService) ChangeCardSecret(ctx context.Context, kind domain.CardKind, cardNo, current, next string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ChangeCardSecret")
	defer span.End()
	span.SetAttributes(attribute.String("card.kind", string(kind)))

	cardNo, err := domain.NormalizeCardNumber(cardNo)
	if err != nil {
		recordSpan(span, err)
		return err
	}
	// Hashed once, outside the retry loop.
	hash, err := domain.HashSecret(next, s.cfg.SecretCost)
	if err != nil {
		recordSpan(span, err)
		return err
	}

	err = s.guarded(ctx, OpChangeCardSecret, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		switch kind {
		case domain.CardDebit:
			card, _, err := s.ownedDebitCard(ctx, userID, cardNo)
			if err != nil {
				return err
			}
			if err := card.VerifySecret(current); err != nil {
				return err
			}
			card.SetSecretHash(hash)
			return s.store.Commit(ctx, &domain.Changeset{DebitCards: []*domain.DebitCard{card}})
		case domain.CardCredit:
			card, err := s.ownedCreditCard(ctx, userID, cardNo)
			if err != nil {
				return err
			}
			if err := card.VerifySecret(current); err != nil {
				return err
			}
			card.SetSecretHash(hash)
			return s.store.Commit(ctx, &domain.Changeset{CreditCards: []*domain.CreditCard{card}})
		default:
			return &domain.ErrValidation{Field: "card", Message: "must be debit or credit"}
		}
	})
	recordSpan(span, err)
	if err != nil {
		return err
	}

	s.logger.Info("card secret changed", zap.String("card", domain.MaskCardNumber(cardNo)), zap.String("kind", string(kind)))
	return nil
}
