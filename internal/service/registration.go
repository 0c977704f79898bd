package service

import (
	"context"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"go.uber.org/zap"
)

const (
	OpCreateCustomer   = "create_customer"
	OpCreateAccount    = "create_account"
	OpCreateDebitCard  = "create_debit_card"
	OpCreateCreditCard = "create_credit_card"
)

// ============================================================
// Registration
// ============================================================

// CreateCustomer registers a customer owned by the caller. A national id can
// be registered once per identity.
func (s *LedgerService) CreateCustomer(ctx context.Context, req *domain.CreateCustomerRequest) (*domain.CustomerView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateCustomer")
	defer span.End()

	var created *domain.Customer
	err := s.guarded(ctx, OpCreateCustomer, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		birth, err := domain.ParseDate("birth_date", req.BirthDate, s.cfg.Location)
		if err != nil {
			return err
		}
		c, err := domain.NewCustomer(s.ids.NewID(), userID, req.Name, req.NationalID, birth, req.BirthPlace, s.now())
		if err != nil {
			return err
		}
		if err := s.store.InsertCustomer(ctx, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer created", zap.String("customer_id", created.ID))
	v := created.View()
	return &v, nil
}

// CreateAccount opens an account for an owned customer.
func (s *LedgerService) CreateAccount(ctx context.Context, req *domain.CreateAccountRequest) (*domain.AccountView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateAccount")
	defer span.End()

	var created *domain.Account
	err := s.guarded(ctx, OpCreateAccount, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		customer, err := s.ownedCustomer(ctx, userID, req.CustomerID)
		if err != nil {
			return err
		}
		category, err := domain.ParseAccountCategory(req.AccountType)
		if err != nil {
			return err
		}
		a, err := domain.NewAccount(s.ids.NewID(), customer.ID, req.Name, req.IBAN, category, req.InitialBalance, s.now())
		if err != nil {
			return err
		}
		if err := s.store.InsertAccount(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("account_id", created.ID()),
		zap.String("customer_id", created.CustomerID()),
	)
	v := created.View()
	return &v, nil
}

// CreateDebitCard issues a debit card on an owned account with the
// configured default daily limit.
func (s *LedgerService) CreateDebitCard(ctx context.Context, req *domain.CreateDebitCardRequest) (*domain.DebitCardView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateDebitCard")
	defer span.End()

	var created *domain.DebitCard
	err := s.guarded(ctx, OpCreateDebitCard, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		cardNo, err := domain.NormalizeCardNumber(req.CardNo)
		if err != nil {
			return err
		}
		account, err := s.ownedAccount(ctx, userID, req.AccountID)
		if err != nil {
			return err
		}
		expireAt, err := s.parseExpiry(req.ExpireAt)
		if err != nil {
			return err
		}
		hash, err := domain.HashSecret(req.Secret, s.cfg.SecretCost)
		if err != nil {
			return err
		}
		card, err := domain.NewDebitCard(s.ids.NewID(), account.ID(), cardNo, expireAt, hash, s.cfg.DefaultDailyLimit, s.now())
		if err != nil {
			return err
		}
		if err := s.store.InsertDebitCard(ctx, card); err != nil {
			return err
		}
		created = card
		return nil
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("debit card created",
		zap.String("card_id", created.ID()),
		zap.String("account_id", created.AccountID()),
	)
	v := created.View()
	return &v, nil
}

// CreateCreditCard issues a credit card with zero debt to an owned customer.
func (s *LedgerService) CreateCreditCard(ctx context.Context, req *domain.CreateCreditCardRequest) (*domain.CreditCardView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateCreditCard")
	defer span.End()

	var created *domain.CreditCard
	err := s.guarded(ctx, OpCreateCreditCard, func(ctx context.Context) error {
		userID, err := s.caller(ctx)
		if err != nil {
			return err
		}
		cardNo, err := domain.NormalizeCardNumber(req.CardNo)
		if err != nil {
			return err
		}
		customer, err := s.ownedCustomer(ctx, userID, req.CustomerID)
		if err != nil {
			return err
		}
		expireAt, err := s.parseExpiry(req.ExpireAt)
		if err != nil {
			return err
		}
		hash, err := domain.HashSecret(req.Secret, s.cfg.SecretCost)
		if err != nil {
			return err
		}
		card, err := domain.NewCreditCard(s.ids.NewID(), customer.ID, cardNo, expireAt, hash, req.Limit, s.now())
		if err != nil {
			return err
		}
		if err := s.store.InsertCreditCard(ctx, card); err != nil {
			return err
		}
		created = card
		return nil
	})
	recordSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit card created",
		zap.String("card_id", created.ID()),
		zap.String("customer_id", created.CustomerID()),
	)
	v := created.View()
	return &v, nil
}

// parseExpiry turns a YYYY-MM-DD expiry date into the midnight that ends
// it, so a card is usable through its whole expiry date. Past dates are
// rejected.
func (s *LedgerService) parseExpiry(raw string) (time.Time, error) {
	day, err := domain.ParseDate("expire_at", raw, s.cfg.Location)
	if err != nil {
		return time.Time{}, err
	}
	expireAt := day.AddDate(0, 0, 1)
	if !s.now().Before(expireAt) {
		return time.Time{}, &domain.ErrValidation{Field: "expire_at", Message: "must not be in the past"}
	}
	return expireAt, nil
}
