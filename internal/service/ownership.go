package service

import (
	"context"

	"github.com/boddenberg/bank-ledger-go/internal/domain"
)

// ============================================================
// Ownership resolver
// ============================================================
//
// Every operation walks the chain from the target entity up to the owning
// identity on each call. Nothing is cached between calls: a failed link is
// NotFound, a foreign owner is NotOwned.

func (s *LedgerService) caller(ctx context.Context) (string, error) {
	userID, ok := s.identity.Identity(ctx)
	if !ok {
		return "", &domain.ErrUnauthorized{Message: "no authenticated identity"}
	}
	return userID, nil
}

func (s *LedgerService) ownedCustomer(ctx context.Context, userID, customerID string) (*domain.Customer, error) {
	c, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !c.OwnedBy(userID) {
		return nil, &domain.ErrForbidden{Resource: "customer", ID: customerID}
	}
	return c, nil
}

// ownedAccount resolves account → customer → identity.
func (s *LedgerService) ownedAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.GetCustomer(ctx, a.CustomerID())
	if err != nil {
		return nil, err
	}
	if !c.OwnedBy(userID) {
		return nil, &domain.ErrForbidden{Resource: "account", ID: accountID}
	}
	return a, nil
}

// ownedDebitCard resolves card → account → customer → identity and returns
// the card together with its account.
func (s *LedgerService) ownedDebitCard(ctx context.Context, userID, cardNo string) (*domain.DebitCard, *domain.Account, error) {
	card, err := s.store.GetDebitCardByNumber(ctx, cardNo)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.store.GetAccount(ctx, card.AccountID())
	if err != nil {
		return nil, nil, err
	}
	c, err := s.store.GetCustomer(ctx, a.CustomerID())
	if err != nil {
		return nil, nil, err
	}
	if !c.OwnedBy(userID) {
		return nil, nil, &domain.ErrForbidden{Resource: "debit card", ID: domain.MaskCardNumber(cardNo)}
	}
	return card, a, nil
}

// ownedCreditCard resolves card → customer → identity.
func (s *LedgerService) ownedCreditCard(ctx context.Context, userID, cardNo string) (*domain.CreditCard, error) {
	card, err := s.store.GetCreditCardByNumber(ctx, cardNo)
	if err != nil {
		return nil, err
	}
	c, err := s.store.GetCustomer(ctx, card.CustomerID())
	if err != nil {
		return nil, err
	}
	if !c.OwnedBy(userID) {
		return nil, &domain.ErrForbidden{Resource: "credit card", ID: domain.MaskCardNumber(cardNo)}
	}
	return card, nil
}
