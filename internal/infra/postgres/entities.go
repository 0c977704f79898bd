package postgres

import (
	"context"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Customers
// ============================================================

func (s *Store) InsertCustomer(ctx context.Context, c *domain.Customer) error {
	ctx, span := tracer.Start(ctx, "Postgres.InsertCustomer")
	defer span.End()

	return s.do(ctx, "insert customer", func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO customers (id, user_id, name, national_id, birth_date, birth_place, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.UserID, c.Name, c.NationalID, c.BirthDate, c.BirthPlace, c.CreatedAt)
		return err
	})
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	var c domain.Customer
	err := s.do(ctx, "get customer", func(ctx context.Context) error {
		err := s.pool.QueryRow(ctx, `
			SELECT id, user_id, name, national_id, birth_date, birth_place, created_at
			FROM customers WHERE id = $1`, id).
			Scan(&c.ID, &c.UserID, &c.Name, &c.NationalID, &c.BirthDate, &c.BirthPlace, &c.CreatedAt)
		return notFound(err, "customer", id)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ============================================================
// Accounts
// ============================================================

func (s *Store) InsertAccount(ctx context.Context, a *domain.Account) error {
	ctx, span := tracer.Start(ctx, "Postgres.InsertAccount")
	defer span.End()

	st := a.State()
	return s.do(ctx, "insert account", func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO accounts (id, customer_id, name, iban, balance, category, is_active, version, created_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
			st.ID, st.CustomerID, st.Name, st.IBAN, st.Balance.String(), string(st.Category), st.Active, st.Version, st.CreatedAt)
		return err
	})
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", id))

	var (
		st       domain.AccountState
		balance  string
		category string
	)
	err := s.do(ctx, "get account", func(ctx context.Context) error {
		err := s.pool.QueryRow(ctx, `
			SELECT id, customer_id, name, iban, balance::text, category, is_active, version, created_at
			FROM accounts WHERE id = $1`, id).
			Scan(&st.ID, &st.CustomerID, &st.Name, &st.IBAN, &balance, &category, &st.Active, &st.Version, &st.CreatedAt)
		return notFound(err, "account", id)
	})
	if err != nil {
		return nil, err
	}
	if st.Balance, err = parseDecimal("balance", balance); err != nil {
		return nil, err
	}
	st.Category = domain.AccountCategory(category)
	return domain.AccountFromState(st), nil
}

// ============================================================
// Cards
// ============================================================

func (s *Store) InsertDebitCard(ctx context.Context, c *domain.DebitCard) error {
	ctx, span := tracer.Start(ctx, "Postgres.InsertDebitCard")
	defer span.End()

	st := c.State()
	return s.do(ctx, "insert debit card", func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO debit_cards (id, account_id, card_no, expire_at, secret_hash, is_active, daily_limit, version, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)`,
			st.ID, st.AccountID, st.CardNo, st.ExpireAt, st.SecretHash, st.Active, st.DailyLimit.String(), st.Version, st.CreatedAt)
		return err
	})
}

func (s *Store) GetDebitCardByNumber(ctx context.Context, cardNo string) (*domain.DebitCard, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetDebitCardByNumber")
	defer span.End()

	var (
		st         domain.DebitCardState
		dailyLimit string
	)
	err := s.do(ctx, "get debit card", func(ctx context.Context) error {
		err := s.pool.QueryRow(ctx, `
			SELECT id, account_id, card_no, expire_at, secret_hash, is_active, daily_limit::text, version, created_at
			FROM debit_cards WHERE card_no = $1`, cardNo).
			Scan(&st.ID, &st.AccountID, &st.CardNo, &st.ExpireAt, &st.SecretHash, &st.Active, &dailyLimit, &st.Version, &st.CreatedAt)
		return notFound(err, "debit card", domain.MaskCardNumber(cardNo))
	})
	if err != nil {
		return nil, err
	}
	if st.DailyLimit, err = parseDecimal("daily_limit", dailyLimit); err != nil {
		return nil, err
	}
	return domain.DebitCardFromState(st), nil
}

func (s *Store) InsertCreditCard(ctx context.Context, c *domain.CreditCard) error {
	ctx, span := tracer.Start(ctx, "Postgres.InsertCreditCard")
	defer span.End()

	st := c.State()
	return s.do(ctx, "insert credit card", func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO credit_cards (id, customer_id, card_no, expire_at, secret_hash, credit_limit, current_debt, is_active, version, created_at)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10)`,
			st.ID, st.CustomerID, st.CardNo, st.ExpireAt, st.SecretHash, st.Limit.String(), st.CurrentDebt.String(), st.Active, st.Version, st.CreatedAt)
		return err
	})
}

func (s *Store) GetCreditCardByNumber(ctx context.Context, cardNo string) (*domain.CreditCard, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCreditCardByNumber")
	defer span.End()

	var (
		st          domain.CreditCardState
		limit, debt string
	)
	err := s.do(ctx, "get credit card", func(ctx context.Context) error {
		err := s.pool.QueryRow(ctx, `
			SELECT id, customer_id, card_no, expire_at, secret_hash, credit_limit::text, current_debt::text, is_active, version, created_at
			FROM credit_cards WHERE card_no = $1`, cardNo).
			Scan(&st.ID, &st.CustomerID, &st.CardNo, &st.ExpireAt, &st.SecretHash, &limit, &debt, &st.Active, &st.Version, &st.CreatedAt)
		return notFound(err, "credit card", domain.MaskCardNumber(cardNo))
	})
	if err != nil {
		return nil, err
	}
	if st.Limit, err = parseDecimal("credit_limit", limit); err != nil {
		return nil, err
	}
	if st.CurrentDebt, err = parseDecimal("current_debt", debt); err != nil {
		return nil, err
	}
	return domain.CreditCardFromState(st), nil
}
