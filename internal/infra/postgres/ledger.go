package postgres

import (
	"context"
	"fmt"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Transaction queries
// ============================================================

// ownerColumn maps an owner kind to its column. Kinds are a closed set, so
// the returned name is safe to splice into SQL.
func ownerColumn(o domain.Owner) (string, error) {
	switch o.Kind {
	case domain.OwnerAccount:
		return "account_id", nil
	case domain.OwnerDebitCard:
		return "debit_card_id", nil
	case domain.OwnerCreditCard:
		return "credit_card_id", nil
	}
	return "", &domain.ErrValidation{Field: "owner", Message: "unknown owner kind " + string(o.Kind)}
}

// where builds the shared filter; args are $1 owner, $2 from, $3 to, $4 types.
func where(q domain.TransactionQuery) (string, []any, error) {
	col, err := ownerColumn(q.Owner)
	if err != nil {
		return "", nil, err
	}
	var types []string
	for _, t := range q.Types {
		types = append(types, string(t))
	}
	clause := fmt.Sprintf(`%s = $1 AND created_at >= $2 AND created_at < $3 AND ($4::text[] IS NULL OR type = ANY($4))`, col)
	return clause, []any{q.Owner.ID, q.From, q.To, types}, nil
}

func (s *Store) SumTransactions(ctx context.Context, q domain.TransactionQuery) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "Postgres.SumTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("owner.kind", string(q.Owner.Kind)))

	clause, args, err := where(q)
	if err != nil {
		return decimal.Zero, err
	}
	var raw string
	err = s.do(ctx, "sum transactions", func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM transactions WHERE `+clause, args...).Scan(&raw)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return parseDecimal("sum", raw)
}

func (s *Store) CountTransactions(ctx context.Context, q domain.TransactionQuery) (int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CountTransactions")
	defer span.End()

	clause, args, err := where(q)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.do(ctx, "count transactions", func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+clause, args...).Scan(&n)
	})
	return n, err
}

// ListTransactions returns matches newest first; Limit <= 0 means all.
func (s *Store) ListTransactions(ctx context.Context, q domain.TransactionQuery) ([]*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListTransactions")
	defer span.End()

	clause, args, err := where(q)
	if err != nil {
		return nil, err
	}
	var limit *int
	if q.Limit > 0 {
		limit = &q.Limit
	}
	args = append(args, limit)

	var out []*domain.Transaction
	err = s.do(ctx, "list transactions", func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, type, amount::text, note, account_id, debit_card_id, credit_card_id, related_credit_card_id, created_at
			FROM transactions WHERE `+clause+`
			ORDER BY created_at DESC, id DESC
			LIMIT $5`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var (
				tx                          domain.Transaction
				typ, amount                 string
				account, debit, credit, rel *string
			)
			if err := rows.Scan(&tx.ID, &typ, &amount, &tx.Note, &account, &debit, &credit, &rel, &tx.CreatedAt); err != nil {
				return err
			}
			if tx.Amount, err = parseDecimal("amount", amount); err != nil {
				return err
			}
			tx.Type = domain.TransactionType(typ)
			tx.AccountID, tx.DebitCardID, tx.CreditCardID, tx.RelatedCreditCardID = deref(account), deref(debit), deref(credit), deref(rel)
			out = append(out, &tx)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================
// Commit
// ============================================================

// Commit applies a changeset in one database transaction. Each entity
// update matches on its version; zero affected rows is a version conflict
// and rolls everything back.
func (s *Store) Commit(ctx context.Context, cs *domain.Changeset) error {
	ctx, span := tracer.Start(ctx, "Postgres.Commit")
	defer span.End()
	span.SetAttributes(
		attribute.Int("changeset.accounts", len(cs.Accounts)),
		attribute.Int("changeset.transactions", len(cs.Transactions)),
	)

	return s.do(ctx, "commit", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			for _, a := range cs.Accounts {
				st := a.State()
				tag, err := tx.Exec(ctx, `
					UPDATE accounts SET name = $1, balance = $2::numeric, is_active = $3, version = version + 1
					WHERE id = $4 AND version = $5`,
					st.Name, st.Balance.String(), st.Active, st.ID, st.Version)
				if err != nil {
					return err
				}
				if tag.RowsAffected() == 0 {
					return &domain.ErrVersionConflict{Resource: "account", ID: st.ID}
				}
			}
			for _, c := range cs.DebitCards {
				st := c.State()
				tag, err := tx.Exec(ctx, `
					UPDATE debit_cards SET secret_hash = $1, is_active = $2, daily_limit = $3::numeric, version = version + 1
					WHERE id = $4 AND version = $5`,
					st.SecretHash, st.Active, st.DailyLimit.String(), st.ID, st.Version)
				if err != nil {
					return err
				}
				if tag.RowsAffected() == 0 {
					return &domain.ErrVersionConflict{Resource: "debit card", ID: st.ID}
				}
			}
			for _, c := range cs.CreditCards {
				st := c.State()
				tag, err := tx.Exec(ctx, `
					UPDATE credit_cards SET secret_hash = $1, is_active = $2, current_debt = $3::numeric, version = version + 1
					WHERE id = $4 AND version = $5`,
					st.SecretHash, st.Active, st.CurrentDebt.String(), st.ID, st.Version)
				if err != nil {
					return err
				}
				if tag.RowsAffected() == 0 {
					return &domain.ErrVersionConflict{Resource: "credit card", ID: st.ID}
				}
			}
			for _, t := range cs.Transactions {
				_, err := tx.Exec(ctx, `
					INSERT INTO transactions (id, type, amount, note, account_id, debit_card_id, credit_card_id, related_credit_card_id, created_at)
					VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)`,
					t.ID, string(t.Type), t.Amount.String(), t.Note,
					nullable(t.AccountID), nullable(t.DebitCardID), nullable(t.CreditCardID), nullable(t.RelatedCreditCardID),
					t.CreatedAt)
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
}
