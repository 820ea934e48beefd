package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractsRepo is the local copy of the remote contract records. Reads are
// ordered by start date, then name, so the first record is the earliest.
type ContractsRepo struct {
	db *sql.DB
}

func NewContractsRepo(db *sql.DB) *ContractsRepo {
	return &ContractsRepo{db: db}
}

const selectContracts = `
SELECT name, contract_start_date, churn_date, payment_term, amount_arr, arr
FROM contracts
ORDER BY contract_start_date, name, position`

func (r *ContractsRepo) HasAny(ctx context.Context) (bool, error) {
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM contracts LIMIT 1)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cached contracts: %w", err)
	}
	return exists == 1, nil
}

// ReplaceSnapshot swaps the cached set for contracts in one transaction.
func (r *ContractsRepo) ReplaceSnapshot(ctx context.Context, contracts []revenue.Contract, fetchedAt time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin contracts snapshot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM contracts`); err != nil {
		return fmt.Errorf("clear cached contracts: %w", err)
	}

	fetchedValue := fetchedAt.UTC().Format(time.RFC3339Nano)
	const insert = `
INSERT INTO contracts (
	id,
	name,
	contract_start_date,
	churn_date,
	payment_term,
	amount_arr,
	arr,
	position,
	last_fetched_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	for i, c := range contracts {
		var churn any
		if c.ChurnDate != nil {
			churn = c.ChurnDate.Format(revenue.DateLayout)
		}
		if _, err = tx.ExecContext(
			ctx,
			insert,
			uuid.NewString(),
			c.Name,
			c.StartDate.Format(revenue.DateLayout),
			churn,
			string(c.PaymentTerm),
			c.AmountARR.String(),
			c.ARR.String(),
			i,
			fetchedValue,
		); err != nil {
			return fmt.Errorf("insert contract %q: %w", c.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit contracts snapshot transaction: %w", err)
	}
	return nil
}

func (r *ContractsRepo) AllRecords(ctx context.Context) ([]revenue.Contract, error) {
	rows, err := r.db.QueryContext(ctx, selectContracts)
	if err != nil {
		return nil, fmt.Errorf("query cached contracts: %w", err)
	}
	return scanContracts(rows)
}

func (r *ContractsRepo) PagedRecords(ctx context.Context, limit, offset int) ([]revenue.Contract, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("page limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("page offset must not be negative, got %d", offset)
	}
	rows, err := r.db.QueryContext(ctx, selectContracts+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query cached contracts page: %w", err)
	}
	return scanContracts(rows)
}

func (r *ContractsRepo) TotalRecords(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contracts`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count cached contracts: %w", err)
	}
	return total, nil
}

func scanContracts(rows *sql.Rows) ([]revenue.Contract, error) {
	defer rows.Close()

	out := []revenue.Contract{}
	for rows.Next() {
		var (
			c                   revenue.Contract
			start, term         string
			churn               sql.NullString
			amountARR, arrValue string
		)
		if err := rows.Scan(&c.Name, &start, &churn, &term, &amountARR, &arrValue); err != nil {
			return nil, fmt.Errorf("scan cached contract: %w", err)
		}

		var err error
		if c.StartDate, err = revenue.ParseDate(start); err != nil {
			return nil, fmt.Errorf("cached contract %q: %w", c.Name, err)
		}
		if churn.Valid {
			if c.ChurnDate, err = revenue.ParseChurnDate(churn.String); err != nil {
				return nil, fmt.Errorf("cached contract %q: %w", c.Name, err)
			}
		}
		if c.PaymentTerm, err = revenue.ParsePaymentTerm(term); err != nil {
			return nil, fmt.Errorf("cached contract %q: %w", c.Name, err)
		}
		if c.AmountARR, err = decimal.NewFromString(amountARR); err != nil {
			return nil, fmt.Errorf("cached contract %q amount_arr: %w", c.Name, err)
		}
		if c.ARR, err = decimal.NewFromString(arrValue); err != nil {
			return nil, fmt.Errorf("cached contract %q arr: %w", c.Name, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cached contracts: %w", err)
	}
	return out, nil
}
