package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
)

const balanceColumns = "id, group_id, debtor_id, debtor_name, creditor_id, creditor_name, amount, position, created_at, updated_at"

func scanBalance(row interface{ Scan(...any) error }) (*models.Balance, error) {
	b := &models.Balance{}
	err := row.Scan(&b.ID, &b.GroupID, &b.DebtorID, &b.DebtorName, &b.CreditorID, &b.CreditorName,
		&b.Amount, &b.Position, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// ListBalancesByGroup retrieves all balances for a group, largest first.
func (s *SQLiteStore) ListBalancesByGroup(ctx context.Context, groupID string) ([]*models.Balance, error) {
	return s.listBalances(ctx, groupID, "amount DESC, debtor_id, creditor_id")
}

// ListBalancesInOrder retrieves all balances for a group in the order they were written.
func (s *SQLiteStore) ListBalancesInOrder(ctx context.Context, groupID string) ([]*models.Balance, error) {
	return s.listBalances(ctx, groupID, "position, created_at")
}

func (s *SQLiteStore) listBalances(ctx context.Context, groupID, orderBy string) ([]*models.Balance, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+balanceColumns+" FROM balances WHERE group_id = ? ORDER BY "+orderBy,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances by group: %w", err)
	}
	defer rows.Close()

	var balances []*models.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}

	return balances, nil
}

// GetBalance retrieves the debtor->creditor balance of a group.
func (s *SQLiteStore) GetBalance(ctx context.Context, groupID, debtorID, creditorID string) (*models.Balance, error) {
	b, err := scanBalance(s.db.QueryRowContext(ctx,
		"SELECT "+balanceColumns+" FROM balances WHERE group_id = ? AND debtor_id = ? AND creditor_id = ?",
		groupID, debtorID, creditorID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return b, nil
}

// ReplaceGroupBalances swaps the group's balance set in one transaction,
// so readers never observe a group with its balances half rebuilt.
func (s *SQLiteStore) ReplaceGroupBalances(ctx context.Context, groupID string, balances []models.Balance) error {
	now := time.Now().Unix()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM balances WHERE group_id = ?", groupID); err != nil {
			return fmt.Errorf("failed to clear balances: %w", err)
		}

		for i, b := range balances {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO balances ("+balanceColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
				uuid.New().String(), groupID, b.DebtorID, b.DebtorName, b.CreditorID, b.CreditorName,
				b.Amount, i, now, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert balance: %w", err)
			}
		}
		return nil
	})
}

// ApplyPairAdjustment deletes and upserts the rows of a manual adjustment in one transaction.
// A new Upsert row gets its ID assigned.
func (s *SQLiteStore) ApplyPairAdjustment(ctx context.Context, adj models.PairAdjustment) error {
	now := time.Now().Unix()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if adj.Delete != nil {
			if _, err := tx.ExecContext(ctx, "DELETE FROM balances WHERE id = ?", adj.Delete.ID); err != nil {
				return fmt.Errorf("failed to delete balance: %w", err)
			}
		}

		b := adj.Upsert
		if b == nil {
			return nil
		}

		if b.ID != "" {
			res, err := tx.ExecContext(ctx,
				"UPDATE balances SET amount = ?, updated_at = ? WHERE id = ?",
				b.Amount, now, b.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to update balance: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return notFound("balance", b.ID)
			}
			b.UpdatedAt = now
			return nil
		}

		// New rows go after every existing row of the group.
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(position) + 1, 0) FROM balances WHERE group_id = ?", b.GroupID,
		).Scan(&b.Position); err != nil {
			return fmt.Errorf("failed to read balance position: %w", err)
		}

		b.ID = uuid.New().String()
		b.CreatedAt, b.UpdatedAt = now, now
		_, err := tx.ExecContext(ctx,
			"INSERT INTO balances ("+balanceColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			b.ID, b.GroupID, b.DebtorID, b.DebtorName, b.CreditorID, b.CreditorName,
			b.Amount, b.Position, b.CreatedAt, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert balance: %w", err)
		}
		return nil
	})
}
