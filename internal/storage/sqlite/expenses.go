package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
)

const expenseColumns = "id, group_id, amount, description, date, payer_id, payer_name, split_mode, notes, created_at, updated_at"

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	e := &models.Expense{}
	var mode string
	err := row.Scan(&e.ID, &e.GroupID, &e.Amount, &e.Description, &e.Date,
		&e.PayerID, &e.PayerName, &mode, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	e.SplitMode = models.SplitMode(mode)
	return e, err
}

// CreateExpense persists a new expense with its shares.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	if expense.Date == 0 {
		expense.Date = now
	}
	expense.UpdatedAt = now

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			expense.ID, expense.GroupID, expense.Amount, expense.Description, expense.Date,
			expense.PayerID, expense.PayerName, string(expense.SplitMode), expense.Notes,
			expense.CreatedAt, expense.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		return insertShares(ctx, tx, expense)
	})
}

func insertShares(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	for i, share := range expense.Shares {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expense_shares (expense_id, position, participant_id, name, amount, percentage)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			expense.ID, i, share.ParticipantID, share.Name, share.Amount, share.Percentage,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

// GetExpense retrieves an expense by ID, including its shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := scanExpense(s.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", expenseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("expense", expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	shares, err := loadShares(ctx, s.db, []string{expense.ID})
	if err != nil {
		return nil, err
	}
	expense.Shares = shares[expense.ID]

	return expense, nil
}

// UpdateExpense replaces an expense and all of its shares.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	expense.UpdatedAt = time.Now().Unix()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE expenses SET amount = ?, description = ?, date = ?, payer_id = ?, payer_name = ?,
			 split_mode = ?, notes = ?, updated_at = ? WHERE id = ?`,
			expense.Amount, expense.Description, expense.Date, expense.PayerID, expense.PayerName,
			string(expense.SplitMode), expense.Notes, expense.UpdatedAt, expense.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("expense", expense.ID)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_shares WHERE expense_id = ?", expense.ID); err != nil {
			return fmt.Errorf("failed to clear shares: %w", err)
		}

		return insertShares(ctx, tx, expense)
	})
}

// DeleteExpense removes an expense by ID. Shares cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("expense", expenseID)
	}
	return nil
}

// ListExpensesByGroup retrieves all expenses for a group.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.SearchExpenses(ctx, models.ExpenseFilter{GroupID: groupID})
}

// SearchExpenses retrieves expenses matching every non-zero field of the filter.
func (s *SQLiteStore) SearchExpenses(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error) {
	var where []string
	var args []any

	if filter.GroupID != "" {
		where = append(where, "e.group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.ParticipantID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM expense_shares s WHERE s.expense_id = e.id AND s.participant_id = ?)")
		args = append(args, filter.ParticipantID)
	}
	if filter.StartDate != 0 {
		where = append(where, "e.date >= ?")
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != 0 {
		where = append(where, "e.date <= ?")
		args = append(args, filter.EndDate)
	}
	if filter.MinAmount != 0 {
		where = append(where, "e.amount >= ?")
		args = append(args, filter.MinAmount)
	}
	if filter.MaxAmount != 0 {
		where = append(where, "e.amount <= ?")
		args = append(args, filter.MaxAmount)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, "(LOWER(e.description) LIKE ? OR LOWER(e.notes) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	query := "SELECT " + prefixed("e.", expenseColumns) + " FROM expenses e"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.date DESC, e.created_at DESC, e.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	var expenses []*models.Expense
	var ids []string
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
		ids = append(ids, expense.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	shares, err := loadShares(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		e.Shares = shares[e.ID]
	}

	return expenses, nil
}

// loadShares returns the ordered shares of each expense, keyed by expense ID.
func loadShares(ctx context.Context, q queryer, expenseIDs []string) (map[string][]models.Share, error) {
	shares := make(map[string][]models.Share, len(expenseIDs))
	if len(expenseIDs) == 0 {
		return shares, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT expense_id, participant_id, name, amount, percentage FROM expense_shares
		 WHERE expense_id IN (`+placeholders(len(expenseIDs))+`)
		 ORDER BY expense_id, position`,
		toArgs(expenseIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var share models.Share
		if err := rows.Scan(&expenseID, &share.ParticipantID, &share.Name, &share.Amount, &share.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares[expenseID] = append(shares[expenseID], share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}

	return shares, nil
}

// SumGroupExpenses returns the total amount of all expenses in a group.
func (s *SQLiteStore) SumGroupExpenses(ctx context.Context, groupID string) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE group_id = ?", groupID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}

// prefixed qualifies each column of a comma separated list.
func prefixed(prefix, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ", ")
}
