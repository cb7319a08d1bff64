// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

// ErrNotFound is returned (wrapped) when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UserStore persists registered users.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil and no error if no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil and no error if the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns a map of user ID to User. Unknown IDs are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore persists groups and their participants.
type GroupStore interface {
	// CreateGroup persists a new group. ID and timestamps are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForUser returns groups the user owns or participates in, newest first.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// UpdateGroup replaces name, description and participants.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// RemoveParticipant saves the group with its updated roster and drops the
	// participant's shares from every expense of the group, atomically.
	// Payer information on expenses is kept.
	RemoveParticipant(ctx context.Context, group *models.Group, participantID string) error

	// SetGroupTotal stores the sum of the group's expense amounts.
	SetGroupTotal(ctx context.Context, groupID string, total float64) error

	// DeleteGroup removes the group with its expenses and balances.
	DeleteGroup(ctx context.Context, groupID string) error
}

// ExpenseStore persists expenses and their shares.
type ExpenseStore interface {
	// CreateExpense persists a new expense. ID and timestamps are populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// UpdateExpense replaces all fields and shares of an existing expense.
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	DeleteExpense(ctx context.Context, expenseID string) error

	// ListExpensesByGroup returns every expense of a group with shares, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// SearchExpenses returns expenses matching the filter, newest first.
	SearchExpenses(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error)

	// SumGroupExpenses returns the total of all expense amounts in a group.
	SumGroupExpenses(ctx context.Context, groupID string) (float64, error)

}

// BalanceStore persists the balance projection of each group.
type BalanceStore interface {
	// ListBalancesByGroup returns balances sorted by amount, largest first.
	ListBalancesByGroup(ctx context.Context, groupID string) ([]*models.Balance, error)

	// ListBalancesInOrder returns balances in the order they were written:
	// the order of the last rebuild, followed by rows added by adjustments.
	ListBalancesInOrder(ctx context.Context, groupID string) ([]*models.Balance, error)

	// GetBalance returns the debtor->creditor row, or nil and no error if absent.
	GetBalance(ctx context.Context, groupID, debtorID, creditorID string) (*models.Balance, error)

	// ReplaceGroupBalances deletes every balance of the group and inserts the
	// given set, atomically.
	ReplaceGroupBalances(ctx context.Context, groupID string, balances []models.Balance) error

	// ApplyPairAdjustment applies a manual adjustment atomically.
	ApplyPairAdjustment(ctx context.Context, adj models.PairAdjustment) error
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (database/sql SQLite, GORM)
// without changing the service layer.
type Store interface {
	UserStore
	GroupStore
	ExpenseStore
	BalanceStore

	// Close releases any resources held by the store.
	Close() error
}
