package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/lock"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ledger serializes changes to a group and keeps its derived state (balances
// and total spent) in step with its expenses.
type Ledger struct {
	store   storage.Store
	locker  lock.Locker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewLedger creates a Ledger. A nil locker falls back to an in-process lock.
func NewLedger(store storage.Store, locker lock.Locker, m *metrics.Metrics, logger *slog.Logger) *Ledger {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:   store,
		locker:  locker,
		metrics: m,
		logger:  logger,
	}
}

// Locked runs fn while holding the group's lock.
func (l *Ledger) Locked(ctx context.Context, groupID string, fn func(ctx context.Context) error) error {
	return l.locker.WithLock(ctx, lock.GroupBalancesKey(groupID), fn)
}

// Mutate runs fn under the group's lock and then rebuilds the group's
// balances and total from its expenses. Nothing is rebuilt if fn fails.
func (l *Ledger) Mutate(ctx context.Context, groupID string, fn func(ctx context.Context) error) error {
	return l.Locked(ctx, groupID, func(ctx context.Context) error {
		if fn != nil {
			if err := fn(ctx); err != nil {
				return err
			}
		}

		start := time.Now()
		err := l.rebuild(ctx, groupID)
		l.metrics.ObserveRecompute(start, err)
		return err
	})
}

// rebuild replaces the group's balance set. Callers hold the group's lock.
func (l *Ledger) rebuild(ctx context.Context, groupID string) error {
	expenses, err := l.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load expenses: %w", err)
	}

	balances := calculator.CalculateBalances(derefExpenses(expenses), groupID)
	if err := l.store.ReplaceGroupBalances(ctx, groupID, balances); err != nil {
		return fmt.Errorf("failed to replace balances: %w", err)
	}

	total, err := l.store.SumGroupExpenses(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to sum expenses: %w", err)
	}
	if err := l.store.SetGroupTotal(ctx, groupID, calculator.RoundAmount(total)); err != nil {
		return fmt.Errorf("failed to update group total: %w", err)
	}

	l.logger.Debug("Balances rebuilt",
		"group_id", groupID,
		"expenses_count", len(expenses),
		"balances_count", len(balances),
		"total_spent", total,
	)
	return nil
}

// Adjust records that debtor owes creditor delta more, netting against any
// debt in the opposite direction. It returns the row left for the pair, or
// nil when the pair is settled.
func (l *Ledger) Adjust(ctx context.Context, groupID string, debtor, creditor models.PartyRef, delta float64) (*models.Balance, error) {
	var result *models.Balance
	err := l.Locked(ctx, groupID, func(ctx context.Context) error {
		forward, err := l.store.GetBalance(ctx, groupID, debtor.ID, creditor.ID)
		if err != nil {
			return err
		}
		reverse, err := l.store.GetBalance(ctx, groupID, creditor.ID, debtor.ID)
		if err != nil {
			return err
		}

		adj, err := calculator.AdjustPair(groupID, forward, reverse, delta, debtor, creditor)
		if err != nil {
			return err
		}
		if err := l.store.ApplyPairAdjustment(ctx, adj); err != nil {
			return fmt.Errorf("failed to apply adjustment: %w", err)
		}

		result = adj.Upsert
		l.metrics.BalanceAdjusted()
		return nil
	})
	return result, err
}
