// Package gormstore implements storage.Store on top of GORM with the SQLite dialect.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New opens the database at dbPath and migrates the schema.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&userRecord{},
		&groupRecord{},
		&participantRecord{},
		&expenseRecord{},
		&shareRecord{},
		&balanceRecord{},
	)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	rec := fromUser(user)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Where(query, arg).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User)
	if len(ids) == 0 {
		return users, nil
	}

	var recs []userRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	for _, rec := range recs {
		users[rec.ID] = rec.toModel()
	}
	return users, nil
}

// Groups

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if group.CreatedAt == 0 {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := groupRecord{
			ID:          group.ID,
			Name:        group.Name,
			Description: group.Description,
			OwnerID:     group.OwnerID,
			TotalSpent:  group.TotalSpent,
			CreatedAt:   group.CreatedAt,
			UpdatedAt:   group.UpdatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		return insertParticipants(tx, group)
	})
}

func insertParticipants(tx *gorm.DB, group *models.Group) error {
	if len(group.Participants) == 0 {
		return nil
	}

	recs := make([]participantRecord, len(group.Participants))
	for i := range group.Participants {
		p := &group.Participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.Color == "" {
			p.Color = models.DefaultColor
		}
		recs[i] = participantRecord{
			GroupID:  group.ID,
			ID:       p.ID,
			Position: i,
			UserID:   p.UserID,
			Name:     p.Name,
			Color:    p.Color,
		}
	}
	if err := tx.Create(&recs).Error; err != nil {
		return fmt.Errorf("failed to insert participants: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	db := s.db.WithContext(ctx)

	var rec groupRecord
	err := db.Where("id = ?", groupID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	var participants []participantRecord
	if err := db.Where("group_id = ?", groupID).Order("position").Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	return rec.toModel(participants), nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	db := s.db.WithContext(ctx)

	joined := db.Model(&participantRecord{}).Select("group_id").Where("user_id = ?", userID)
	var recs []groupRecord
	err := db.Where("owner_id = ?", userID).Or("id IN (?)", joined).
		Order("created_at DESC, id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(recs))
	if len(recs) == 0 {
		return groups, nil
	}

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	var participants []participantRecord
	if err := db.Where("group_id IN ?", ids).Order("group_id, position").Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	byGroup := make(map[string][]participantRecord, len(recs))
	for _, p := range participants {
		byGroup[p.GroupID] = append(byGroup[p.GroupID], p)
	}

	for _, rec := range recs {
		groups = append(groups, rec.toModel(byGroup[rec.ID]))
	}
	return groups, nil
}

func (s *Store) UpdateGroup(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().Unix()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateGroup(tx, group)
	})
}

func (s *Store) RemoveParticipant(ctx context.Context, group *models.Group, participantID string) error {
	group.UpdatedAt = time.Now().Unix()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateGroup(tx, group); err != nil {
			return err
		}
		expenseIDs := tx.Model(&expenseRecord{}).Select("id").Where("group_id = ?", group.ID)
		err := tx.Where("participant_id = ? AND expense_id IN (?)", participantID, expenseIDs).
			Delete(&shareRecord{}).Error
		if err != nil {
			return fmt.Errorf("failed to remove participant shares: %w", err)
		}
		return nil
	})
}

func updateGroup(tx *gorm.DB, group *models.Group) error {
	res := tx.Model(&groupRecord{}).Where("id = ?", group.ID).Updates(map[string]any{
		"name":        group.Name,
		"description": group.Description,
		"updated_at":  group.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("group", group.ID)
	}

	if err := tx.Where("group_id = ?", group.ID).Delete(&participantRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	return insertParticipants(tx, group)
}

func (s *Store) SetGroupTotal(ctx context.Context, groupID string, total float64) error {
	res := s.db.WithContext(ctx).Model(&groupRecord{}).Where("id = ?", groupID).Updates(map[string]any{
		"total_spent": total,
		"updated_at":  time.Now().Unix(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to set group total: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("group", groupID)
	}
	return nil
}

// DeleteGroup removes the group and everything that belongs to it.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", groupID).Delete(&groupRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete group: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("group", groupID)
		}

		expenseIDs := tx.Model(&expenseRecord{}).Select("id").Where("group_id = ?", groupID)
		if err := tx.Where("expense_id IN (?)", expenseIDs).Delete(&shareRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}
		for _, table := range []any{&expenseRecord{}, &balanceRecord{}, &participantRecord{}} {
			if err := tx.Where("group_id = ?", groupID).Delete(table).Error; err != nil {
				return fmt.Errorf("failed to delete group data: %w", err)
			}
		}
		return nil
	})
}

// Expenses

func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.Date == 0 {
		expense.Date = now
	}
	expense.CreatedAt = now
	expense.UpdatedAt = now

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := fromExpense(expense)
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
		return insertShares(tx, expense)
	})
}

func insertShares(tx *gorm.DB, expense *models.Expense) error {
	if len(expense.Shares) == 0 {
		return nil
	}

	recs := make([]shareRecord, len(expense.Shares))
	for i, share := range expense.Shares {
		recs[i] = shareRecord{
			ExpenseID:     expense.ID,
			Position:      i,
			ParticipantID: share.ParticipantID,
			Name:          share.Name,
			Amount:        share.Amount,
			Percentage:    share.Percentage,
		}
	}
	if err := tx.Create(&recs).Error; err != nil {
		return fmt.Errorf("failed to insert shares: %w", err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	db := s.db.WithContext(ctx)

	var rec expenseRecord
	err := db.Where("id = ?", expenseID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("expense", expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	var shares []shareRecord
	if err := db.Where("expense_id = ?", expenseID).Order("position").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	return rec.toModel(shares), nil
}

func (s *Store) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	expense.UpdatedAt = time.Now().Unix()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&expenseRecord{}).Where("id = ?", expense.ID).Updates(map[string]any{
			"amount":      expense.Amount,
			"description": expense.Description,
			"date":        expense.Date,
			"payer_id":    expense.PayerID,
			"payer_name":  expense.PayerName,
			"split_mode":  string(expense.SplitMode),
			"notes":       expense.Notes,
			"updated_at":  expense.UpdatedAt,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to update expense: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("expense", expense.ID)
		}

		if err := tx.Where("expense_id = ?", expense.ID).Delete(&shareRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear shares: %w", err)
		}
		return insertShares(tx, expense)
	})
}

func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", expenseID).Delete(&expenseRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete expense: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("expense", expenseID)
		}
		if err := tx.Where("expense_id = ?", expenseID).Delete(&shareRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}
		return nil
	})
}

func (s *Store) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.SearchExpenses(ctx, models.ExpenseFilter{GroupID: groupID})
}

// SearchExpenses applies every non-zero filter field, newest first.
func (s *Store) SearchExpenses(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&expenseRecord{})

	if filter.GroupID != "" {
		q = q.Where("group_id = ?", filter.GroupID)
	}
	if filter.ParticipantID != "" {
		q = q.Where("EXISTS (SELECT 1 FROM expense_shares s WHERE s.expense_id = expenses.id AND s.participant_id = ?)", filter.ParticipantID)
	}
	if filter.StartDate != 0 {
		q = q.Where("date >= ?", filter.StartDate)
	}
	if filter.EndDate != 0 {
		q = q.Where("date <= ?", filter.EndDate)
	}
	if filter.MinAmount != 0 {
		q = q.Where("amount >= ?", filter.MinAmount)
	}
	if filter.MaxAmount != 0 {
		q = q.Where("amount <= ?", filter.MaxAmount)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("(LOWER(description) LIKE ? OR LOWER(notes) LIKE ?)", pattern, pattern)
	}

	var recs []expenseRecord
	if err := q.Order("date DESC, created_at DESC, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	expenses := make([]*models.Expense, 0, len(recs))
	if len(recs) == 0 {
		return expenses, nil
	}

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	var shares []shareRecord
	if err := db.Where("expense_id IN ?", ids).Order("expense_id, position").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	byExpense := make(map[string][]shareRecord, len(recs))
	for _, sh := range shares {
		byExpense[sh.ExpenseID] = append(byExpense[sh.ExpenseID], sh)
	}

	for _, rec := range recs {
		expenses = append(expenses, rec.toModel(byExpense[rec.ID]))
	}
	return expenses, nil
}

func (s *Store) SumGroupExpenses(ctx context.Context, groupID string) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Model(&expenseRecord{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("group_id = ?", groupID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}

// Balances

func (s *Store) ListBalancesByGroup(ctx context.Context, groupID string) ([]*models.Balance, error) {
	return s.listBalances(ctx, groupID, "amount DESC, debtor_id, creditor_id")
}

func (s *Store) ListBalancesInOrder(ctx context.Context, groupID string) ([]*models.Balance, error) {
	return s.listBalances(ctx, groupID, "position, created_at")
}

func (s *Store) listBalances(ctx context.Context, groupID, order string) ([]*models.Balance, error) {
	var recs []balanceRecord
	err := s.db.WithContext(ctx).Where("group_id = ?", groupID).
		Order(order).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list balances by group: %w", err)
	}

	balances := make([]*models.Balance, len(recs))
	for i, rec := range recs {
		balances[i] = rec.toModel()
	}
	return balances, nil
}

func (s *Store) GetBalance(ctx context.Context, groupID, debtorID, creditorID string) (*models.Balance, error) {
	var rec balanceRecord
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND debtor_id = ? AND creditor_id = ?", groupID, debtorID, creditorID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Store) ReplaceGroupBalances(ctx context.Context, groupID string, balances []models.Balance) error {
	now := time.Now().Unix()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&balanceRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear balances: %w", err)
		}
		if len(balances) == 0 {
			return nil
		}

		recs := make([]balanceRecord, len(balances))
		for i := range balances {
			rec := fromBalance(&balances[i])
			rec.ID = uuid.New().String()
			rec.GroupID = groupID
			rec.Position = i
			rec.CreatedAt, rec.UpdatedAt = now, now
			recs[i] = rec
		}
		if err := tx.Create(&recs).Error; err != nil {
			return fmt.Errorf("failed to insert balances: %w", err)
		}
		return nil
	})
}

func (s *Store) ApplyPairAdjustment(ctx context.Context, adj models.PairAdjustment) error {
	now := time.Now().Unix()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if adj.Delete != nil {
			if err := tx.Where("id = ?", adj.Delete.ID).Delete(&balanceRecord{}).Error; err != nil {
				return fmt.Errorf("failed to delete balance: %w", err)
			}
		}

		b := adj.Upsert
		if b == nil {
			return nil
		}

		if b.ID != "" {
			res := tx.Model(&balanceRecord{}).Where("id = ?", b.ID).Updates(map[string]any{
				"amount":     b.Amount,
				"updated_at": now,
			})
			if res.Error != nil {
				return fmt.Errorf("failed to update balance: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return notFound("balance", b.ID)
			}
			b.UpdatedAt = now
			return nil
		}

		// New rows go after every existing row of the group.
		var next int
		if err := tx.Model(&balanceRecord{}).Where("group_id = ?", b.GroupID).
			Select("COALESCE(MAX(position) + 1, 0)").Scan(&next).Error; err != nil {
			return fmt.Errorf("failed to read balance position: %w", err)
		}

		b.ID = uuid.New().String()
		b.Position = next
		b.CreatedAt, b.UpdatedAt = now, now
		rec := fromBalance(b)
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to insert balance: %w", err)
		}
		return nil
	})
}
