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

// CreateGroup persists a new group with its participants.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate IDs if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if group.CreatedAt == 0 {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO groups (id, name, description, owner_id, total_spent, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			group.ID, group.Name, group.Description, group.OwnerID, group.TotalSpent, group.CreatedAt, group.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		return insertParticipants(ctx, tx, group)
	})
}

func insertParticipants(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	for i := range group.Participants {
		p := &group.Participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.Color == "" {
			p.Color = models.DefaultColor
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_participants (group_id, id, position, user_id, name, color)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			group.ID, p.ID, i, nullString(p.UserID), p.Name, p.Color,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}

// GetGroup retrieves a group by ID, including its participants.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, owner_id, total_spent, created_at, updated_at
		 FROM groups WHERE id = ?`,
		groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &group.OwnerID, &group.TotalSpent, &group.CreatedAt, &group.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, color FROM group_participants
		 WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		var userID sql.NullString
		if err := rows.Scan(&p.ID, &userID, &p.Name, &p.Color); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.UserID = userID.String
		group.Participants = append(group.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return group, nil
}

// ListGroupsForUser retrieves the groups a user owns or participates in.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT g.id, g.created_at FROM groups g
		 LEFT JOIN group_participants p ON p.group_id = g.id
		 WHERE g.owner_id = ? OR p.user_id = ?
		 ORDER BY g.created_at DESC, g.id`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		var createdAt int64
		if err := rows.Scan(&id, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		group, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return groups, nil
}

// UpdateGroup updates a group's name, description and participants.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().Unix()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return updateGroup(ctx, tx, group)
	})
}

// RemoveParticipant stores the new roster and deletes the participant's shares in one transaction.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, group *models.Group, participantID string) error {
	group.UpdatedAt = time.Now().Unix()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateGroup(ctx, tx, group); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`DELETE FROM expense_shares WHERE participant_id = ?
			 AND expense_id IN (SELECT id FROM expenses WHERE group_id = ?)`,
			participantID, group.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove participant shares: %w", err)
		}
		return nil
	})
}

func updateGroup(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE groups SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		group.Name, group.Description, group.UpdatedAt, group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("group", group.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_participants WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}

	return insertParticipants(ctx, tx, group)
}

// SetGroupTotal stores the group's total spent.
func (s *SQLiteStore) SetGroupTotal(ctx context.Context, groupID string, total float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET total_spent = ?, updated_at = ? WHERE id = ?",
		total, time.Now().Unix(), groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group total: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("group", groupID)
	}
	return nil
}

// DeleteGroup removes a group. Participants, expenses and balances cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("group", groupID)
	}
	return nil
}
