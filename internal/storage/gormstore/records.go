package gormstore

import "github.com/mmynk/splitledger/internal/models"

// Table records mirror the database/sql schema so both backends can open the same file layout.

type userRecord struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	DisplayName  string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    int64
	UpdatedAt    int64
}

func (userRecord) TableName() string { return "users" }

type groupRecord struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string `gorm:"not null;default:''"`
	OwnerID     string `gorm:"index;not null"`
	TotalSpent  float64
	CreatedAt   int64
	UpdatedAt   int64
}

func (groupRecord) TableName() string { return "groups" }

type participantRecord struct {
	GroupID  string `gorm:"primaryKey"`
	ID       string `gorm:"primaryKey"`
	Position int
	UserID   string `gorm:"index"`
	Name     string `gorm:"not null"`
	Color    string `gorm:"not null"`
}

func (participantRecord) TableName() string { return "group_participants" }

type expenseRecord struct {
	ID          string `gorm:"primaryKey"`
	GroupID     string `gorm:"index;not null"`
	Amount      float64
	Description string `gorm:"not null"`
	Date        int64
	PayerID     string `gorm:"not null"`
	PayerName   string `gorm:"not null"`
	SplitMode   string `gorm:"not null"`
	Notes       string `gorm:"not null;default:''"`
	CreatedAt   int64
	UpdatedAt   int64
}

func (expenseRecord) TableName() string { return "expenses" }

type shareRecord struct {
	ExpenseID     string `gorm:"primaryKey"`
	Position      int    `gorm:"primaryKey;autoIncrement:false"`
	ParticipantID string `gorm:"index;not null"`
	Name          string `gorm:"not null"`
	Amount        float64
	Percentage    float64
}

func (shareRecord) TableName() string { return "expense_shares" }

type balanceRecord struct {
	ID           string `gorm:"primaryKey"`
	GroupID      string `gorm:"uniqueIndex:idx_balances_pair;not null"`
	DebtorID     string `gorm:"uniqueIndex:idx_balances_pair;not null"`
	DebtorName   string `gorm:"not null"`
	CreditorID   string `gorm:"uniqueIndex:idx_balances_pair;not null"`
	CreditorName string `gorm:"not null"`
	Amount       float64
	Position     int `gorm:"not null;default:0"`
	CreatedAt    int64
	UpdatedAt    int64
}

func (balanceRecord) TableName() string { return "balances" }

func fromUser(u *models.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRecord) toModel() *models.User {
	return &models.User{
		ID:           r.ID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r groupRecord) toModel(participants []participantRecord) *models.Group {
	group := &models.Group{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		TotalSpent:  r.TotalSpent,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, p := range participants {
		group.Participants = append(group.Participants, models.Participant{
			ID:     p.ID,
			UserID: p.UserID,
			Name:   p.Name,
			Color:  p.Color,
		})
	}
	return group
}

func fromExpense(e *models.Expense) expenseRecord {
	return expenseRecord{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Amount:      e.Amount,
		Description: e.Description,
		Date:        e.Date,
		PayerID:     e.PayerID,
		PayerName:   e.PayerName,
		SplitMode:   string(e.SplitMode),
		Notes:       e.Notes,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (r expenseRecord) toModel(shares []shareRecord) *models.Expense {
	expense := &models.Expense{
		ID:          r.ID,
		GroupID:     r.GroupID,
		Amount:      r.Amount,
		Description: r.Description,
		Date:        r.Date,
		PayerID:     r.PayerID,
		PayerName:   r.PayerName,
		SplitMode:   models.SplitMode(r.SplitMode),
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, s := range shares {
		expense.Shares = append(expense.Shares, models.Share{
			ParticipantID: s.ParticipantID,
			Name:          s.Name,
			Amount:        s.Amount,
			Percentage:    s.Percentage,
		})
	}
	return expense
}

func fromBalance(b *models.Balance) balanceRecord {
	return balanceRecord{
		ID:           b.ID,
		GroupID:      b.GroupID,
		DebtorID:     b.DebtorID,
		DebtorName:   b.DebtorName,
		CreditorID:   b.CreditorID,
		CreditorName: b.CreditorName,
		Amount:       b.Amount,
		Position:     b.Position,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func (r balanceRecord) toModel() *models.Balance {
	return &models.Balance{
		ID:           r.ID,
		GroupID:      r.GroupID,
		DebtorID:     r.DebtorID,
		DebtorName:   r.DebtorName,
		CreditorID:   r.CreditorID,
		CreditorName: r.CreditorName,
		Amount:       r.Amount,
		Position:     r.Position,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
