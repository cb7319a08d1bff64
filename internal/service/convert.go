package service

import (
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		Id:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPIParticipant(p models.Participant) *api.Participant {
	return &api.Participant{
		Id:     p.ID,
		UserId: p.UserID,
		Name:   p.Name,
		Color:  p.Color,
	}
}

func toAPIGroup(g *models.Group) *api.Group {
	participants := make([]*api.Participant, len(g.Participants))
	for i, p := range g.Participants {
		participants[i] = toAPIParticipant(p)
	}
	return &api.Group{
		Id:           g.ID,
		Name:         g.Name,
		Description:  g.Description,
		OwnerId:      g.OwnerID,
		Participants: participants,
		TotalSpent:   g.TotalSpent,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func toAPIExpense(e *models.Expense) *api.Expense {
	shares := make([]*api.Share, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = &api.Share{
			ParticipantId: s.ParticipantID,
			Name:          s.Name,
			Amount:        s.Amount,
			Percentage:    s.Percentage,
		}
	}
	return &api.Expense{
		Id:          e.ID,
		GroupId:     e.GroupID,
		Amount:      e.Amount,
		Description: e.Description,
		Date:        e.Date,
		PayerId:     e.PayerID,
		PayerName:   e.PayerName,
		SplitMode:   string(e.SplitMode),
		Shares:      shares,
		Notes:       e.Notes,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toAPIExpenses(expenses []*models.Expense) []*api.Expense {
	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(e)
	}
	return out
}

func toAPIBalance(b *models.Balance) *api.Balance {
	return &api.Balance{
		Id:           b.ID,
		GroupId:      b.GroupID,
		DebtorId:     b.DebtorID,
		DebtorName:   b.DebtorName,
		CreditorId:   b.CreditorID,
		CreditorName: b.CreditorName,
		Amount:       b.Amount,
		UpdatedAt:    b.UpdatedAt,
	}
}

func toAPIBalances(balances []*models.Balance) []*api.Balance {
	out := make([]*api.Balance, len(balances))
	for i, b := range balances {
		out[i] = toAPIBalance(b)
	}
	return out
}

func toAPISettlements(suggestions []models.SettlementSuggestion) []*api.SettlementSuggestion {
	out := make([]*api.SettlementSuggestion, len(suggestions))
	for i, s := range suggestions {
		out[i] = &api.SettlementSuggestion{
			FromId:   s.FromID,
			FromName: s.FromName,
			ToId:     s.ToID,
			ToName:   s.ToName,
			Amount:   s.Amount,
		}
	}
	return out
}

// sharesFromAPI resolves share names from the group roster. Unknown
// participants keep the name the client sent, or "Unknown".
func sharesFromAPI(in []*api.Share, group *models.Group) []models.Share {
	shares := make([]models.Share, 0, len(in))
	for _, s := range in {
		if s == nil {
			continue
		}
		name := s.Name
		if p, ok := group.Participant(s.ParticipantId); ok {
			name = p.Name
		}
		if name == "" {
			name = calculator.UnknownName
		}
		shares = append(shares, models.Share{
			ParticipantID: s.ParticipantId,
			Name:          name,
			Amount:        s.Amount,
			Percentage:    s.Percentage,
		})
	}
	return shares
}

func derefExpenses(expenses []*models.Expense) []models.Expense {
	out := make([]models.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = *e
	}
	return out
}

func derefBalances(balances []*models.Balance) []models.Balance {
	out := make([]models.Balance, len(balances))
	for i, b := range balances {
		out[i] = *b
	}
	return out
}
