package models

// MaxParticipants is the maximum number of participants in a group, owner included.
const MaxParticipants = 4

// DefaultColor is the display color given to participants added without one.
const DefaultColor = "#3B82F6"

// Participant is a member of a group.
type Participant struct {
	// ID identifies the participant in expense shares and balances.
	// For registered members it equals UserID; guests get a generated UUID.
	ID string

	// UserID links to a registered User. Empty for guests.
	UserID string

	// Name is the display name within the group.
	Name string

	// Color is the display color used by clients.
	Color string
}

// Group represents a set of participants sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Description is optional free text.
	Description string

	// OwnerID is the user who created the group. The owner is always Participants[0].
	OwnerID string

	// Participants lists the group members in join order.
	Participants []Participant

	// TotalSpent is the sum of all expense amounts in the group.
	TotalSpent float64

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last change to the group.
	UpdatedAt int64
}

// IsMember reports whether the user is the owner or a registered participant.
func (g *Group) IsMember(userID string) bool {
	if userID == "" {
		return false
	}
	if g.OwnerID == userID {
		return true
	}
	for _, p := range g.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Participant returns the participant with the given ID.
func (g *Group) Participant(id string) (Participant, bool) {
	for _, p := range g.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// ParticipantByUser returns the participant linked to the given user.
func (g *Group) ParticipantByUser(userID string) (Participant, bool) {
	for _, p := range g.Participants {
		if p.UserID != "" && p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}
