package api

type Participant struct {
	Id string `json:"id"`
	// UserId is empty for guests who have no account.
	UserId string `json:"userId,omitempty"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

type Group struct {
	Id           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	OwnerId      string         `json:"ownerId"`
	Participants []*Participant `json:"participants"`
	TotalSpent   float64        `json:"totalSpent"`
	CreatedAt    int64          `json:"createdAt"`
	UpdatedAt    int64          `json:"updatedAt"`
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// OwnerName is the caller's display name in the group. Defaults to the account's display name.
	OwnerName string `json:"ownerName,omitempty"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type GetGroupRequest struct {
	GroupId string `json:"groupId"`
}

type GetGroupResponse struct {
	Group    *Group     `json:"group"`
	Expenses []*Expense `json:"expenses"`
	Balances []*Balance `json:"balances"`
}

// UpdateGroupRequest changes only the fields that are non-empty.
type UpdateGroupRequest struct {
	GroupId     string `json:"groupId"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type UpdateGroupResponse struct {
	Group *Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupId string `json:"groupId"`
}

type DeleteGroupResponse struct{}

// AddParticipantRequest adds a member. An email that matches a registered
// account links the participant to it; otherwise the participant is a guest.
type AddParticipantRequest struct {
	GroupId string `json:"groupId"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Color   string `json:"color,omitempty"`
}

type AddParticipantResponse struct {
	Group       *Group       `json:"group"`
	Participant *Participant `json:"participant"`
}

type RemoveParticipantRequest struct {
	GroupId       string `json:"groupId"`
	ParticipantId string `json:"participantId"`
}

type RemoveParticipantResponse struct {
	Group *Group `json:"group"`
}

type UpdateParticipantRequest struct {
	GroupId       string `json:"groupId"`
	ParticipantId string `json:"participantId"`
	Name          string `json:"name,omitempty"`
	Color         string `json:"color,omitempty"`
}

type UpdateParticipantResponse struct {
	Group *Group `json:"group"`
}
