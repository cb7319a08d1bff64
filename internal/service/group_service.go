package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// GroupService implements the Connect GroupService.
type GroupService struct {
	apiconnect.UnimplementedGroupServiceHandler
	store  storage.Store
	ledger *Ledger
	logger *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, ledger *Ledger, logger *slog.Logger) *GroupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupService{store: store, ledger: ledger, logger: logger}
}

// CreateGroup creates a group owned by the caller, who becomes its first participant.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("CreateGroup request received", "user_id", userID, "name", req.Msg.Name)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, invalidArgument("group name is required")
	}

	ownerName := strings.TrimSpace(req.Msg.OwnerName)
	if ownerName == "" {
		user, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			s.logger.Error("CreateGroup failed", "error", err)
			return nil, toConnectError(err)
		}
		if user == nil {
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
		}
		ownerName = user.DisplayName
	}

	group := &models.Group{
		Name:        name,
		Description: req.Msg.Description,
		OwnerID:     userID,
		Participants: []models.Participant{{
			ID:     userID,
			UserID: userID,
			Name:   ownerName,
		}},
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Group created", "group_id", group.ID, "owner_id", userID)
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups returns the groups the caller owns or participates in.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		s.logger.Error("ListGroups failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Group, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g)
	}

	s.logger.Info("ListGroups successful", "user_id", userID, "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// GetGroup returns a group with its expenses and balances.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	group, err := s.loadGroupAsMember(ctx, req.Msg.GroupId)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("GetGroup failed - could not list expenses", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}
	balances, err := s.store.ListBalancesByGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("GetGroup failed - could not list balances", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("GetGroup successful",
		"group_id", group.ID,
		"expenses_count", len(expenses),
		"balances_count", len(balances),
	)
	return connect.NewResponse(&api.GetGroupResponse{
		Group:    toAPIGroup(group),
		Expenses: toAPIExpenses(expenses),
		Balances: toAPIBalances(balances),
	}), nil
}

// UpdateGroup changes a group's name or description. Owner only.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.UpdateGroupResponse], error) {
	group, err := s.loadGroupAsOwner(ctx, req.Msg.GroupId)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Msg.Name); name != "" {
		group.Name = name
	}
	if req.Msg.Description != "" {
		group.Description = req.Msg.Description
	}

	if err := s.store.UpdateGroup(ctx, group); err != nil {
		s.logger.Error("UpdateGroup failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Group updated", "group_id", group.ID)
	return connect.NewResponse(&api.UpdateGroupResponse{Group: toAPIGroup(group)}), nil
}

// DeleteGroup removes a group with its expenses and balances. Owner only.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	group, err := s.loadGroupAsOwner(ctx, req.Msg.GroupId)
	if err != nil {
		return nil, err
	}

	err = s.ledger.Locked(ctx, group.ID, func(ctx context.Context) error {
		return s.store.DeleteGroup(ctx, group.ID)
	})
	if err != nil {
		s.logger.Error("DeleteGroup failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Group deleted", "group_id", group.ID)
	return connect.NewResponse(&api.DeleteGroupResponse{}), nil
}

// AddParticipant adds a registered user (matched by email) or a named guest.
// Owner only.
func (s *GroupService) AddParticipant(ctx context.Context, req *connect.Request[api.AddParticipantRequest]) (*connect.Response[api.AddParticipantResponse], error) {
	if _, err := s.loadGroupAsOwner(ctx, req.Msg.GroupId); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Msg.Name)
	participant := models.Participant{Name: name, Color: req.Msg.Color}

	if email := auth.NormalizeEmail(req.Msg.Email); email != "" {
		user, err := s.store.GetUserByEmail(ctx, email)
		if err != nil {
			s.logger.Error("AddParticipant failed - user lookup", "error", err)
			return nil, toConnectError(err)
		}
		if user != nil {
			participant.ID = user.ID
			participant.UserID = user.ID
			if participant.Name == "" {
				participant.Name = user.DisplayName
			}
		}
	}
	if participant.Name == "" {
		return nil, invalidArgument("participant name or a registered email is required")
	}

	var group *models.Group
	err := s.ledger.Locked(ctx, req.Msg.GroupId, func(ctx context.Context) error {
		var err error
		group, err = s.store.GetGroup(ctx, req.Msg.GroupId)
		if err != nil {
			return err
		}
		if len(group.Participants) >= models.MaxParticipants {
			return errGroupFull
		}
		for _, p := range group.Participants {
			if participant.UserID != "" && p.UserID == participant.UserID {
				return connect.NewError(connect.CodeAlreadyExists, errors.New("user is already a participant"))
			}
			if strings.EqualFold(p.Name, participant.Name) {
				return connect.NewError(connect.CodeAlreadyExists, fmt.Errorf("a participant named %q already exists", p.Name))
			}
		}

		group.Participants = append(group.Participants, participant)
		return s.store.UpdateGroup(ctx, group)
	})
	if err != nil {
		s.logger.Warn("AddParticipant failed", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	added := group.Participants[len(group.Participants)-1]
	s.logger.Info("Participant added",
		"group_id", group.ID,
		"participant_id", added.ID,
		"registered", added.UserID != "",
	)
	return connect.NewResponse(&api.AddParticipantResponse{
		Group:       toAPIGroup(group),
		Participant: toAPIParticipant(added),
	}), nil
}

// RemoveParticipant removes a participant, strips their shares from the
// group's expenses and rebuilds the balances. Owner only; the owner stays.
func (s *GroupService) RemoveParticipant(ctx context.Context, req *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error) {
	if _, err := s.loadGroupAsOwner(ctx, req.Msg.GroupId); err != nil {
		return nil, err
	}

	var group *models.Group
	err := s.ledger.Mutate(ctx, req.Msg.GroupId, func(ctx context.Context) error {
		var err error
		group, err = s.store.GetGroup(ctx, req.Msg.GroupId)
		if err != nil {
			return err
		}

		idx := -1
		for i, p := range group.Participants {
			if p.ID == req.Msg.ParticipantId {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("participant %s: %w", req.Msg.ParticipantId, storage.ErrNotFound)
		}
		if group.Participants[idx].UserID == group.OwnerID {
			return invalidArgument("the group owner cannot be removed")
		}

		group.Participants = append(group.Participants[:idx], group.Participants[idx+1:]...)
		return s.store.RemoveParticipant(ctx, group, req.Msg.ParticipantId)
	})
	if err != nil {
		s.logger.Warn("RemoveParticipant failed", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	// Reload for the rebuilt total.
	group, err = s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	s.logger.Info("Participant removed", "group_id", group.ID, "participant_id", req.Msg.ParticipantId)
	return connect.NewResponse(&api.RemoveParticipantResponse{Group: toAPIGroup(group)}), nil
}

// UpdateParticipant renames or recolors a participant. Owner only.
// Names already recorded on expenses and balances are left as they were.
func (s *GroupService) UpdateParticipant(ctx context.Context, req *connect.Request[api.UpdateParticipantRequest]) (*connect.Response[api.UpdateParticipantResponse], error) {
	if _, err := s.loadGroupAsOwner(ctx, req.Msg.GroupId); err != nil {
		return nil, err
	}

	var group *models.Group
	err := s.ledger.Locked(ctx, req.Msg.GroupId, func(ctx context.Context) error {
		var err error
		group, err = s.store.GetGroup(ctx, req.Msg.GroupId)
		if err != nil {
			return err
		}

		for i := range group.Participants {
			p := &group.Participants[i]
			if p.ID != req.Msg.ParticipantId {
				continue
			}
			if name := strings.TrimSpace(req.Msg.Name); name != "" {
				p.Name = name
			}
			if req.Msg.Color != "" {
				p.Color = req.Msg.Color
			}
			return s.store.UpdateGroup(ctx, group)
		}
		return fmt.Errorf("participant %s: %w", req.Msg.ParticipantId, storage.ErrNotFound)
	})
	if err != nil {
		s.logger.Warn("UpdateParticipant failed", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Participant updated", "group_id", group.ID, "participant_id", req.Msg.ParticipantId)
	return connect.NewResponse(&api.UpdateParticipantResponse{Group: toAPIGroup(group)}), nil
}

// loadGroupAsMember fetches a group the caller belongs to.
func (s *GroupService) loadGroupAsMember(ctx context.Context, groupID string) (*models.Group, error) {
	return loadGroup(ctx, s.store, groupID, false)
}

// loadGroupAsOwner fetches a group the caller owns.
func (s *GroupService) loadGroupAsOwner(ctx context.Context, groupID string) (*models.Group, error) {
	return loadGroup(ctx, s.store, groupID, true)
}

func loadGroup(ctx context.Context, store storage.GroupStore, groupID string, ownerOnly bool) (*models.Group, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if groupID == "" {
		return nil, invalidArgument("group_id required")
	}

	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if ownerOnly && group.OwnerID != userID {
		return nil, toConnectError(errNotOwner)
	}
	if !group.IsMember(userID) {
		return nil, toConnectError(errNotMember)
	}
	return group, nil
}
