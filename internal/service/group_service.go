package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/cache"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
)

var groupNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,63}$`)

// CreateGroupInput describes a new group. It starts with no permissions.
type CreateGroupInput struct {
	Name        string
	Description string
	AutoApprove bool
}

// GroupService manages groups, their grants and user membership.
type GroupService struct {
	store *repository.Store
	authz *Authorizer
	audit AuditRecorder
}

// NewGroupService returns a GroupService.
func NewGroupService(store *repository.Store, authz *Authorizer, audit AuditRecorder) *GroupService {
	return &GroupService{store: store, authz: authz, audit: audit}
}

func (s *GroupService) withPermissions(ctx context.Context, g *models.Group) error {
	names, err := s.store.Groups.PermissionNames(ctx, g.ID)
	if err != nil {
		return err
	}
	g.Permissions = make([]models.Permission, 0, len(names))
	for _, name := range names {
		p := models.Permission{Name: name}
		if def, ok := permissions.Lookup(name); ok {
			p.Category = def.Category
			p.Description = def.Description
		}
		g.Permissions = append(g.Permissions, p)
	}
	return nil
}

// ListGroups returns every group with its permission names.
func (s *GroupService) ListGroups(ctx context.Context, actor Actor) ([]models.Group, error) {
	if err := s.authz.Require(ctx, actor, permissions.GroupManage); err != nil {
		return nil, err
	}
	groups, err := s.store.Groups.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if err := s.withPermissions(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// GetGroup returns one group with its permission names.
func (s *GroupService) GetGroup(ctx context.Context, actor Actor, groupID uint) (*models.Group, error) {
	if err := s.authz.Require(ctx, actor, permissions.GroupManage); err != nil {
		return nil, err
	}
	g, err := s.store.Groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.withPermissions(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DefaultGroup returns the group new accounts join.
func (s *GroupService) DefaultGroup(ctx context.Context) (*models.Group, error) {
	return s.store.Groups.GetDefault(ctx)
}

// CreateGroup adds an empty group.
func (s *GroupService) CreateGroup(ctx context.Context, actor Actor, in CreateGroupInput) (*models.Group, error) {
	name := strings.ToLower(strings.TrimSpace(in.Name))
	if !groupNameRegex.MatchString(name) {
		return nil, models.NewValidationError("Group name must be 2-64 lowercase letters, digits, '_' or '-'")
	}
	if err := s.authz.Require(ctx, actor, permissions.GroupManage); err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		AutoApprove: in.AutoApprove,
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Groups.Create(ctx, group); err != nil {
			return err
		}
		_, err := s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     ActionGroupCreate,
			TargetType: models.AuditTargetGroup,
			TargetID:   group.ID,
			Detail:     models.AuditDetail{"name": group.Name, "auto_approve": group.AutoApprove},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	countAction(ActionGroupCreate)
	group.Permissions = []models.Permission{}
	return group, nil
}

// GrantPermission adds permission to a group. Granting a held permission is a CONFLICT.
func (s *GroupService) GrantPermission(ctx context.Context, actor Actor, groupID uint, permission string) (*models.Group, error) {
	return s.changeGrant(ctx, actor, groupID, permission, true)
}

// RevokePermission removes permission from a group. Revoking one it lacks is NOT_FOUND.
func (s *GroupService) RevokePermission(ctx context.Context, actor Actor, groupID uint, permission string) (*models.Group, error) {
	return s.changeGrant(ctx, actor, groupID, permission, false)
}

func (s *GroupService) changeGrant(ctx context.Context, actor Actor, groupID uint, permission string, grant bool) (*models.Group, error) {
	if err := s.authz.Require(ctx, actor, permissions.GroupManage); err != nil {
		return nil, err
	}

	action := ActionPermissionGrant
	if !grant {
		action = ActionPermissionRevoke
	}

	var group *models.Group
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		g, err := tx.Groups.GetByID(ctx, groupID)
		if err != nil {
			return err
		}
		group = g
		perm, err := tx.Groups.GetPermission(ctx, permission)
		if err != nil {
			return err
		}

		if grant {
			created, err := tx.Groups.Grant(ctx, g.ID, perm.ID)
			if err != nil {
				return err
			}
			if !created {
				return models.NewConflictError("Group already holds " + permission)
			}
		} else {
			removed, err := tx.Groups.Revoke(ctx, g.ID, perm.ID)
			if err != nil {
				return err
			}
			if !removed {
				return models.NewNotFoundError("Grant", permission)
			}
		}

		_, err = s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     action,
			TargetType: models.AuditTargetPermission,
			TargetID:   perm.ID,
			Detail:     models.AuditDetail{"group_id": g.ID, "group": g.Name, "permission": permission},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	countAction(action)
	if err := s.withPermissions(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// AssignUserGroup moves a user into another group. Actors cannot move themselves.
func (s *GroupService) AssignUserGroup(ctx context.Context, actor Actor, userID, groupID uint) (*models.User, error) {
	if err := s.authz.Require(ctx, actor, permissions.UserGroupAssign); err != nil {
		return nil, err
	}
	if userID == actor.ID {
		return nil, models.NewValidationError("You cannot change your own group")
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		group, err := tx.Groups.GetByID(ctx, groupID)
		if err != nil {
			return err
		}
		if err := tx.Users.UpdateGroup(ctx, user.ID, group.ID); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     ActionUserGroupAssign,
			TargetType: models.AuditTargetUser,
			TargetID:   user.ID,
			Detail:     models.AuditDetail{"from_group_id": user.GroupID, "to_group_id": group.ID, "to_group": group.Name},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	countAction(ActionUserGroupAssign)
	cache.InvalidateUser(ctx, userID)
	return s.store.Users.GetByID(ctx, userID)
}
