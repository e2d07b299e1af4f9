package service

import (
	"context"
	"strings"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/notifications"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
)

// ensureNotBanned fails with FORBIDDEN while userID has a ban in force.
func ensureNotBanned(ctx context.Context, store *repository.Store, userID uint, now time.Time) error {
	ban, err := store.Bans.Active(ctx, userID, now)
	if err != nil {
		return err
	}
	if ban != nil {
		return models.NewForbiddenError("Your account is suspended")
	}
	return nil
}

// BanInput describes a new ban. A nil ExpiresAt bans indefinitely.
type BanInput struct {
	UserID    uint
	Reason    string
	ExpiresAt *time.Time
}

// BanService manages the ban ledger.
type BanService struct {
	store    *repository.Store
	authz    *Authorizer
	audit    AuditRecorder
	notifier *notifications.Notifier
	now      func() time.Time
}

// NewBanService returns a BanService. notifier may be nil.
func NewBanService(store *repository.Store, authz *Authorizer, audit AuditRecorder, notifier *notifications.Notifier) *BanService {
	return &BanService{
		store:    store,
		authz:    authz,
		audit:    audit,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IsBanned reports whether userID has a ban in force.
func (s *BanService) IsBanned(ctx context.Context, userID uint) (bool, error) {
	ban, err := s.store.Bans.Active(ctx, userID, s.now())
	if err != nil {
		return false, err
	}
	return ban != nil, nil
}

// Ban suspends a user's write access.
func (s *BanService) Ban(ctx context.Context, actor Actor, in BanInput) (*models.UserBan, error) {
	if err := s.authz.Require(ctx, actor, permissions.UserBan); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, models.NewValidationError("A reason is required")
	}
	if in.UserID == actor.ID {
		return nil, models.NewValidationError("You cannot ban yourself")
	}
	now := s.now()
	var expiresAt *time.Time
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, models.NewValidationError("Expiry must be in the future")
		}
		t := in.ExpiresAt.UTC()
		expiresAt = &t
	}
	if _, err := s.store.Users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	ban := &models.UserBan{
		UserID:     in.UserID,
		BannedByID: actor.ID,
		Reason:     reason,
		ExpiresAt:  expiresAt,
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		active, err := tx.Bans.Active(ctx, in.UserID, now)
		if err != nil {
			return err
		}
		if active != nil {
			return models.NewConflictError("User is already banned")
		}
		if err := tx.Bans.Create(ctx, ban); err != nil {
			return err
		}
		detail := models.AuditDetail{"ban_id": ban.ID, "reason": reason}
		if expiresAt != nil {
			detail["expires_at"] = expiresAt.Format(time.RFC3339)
		}
		_, err = s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     ActionUserBan,
			TargetType: models.AuditTargetUser,
			TargetID:   in.UserID,
			Detail:     detail,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	countAction(ActionUserBan)
	s.notifier.Notify(ctx, notifications.Event{
		Type:       notifications.EventUserBanned,
		ActorID:    actor.ID,
		TargetType: models.AuditTargetUser,
		TargetID:   in.UserID,
		Data:       map[string]any{"ban_id": ban.ID, "expires_at": expiresAt},
	})
	return ban, nil
}

// Lift ends a ban that is still in force.
func (s *BanService) Lift(ctx context.Context, actor Actor, banID uint) (*models.UserBan, error) {
	if err := s.authz.Require(ctx, actor, permissions.UserBan); err != nil {
		return nil, err
	}

	var lifted *models.UserBan
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		ban, err := tx.Bans.GetByID(ctx, banID)
		if err != nil {
			return err
		}
		ok, err := tx.Bans.Lift(ctx, banID, actor.ID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return models.NewInvalidStateError("Ban is no longer in force")
		}
		if _, err := s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     ActionUserUnban,
			TargetType: models.AuditTargetUser,
			TargetID:   ban.UserID,
			Detail:     models.AuditDetail{"ban_id": ban.ID},
		}); err != nil {
			return err
		}
		lifted, err = tx.Bans.GetByID(ctx, banID)
		return err
	})
	if err != nil {
		return nil, err
	}

	countAction(ActionUserUnban)
	s.notifier.Notify(ctx, notifications.Event{
		Type:       notifications.EventBanLifted,
		ActorID:    actor.ID,
		TargetType: models.AuditTargetUser,
		TargetID:   lifted.UserID,
		Data:       map[string]any{"ban_id": lifted.ID},
	})
	return lifted, nil
}

// ListBans returns every ban ever issued against userID, newest first.
func (s *BanService) ListBans(ctx context.Context, actor Actor, userID uint) ([]models.UserBan, error) {
	if err := s.authz.Require(ctx, actor, permissions.UserBan); err != nil {
		return nil, err
	}
	if _, err := s.store.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Bans.ListForUser(ctx, userID)
}
