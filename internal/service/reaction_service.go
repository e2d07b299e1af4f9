package service

import (
	"context"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/observability"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
)

// ReactionState is a comment's reaction totals after a write, plus the caller's own reaction.
type ReactionState struct {
	CommentID uint                  `json:"comment_id"`
	Counts    models.ReactionCounts `json:"counts"`
	Mine      models.ReactionType   `json:"mine,omitempty"`
}

// ReactionService writes the reaction ledger.
type ReactionService struct {
	store *repository.Store
	authz *Authorizer
	now   func() time.Time
}

// NewReactionService returns a ReactionService.
func NewReactionService(store *repository.Store, authz *Authorizer) *ReactionService {
	return &ReactionService{
		store: store,
		authz: authz,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// reactable checks actor may react to commentID: signed in, not banned, and the comment
// live and visible to them.
func (s *ReactionService) reactable(ctx context.Context, actor Actor, commentID uint) error {
	if actor.Anonymous() {
		return models.NewUnauthenticatedError("Authentication required")
	}
	if err := ensureNotBanned(ctx, s.store, actor.ID, s.now()); err != nil {
		return err
	}
	comment, err := s.store.Comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	vis, err := s.authz.Visibility(ctx, actor)
	if err != nil {
		return err
	}
	if comment.IsDeleted() || !vis.Allows(comment) {
		return models.NewNotFoundError("Comment", commentID)
	}
	return nil
}

// Set records actor's reaction. Repeating the current reaction changes nothing; the
// opposite reaction replaces it.
func (s *ReactionService) Set(ctx context.Context, actor Actor, commentID uint, reaction models.ReactionType) (*ReactionState, error) {
	if !reaction.Valid() {
		return nil, models.NewValidationError("Reaction must be like or dislike")
	}
	if err := s.reactable(ctx, actor, commentID); err != nil {
		return nil, err
	}

	changed, err := s.store.Reactions.Upsert(ctx, commentID, actor.ID, reaction)
	if err != nil {
		return nil, err
	}
	outcome := "unchanged"
	if changed {
		outcome = "set"
	}
	observability.ReactionsRecorded.WithLabelValues(outcome).Inc()

	return s.state(ctx, actor, commentID)
}

// Remove clears actor's reaction, if any.
func (s *ReactionService) Remove(ctx context.Context, actor Actor, commentID uint) (*ReactionState, error) {
	if err := s.reactable(ctx, actor, commentID); err != nil {
		return nil, err
	}
	removed, err := s.store.Reactions.Delete(ctx, commentID, actor.ID)
	if err != nil {
		return nil, err
	}
	if removed {
		observability.ReactionsRecorded.WithLabelValues("removed").Inc()
	}
	return s.state(ctx, actor, commentID)
}

// Counts aggregates the ledger for commentIDs. Comments without reactions map to zero counts.
func (s *ReactionService) Counts(ctx context.Context, commentIDs []uint) (map[uint]models.ReactionCounts, error) {
	counts, err := s.store.Reactions.Counts(ctx, commentIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range commentIDs {
		if _, ok := counts[id]; !ok {
			counts[id] = models.ReactionCounts{}
		}
	}
	return counts, nil
}

func (s *ReactionService) state(ctx context.Context, actor Actor, commentID uint) (*ReactionState, error) {
	counts, err := s.store.Reactions.Counts(ctx, []uint{commentID})
	if err != nil {
		return nil, err
	}
	mine, err := s.store.Reactions.ForUser(ctx, actor.ID, []uint{commentID})
	if err != nil {
		return nil, err
	}
	return &ReactionState{CommentID: commentID, Counts: counts[commentID], Mine: mine[commentID]}, nil
}
