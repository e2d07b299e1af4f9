package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/observability"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/permissions"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// CommentNode is a comment as rendered in a thread.
type CommentNode struct {
	ID             uint                  `json:"id"`
	PostSlug       string                `json:"post_slug"`
	ParentID       *uint                 `json:"parent_id,omitempty"`
	Depth          int                   `json:"depth"`
	Content        string                `json:"content"`
	Approved       bool                  `json:"approved"`
	Deleted        bool                  `json:"deleted"`
	Author         *models.UserSummary   `json:"author,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	EditedAt       *time.Time            `json:"edited_at,omitempty"`
	Reactions      models.ReactionCounts `json:"reactions"`
	ViewerReaction models.ReactionType   `json:"viewer_reaction,omitempty"`
	Replies        []*CommentNode        `json:"replies"`
}

func newCommentNode(c *models.Comment) *CommentNode {
	n := &CommentNode{
		ID:        c.ID,
		PostSlug:  c.PostSlug,
		ParentID:  c.ParentID,
		Depth:     c.Depth,
		Content:   c.Content,
		Approved:  c.Approved,
		Deleted:   c.IsDeleted(),
		CreatedAt: c.CreatedAt,
		EditedAt:  c.EditedAt,
		Replies:   []*CommentNode{},
	}
	if !n.Deleted && c.Author != nil {
		summary := c.Author.Summary()
		n.Author = &summary
	}
	return n
}

// Thread is one page of a post's comment tree.
type Thread struct {
	PostSlug string         `json:"post_slug"`
	Comments []*CommentNode `json:"comments"`
	Total    int64          `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	Depth    int            `json:"depth"`
	// CommentCount is every comment ever written on the post, deleted and unapproved included.
	CommentCount int64 `json:"comment_count"`
}

// ThreadQuery selects a page of a thread. A negative Depth means the configured default.
type ThreadQuery struct {
	PostSlug string
	Depth    int
	Limit    int
	Offset   int
}

// CreateCommentInput is a new comment or reply.
type CreateCommentInput struct {
	PostSlug string
	ParentID *uint
	Content  string
}

// CommentService owns the comment tree.
type CommentService struct {
	store        *repository.Store
	authz        *Authorizer
	audit        AuditRecorder
	defaultDepth int
	now          func() time.Time
}

// NewCommentService returns a CommentService. defaultDepth is the number of reply levels
// LoadThread populates when the caller does not ask for a depth.
func NewCommentService(store *repository.Store, authz *Authorizer, audit AuditRecorder, defaultDepth int) *CommentService {
	return &CommentService{
		store:        store,
		authz:        authz,
		audit:        audit,
		defaultDepth: clampDepth(defaultDepth),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func clampDepth(depth int) int {
	if depth < 0 {
		return 0
	}
	if depth > models.MaxCommentDepth {
		return models.MaxCommentDepth
	}
	return depth
}

// Create posts a comment or reply as actor. Approval follows the author's group.
func (s *CommentService) Create(ctx context.Context, actor Actor, in CreateCommentInput) (_ *models.Comment, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "Create", attribute.String("post.slug", in.PostSlug))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.ValidatePostSlug(in.PostSlug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	content, err := validation.NormalizeCommentContent(in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.authz.Require(ctx, actor, permissions.CommentCreate); err != nil {
		return nil, err
	}
	if err := ensureNotBanned(ctx, s.store, actor.ID, s.now()); err != nil {
		return nil, err
	}

	author, err := s.store.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		AuthorID: actor.ID,
		PostSlug: in.PostSlug,
		Content:  content,
		Approved: author.Group != nil && author.Group.AutoApprove,
	}

	if in.ParentID != nil {
		parent, err := s.store.Comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		vis, err := s.authz.Visibility(ctx, actor)
		if err != nil {
			return nil, err
		}
		if parent.IsDeleted() || parent.PostSlug != in.PostSlug || !vis.Allows(parent) {
			return nil, models.NewNotFoundError("Comment", *in.ParentID)
		}
		depth := parent.Depth + 1
		if depth > models.MaxCommentDepth {
			return nil, models.NewDepthLimitError(depth)
		}
		comment.ParentID = &parent.ID
		comment.Depth = depth
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}
		return tx.Posts.IncrementCommentCount(ctx, comment.PostSlug)
	})
	if err != nil {
		return nil, err
	}

	observability.CommentsCreated.WithLabelValues(strconv.FormatBool(comment.Approved)).Inc()
	comment.Author = author
	return comment, nil
}

// commentGate resolves which permission lets actor mutate c: the own variant when actor
// wrote it and still holds it, otherwise the privileged variant.
func (s *CommentService) commentGate(ctx context.Context, actor Actor, c *models.Comment, own, other string) (privileged bool, err error) {
	if actor.Anonymous() {
		return false, models.NewUnauthenticatedError("Authentication required")
	}
	if c.AuthorID == actor.ID {
		ok, err := s.authz.Authorize(ctx, actor.ID, own)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	if err := s.authz.Require(ctx, actor, other); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CommentService) loadLive(ctx context.Context, id uint) (*models.Comment, error) {
	c, err := s.store.Comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsDeleted() {
		return nil, models.NewNotFoundError("Comment", id)
	}
	return c, nil
}

// Edit replaces a comment's content, keeping the previous text in its history.
func (s *CommentService) Edit(ctx context.Context, actor Actor, commentID uint, content string) (*models.Comment, error) {
	content, err := validation.NormalizeCommentContent(content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	comment, err := s.loadLive(ctx, commentID)
	if err != nil {
		return nil, err
	}
	privileged, err := s.commentGate(ctx, actor, comment, permissions.CommentEditOwn, permissions.CommentEditAny)
	if err != nil {
		return nil, err
	}
	if !privileged {
		if err := ensureNotBanned(ctx, s.store, actor.ID, s.now()); err != nil {
			return nil, err
		}
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		// The snapshot comes from the locked row so concurrent edits each keep their predecessor.
		current, err := tx.Comments.GetForUpdate(ctx, comment.ID)
		if err != nil {
			return err
		}
		if current.IsDeleted() {
			return models.NewNotFoundError("Comment", comment.ID)
		}
		now := s.now()
		if err := tx.Comments.AppendHistory(ctx, &models.CommentHistory{
			CommentID:  current.ID,
			Content:    current.Content,
			EditedByID: actor.ID,
			EditedAt:   now,
		}); err != nil {
			return err
		}
		if err := tx.Comments.UpdateContent(ctx, comment.ID, content, now); err != nil {
			return err
		}
		if !privileged {
			return nil
		}
		_, err = s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     ActionCommentEdit,
			TargetType: models.AuditTargetComment,
			TargetID:   comment.ID,
			Detail:     models.AuditDetail{"author_id": comment.AuthorID, "post_slug": comment.PostSlug},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if privileged {
		countAction(ActionCommentEdit)
	}
	return s.store.Comments.GetByID(ctx, comment.ID)
}

// SoftDelete tombstones a comment. Replies stay where they are.
func (s *CommentService) SoftDelete(ctx context.Context, actor Actor, commentID uint) (*models.Comment, error) {
	comment, err := s.loadLive(ctx, commentID)
	if err != nil {
		return nil, err
	}
	privileged, err := s.commentGate(ctx, actor, comment, permissions.CommentDeleteOwn, permissions.CommentDeleteAny)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Comments.SoftDelete(ctx, comment.ID, s.now()); err != nil {
			return err
		}
		if !privileged {
			return nil
		}
		_, err := s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     ActionCommentDelete,
			TargetType: models.AuditTargetComment,
			TargetID:   comment.ID,
			Detail:     models.AuditDetail{"author_id": comment.AuthorID, "post_slug": comment.PostSlug},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if privileged {
		countAction(ActionCommentDelete)
	}
	return s.store.Comments.GetByID(ctx, comment.ID)
}

// Approve publishes a comment.
func (s *CommentService) Approve(ctx context.Context, actor Actor, commentID uint) (*models.Comment, error) {
	return s.SetApproval(ctx, actor, commentID, true)
}

// SetApproval sets or clears a comment's approved flag.
func (s *CommentService) SetApproval(ctx context.Context, actor Actor, commentID uint, approved bool) (*models.Comment, error) {
	if err := s.authz.Require(ctx, actor, permissions.CommentApprove); err != nil {
		return nil, err
	}
	comment, err := s.loadLive(ctx, commentID)
	if err != nil {
		return nil, err
	}

	action := ActionCommentApprove
	if !approved {
		action = ActionCommentUnapprove
	}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Comments.SetApproved(ctx, comment.ID, approved); err != nil {
			return err
		}
		_, err := s.audit.Record(ctx, tx, AuditInput{
			Actor:      actor,
			Action:     action,
			TargetType: models.AuditTargetComment,
			TargetID:   comment.ID,
			Detail:     models.AuditDetail{"author_id": comment.AuthorID, "was_approved": comment.Approved},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	countAction(action)
	return s.store.Comments.GetByID(ctx, comment.ID)
}

// Get returns one comment with its reaction counts, if viewer may see it.
func (s *CommentService) Get(ctx context.Context, viewer Actor, commentID uint) (*CommentNode, error) {
	comment, err := s.visible(ctx, viewer, commentID)
	if err != nil {
		return nil, err
	}
	node := newCommentNode(comment)
	if err := s.decorate(ctx, viewer, map[uint]*CommentNode{node.ID: node}); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *CommentService) visible(ctx context.Context, viewer Actor, commentID uint) (*models.Comment, error) {
	comment, err := s.store.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	vis, err := s.authz.Visibility(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if !vis.Allows(comment) {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	return comment, nil
}

// History returns the previous versions of a comment, oldest first. The history of a
// deleted comment is only shown to readers who may see unapproved comments.
func (s *CommentService) History(ctx context.Context, viewer Actor, commentID uint) ([]models.CommentHistory, error) {
	comment, err := s.visible(ctx, viewer, commentID)
	if err != nil {
		return nil, err
	}
	if comment.IsDeleted() {
		vis, err := s.authz.Visibility(ctx, viewer)
		if err != nil {
			return nil, err
		}
		if !vis.IncludeUnapproved {
			return nil, models.NewNotFoundError("Comment", commentID)
		}
	}
	return s.store.Comments.ListHistory(ctx, commentID)
}

// PendingQueue lists live comments awaiting approval, oldest first.
func (s *CommentService) PendingQueue(ctx context.Context, actor Actor, limit, offset int) (*Page[*models.Comment], error) {
	if err := s.authz.Require(ctx, actor, permissions.CommentApprove); err != nil {
		return nil, err
	}
	limit, offset = repository.ClampPage(limit, offset)
	items, total, err := s.store.Comments.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Page[*models.Comment]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// LoadThread returns a page of top-level comments, newest first, with replies populated
// breadth-first down to the requested depth. Replies are oldest first. Tombstones stay in
// place so their replies keep a parent.
func (s *CommentService) LoadThread(ctx context.Context, viewer Actor, q ThreadQuery) (_ *Thread, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "LoadThread", attribute.String("post.slug", q.PostSlug))
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("load_thread", "comments")()

	if err := validation.ValidatePostSlug(q.PostSlug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	depth := s.defaultDepth
	if q.Depth >= 0 {
		depth = clampDepth(q.Depth)
	}
	limit, offset := repository.ClampPage(q.Limit, q.Offset)

	vis, err := s.authz.Visibility(ctx, viewer)
	if err != nil {
		return nil, err
	}

	roots, total, err := s.store.Comments.ListTopLevel(ctx, q.PostSlug, vis, limit, offset)
	if err != nil {
		return nil, err
	}

	thread := &Thread{
		PostSlug: q.PostSlug,
		Comments: make([]*CommentNode, 0, len(roots)),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		Depth:    depth,
	}
	post, err := s.store.Posts.GetBySlug(ctx, q.PostSlug)
	switch {
	case err == nil:
		thread.CommentCount = post.CommentCount
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	nodes := make(map[uint]*CommentNode, len(roots))
	frontier := make([]uint, 0, len(roots))
	for _, c := range roots {
		n := newCommentNode(c)
		nodes[n.ID] = n
		thread.Comments = append(thread.Comments, n)
		frontier = append(frontier, n.ID)
	}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		children, err := s.store.Comments.ListChildren(ctx, frontier, vis)
		if err != nil {
			return nil, err
		}
		next := make([]uint, 0, len(children))
		for _, c := range children {
			parent, ok := nodes[*c.ParentID]
			if !ok {
				continue
			}
			n := newCommentNode(c)
			nodes[n.ID] = n
			parent.Replies = append(parent.Replies, n)
			next = append(next, n.ID)
		}
		frontier = next
	}

	if err := s.decorate(ctx, viewer, nodes); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("thread.nodes", len(nodes)))
	return thread, nil
}

// decorate fills reaction counts and the viewer's own reaction on every node.
func (s *CommentService) decorate(ctx context.Context, viewer Actor, nodes map[uint]*CommentNode) error {
	if len(nodes) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	counts, err := s.store.Reactions.Counts(ctx, ids)
	if err != nil {
		return err
	}
	mine, err := s.store.Reactions.ForUser(ctx, viewer.ID, ids)
	if err != nil {
		return err
	}
	for id, n := range nodes {
		n.Reactions = counts[id]
		n.ViewerReaction = mine[id]
	}
	return nil
}

func countAction(action string) {
	observability.ModerationActions.WithLabelValues(action).Inc()
}
