package repository

import (
	"context"
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Visibility decides which unapproved comments a reader may see. Approved comments are
// always visible; unapproved ones only to their author or to readers allowed to see all.
type Visibility struct {
	ViewerID          uint
	IncludeUnapproved bool
}

func (v Visibility) scope(db *gorm.DB) *gorm.DB {
	if v.IncludeUnapproved {
		return db
	}
	if v.ViewerID == 0 {
		return db.Where("comments.approved = ?", true)
	}
	return db.Where("(comments.approved = ? OR comments.author_id = ?)", true, v.ViewerID)
}

// Allows reports whether c passes the visibility rule.
func (v Visibility) Allows(c *models.Comment) bool {
	return v.IncludeUnapproved || c.Approved || (v.ViewerID != 0 && c.AuthorID == v.ViewerID)
}

// CommentRepository defines persistence operations for comments and their edit history.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	// GetForUpdate reads the row under a FOR UPDATE lock. Only meaningful inside a transaction.
	GetForUpdate(ctx context.Context, id uint) (*models.Comment, error)
	UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error
	SoftDelete(ctx context.Context, id uint, deletedAt time.Time) error
	SetApproved(ctx context.Context, id uint, approved bool) error
	// ListTopLevel returns root comments of a post newest-first, with the total count.
	ListTopLevel(ctx context.Context, slug string, vis Visibility, limit, offset int) ([]*models.Comment, int64, error)
	// ListChildren returns the direct replies of the given parents, oldest-first.
	ListChildren(ctx context.Context, parentIDs []uint, vis Visibility) ([]*models.Comment, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.Comment, int64, error)
	AppendHistory(ctx context.Context, entry *models.CommentHistory) error
	ListHistory(ctx context.Context, commentID uint) ([]models.CommentHistory, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, notFound(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) GetForUpdate(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&comment, id).Error; err != nil {
		return nil, notFound(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) update(ctx context.Context, id uint, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(values)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"content":   content,
		"edited_at": editedAt,
	})
}

func (r *commentRepository) SoftDelete(ctx context.Context, id uint, deletedAt time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"content":    models.TombstoneContent,
		"deleted_at": deletedAt,
	})
}

func (r *commentRepository) SetApproved(ctx context.Context, id uint, approved bool) error {
	return r.update(ctx, id, map[string]interface{}{"approved": approved})
}

func (r *commentRepository) ListTopLevel(ctx context.Context, slug string, vis Visibility, limit, offset int) ([]*models.Comment, int64, error) {
	limit, offset = ClampPage(limit, offset)
	base := vis.scope(r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("comments.post_slug = ? AND comments.parent_id IS NULL", slug)).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []*models.Comment
	err := base.Preload("Author").
		Order("comments.created_at DESC").Order("comments.id DESC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

func (r *commentRepository) ListChildren(ctx context.Context, parentIDs []uint, vis Visibility) ([]*models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var comments []*models.Comment
	err := vis.scope(r.db.WithContext(ctx).Where("comments.parent_id IN ?", parentIDs)).
		Preload("Author").
		Order("comments.created_at ASC").Order("comments.id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.Comment, int64, error) {
	limit, offset = ClampPage(limit, offset)
	base := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("approved = ? AND deleted_at IS NULL", false).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []*models.Comment
	if err := base.Preload("Author").Order("created_at ASC").Order("id ASC").
		Limit(limit).Offset(offset).Find(&comments).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

func (r *commentRepository) AppendHistory(ctx context.Context, entry *models.CommentHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) ListHistory(ctx context.Context, commentID uint) ([]models.CommentHistory, error) {
	var history []models.CommentHistory
	if err := r.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Order("edited_at ASC").Order("id ASC").
		Find(&history).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return history, nil
}
