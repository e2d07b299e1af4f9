package repository

import (
	"context"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository keeps the per-slug comment counter.
type PostRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	// IncrementCommentCount creates the post row on first use and bumps its counter.
	IncrementCommentCount(ctx context.Context, slug string) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, notFound(err, "Post", slug)
	}
	return &post, nil
}

func (r *postRepository) IncrementCommentCount(ctx context.Context, slug string) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(&models.Post{Slug: slug}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := db.Model(&models.Post{}).
		Where("slug = ?", slug).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
