package repository

import (
	"context"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository is the reaction ledger. Counts are always aggregated from it.
type ReactionRepository interface {
	// Upsert writes the user's reaction in one statement. It reports false when the row
	// already held the same type.
	Upsert(ctx context.Context, commentID, userID uint, reaction models.ReactionType) (bool, error)
	Delete(ctx context.Context, commentID, userID uint) (bool, error)
	Counts(ctx context.Context, commentIDs []uint) (map[uint]models.ReactionCounts, error)
	ForUser(ctx context.Context, userID uint, commentIDs []uint) (map[uint]models.ReactionType, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new ReactionRepository.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Upsert(ctx context.Context, commentID, userID uint, reaction models.ReactionType) (bool, error) {
	row := &models.CommentReaction{CommentID: commentID, UserID: userID, Type: reaction}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "comment_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "comment_reactions.type <> excluded.type"},
		}},
	}).Create(row)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *reactionRepository) Delete(ctx context.Context, commentID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&models.CommentReaction{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

type reactionCountRow struct {
	CommentID uint
	Type      models.ReactionType
	Total     int64
}

func (r *reactionRepository) Counts(ctx context.Context, commentIDs []uint) (map[uint]models.ReactionCounts, error) {
	out := make(map[uint]models.ReactionCounts, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}

	var rows []reactionCountRow
	err := r.db.WithContext(ctx).Model(&models.CommentReaction{}).
		Select("comment_id, type, COUNT(*) AS total").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id, type").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	for _, row := range rows {
		c := out[row.CommentID]
		switch row.Type {
		case models.ReactionLike:
			c.Likes = row.Total
		case models.ReactionDislike:
			c.Dislikes = row.Total
		}
		out[row.CommentID] = c
	}
	return out, nil
}

func (r *reactionRepository) ForUser(ctx context.Context, userID uint, commentIDs []uint) (map[uint]models.ReactionType, error) {
	out := make(map[uint]models.ReactionType)
	if userID == 0 || len(commentIDs) == 0 {
		return out, nil
	}

	var rows []models.CommentReaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.CommentID] = row.Type
	}
	return out, nil
}
