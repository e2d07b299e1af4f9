package models

import "time"

// ReactionType is the kind of judgement a user casts on a comment.
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// Valid reports whether t is a known reaction type.
func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// CommentReaction is a single user's like or dislike. The (comment, user) pair is unique.
type CommentReaction struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	CommentID uint         `gorm:"not null;uniqueIndex:idx_reactions_comment_user" json:"comment_id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_reactions_comment_user;index" json:"user_id"`
	Type      ReactionType `gorm:"size:16;not null" json:"type"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ReactionCounts is an aggregate over the reaction ledger for one comment.
type ReactionCounts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}
