package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// MaxCommentDepth is the deepest reply level allowed. Top-level comments have depth 0.
const MaxCommentDepth = 5

// TombstoneContent replaces the text of a soft-deleted comment.
const TombstoneContent = "[deleted]"

// Comment is a node in a post's comment tree.
type Comment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	AuthorID  uint       `gorm:"not null;index" json:"author_id"`
	Author    *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	PostSlug  string     `gorm:"size:512;not null;index:idx_comments_slug_parent" json:"post_slug"`
	ParentID  *uint      `gorm:"index:idx_comments_slug_parent" json:"parent_id,omitempty"`
	Depth     int        `gorm:"not null;default:0" json:"depth"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Approved  bool       `gorm:"not null;default:false;index" json:"approved"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	// DeletedAt is a plain timestamp rather than gorm.DeletedAt: tombstones must still
	// load so replies keep their place in the thread.
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the comment has been soft deleted.
func (c *Comment) IsDeleted() bool {
	return c.DeletedAt != nil
}

// ErrHistoryImmutable is returned when something tries to rewrite edit history.
var ErrHistoryImmutable = errors.New("comment history is append-only")

// CommentHistory is a snapshot of a comment's content before an edit.
type CommentHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CommentID  uint      `gorm:"not null;index" json:"comment_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	EditedByID uint      `gorm:"not null" json:"edited_by_id"`
	EditedAt   time.Time `gorm:"not null" json:"edited_at"`
}

// TableName specifies the table name for GORM.
func (CommentHistory) TableName() string {
	return "comment_history"
}

// BeforeUpdate rejects updates to history rows.
func (*CommentHistory) BeforeUpdate(*gorm.DB) error {
	return ErrHistoryImmutable
}

// BeforeDelete rejects deletes of history rows.
func (*CommentHistory) BeforeDelete(*gorm.DB) error {
	return ErrHistoryImmutable
}
