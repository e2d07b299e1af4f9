// Package models contains data structures for the comment and moderation domain.
package models

import "time"

// Post is the comment-side record of an article. Articles themselves live in the
// rendering layer; a row is created here the first time someone comments on a slug.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Slug         string    `gorm:"size:512;not null;uniqueIndex" json:"slug"`
	CommentCount int64     `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
