// Package repository implements the data access layer for the comment and moderation domain.
package repository

import (
	"context"
	"errors"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"gorm.io/gorm"
)

// Store bundles every repository over one *gorm.DB. Inside Transaction the bundle is
// rebuilt over the transaction handle, so all reads and writes in the callback share it.
type Store struct {
	db *gorm.DB

	Users     UserRepository
	Groups    GroupRepository
	Posts     PostRepository
	Comments  CommentRepository
	Reactions ReactionRepository
	Reports   ReportRepository
	Bans      BanRepository
	Audit     AuditRepository
}

// NewStore builds the repository bundle over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Users:     NewUserRepository(db),
		Groups:    NewGroupRepository(db),
		Posts:     NewPostRepository(db),
		Comments:  NewCommentRepository(db),
		Reactions: NewReactionRepository(db),
		Reports:   NewReportRepository(db),
		Bans:      NewBanRepository(db),
		Audit:     NewAuditRepository(db),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn in a single database transaction. Any error returned by fn rolls
// back every write made through the Store passed to it.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// notFound converts gorm.ErrRecordNotFound into a NOT_FOUND AppError and wraps any other
// failure as an internal error.
func notFound(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// ClampPage applies the default page size of 20 and caps it at 100.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
