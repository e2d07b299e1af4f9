package models

import "time"

// Report statuses. pending is the only non-terminal state.
const (
	ReportStatusPending   = "pending"
	ReportStatusReviewed  = "reviewed"
	ReportStatusDismissed = "dismissed"
)

// ReportReasons lists the accepted values for Report.Reason.
var ReportReasons = map[string]struct{}{
	"spam":           {},
	"harassment":     {},
	"inappropriate":  {},
	"misinformation": {},
	"off-topic":      {},
	"other":          {},
}

// Report is a user's flag on a comment.
type Report struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ReporterID     uint       `gorm:"not null;index;uniqueIndex:idx_reports_one_pending,where:status = 'pending'" json:"reporter_id"`
	Reporter       *User      `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	CommentID      uint       `gorm:"not null;index;uniqueIndex:idx_reports_one_pending,where:status = 'pending'" json:"comment_id"`
	Comment        *Comment   `gorm:"foreignKey:CommentID" json:"comment,omitempty"`
	Reason         string     `gorm:"size:32;not null" json:"reason"`
	Details        string     `gorm:"type:text" json:"details"`
	Status         string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	ReviewerID     *uint      `gorm:"index" json:"reviewer_id,omitempty"`
	Reviewer       *User      `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ResolutionNote string     `gorm:"type:text" json:"resolution_note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the report has been resolved.
func (r *Report) IsTerminal() bool {
	return r.Status == ReportStatusReviewed || r.Status == ReportStatusDismissed
}
