// Package permissions is the static catalogue of named capabilities and the default
// group bundles seeded into a fresh database.
package permissions

import "sort"

// Categories group permissions for display.
const (
	CategoryComment = "comment"
	CategoryReport  = "report"
	CategoryUser    = "user"
	CategoryAdmin   = "admin"
)

// Permission names.
const (
	CommentCreate         = "comment.create"
	CommentEditOwn        = "comment.edit.own"
	CommentDeleteOwn      = "comment.delete.own"
	CommentEditAny        = "comment.edit.any"
	CommentDeleteAny      = "comment.delete.any"
	CommentApprove        = "comment.approve"
	CommentViewUnapproved = "comment.view.unapproved"
	ReportCreate          = "report.create"
	ReportView            = "report.view"
	ReportResolve         = "report.resolve"
	UserBan               = "user.ban"
	UserGroupAssign       = "user.group.assign"
	GroupManage           = "group.manage"
	AdminAuditView        = "admin.audit.view"
	AdminAuditPurge       = "admin.audit.purge"
)

// Definition describes one catalogue entry.
type Definition struct {
	Name        string
	Category    string
	Description string
	// Privileged permissions are moderator/admin capabilities; every mutation gated by
	// one is written to the audit log.
	Privileged bool
}

var catalogue = []Definition{
	{CommentCreate, CategoryComment, "Post comments and replies", false},
	{CommentEditOwn, CategoryComment, "Edit your own comments", false},
	{CommentDeleteOwn, CategoryComment, "Delete your own comments", false},
	{CommentEditAny, CategoryComment, "Edit any user's comment", true},
	{CommentDeleteAny, CategoryComment, "Delete any user's comment", true},
	{CommentApprove, CategoryComment, "Approve or unapprove comments", true},
	{CommentViewUnapproved, CategoryComment, "See comments awaiting approval", true},
	{ReportCreate, CategoryReport, "Report a comment", false},
	{ReportView, CategoryReport, "View the report queue", true},
	{ReportResolve, CategoryReport, "Resolve or dismiss reports", true},
	{UserBan, CategoryUser, "Ban users and lift bans", true},
	{UserGroupAssign, CategoryUser, "Move users between groups", true},
	{GroupManage, CategoryAdmin, "Create groups and edit their permissions", true},
	{AdminAuditView, CategoryAdmin, "Read the audit log", true},
	{AdminAuditPurge, CategoryAdmin, "Purge audit entries past retention", true},
}

var byName = func() map[string]Definition {
	m := make(map[string]Definition, len(catalogue))
	for _, d := range catalogue {
		m[d.Name] = d
	}
	return m
}()

// All returns the catalogue in declaration order.
func All() []Definition {
	out := make([]Definition, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	d, ok := byName[name]
	return d, ok
}

// Known reports whether name is in the catalogue.
func Known(name string) bool {
	_, ok := byName[name]
	return ok
}

// IsPrivileged reports whether mutations gated by name must be audited.
// Unknown names are treated as privileged.
func IsPrivileged(name string) bool {
	d, ok := byName[name]
	return !ok || d.Privileged
}

// Group names seeded by default.
const (
	GroupUser      = "user"
	GroupTrusted   = "trusted"
	GroupModerator = "moderator"
	GroupAdmin     = "admin"
)

// GroupBundle is a default group definition.
type GroupBundle struct {
	Name        string
	Description string
	IsDefault   bool
	AutoApprove bool
	Permissions []string
}

var (
	basePermissions = []string{CommentCreate, CommentEditOwn, CommentDeleteOwn, ReportCreate}

	moderatorPermissions = []string{
		CommentEditAny, CommentDeleteAny, CommentApprove, CommentViewUnapproved,
		ReportView, ReportResolve, UserBan,
	}
)

// DefaultGroups returns the groups seeded into a new database. Higher groups include the
// lower groups' permissions by convention only; nothing enforces the ordering.
func DefaultGroups() []GroupBundle {
	all := make([]string, 0, len(catalogue))
	for _, d := range catalogue {
		all = append(all, d.Name)
	}

	return []GroupBundle{
		{
			Name:        GroupUser,
			Description: "Registered readers. Comments wait for approval.",
			IsDefault:   true,
			Permissions: append([]string(nil), basePermissions...),
		},
		{
			Name:        GroupTrusted,
			Description: "Readers whose comments publish immediately.",
			AutoApprove: true,
			Permissions: append([]string(nil), basePermissions...),
		},
		{
			Name:        GroupModerator,
			Description: "Moderators.",
			AutoApprove: true,
			Permissions: sorted(append(append([]string(nil), basePermissions...), moderatorPermissions...)),
		},
		{
			Name:        GroupAdmin,
			Description: "Site administrators.",
			AutoApprove: true,
			Permissions: sorted(all),
		},
	}
}

func sorted(in []string) []string {
	sort.Strings(in)
	return in
}
