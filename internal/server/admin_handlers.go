package server

import (
	"time"

	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPendingComments handles GET /api/admin/comments/pending
// @Summary Approval queue
// @Tags admin
// @Produce json
// @Success 200 {object} service.Page[models.Comment]
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/comments/pending [get]
func (s *Server) GetPendingComments(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	queue, err := s.comments.PendingQueue(c.UserContext(), actorFrom(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(queue)
}

// ListReports handles GET /api/admin/reports?status=
func (s *Server) ListReports(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	reports, err := s.reports.List(c.UserContext(), actorFrom(c), c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(reports)
}

// ResolveReport handles POST /api/admin/reports/:id/resolve
// @Summary Resolve a report
// @Description Moves a pending report to reviewed or dismissed, exactly once
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param request body object{outcome=string,note=string} true "Resolution"
// @Success 200 {object} models.Report
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports/{id}/resolve [post]
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	id, err := parseID(c, "report")
	if err != nil {
		return nil
	}
	var req struct {
		Outcome string `json:"outcome"`
		Note    string `json:"note"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	report, err := s.reports.Resolve(c.UserContext(), actorFrom(c), id, service.ResolveReportInput{
		Outcome: req.Outcome,
		Note:    req.Note,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(report)
}

// BanUser handles POST /api/admin/users/:id/bans
// @Summary Ban a user
// @Description Omit expires_at for an indefinite ban
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body object{reason=string,expires_at=string} true "Ban"
// @Success 201 {object} models.UserBan
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/bans [post]
func (s *Server) BanUser(c *fiber.Ctx) error {
	userID, err := parseID(c, "user")
	if err != nil {
		return nil
	}
	var req struct {
		Reason    string     `json:"reason"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ban, err := s.bans.Ban(c.UserContext(), actorFrom(c), service.BanInput{
		UserID:    userID,
		Reason:    req.Reason,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ban)
}

// ListUserBans handles GET /api/admin/users/:id/bans
func (s *Server) ListUserBans(c *fiber.Ctx) error {
	userID, err := parseID(c, "user")
	if err != nil {
		return nil
	}
	bans, err := s.bans.ListBans(c.UserContext(), actorFrom(c), userID)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(bans)
}

// LiftBan handles POST /api/admin/bans/:id/lift
func (s *Server) LiftBan(c *fiber.Ctx) error {
	banID, err := parseID(c, "ban")
	if err != nil {
		return nil
	}
	ban, err := s.bans.Lift(c.UserContext(), actorFrom(c), banID)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(ban)
}

// AssignUserGroup handles PUT /api/admin/users/:id/group
func (s *Server) AssignUserGroup(c *fiber.Ctx) error {
	userID, err := parseID(c, "user")
	if err != nil {
		return nil
	}
	var req struct {
		GroupID uint `json:"group_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.GroupID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("group_id is required"))
	}

	user, err := s.groups.AssignUserGroup(c.UserContext(), actorFrom(c), userID, req.GroupID)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(user)
}

// ListGroups handles GET /api/admin/groups
func (s *Server) ListGroups(c *fiber.Ctx) error {
	groups, err := s.groups.ListGroups(c.UserContext(), actorFrom(c))
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(groups)
}

// GetGroup handles GET /api/admin/groups/:id
func (s *Server) GetGroup(c *fiber.Ctx) error {
	id, err := parseID(c, "group")
	if err != nil {
		return nil
	}
	group, err := s.groups.GetGroup(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(group)
}

// CreateGroup handles POST /api/admin/groups
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		AutoApprove bool   `json:"auto_approve"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	group, err := s.groups.CreateGroup(c.UserContext(), actorFrom(c), service.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		AutoApprove: req.AutoApprove,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// GrantPermission handles POST /api/admin/groups/:id/permissions
func (s *Server) GrantPermission(c *fiber.Ctx) error {
	groupID, err := parseID(c, "group")
	if err != nil {
		return nil
	}
	var req struct {
		Permission string `json:"permission"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	group, err := s.groups.GrantPermission(c.UserContext(), actorFrom(c), groupID, req.Permission)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(group)
}

// RevokePermission handles DELETE /api/admin/groups/:id/permissions/:name
func (s *Server) RevokePermission(c *fiber.Ctx) error {
	groupID, err := parseID(c, "group")
	if err != nil {
		return nil
	}
	group, err := s.groups.RevokePermission(c.UserContext(), actorFrom(c), groupID, c.Params("name"))
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(group)
}

// ListAudit handles GET /api/admin/audit
// @Summary Browse the audit log
// @Tags admin
// @Produce json
// @Param admin_id query int false "Actor"
// @Param action query string false "Action, e.g. user.ban"
// @Param target_type query string false "user, comment, report, group or permission"
// @Param target_id query int false "Target ID"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Success 200 {object} service.Page[models.AuditLogEntry]
// @Security BearerAuth
// @Router /admin/audit [get]
func (s *Server) ListAudit(c *fiber.Ctx) error {
	filter := repository.AuditFilter{
		AdminID:    uint(max(c.QueryInt("admin_id", 0), 0)),
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
		TargetID:   uint(max(c.QueryInt("target_id", 0), 0)),
	}
	for param, dst := range map[string]**time.Time{"since": &filter.Since, "until": &filter.Until} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid "+param+" timestamp"))
		}
		*dst = &t
	}

	page := parsePagination(c, defaultPaginationLimit)
	entries, err := s.audit.List(c.UserContext(), actorFrom(c), filter, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(entries)
}

// PurgeAudit handles POST /api/admin/audit/purge
func (s *Server) PurgeAudit(c *fiber.Ctx) error {
	var req struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.audit.Purge(c.UserContext(), actorFrom(c), time.Duration(req.OlderThanDays)*24*time.Hour)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(result)
}
