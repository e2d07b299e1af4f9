package server

import (
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetThread handles GET /api/comments?post=<slug>
// @Summary Load a comment thread
// @Description Top-level comments newest first, replies oldest first down to depth
// @Tags comments
// @Produce json
// @Param post query string true "Post slug, e.g. /blog/x"
// @Param depth query int false "Reply levels to load"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} service.Thread
// @Failure 400 {object} models.ErrorResponse
// @Router /comments [get]
func (s *Server) GetThread(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	thread, err := s.comments.LoadThread(c.UserContext(), actorFrom(c), service.ThreadQuery{
		PostSlug: c.Query("post"),
		Depth:    c.QueryInt("depth", -1),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(thread)
}

// CreateComment handles POST /api/comments
// @Summary Post a comment or reply
// @Tags comments
// @Accept json
// @Produce json
// @Param request body object{post_slug=string,parent_id=int,content=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		PostSlug string `json:"post_slug"`
		ParentID *uint  `json:"parent_id"`
		Content  string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.comments.Create(c.UserContext(), actorFrom(c), service.CreateCommentInput{
		PostSlug: req.PostSlug,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComment handles GET /api/comments/:id
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := parseID(c, "comment")
	if err != nil {
		return nil
	}
	node, err := s.comments.Get(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(node)
}

// GetCommentHistory handles GET /api/comments/:id/history
func (s *Server) GetCommentHistory(c *fiber.Ctx) error {
	id, err := parseID(c, "comment")
	if err != nil {
		return nil
	}
	history, err := s.comments.History(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(history)
}

// UpdateComment handles PUT /api/comments/:id
// @Summary Edit a comment
// @Description Authors edit their own comments; moderators with comment.edit.any edit any
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body object{content=string} true "New content"
// @Success 200 {object} models.Comment
// @Security BearerAuth
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "comment")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.comments.Edit(c.UserContext(), actorFrom(c), id, req.Content)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "comment")
	if err != nil {
		return nil
	}
	comment, err := s.comments.SoftDelete(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(comment)
}

// ApproveComment handles POST /api/comments/:id/approve
func (s *Server) ApproveComment(c *fiber.Ctx) error {
	return s.setApproval(c, true)
}

// UnapproveComment handles POST /api/comments/:id/unapprove
func (s *Server) UnapproveComment(c *fiber.Ctx) error {
	return s.setApproval(c, false)
}

func (s *Server) setApproval(c *fiber.Ctx, approved bool) error {
	id, err := parseID(c, "comment")
	if err != nil {
		return nil
	}
	comment, err := s.comments.SetApproval(c.UserContext(), actorFrom(c), id, approved)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(comment)
}

// SetReaction handles PUT /api/comments/:id/reaction
// @Summary Like or dislike a comment
// @Description Repeating the current reaction is a no-op; the opposite one replaces it
// @Tags reactions
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body object{type=string} true "like or dislike"
// @Success 200 {object} service.ReactionState
// @Security BearerAuth
// @Router /comments/{id}/reaction [put]
func (s *Server) SetReaction(c *fiber.Ctx) error {
	id, err := parseID(c, "comment")
	if err != nil {
		return nil
	}
	var req struct {
		Type models.ReactionType `json:"type"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	state, err := s.reactions.Set(c.UserContext(), actorFrom(c), id, req.Type)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(state)
}

// RemoveReaction handles DELETE /api/comments/:id/reaction
func (s *Server) RemoveReaction(c *fiber.Ctx) error {
	id, err := parseID(c, "comment")
	if err != nil {
		return nil
	}
	state, err := s.reactions.Remove(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(state)
}

// CreateReport handles POST /api/comments/:id/reports
// @Summary Report a comment
// @Tags reports
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body object{reason=string,details=string} true "Report"
// @Success 201 {object} models.Report
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id}/reports [post]
func (s *Server) CreateReport(c *fiber.Ctx) error {
	id, err := parseID(c, "comment")
	if err != nil {
		return nil
	}
	var req struct {
		Reason  string `json:"reason"`
		Details string `json:"details"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	report, err := s.reports.Create(c.UserContext(), actorFrom(c), service.CreateReportInput{
		CommentID: id,
		Reason:    req.Reason,
		Details:   req.Details,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}
