package server

import (
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary Current user
// @Description Public profile plus the caller's effective permissions
// @Tags users
// @Produce json
// @Success 200 {object} object{profile=service.Profile,permissions=[]string}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	actor := actorFrom(c)
	profile, err := s.users.GetProfile(c.UserContext(), actor.ID)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}

	// Permissions come from the store on every request, never from the profile cache.
	perms, err := s.authz.PermissionsFor(c.UserContext(), actor.ID)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}

	banned, err := s.bans.IsBanned(c.UserContext(), actor.ID)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"profile":     profile,
		"permissions": perms,
		"banned":      banned,
	})
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "user")
	if err != nil {
		return nil
	}
	profile, err := s.users.GetProfile(c.UserContext(), id)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(profile)
}
