package server

import (
	"log/slog"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// BrowserVerify handles GET /account/verify/:uid/:token, the link sent in
// verification emails. Success signs the user in with a session cookie. Either
// way the browser lands on the site root; a bad link is not reported.
func (s *Server) BrowserVerify(c *fiber.Ctx) error {
	ctx := c.UserContext()
	home := s.siteRoot()

	user, err := s.accountService.VerifyAccount(ctx, c.Params("uid"), c.Params("token"))
	if err != nil {
		middleware.Logger.InfoContext(ctx, "verification link rejected", slog.String("error", err.Error()))
		return c.Redirect(home, fiber.StatusFound)
	}
	if user, err = s.accountService.StartSession(ctx, user); err != nil {
		middleware.Logger.WarnContext(ctx, "could not start session after verification", slog.String("error", err.Error()))
		return c.Redirect(home, fiber.StatusFound)
	}

	token, err := s.generateToken(user)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "could not issue session token", slog.String("error", err.Error()))
		return c.Redirect(home, fiber.StatusFound)
	}
	s.setSessionCookie(c, token)
	return c.Redirect(home, fiber.StatusFound)
}

// BrowserSearch handles GET /account/search?userQuery=... for signed-in
// browser sessions. Only active accounts are listed.
func (s *Server) BrowserSearch(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("userQuery"))
	if q == "" {
		return c.JSON(fiber.Map{"query": q, "users": []models.PublicUser{}})
	}
	page := parsePagination(c, 20)

	users, err := s.accountService.SearchUsers(c.UserContext(), currentUserID(c), q, true, page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"query": q, "users": models.PublicUsers(users)})
}

func (s *Server) siteRoot() string {
	site := strings.TrimRight(s.config.SiteURL, "/")
	if site == "" {
		return "/"
	}
	return site + "/"
}
