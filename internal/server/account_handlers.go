package server

import (
	"strconv"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAccount handles GET /api/account
func (s *Server) GetAccount(c *fiber.Ctx) error {
	user, err := s.accountService.GetAccount(c.UserContext(), currentUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

// UpdateAccount handles PUT /api/account. It accepts JSON, or a multipart form
// when a new display picture is uploaded in the "display_pic" field.
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	var in service.UpdateAccountInput

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid form data"))
		}
		in.Email = formValue(form.Value, "email")
		in.Username = formValue(form.Value, "username")
		in.Name = formValue(form.Value, "name")
		if v := formValue(form.Value, "hide_email"); v != nil {
			hide, perr := strconv.ParseBool(*v)
			if perr != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewFieldError("hide_email", "Must be true or false"))
			}
			in.HideEmail = &hide
		}
		if files := form.File["display_pic"]; len(files) > 0 {
			f, ferr := files[0].Open()
			if ferr != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewFieldError("display_pic", "Could not read the uploaded file"))
			}
			defer func() { _ = f.Close() }()
			in.Avatar = f
		}
	} else {
		var req struct {
			Email     *string `json:"email"`
			Username  *string `json:"username"`
			Name      *string `json:"name"`
			HideEmail *bool   `json:"hide_email"`
		}
		if err := parseBody(c, &req); err != nil {
			return nil
		}
		in.Email, in.Username, in.Name, in.HideEmail = req.Email, req.Username, req.Name, req.HideEmail
	}

	user, err := s.accountService.UpdateAccount(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

func formValue(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return &v[0]
}

// DeactivateAccount handles POST /api/account/deactivate
func (s *Server) DeactivateAccount(c *fiber.Ctx) error {
	if err := s.accountService.Deactivate(c.UserContext(), currentUserID(c)); err != nil {
		return fail(c, err)
	}
	s.revokeSession(c)
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "Account deactivated. Log in again to reactivate it."})
}

// DeleteAccount handles DELETE /api/account
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.accountService.Delete(c.UserContext(), currentUserID(c)); err != nil {
		return fail(c, err)
	}
	s.revokeSession(c)
	s.clearSessionCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// SearchUsers handles GET /api/users/search?q=...
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Search query is required"))
	}
	page := parsePagination(c, 20)

	users, err := s.accountService.SearchUsers(c.UserContext(), currentUserID(c), q, false, page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(models.PublicUsers(users))
}

// GetUser handles GET /api/users/:id. Deactivated accounts are hidden from everyone but their owner.
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	if !user.IsActive && user.ID != currentUserID(c) {
		return fail(c, models.NewNotFoundError("User", id))
	}
	return c.JSON(user.Public())
}

// GetUserBlogs handles GET /api/users/:id/blogs
func (s *Server) GetUserBlogs(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	blogs, err := s.blogService.ListUserBlogs(c.UserContext(), currentUserID(c), id, page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(blogs)
}
