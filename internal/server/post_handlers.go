package server

import (
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/blogs/:id/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	blogID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	posts, err := s.postService.ListPosts(c.UserContext(), currentUserID(c), blogID, page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/blogs/:id/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	blogID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.PostInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}

	post, err := s.postService.AddPost(c.UserContext(), currentUserID(c), blogID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.PostInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), currentUserID(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
