package server

import (
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/blogs. Anonymous callers are allowed.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c, service.FeedPageSize)

	blogs, err := s.blogService.Feed(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"blogs":  blogs,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// CreateBlog handles POST /api/blogs
func (s *Server) CreateBlog(c *fiber.Ctx) error {
	var in service.BlogInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}

	blog, err := s.blogService.CreateBlog(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(blog)
}

// GetBlog handles GET /api/blogs/:id
func (s *Server) GetBlog(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	blog, err := s.blogService.GetBlog(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(blog)
}

// UpdateBlog handles PUT /api/blogs/:id
func (s *Server) UpdateBlog(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.BlogInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}

	blog, err := s.blogService.UpdateBlog(c.UserContext(), currentUserID(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(blog)
}

// DeleteBlog handles DELETE /api/blogs/:id
func (s *Server) DeleteBlog(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.blogService.DeleteBlog(c.UserContext(), currentUserID(c), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PublishBlog handles POST /api/blogs/:id/publish
func (s *Server) PublishBlog(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	blog, err := s.blogService.Publish(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(blog)
}

// LikeBlog handles POST /api/blogs/:id/like; liking again withdraws the like.
func (s *Server) LikeBlog(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.blogService.Like(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

// DislikeBlog handles POST /api/blogs/:id/dislike
func (s *Server) DislikeBlog(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.blogService.Dislike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

// AddBlogTag handles POST /api/blogs/:id/tags/:tagId
func (s *Server) AddBlogTag(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return nil
	}

	blog, err := s.blogService.AddTag(c.UserContext(), currentUserID(c), id, tagID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(blog)
}

// RemoveBlogTag handles DELETE /api/blogs/:id/tags/:tagId
func (s *Server) RemoveBlogTag(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return nil
	}

	blog, err := s.blogService.RemoveTag(c.UserContext(), currentUserID(c), id, tagID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(blog)
}

// GetTags handles GET /api/tags
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.tagService.ListTags(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(tags)
}

// CreateTag handles POST /api/tags (staff only)
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	tag, err := s.tagService.CreateTag(c.UserContext(), currentUserID(c), req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}
