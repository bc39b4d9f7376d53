package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/profile
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	stats, err := s.profileService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

// UpdateMyProfile handles PUT /api/profile
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Bio string `json:"bio"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	stats, err := s.profileService.UpdateBio(c.UserContext(), currentUserID(c), req.Bio)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

// GetFollowers handles GET /api/profile/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	users, err := s.profileService.Followers(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(models.PublicUsers(users))
}

// GetFollowing handles GET /api/profile/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	users, err := s.profileService.Following(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(models.PublicUsers(users))
}

// GetSavedBlogs handles GET /api/profile/saved
func (s *Server) GetSavedBlogs(c *fiber.Ctx) error {
	userID := currentUserID(c)
	page := parsePagination(c, 20)

	blogs, err := s.profileService.SavedBlogs(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return fail(c, err)
	}
	if err := s.blogService.Decorate(c.UserContext(), userID, blogs); err != nil {
		return fail(c, err)
	}
	return c.JSON(blogs)
}

// FollowUser handles POST /api/profile/follow/:userId
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	if err := s.profileService.Follow(c.UserContext(), currentUserID(c), targetID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"following": true})
}

// UnfollowUser handles DELETE /api/profile/follow/:userId
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	targetID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	if err := s.profileService.Unfollow(c.UserContext(), currentUserID(c), targetID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"following": false})
}

// SaveBlog handles POST /api/profile/saved/:blogId
func (s *Server) SaveBlog(c *fiber.Ctx) error {
	blogID, err := parseID(c, "blogId")
	if err != nil {
		return nil
	}
	if err := s.profileService.SaveBlog(c.UserContext(), currentUserID(c), blogID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"saved": true})
}

// UnsaveBlog handles DELETE /api/profile/saved/:blogId
func (s *Server) UnsaveBlog(c *fiber.Ctx) error {
	blogID, err := parseID(c, "blogId")
	if err != nil {
		return nil
	}
	if err := s.profileService.UnsaveBlog(c.UserContext(), currentUserID(c), blogID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"saved": false})
}

// AddProfileTag handles POST /api/profile/tags/:tagId
func (s *Server) AddProfileTag(c *fiber.Ctx) error {
	return s.changeProfileTag(c, true)
}

// RemoveProfileTag handles DELETE /api/profile/tags/:tagId
func (s *Server) RemoveProfileTag(c *fiber.Ctx) error {
	return s.changeProfileTag(c, false)
}

func (s *Server) changeProfileTag(c *fiber.Ctx, add bool) error {
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)
	if add {
		err = s.profileService.AddTag(c.UserContext(), userID, tagID)
	} else {
		err = s.profileService.RemoveTag(c.UserContext(), userID, tagID)
	}
	if err != nil {
		return fail(c, err)
	}

	stats, err := s.profileService.GetProfile(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}
