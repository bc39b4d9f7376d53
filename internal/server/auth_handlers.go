package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Email     string `json:"email"`
		Username  string `json:"username"`
		Name      string `json:"name"`
		Password1 string `json:"password1"`
		Password2 string `json:"password2"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, notice, err := s.accountService.Register(c.UserContext(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Name:      req.Name,
		Password1: req.Password1,
		Password2: req.Password2,
	})
	if err != nil {
		return fail(c, err)
	}

	return respondNotice(c, fiber.StatusCreated, fiber.Map{
		"message": "Account created. Check your email to verify your account.",
		"user":    user,
	}, notice)
}

// VerifyAccount handles POST /api/auth/verify. A valid link signs the user in.
func (s *Server) VerifyAccount(c *fiber.Ctx) error {
	var req struct {
		UID   string `json:"uid"`
		Token string `json:"token"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.accountService.VerifyAccount(c.UserContext(), req.UID, req.Token)
	if err != nil {
		return fail(c, err)
	}
	if user, err = s.accountService.StartSession(c.UserContext(), user); err != nil {
		return fail(c, err)
	}
	return s.issueSession(c, user)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	user, err := s.accountService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return s.issueSession(c, user)
}

// Logout handles POST /api/auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	s.revokeSession(c)
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// ChangePassword handles POST /api/auth/password/change
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		OldPassword string `json:"old_password"`
		Password1   string `json:"password1"`
		Password2   string `json:"password2"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	err := s.accountService.ChangePassword(c.UserContext(), currentUserID(c), service.ChangePasswordInput{
		OldPassword: req.OldPassword,
		Password1:   req.Password1,
		Password2:   req.Password2,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed"})
}

// RequestPasswordReset handles POST /api/auth/password/reset
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	notice, err := s.accountService.RequestPasswordResetLink(c.UserContext(), req.Email)
	if err != nil {
		return fail(c, err)
	}
	return respondNotice(c, fiber.StatusOK, fiber.Map{
		"message": "A password reset link has been sent to your email.",
	}, notice)
}

// ConfirmPasswordReset handles POST /api/auth/password/reset/confirm
func (s *Server) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req struct {
		UID       string `json:"uid"`
		Token     string `json:"token"`
		Password1 string `json:"password1"`
		Password2 string `json:"password2"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	err := s.accountService.ConfirmPasswordResetLink(c.UserContext(), service.ResetWithLinkInput{
		UID:       req.UID,
		Token:     req.Token,
		Password1: req.Password1,
		Password2: req.Password2,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset"})
}

// RequestPasswordOTP handles POST /api/auth/password/otp
func (s *Server) RequestPasswordOTP(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	notice, err := s.accountService.RequestPasswordResetOTP(c.UserContext(), req.Email)
	if err != nil {
		return fail(c, err)
	}
	return respondNotice(c, fiber.StatusOK, fiber.Map{
		"message":            "A reset code has been sent to your email.",
		"expires_in_seconds": int(s.tokenService.OTPTTL().Seconds()),
	}, notice)
}

// ConfirmPasswordOTP handles POST /api/auth/password/otp/confirm
func (s *Server) ConfirmPasswordOTP(c *fiber.Ctx) error {
	var req struct {
		Email     string `json:"email"`
		Token     string `json:"token"`
		Password1 string `json:"password1"`
		Password2 string `json:"password2"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	err := s.accountService.ConfirmPasswordResetOTP(c.UserContext(), service.ResetWithOTPInput{
		Email:     req.Email,
		Code:      req.Token,
		Password1: req.Password1,
		Password2: req.Password2,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset"})
}

// issueSession answers with a fresh session token, also set as a cookie for browser clients.
func (s *Server) issueSession(c *fiber.Ctx, user *models.User) error {
	token, err := s.generateToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	s.setSessionCookie(c, token)
	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}
