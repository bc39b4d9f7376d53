// Package tokens issues and checks the credentials emailed to users: signed
// account links and one-time reset codes.
package tokens

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose scopes a link token to one workflow.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify-email"
	PurposeResetPassword Purpose = "reset-password"
)

const (
	linkIssuer     = "inkwell-links"
	payloadVersion = 1
)

var (
	ErrInvalid = errors.New("token is invalid")
	ErrExpired = errors.New("token has expired")
)

type linkClaims struct {
	Version     int     `json:"ver"`
	Purpose     Purpose `json:"purpose"`
	Fingerprint string  `json:"fp"`
	jwt.RegisteredClaims
}

// LinkSigner issues stateless link tokens. A token stays valid only while the
// account state it was derived from is unchanged: a password change, a login,
// or email verification each invalidate every outstanding link.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLinkSigner returns a signer using secret for HMAC and ttl as the outer age bound.
func NewLinkSigner(secret []byte, ttl time.Duration) *LinkSigner {
	return &LinkSigner{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *LinkSigner) WithClock(now func() time.Time) *LinkSigner {
	s.now = now
	return s
}

// Issue signs a link token for user.
func (s *LinkSigner) Issue(user *models.User, purpose Purpose) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("link token secret not configured")
	}
	now := s.now()
	claims := linkClaims{
		Version:     payloadVersion,
		Purpose:     purpose,
		Fingerprint: Fingerprint(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    linkIssuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign link token: %w", err)
	}
	return signed, nil
}

// Verify checks token against user's current state. It returns ErrExpired when
// the age bound has passed and ErrInvalid for any other mismatch.
func (s *LinkSigner) Verify(user *models.User, purpose Purpose, token string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(linkIssuer),
		jwt.WithTimeFunc(s.now),
	)

	var claims linkClaims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case err != nil:
		return ErrInvalid
	}

	if claims.Version != payloadVersion || claims.Purpose != purpose || claims.Subject != user.ID.String() {
		return ErrInvalid
	}
	if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(Fingerprint(user))) != 1 {
		return ErrInvalid
	}
	return nil
}

// Fingerprint digests the account state a link token is bound to.
func Fingerprint(user *models.User) string {
	var lastLogin int64
	if user.LastLogin != nil {
		lastLogin = user.LastLogin.Unix()
	}
	h := sha256.New()
	h.Write([]byte(user.ID.String()))
	h.Write([]byte{0})
	h.Write([]byte(user.Password))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(lastLogin, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(user.IsEmailVerified)))
	return hex.EncodeToString(h.Sum(nil))
}

// EncodeUID renders a user id as the URL-safe segment carried next to a link token.
func EncodeUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uid string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return uuid.Nil, ErrInvalid
	}
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, ErrInvalid
	}
	return id, nil
}
