package tokens

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// OTPGenerator produces 6-digit reset codes. Each code is derived from a fresh
// random secret, so codes are independent of each other and of the user.
type OTPGenerator struct {
	ttl time.Duration
	now func() time.Time
}

// NewOTPGenerator returns a generator whose codes expire ttl after issue.
func NewOTPGenerator(ttl time.Duration) *OTPGenerator {
	return &OTPGenerator{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (g *OTPGenerator) WithClock(now func() time.Time) *OTPGenerator {
	g.now = now
	return g
}

// TTL is the lifetime of generated codes.
func (g *OTPGenerator) TTL() time.Duration {
	return g.ttl
}

// Generate returns a new code and its expiry.
func (g *OTPGenerator) Generate() (string, time.Time, error) {
	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", time.Time{}, fmt.Errorf("generate otp secret: %w", err)
	}

	period := uint(g.ttl / time.Second)
	if period == 0 {
		period = 30
	}

	now := g.now()
	code, err := totp.GenerateCodeCustom(
		base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret),
		now,
		totp.ValidateOpts{
			Period:    period,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate otp code: %w", err)
	}
	return code, now.Add(g.ttl), nil
}
