package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Short Is Allowed", "p1", false},
		{"Exactly Max Length", strings.Repeat("a", MaxPasswordLength), false},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("a", MaxPasswordLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "alice", false},
		{"Unicode Counts Runes", "ålice", false},
		{"Too Short", "bob", true},
		{"Four Characters", "abcd", true},
		{"Too Long", strings.Repeat("u", MaxUsernameLength+1), true},
		{"Padded", " alice ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "a@x.com", false},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Multiple At Symbols", "user@@example.com", true},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("a", 60) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	type request struct {
		Email     string `json:"email" validate:"required,email"`
		Password1 string `json:"password1" validate:"required"`
		Password2 string `json:"password2" validate:"required,eqfield=Password1"`
	}

	err := Struct(request{Email: "a@x.com", Password1: "one", Password2: "two"})
	require.Error(t, err)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "password2", fe.Field)

	err = Struct(request{Password1: "one", Password2: "one"})
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "email", fe.Field)
	assert.Equal(t, "email is required", fe.Message)

	assert.NoError(t, Struct(request{Email: "a@x.com", Password1: "one", Password2: "one"}))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Alice@example.com", NormalizeEmail("  Alice@EXAMPLE.com "))
	assert.Equal(t, "nodomain", NormalizeEmail("nodomain"))
}
