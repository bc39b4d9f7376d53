package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const (
	KindVerifyEmail  = "verify_email"
	KindResetLink    = "password_reset_link"
	KindResetOTP     = "password_reset_otp"
	verifySubject    = "Activate your Inkwell account"
	resetLinkSubject = "Reset your Inkwell password"
	resetCodeSubject = "Your Inkwell password reset code"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "verify"}}<p>Hi {{.Username}},</p>
<p>Please confirm your email address to activate your account:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not sign up, you can ignore this message.</p>{{end}}

{{define "reset_link"}}<p>Hi {{.Username}},</p>
<p>We received a request to reset your password. Use the link below to choose a new one:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not ask for this, no action is needed.</p>{{end}}

{{define "reset_otp"}}<p>Hi {{.Username}},</p>
<p>Your password reset code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.Minutes}} minutes.</p>{{end}}
`))

type templateData struct {
	Username string
	Link     string
	Code     string
	Minutes  int
}

// Composer renders account emails.
type Composer struct{}

func render(name string, data templateData) (string, error) {
	var b bytes.Buffer
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return b.String(), nil
}

// Verification builds the account activation email.
func (Composer) Verification(to, username, link string) (Message, error) {
	body, err := render("verify", templateData{Username: username, Link: link})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: verifySubject, HTML: body, Kind: KindVerifyEmail}, nil
}

// ResetLink builds the password reset link email.
func (Composer) ResetLink(to, username, link string) (Message, error) {
	body, err := render("reset_link", templateData{Username: username, Link: link})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: resetLinkSubject, HTML: body, Kind: KindResetLink}, nil
}

// ResetCode builds the one-time reset code email.
func (Composer) ResetCode(to, username, code string, ttl time.Duration) (Message, error) {
	body, err := render("reset_otp", templateData{Username: username, Code: code, Minutes: int(ttl / time.Minute)})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: resetCodeSubject, HTML: body, Kind: KindResetOTP}, nil
}
