package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "layout_start"}}<html><body style="font-family:Arial,sans-serif;color:#222">{{end}}
{{define "layout_end"}}<p style="color:#888;font-size:12px">Questions? Contact {{.SupportEmail}}.</p></body></html>{{end}}

{{define "welcome"}}{{template "layout_start"}}
<h2>Welcome to {{.CompanyName}}'s new workspace</h2>
<p>Hi {{.FirstName}},</p>
<p>Your ERP account is ready. Sign in with the credentials below and change your password after the first login.</p>
<table>
<tr><td>Login</td><td><a href="{{.LoginURL}}">{{.LoginURL}}</a></td></tr>
<tr><td>Email</td><td>{{.Email}}</td></tr>
<tr><td>Temporary password</td><td><code>{{.TempPassword}}</code></td></tr>
</table>
{{template "layout_end" .}}{{end}}

{{define "password_reset"}}{{template "layout_start"}}
<h2>Password reset</h2>
<p>Use this code to reset your password:</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
<p>The code expires in {{.ValidMinutes}} minutes. If you did not request a reset, ignore this email.</p>
{{template "layout_end" .}}{{end}}

{{define "subscription_confirmation"}}{{template "layout_start"}}
<h2>Subscription confirmed</h2>
<p>Thanks for subscribing to <strong>{{.PlanName}}</strong>.</p>
<table>
<tr><td>Amount</td><td>{{.Amount}}</td></tr>
<tr><td>Status</td><td>{{.Status}}</td></tr>
<tr><td>Current period ends</td><td>{{.PeriodEnd}}</td></tr>
</table>
{{template "layout_end" .}}{{end}}
`))

type WelcomeData struct {
	CompanyName  string
	FirstName    string
	Email        string
	TempPassword string
	LoginURL     string
	SupportEmail string
}

type PasswordResetData struct {
	Code         string
	TTL          time.Duration
	SupportEmail string
}

func (d PasswordResetData) ValidMinutes() int {
	return int(d.TTL.Minutes())
}

type SubscriptionConfirmationData struct {
	PlanName     string
	Amount       string
	Status       string
	PeriodEnd    string
	SupportEmail string
}

// Welcome renders the onboarding email sent after provisioning.
func Welcome(to string, d WelcomeData) (Message, error) {
	return render(to, "Your ERP workspace is ready", "welcome", "welcome", d)
}

func PasswordReset(to string, d PasswordResetData) (Message, error) {
	return render(to, "Your password reset code", "password-reset", "password_reset", d)
}

func SubscriptionConfirmation(to string, d SubscriptionConfirmationData) (Message, error) {
	return render(to, fmt.Sprintf("Subscription confirmed: %s", d.PlanName), "subscription-confirmation", "subscription_confirmation", d)
}

func render(to, subject, tag, name string, data any) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", name, err)
	}
	return Message{To: to, Subject: headerValue(subject), HTML: buf.String(), Tag: tag}, nil
}
