package email

import (
	"bytes"
	"html/template"
)

// TemplateManager holds the parsed email templates.
type TemplateManager struct {
	NotificationTmpl *template.Template
	ResetPassTmpl    *template.Template
}

// NewTemplateManager parses all email templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	notificationTmpl, err := template.New("notification").Parse(notificationTemplate)
	if err != nil {
		return nil, err
	}

	resetPassTmpl, err := template.New("resetPassword").Parse(passwordResetTemplate)
	if err != nil {
		return nil, err
	}

	return &TemplateManager{
		NotificationTmpl: notificationTmpl,
		ResetPassTmpl:    resetPassTmpl,
	}, nil
}

// TemplateData holds the dynamic data for an email template.
type TemplateData struct {
	Name    string
	Title   string
	Message string
	Link    string
}

// GenerateNotificationEmailHTML renders the freight-request notification email.
func (tm *TemplateManager) GenerateNotificationEmailHTML(data TemplateData) (string, error) {
	var body bytes.Buffer
	if err := tm.NotificationTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// GenerateResetPasswordEmailHTML executes the password reset template.
func (tm *TemplateManager) GenerateResetPasswordEmailHTML(data TemplateData) (string, error) {
	var body bytes.Buffer
	if err := tm.ResetPassTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// --- HTML Template Definitions ---

const notificationTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>{{.Title}}</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>{{.Title}}</h2>
	<p>Hello {{.Name}},</p>
	<p>{{.Message}}</p>
	{{if .Link}}<p><a href="{{.Link}}">View request</a></p>{{end}}
	<p>LogMene</p>
</body>
</html>
`

const passwordResetTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Reset Your Password</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Password Reset Request</h2>
	<p>Hello {{.Name}},</p>
	<p>We received a request to reset your password. Please click the link below to set a new password:</p>
	<p><a href="{{.Link}}">Reset Password</a></p>
	<p>This link will expire in 15 minutes.</p>
	<p>If you did not request a password reset, please ignore this email.</p>
</body>
</html>
`
