package notify

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/edgelink/edgelink/internal/model"
)

// Renderer produces the subject and body for one notification kind.
// Templates are opaque to the dispatcher; production supplies branded
// HTML, this package ships a plain-text default.
type Renderer interface {
	Render(kind model.NotificationKind, params map[string]string) (subject, body string, err error)
}

// templateRenderer renders canned text/template bodies.
type templateRenderer struct {
	subjects  map[model.NotificationKind]string
	templates map[model.NotificationKind]*template.Template
}

var defaultBodies = map[model.NotificationKind]string{
	model.NotifyVerification:    "Hi,\n\nConfirm your EdgeLink account by visiting:\n{{.link}}\n\nThe link expires in 24 hours.",
	model.NotifyPasswordReset:   "Hi,\n\nReset your EdgeLink password here:\n{{.link}}\n\nIf you did not request this, you can ignore this email.",
	model.NotifyPasswordChanged: "Hi,\n\nYour EdgeLink password was just changed. If this wasn't you, contact support immediately.",
	model.NotifyUnverifiedWarn:  "Hi,\n\nYour EdgeLink account is still unverified and will be limited until you confirm your email:\n{{.link}}",
	model.NotifyAccountDeletion: "Hi,\n\nConfirm deletion of your EdgeLink account:\n{{.link}}\n\nThis cannot be undone.",
}

var defaultSubjects = map[model.NotificationKind]string{
	model.NotifyVerification:    "Verify your EdgeLink email",
	model.NotifyPasswordReset:   "Reset your EdgeLink password",
	model.NotifyPasswordChanged: "Your EdgeLink password was changed",
	model.NotifyUnverifiedWarn:  "Action needed: verify your EdgeLink account",
	model.NotifyAccountDeletion: "Confirm account deletion",
}

// DefaultRenderer returns the built-in plain-text renderer.
func DefaultRenderer() Renderer {
	r := &templateRenderer{
		subjects:  defaultSubjects,
		templates: make(map[model.NotificationKind]*template.Template, len(defaultBodies)),
	}
	for kind, body := range defaultBodies {
		r.templates[kind] = template.Must(template.New(string(kind)).Parse(body))
	}
	return r
}

// Render implements Renderer.
func (r *templateRenderer) Render(kind model.NotificationKind, params map[string]string) (string, string, error) {
	tmpl, ok := r.templates[kind]
	if !ok {
		return "", "", fmt.Errorf("no template for notification kind %q", kind)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", "", fmt.Errorf("render %s template: %w", kind, err)
	}

	return r.subjects[kind], buf.String(), nil
}
