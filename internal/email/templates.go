package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/sitebeam/notify-service/internal/model"
)

// templateData is what every email template renders against.
type templateData struct {
	ToName  string
	Title   string
	Message string
	Payload model.Payload
}

type emailTemplate struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

const baseHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222; max-width: 600px; margin: 0 auto;">
	<h2 style="color: #1a56db;">{{.Title}}</h2>
	{{if .ToName}}<p>Hi {{.ToName}},</p>{{end}}
	<p>{{.Message}}</p>
	<p style="color: #888; font-size: 12px;">You are receiving this because of your notification settings. Manage them in your account preferences.</p>
</body>
</html>`

const baseText = `{{.Title}}

{{if .ToName}}Hi {{.ToName}},

{{end}}{{.Message}}

You are receiving this because of your notification settings.`

var subjects = map[model.NotificationType]string{
	model.NotificationTypeSystem:                "Announcement: %s",
	model.NotificationTypeTaskAssigned:          "Task assigned to you: %s",
	model.NotificationTypeTaskUpdated:           "Task updated: %s",
	model.NotificationTypeTaskComment:           "New comment: %s",
	model.NotificationTypeCommentMention:        "You were mentioned: %s",
	model.NotificationTypeTaskUnassigned:        "Task unassigned: %s",
	model.NotificationTypeFormAssigned:          "Form assigned to you: %s",
	model.NotificationTypeFormUnassigned:        "Form unassigned: %s",
	model.NotificationTypeApprovalRequested:     "Approval requested: %s",
	model.NotificationTypeApprovalStatusChanged: "Approval update: %s",
	model.NotificationTypeOrganizationAdded:     "You were added to an organization: %s",
	model.NotificationTypeProjectAdded:          "You were added to a project: %s",
	model.NotificationTypeEntityAssigned:        "Assigned to you: %s",
}

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("base").Parse(baseHTML))
	textTmpl = texttemplate.Must(texttemplate.New("base").Parse(baseText))
)

// Render produces the stored email payload for a notification. The subject
// line is keyed by notification type; the body uses a shared layout.
func Render(n *model.Notification, toAddr, toName string) (*model.EmailContent, error) {
	subjectFormat, ok := subjects[n.Type]
	if !ok {
		return nil, fmt.Errorf("no email template for notification type: %s", n.Type)
	}

	payload, err := model.DecodePayload(n.Type, n.Payload)
	if err != nil {
		return nil, err
	}

	data := templateData{
		ToName:  toName,
		Title:   n.Title,
		Message: n.Message,
		Payload: payload,
	}

	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	var textBuf bytes.Buffer
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}

	return &model.EmailContent{
		To:       toAddr,
		ToName:   toName,
		Subject:  fmt.Sprintf(subjectFormat, n.Title),
		HTMLBody: htmlBuf.String(),
		TextBody: textBuf.String(),
	}, nil
}
