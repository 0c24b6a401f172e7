package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/mailer"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type emailTemplate struct {
	subject string
	html    *template.Template
	text    *texttemplate.Template
}

var emailTemplates = map[enums.NotificationKind]emailTemplate{
	enums.NotificationKindGuestOrder: {
		subject: "Your order has been placed",
		html: template.Must(template.New("guest_order").Parse(`<p>Hi {{.Name}},</p>
<p>Thanks for your order{{if .OrderID}} <strong>{{.OrderID}}</strong>{{end}}.{{if .Total}} Total: {{.Total}}.{{end}}</p>
{{if .Link}}<p>Create an account to track your orders: <a href="{{.Link}}">{{.Link}}</a></p>{{end}}`)),
		text: texttemplate.Must(texttemplate.New("guest_order").Parse(`Hi {{.Name}},
Thanks for your order{{if .OrderID}} {{.OrderID}}{{end}}.{{if .Total}} Total: {{.Total}}.{{end}}
{{if .Link}}Create an account to track your orders: {{.Link}}{{end}}`)),
	},
	enums.NotificationKindOrderStatus: {
		subject: "Your order status was updated",
		html: template.Must(template.New("order_status").Parse(`<p>Hi {{.Name}},</p>
<p>Order {{.OrderID}} is now <strong>{{.Status}}</strong>.</p>
{{if .Tracking}}<p>Tracking: {{.Tracking}}</p>{{end}}`)),
		text: texttemplate.Must(texttemplate.New("order_status").Parse(`Hi {{.Name}},
Order {{.OrderID}} is now {{.Status}}.
{{if .Tracking}}Tracking: {{.Tracking}}{{end}}`)),
	},
	enums.NotificationKindPasswordSetup: {
		subject: "Set your password",
		html: template.Must(template.New("password_setup").Parse(`<p>Hi {{.Name}},</p>
<p>Your account is ready. <a href="{{.Link}}">Set your password</a> to sign in.</p>`)),
		text: texttemplate.Must(texttemplate.New("password_setup").Parse(`Hi {{.Name}},
Your account is ready. Set your password to sign in: {{.Link}}`)),
	},
}

type templateData struct {
	Name     string
	OrderID  string
	Status   string
	Total    string
	Link     string
	Tracking string
}

// Render turns a notification event into a deliverable message.
func Render(event payloads.NotificationRequestedEvent) (mailer.Message, error) {
	tpl, ok := emailTemplates[event.Kind]
	if !ok {
		return mailer.Message{}, fmt.Errorf("no template for notification kind %q", event.Kind)
	}
	data := templateData{
		Name:     event.Name,
		Status:   event.Status,
		Link:     event.Link,
		Total:    event.Total,
		Tracking: event.Tracking,
	}
	if data.Name == "" {
		data.Name = "there"
	}
	if event.OrderID != nil {
		data.OrderID = event.OrderID.String()
	}

	var html, text bytes.Buffer
	if err := tpl.html.Execute(&html, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render html: %w", err)
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render text: %w", err)
	}
	return mailer.Message{
		To:      event.Recipient,
		Subject: tpl.subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
