package notify

import (
	"context"
	"fmt"
	"myfuelportal-backend/internal/components/assert"
	"myfuelportal-backend/internal/components/telemetry"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("notify")

const report_notify_send = "notify.send"

type Message struct {
	Subject string
	Body    string
}

// Notifier tells the tank's owner about something that needs their attention.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// To are the addresses notifications are sent to.
	To []string `json:"to"`
}

func (c SmtpConfig) Configured() bool {
	return c.Server != "" && c.EmailAddress != "" && len(c.To) > 0
}

type EmailNotifier struct {
	config SmtpConfig
}

func NewEmailNotifier(config SmtpConfig) EmailNotifier {
	assert.NotEmptyStr(config.Server, "smtp server")
	if config.Port == 0 {
		config.Port = 587
	}
	return EmailNotifier{config: config}
}

func (n EmailNotifier) message(msg Message) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("My Fuel Portal <%s>", n.config.EmailAddress)
	mail.To = n.config.To
	mail.Subject = msg.Subject
	mail.Text = []byte(msg.Body)
	return mail
}

func (n EmailNotifier) Notify(ctx context.Context, msg Message) error {
	ctx, span := tracer.Start(ctx, "Notify")
	defer span.End()

	mail := n.message(msg)
	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)

	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// TelemetryNotifier writes notifications to telemetry, for when no mail
// server is configured.
type TelemetryNotifier struct {
	tel telemetry.API
}

func NewTelemetryNotifier(tel telemetry.API) TelemetryNotifier {
	assert.NotNil(tel, "tel")
	return TelemetryNotifier{tel: tel}
}

func (n TelemetryNotifier) Notify(ctx context.Context, msg Message) error {
	n.tel.ReportWarning(report_notify_send, msg.Subject, msg.Body)
	return nil
}

// Multi sends every notification through each notifier, it returns the first
// error but always tries all of them.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var first error
	for _, n := range m {
		err := n.Notify(ctx, msg)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
