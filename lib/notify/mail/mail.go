package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"scorepusher/lib/notify/fields"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("notify/email")

const Type = "email"

type Options struct {
	Server   string      `json:"server" validate:"required,hostname|ip"`
	Port     int         `json:"port" validate:"required,min=1,max=65535"`
	From     string      `json:"from" validate:"required"`
	To       fields.List `json:"to" validate:"required,min=1,dive,email"`
	Username string      `json:"username"`
	Password string      `json:"password"`
}

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func send(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

type Channel struct {
	opts Options
	send sendFunc
}

func New(config map[string]any) (*Channel, error) {
	opts, err := fields.Decode[Options](config)
	if err != nil {
		return nil, err
	}
	return &Channel{opts: opts, send: send}, nil
}

func (c *Channel) Type() string {
	return Type
}

// subject is the first line of the message, the change header.
func subject(message string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return "成绩通知"
	}
	return first
}

func (c *Channel) Push(ctx context.Context, message string) error {
	ctx, span := tracer.Start(ctx, "Push")
	defer span.End()

	// net/smtp does not take a context, at least do not start a send late
	err := ctx.Err()
	if err != nil {
		return err
	}

	mail := email.NewEmail()
	mail.From = c.opts.From
	mail.To = c.opts.To
	mail.Subject = subject(message)
	mail.Text = []byte(message)

	addr := fmt.Sprintf("%s:%d", c.opts.Server, c.opts.Port)
	span.SetAttributes(
		attribute.String("smtp.addr", addr),
		attribute.Int("recipients", len(c.opts.To)),
	)

	var auth smtp.Auth
	if c.opts.Username != "" {
		auth = smtp.PlainAuth("", c.opts.Username, c.opts.Password, c.opts.Server)
	}
	err = c.send(mail, addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		span.AddEvent("retrying without auth")
		err = c.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
