package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/resendlabs/resend-go"
	"go.uber.org/zap"
)

// Sender delivers account mail. The auth service treats every send as best effort.
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
	SendInvite(ctx context.Context, to, eventName, link string) error
}

type Config struct {
	APIKey   string
	From     string
	FromName string
}

type EmailService struct {
	client   *resend.Client
	from     string
	fromName string
	logger   *zap.Logger
}

const (
	otpSubject  = "KeepEvents email verification OTP"
	otpBodyText = "Your OTP is %s. It is valid for 5 minutes."
)

var otpTemplate = template.Must(template.New("otp").Parse(
	`<p>Your OTP is <strong>{{.Code}}</strong>. It is valid for 5 minutes.</p>`))

var inviteTemplate = template.Must(template.New("invite").Parse(
	`<p>You have been invited to <strong>{{.EventName}}</strong> on KeepEvents.</p>` +
		`<p><a href="{{.Link}}">Accept the invitation</a></p>`))

func NewEmailService(cfg Config, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:   resend.NewClient(cfg.APIKey),
		from:     cfg.From,
		fromName: cfg.FromName,
		logger:   logger.Named("email"),
	}
}

func (s *EmailService) SendOTP(ctx context.Context, to, code string) error {
	html, err := render(otpTemplate, map[string]interface{}{"Code": code})
	if err != nil {
		return err
	}
	return s.send(ctx, to, otpSubject, html, fmt.Sprintf(otpBodyText, code))
}

func (s *EmailService) SendInvite(ctx context.Context, to, eventName, link string) error {
	html, err := render(inviteTemplate, map[string]interface{}{
		"EventName": eventName,
		"Link":      link,
		"Year":      time.Now().Year(),
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("You're invited to %s - KeepEvents", eventName)
	return s.send(ctx, to, subject, html, "Open "+link+" to accept the invitation.")
}

func (s *EmailService) send(ctx context.Context, to, subject, html, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Warn("failed to send email", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("email sent", zap.String("to", to), zap.String("id", resp.Id))
	return nil
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", tmpl.Name(), err)
	}
	return body.String(), nil
}
