package service

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/mail"
)

// NotificationService renders and sends the emails behind registration
// events. Delivery is best-effort: a failed send is logged and swallowed,
// never propagated back into the flow that emitted the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     mail.Mailer
	logger     *zap.Logger
	cfg        config.MailConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer mail.Mailer, logger *zap.Logger, cfg config.MailConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventVerificationRequested, n.handleVerificationRequested)
	n.dispatcher.Subscribe(events.EventAccountPromoted, n.handleAccountPromoted)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
}

func (n *NotificationService) handleVerificationRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.VerificationRequestedPayload)
	if !ok {
		return nil
	}

	confirmURL := n.actionURL("/register/email/confirm", event.Email, payload.TokenValue)
	declineURL := n.actionURL("/register/email/decline", event.Email, payload.TokenValue)

	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Please confirm your email address.</p>"+
			"<p><a href=%q>Confirm registration</a></p>"+
			"<p>Not you? <a href=%q>Decline</a> and we will delete this signup.</p>",
		payload.FirstName, confirmURL, declineURL)

	n.send(ctx, event.Email, "Confirm your registration", body)
	return nil
}

func (n *NotificationService) handleAccountPromoted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountPromotedPayload)
	if !ok {
		return nil
	}

	body := fmt.Sprintf("<p>Welcome %s!</p><p>Your account is ready.</p>", payload.FirstName)
	if payload.UnsubscribeTokenValue != "" {
		unsubURL := fmt.Sprintf("%s/subscription/unsubscribe?token=%s",
			n.cfg.PublicBaseURL, url.QueryEscape(payload.UnsubscribeTokenValue))
		body += fmt.Sprintf("<p><a href=%q>Unsubscribe</a> from our newsletter.</p>", unsubURL)
	}

	n.send(ctx, event.Email, "Welcome!", body)
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return nil
	}

	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Use this token to reset your password: <code>%s</code></p>"+
			"<p>If you did not request a reset, ignore this email.</p>",
		payload.FirstName, payload.TokenValue)

	n.send(ctx, event.Email, "Password reset", body)
	return nil
}

func (n *NotificationService) send(ctx context.Context, to, subject, body string) {
	outcome, err := n.mailer.Send(ctx, mail.Message{To: to, Subject: subject, HTMLBody: body})
	if err != nil {
		n.logger.Error("email send failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return
	}
	n.logger.Debug("email sent",
		zap.String("to", to),
		zap.String("id", outcome.ID),
		zap.String("status", outcome.Status))
}

func (n *NotificationService) actionURL(path, email, token string) string {
	return fmt.Sprintf("%s%s?email=%s&token=%s",
		n.cfg.PublicBaseURL, path, url.QueryEscape(email), url.QueryEscape(token))
}
