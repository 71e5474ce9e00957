package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"apao/internal/domain"
)

const welcomeTemplate = "welcome"

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendWelcomeMessage renders the welcome template for a newly registered user and mails it.
func (s *emailService) SendWelcomeMessage(ctx context.Context, data *domain.WelcomeMessageEmailData) error {
	if data == nil || data.Email == "" {
		return errors.New("welcome email: recipient is required")
	}
	subject, html, text, err := s.renderer.Render(welcomeTemplate, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", welcomeTemplate, err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, html, text); err != nil {
		return fmt.Errorf("send %s: %w", welcomeTemplate, err)
	}
	s.logger.InfoContext(ctx, "welcome email sent", "user_id", data.UserID)
	return nil
}
