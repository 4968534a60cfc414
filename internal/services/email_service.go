package services

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// EmailService sends transactional email. Send returns the message id
// assigned to the outbound message.
type EmailService interface {
	Send(to, subject, htmlBody string) (string, error)
}

type smtpEmailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPEmailService(host string, port int, username, password, from string) EmailService {
	return &smtpEmailService{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *smtpEmailService) Send(to, subject, htmlBody string) (string, error) {
	messageID := uuid.New().String()

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@trainfit.app>", messageID))
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return messageID, nil
}
