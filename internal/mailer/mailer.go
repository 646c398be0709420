package mailer

import (
	"context"
	"fmt"
	"net/url"

	"gopkg.in/gomail.v2"
)

// Message is the one-way notification contract: send it or fail.
type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, pass: pass, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)

	if err := ctx.Err(); err != nil {
		return err
	}
	dialer := gomail.NewDialer(s.host, s.port, s.user, s.pass)
	return dialer.DialAndSend(msg)
}

// ApprovalLink builds the admin-facing redemption URL for a signed token.
func ApprovalLink(baseURL, token string) string {
	return fmt.Sprintf("%s/ciddt-admin/registro?token=%s", baseURL, url.QueryEscape(token))
}

// ApprovalMessage is the notification sent to the administrator when a
// new user asks to register.
func ApprovalMessage(adminEmail, name, subjectID, email, link string) Message {
	return Message{
		To:      adminEmail,
		Subject: "New user registration request",
		Body: fmt.Sprintf(
			"A new user named %s with id %s and email %s wants to register.\n"+
				"To approve the registration, open the following link: %s",
			name, subjectID, email, link),
	}
}
