// Package mail sends the booking confirmation and notification emails.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"bookcal/internal/model"
)

// Sender delivers a single plain-text message.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay without authentication
// (a local relay or a submission proxy is expected in front).
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender creates a sender for host:port with the given From header.
func NewSMTPSender(host, port, from string) *SMTPSender {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@bookcal.local"
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%s", host, port),
		from: from,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := buildMessage(s.from, to, subject, body)
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

// buildMessage assembles a minimal RFC 5322 message; enough for common
// relays.
func buildMessage(from, to, subject, body string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		body,
	)
}

// ConfirmationBody renders the message sent to the visitor after a booking
// request.
func ConfirmationBody(b model.Booking) (subject, body string) {
	subject = "Confirmation de votre rendez-vous"

	var sb strings.Builder
	fmt.Fprintf(&sb, "Bonjour %s,\n\n", b.Name)
	fmt.Fprintf(&sb, "Votre rendez-vous a été confirmé pour le %s à %s.\n", b.Date, b.Time)
	if b.Video {
		sb.WriteString("Le rendez-vous se déroulera en visioconférence ; le lien vous sera envoyé quelques minutes avant.\n")
	}
	if b.Message != "" {
		fmt.Fprintf(&sb, "\nMessage : %s\n", b.Message)
	}
	sb.WriteString("\nNous vous attendons !\n")

	return subject, sb.String()
}

// NotificationBody renders the internal message sent to the advisor.
func NotificationBody(b model.Booking) (subject, body string) {
	subject = "Nouveau rendez-vous"

	var sb strings.Builder
	fmt.Fprintf(&sb, "Client : %s\n", b.Name)
	fmt.Fprintf(&sb, "Email : %s\n", b.Email)
	fmt.Fprintf(&sb, "Date : %s\n", b.Date)
	fmt.Fprintf(&sb, "Heure : %s\n", b.Time)
	if b.Video {
		sb.WriteString("Visioconférence demandée : créer la réunion et envoyer le lien au client.\n")
	}
	if b.Message != "" {
		fmt.Fprintf(&sb, "Message : %s\n", b.Message)
	}

	return subject, sb.String()
}
