// Package mail sends plain-text email over SMTP. Without configured
// credentials it logs the message instead of sending, which keeps
// password resets usable in development.
package mail

import (
	"fmt"      // Message assembly
	"net/smtp" // SMTP client

	"github.com/sirupsen/logrus" // Logging library
)

// Mailer sends email through an SMTP relay
type Mailer struct {
	server   string // SMTP host
	port     string // SMTP port
	username string // SMTP username, empty enables dev mode
	password string // SMTP password
}

// NewMailer creates a mailer for the given SMTP relay
func NewMailer(server, port, username, password string) *Mailer {
	return &Mailer{server: server, port: port, username: username, password: password}
}

// Send delivers a plain-text message. Missing credentials log the mail
// instead of sending it.
func (m *Mailer) Send(to, subject, body string) error {
	if m.username == "" || m.password == "" {
		// Dev mode: surface the message in the logs
		logrus.WithFields(logrus.Fields{
			"to":      to,      // Recipient
			"subject": subject, // Subject line
		}).Info("SMTP not configured, logging email instead of sending")
		logrus.Info(body)
		return nil
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.username, to, subject, body)
	auth := smtp.PlainAuth("", m.username, m.password, m.server)
	addr := m.server + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.username, []string{to}, []byte(msg)); err != nil {
		logrus.WithFields(logrus.Fields{
			"to":    to,          // Recipient
			"error": err.Error(), // SMTP failure
		}).Error("Failed to send email")
		return err
	}
	return nil
}
