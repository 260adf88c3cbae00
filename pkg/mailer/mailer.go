package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Mailer sends plain-text email over SMTP with optional AUTH.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	fromName string
	fromAddr string
}

// NewMailer constructs a Mailer. Username may be empty for unauthenticated
// relays, in which case no AUTH is attempted.
func NewMailer(host string, port int, username, password, fromName, fromAddr string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

// Send delivers a single plain-text message to the given recipient.
func (m *Mailer) Send(to, subject, body string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s <%s>\r\n", m.fromName, m.fromAddr)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", sanitizeHeader(subject))
	fmt.Fprintf(&sb, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.fromAddr, []string{to}, []byte(sb.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// sanitizeHeader strips CR/LF to prevent header injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
