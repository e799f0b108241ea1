// Package mailer delivers event cards to users over SMTP.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"

	"github.com/MrWong99/socialsync/internal/event"
)

// Config holds the SMTP delivery parameters. Host and Sender must be set;
// Password may be empty for unauthenticated relays.
type Config struct {
	Host     string
	Port     int
	Sender   string
	Password string
}

// Mailer sends HTML event emails through a single SMTP account.
type Mailer struct {
	cfg  Config
	tmpl *template.Template

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a Mailer for cfg. Returns an error when the host or sender is
// missing.
func New(cfg Config) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mailer: smtp host is required")
	}
	if cfg.Sender == "" {
		return nil, fmt.Errorf("mailer: sender address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, tmpl: eventTemplate, send: smtp.SendMail}, nil
}

// SendEvent mails an event card to recipient. The subject carries the event
// title and the body is the rendered HTML card.
func (m *Mailer) SendEvent(recipient string, ev event.Event) error {
	if !strings.Contains(recipient, "@") {
		return fmt.Errorf("mailer: invalid recipient %q", recipient)
	}

	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, ev); err != nil {
		return fmt.Errorf("mailer: render event card: %w", err)
	}

	subject := "Event Found: " + ev.Title
	if ev.Title == "" {
		subject = "Event Found: Cool Event"
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.Sender)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	var auth smtp.Auth
	if m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Sender, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.Sender, []string{recipient}, msg.Bytes()); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", recipient, err)
	}
	return nil
}

var eventTemplate = template.Must(template.New("event").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; border: 1px solid #ddd; border-radius: 8px; overflow: hidden;">
    <div style="background-color: #2563EB; padding: 20px; text-align: center; color: white;">
      <h1 style="margin: 0;">SocialSync Event</h1>
      <p>We found something matching your vibe!</p>
    </div>
    <div style="padding: 20px;">
      <h2 style="color: #1F2937;">{{.Title}}</h2>
      <p><strong>&#128197; Date:</strong> {{.Date}}</p>
      <p><strong>&#128205; Location:</strong> {{.Location}}</p>
      <p><strong>&#128176; Cost:</strong> {{.Cost}}</p>
      <hr style="border: 0; border-top: 1px solid #eee; margin: 20px 0;">
      <p style="font-style: italic;">&quot;{{.Description}}&quot;</p>
      <div style="text-align: center; margin-top: 30px;">
        <a href="{{.URL}}"
           style="background-color: #10B981; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; font-weight: bold;">
           Check Full Details
        </a>
      </div>
    </div>
    <div style="background-color: #f9fafb; padding: 15px; text-align: center; font-size: 12px; color: #6b7280;">
      <p>Sent by SocialSync.</p>
    </div>
  </div>
</body>
</html>`))
