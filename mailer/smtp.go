package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SMTPSender delivers messages through an SMTP relay
type SMTPSender struct {
	addr string
	host string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender for host:port. Credentials are optional.
func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	s := &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		send: smtp.SendMail,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

// Send implements Sender. smtp.SendMail does not take a context, the
// context is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := msg.From
	if addr, err := parseAddress(msg.From); err == nil {
		from = addr
	}

	if err := s.send(s.addr, s.auth, from, []string{msg.To}, buildMIME(msg, time.Now())); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send email to "+msg.To)
	}

	return nil
}

func parseAddress(value string) (string, error) {
	start := strings.LastIndex(value, "<")
	end := strings.LastIndex(value, ">")
	if start >= 0 && end > start {
		return value[start+1 : end], nil
	}
	if strings.Contains(value, "@") {
		return strings.TrimSpace(value), nil
	}
	return "", fmt.Errorf("invalid address %q", value)
}

func buildMIME(msg Message, now time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}
