// Package mailer delivers account notifications by email.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-accounts"
)

//go:embed templates
var templatesFS embed.FS

const (
	templateConfirmation  = "confirmation"
	templatePasswordReset = "password_reset"

	subjectConfirmation  = "APV - Comprueba tu cuenta"
	subjectPasswordReset = "APV - Reestablece tu password"
)

// Message is a rendered email
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender transports a rendered message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Notifier renders account emails and hands them to a Sender
type Notifier struct {
	engine      *django.Engine
	sender      Sender
	from        string
	frontendURL string
}

var _ accounts.Notifier = (*Notifier)(nil)

// NewNotifier loads the embedded templates. Links in the emails point to
// frontendURL.
func NewNotifier(sender Sender, from, frontendURL string) (*Notifier, error) {
	if sender == nil {
		return nil, goerrors.New("mailer requires a sender", goerrors.CategoryInternal)
	}

	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open email templates")
	}

	engine := django.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	return &Notifier{
		engine:      engine,
		sender:      sender,
		from:        from,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}, nil
}

// SendConfirmation implements accounts.Notifier
func (n *Notifier) SendConfirmation(ctx context.Context, note accounts.Notification) error {
	return n.send(ctx, note, templateConfirmation, subjectConfirmation, "/confirmar/")
}

// SendPasswordReset implements accounts.Notifier
func (n *Notifier) SendPasswordReset(ctx context.Context, note accounts.Notification) error {
	return n.send(ctx, note, templatePasswordReset, subjectPasswordReset, "/olvide-password/")
}

func (n *Notifier) send(ctx context.Context, note accounts.Notification, tpl, subject, path string) error {
	body, err := n.Render(tpl, note, n.frontendURL+path+note.Token)
	if err != nil {
		return err
	}

	return n.sender.Send(ctx, Message{
		From:    n.from,
		To:      note.Email,
		Subject: subject,
		HTML:    body,
	})
}

// Render renders the named template for note
func (n *Notifier) Render(name string, note accounts.Notification, url string) (string, error) {
	var buf bytes.Buffer
	err := n.engine.Render(&buf, name, map[string]any{
		"nombre": note.Name,
		"email":  note.Email,
		"token":  note.Token,
		"url":    url,
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email "+name)
	}
	return buf.String(), nil
}
