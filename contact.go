package clubsite

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// ContactMessage is a prepared email. The site does not send mail itself;
// the visitor opens one of the links in their own client.
type ContactMessage struct {
	To        string
	Subject   string
	Body      string
	MailtoURL string
	GmailURL  string
}

const frameWidth = 78

func frameLine(ch string) string {
	return strings.Repeat(ch, frameWidth)
}

func section(b *strings.Builder, title string, lines ...string) {
	fmt.Fprintf(b, "+-- %s %s\n", title, strings.Repeat("-", frameWidth-len(title)-5))
	for _, l := range lines {
		b.WriteString("| " + l + "\n")
	}
	b.WriteString("+" + frameLine("-")[1:] + "\n\n")
}

// BuildContactMessage formats the contact form as a framed plain-text
// message addressed to the club.
func BuildContactMessage(f ContactForm, clubName, to string, at time.Time) ContactMessage {
	var b strings.Builder
	b.WriteString(frameLine("=") + "\n")
	b.WriteString("  " + strings.ToUpper(clubName) + "\n")
	b.WriteString("  Contact form message\n")
	b.WriteString(frameLine("=") + "\n\n")

	section(&b, "FROM",
		"Name: "+f.Name,
		"Email: "+f.Email,
		"Sent: "+at.UTC().Format(time.RFC3339),
	)
	section(&b, "SUBJECT", f.Subject)
	section(&b, "MESSAGE", strings.Split(f.Message, "\n")...)

	b.WriteString(frameLine("=") + "\n")
	b.WriteString("  Sent via the " + clubName + " website\n")
	b.WriteString(frameLine("="))

	body := b.String()
	return ContactMessage{
		To:        to,
		Subject:   f.Subject,
		Body:      body,
		MailtoURL: MailtoURL(to, f.Subject, body),
		GmailURL:  GmailURL(to, f.Subject, body),
	}
}

// uriComponent escapes like a query value but with %20 for spaces, which
// mail clients handle more consistently than "+".
func uriComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// MailtoURL builds a mailto: link with subject and body.
func MailtoURL(to, subject, body string) string {
	return "mailto:" + to + "?subject=" + uriComponent(subject) + "&body=" + uriComponent(body)
}

// GmailURL builds a Gmail web compose link.
func GmailURL(to, subject, body string) string {
	return "https://mail.google.com/mail/?view=cm&fs=1&to=" + uriComponent(to) +
		"&su=" + uriComponent(subject) + "&body=" + uriComponent(body)
}

func (a *App) handleContact(c echo.Context) error {
	return Render(c, a.Views.Contact(ContactPage{
		Page: a.newPage(c, "Contact", "Get in touch with "+a.Club().Name+"."),
	}))
}

func (a *App) handleContactSubmit(c echo.Context) error {
	var f ContactForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.trim()
	p := ContactPage{Form: f}
	code := http.StatusOK
	if err := c.Validate(&f); err != nil {
		p.Errors = fieldErrors(err)
		code = http.StatusUnprocessableEntity
	} else {
		club := a.Club()
		msg := BuildContactMessage(f, club.Name, club.ContactEmail, now())
		p.Message = &msg
	}
	p.Page = a.newPage(c, "Contact", "Get in touch with "+a.Club().Name+".")
	return RenderStatus(c, code, a.Views.Contact(p))
}
