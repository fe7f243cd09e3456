// Package views renders the club site's pages. Templates are embedded
// html/template files adapted to templ.Component so they plug into
// clubsite.ViewFuncs.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/warpclub/clubsite"
	"github.com/warpclub/clubsite/analytics"
	"github.com/warpclub/clubsite/markdown"
)

//go:embed templates/*.html
var files embed.FS

// Shared by every page: the layout and the card/form partials.
var baseFiles = []string{"templates/layout.html", "templates/partials.html"}

var pageNames = []string{
	"home", "members", "events", "blog", "post", "feedbacks", "contact", "auth",
	"admin_dashboard", "admin_blog", "admin_events", "admin_post_form",
	"admin_event_form", "admin_images", "notfound", "error",
}

// now is swapped in tests.
var now = time.Now

// New parses the embedded templates and returns the site's view functions.
func New() (clubsite.ViewFuncs, error) {
	pages, err := parse(files)
	if err != nil {
		return clubsite.ViewFuncs{}, err
	}
	return clubsite.ViewFuncs{
		Home:         page[clubsite.HomePage](pages["home"]),
		Members:      page[clubsite.MembersPage](pages["members"]),
		Events:       page[clubsite.EventsPage](pages["events"]),
		Blog:         page[clubsite.BlogPage](pages["blog"]),
		BlogList:     fragment[clubsite.BlogPage](pages["blog"], "blog-list"),
		Post:         page[clubsite.PostPage](pages["post"]),
		Feedbacks:    page[clubsite.FeedbacksPage](pages["feedbacks"]),
		FeedbackList: fragment[clubsite.FeedbacksPage](pages["feedbacks"], "feedback-list"),
		Contact:      page[clubsite.ContactPage](pages["contact"]),
		Auth:         page[clubsite.AuthPage](pages["auth"]),

		AdminDashboard: page[clubsite.AdminDashboardPage](pages["admin_dashboard"]),
		AdminBlog:      page[clubsite.AdminBlogPage](pages["admin_blog"]),
		AdminEvents:    page[clubsite.AdminEventsPage](pages["admin_events"]),
		AdminPostForm:  page[clubsite.AdminPostFormPage](pages["admin_post_form"]),
		AdminEventForm: page[clubsite.AdminEventFormPage](pages["admin_event_form"]),
		AdminImages:    page[clubsite.AdminImagesPage](pages["admin_images"]),

		NotFound:    page[clubsite.Page](pages["notfound"]),
		ServerError: page[clubsite.Page](pages["error"]),
	}, nil
}

func parse(fsys fs.FS) (map[string]*template.Template, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(fsys, baseFiles...)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(fsys, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t.Lookup("layout")
	}
	return pages, nil
}

func page[T any](t *template.Template) func(T) templ.Component {
	return func(data T) templ.Component {
		return templ.FromGoHTML(t, data)
	}
}

func fragment[T any](t *template.Template, name string) func(T) templ.Component {
	ft := t.Lookup(name)
	return func(data T) templ.Component {
		return templ.FromGoHTML(ft, data)
	}
}

var funcs = template.FuncMap{
	"markdown":    markdown.HTML,
	"excerpt":     excerpt,
	"date":        formatDate,
	"eventDate":   eventDate,
	"stars":       stars,
	"ratings":     func() []int { return []int{5, 4, 3, 2, 1} },
	"statusClass": func(s string) string { return "badge status-" + s },
	"title":       func(s string) string { return cases.Title(language.English).String(s) },
	"hasPrefix":   strings.HasPrefix,
	"regOpen":     func(e clubsite.Event) bool { return e.RegistrationOpen(now()) },
	"orgJSONLD":   orgJSONLD,
	"postJSONLD":  postJSONLD,
	"feedbackForm": func(csrf string, f clubsite.FeedbackForm) feedbackFormData {
		return feedbackFormData{CSRF: csrf, Form: f}
	},
	"pct":    pct,
	"maxDay": maxDay,
}

type feedbackFormData struct {
	CSRF string
	Form clubsite.FeedbackForm
}

func excerpt(p clubsite.BlogPost) string {
	if p.Excerpt != "" {
		return p.Excerpt
	}
	return markdown.Excerpt(p.Content, 180)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

func eventDate(t *time.Time) string {
	if t == nil {
		return "Date to be announced"
	}
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("Mon, January 2, 2006")
	}
	return t.Format("Mon, January 2, 2006 at 3:04 PM")
}

func stars(n int) string {
	n = max(0, min(n, 5))
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func orgJSONLD(site clubsite.SiteInfo, club clubsite.ClubInfo) template.JS {
	cfg := clubsite.SiteConfig{Name: site.Name, URL: site.URL, Description: site.Description}
	return template.JS(clubsite.OrganizationJsonLD(cfg, club))
}

func postJSONLD(site clubsite.SiteInfo, post clubsite.BlogPost) template.JS {
	cfg := clubsite.SiteConfig{Name: site.Name, URL: site.URL, Description: site.Description}
	return template.JS(clubsite.BlogPostingJsonLD(post, cfg))
}

// pct scales n against total for bar heights.
func pct(n, total int) int {
	if total <= 0 {
		return 0
	}
	return n * 100 / total
}

func maxDay(days []analytics.DailyView) int {
	m := 0
	for _, d := range days {
		m = max(m, d.Views)
	}
	return m
}
