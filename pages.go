package clubsite

import (
	"time"

	"github.com/a-h/templ"

	"github.com/warpclub/clubsite/analytics"
)

// ViewFuncs holds the components the app renders. The views package
// provides the default set; tests plug in stubs.
type ViewFuncs struct {
	Home         func(HomePage) templ.Component
	Members      func(MembersPage) templ.Component
	Events       func(EventsPage) templ.Component
	Blog         func(BlogPage) templ.Component
	BlogList     func(BlogPage) templ.Component // list fragment for "load more"
	Post         func(PostPage) templ.Component
	Feedbacks    func(FeedbacksPage) templ.Component
	FeedbackList func(FeedbacksPage) templ.Component
	Contact      func(ContactPage) templ.Component
	Auth         func(AuthPage) templ.Component

	AdminDashboard func(AdminDashboardPage) templ.Component
	AdminBlog      func(AdminBlogPage) templ.Component
	AdminEvents    func(AdminEventsPage) templ.Component
	AdminPostForm  func(AdminPostFormPage) templ.Component
	AdminEventForm func(AdminEventFormPage) templ.Component
	AdminImages    func(AdminImagesPage) templ.Component

	NotFound    func(Page) templ.Component
	ServerError func(Page) templ.Component
}

// SiteInfo is the public part of SiteConfig handed to templates.
type SiteInfo struct {
	Name        string
	URL         string
	Description string
}

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Kind    string // "success" or "error"
	Message string
}

// Viewer is the signed-in account, if any.
type Viewer struct {
	ID    string
	Email string
	Role  string
}

func (v *Viewer) IsAdmin() bool { return v != nil && v.Role == RoleAdmin }

// Page carries what every layout needs.
type Page struct {
	Meta    PageMeta
	Site    SiteInfo
	Club    ClubInfo
	CSRF    string
	Flashes []Flash
	User    *Viewer
	Path    string
	Year    int
}

// Window is the visible slice of an already-fetched list.
type Window[T any] struct {
	Items []T
	Total int
	Step  int
}

// NewWindow shows the first show items (at least step, at most all).
func NewWindow[T any](items []T, show, step int) Window[T] {
	if step <= 0 {
		step = len(items)
	}
	if show < step {
		show = step
	}
	if show > len(items) {
		show = len(items)
	}
	return Window[T]{Items: items[:show], Total: len(items), Step: step}
}

// Shown is the number of visible items.
func (w Window[T]) Shown() int { return len(w.Items) }

// HasMore reports whether a "load more" control should be offered.
func (w Window[T]) HasMore() bool { return len(w.Items) < w.Total }

// NextShow is the show value for the next "load more" request.
func (w Window[T]) NextShow() int { return len(w.Items) + w.Step }

type HomePage struct {
	Page
	Events             []Event
	Testimonials       []Testimonial
	EventsFailed       bool
	TestimonialsFailed bool
	Feedback           FeedbackForm
}

type MembersPage struct {
	Page
	Presidents []Member
	Members    []Member
}

type EventsPage struct {
	Page
	Upcoming []Event
	Past     []Event
	Failed   bool
	Now      time.Time
}

type BlogPage struct {
	Page
	Posts  Window[BlogPost]
	Failed bool
}

type PostPage struct {
	Page
	Post   BlogPost
	Recent []BlogPost
}

type FeedbacksPage struct {
	Page
	Testimonials Window[Testimonial]
	Failed       bool
	Form         FeedbackForm
}

type ContactPage struct {
	Page
	Form    ContactForm
	Errors  map[string]string
	Message *ContactMessage
}

// AuthPage renders the sign-in and sign-up forms. Mode is "login" or "signup".
type AuthPage struct {
	Page
	Mode   string
	Next   string
	Email  string
	Error  string
	Errors map[string]string
}

type AdminDashboardPage struct {
	Page
	Counts       Counts
	MemberCount  int
	Analytics    *analytics.StatsResponse
	Events       []Event
	Posts        []BlogPost
	Testimonials []Testimonial
	LoadErr      string
}

type AdminBlogPage struct {
	Page
	Posts     []BlogPost
	Published int
	Drafts    int
}

type AdminEventsPage struct {
	Page
	Events   []Event
	Upcoming int
	Past     int
}

type AdminPostFormPage struct {
	Page
	Form   PostForm
	Errors map[string]string
	Images []Image
}

type AdminEventFormPage struct {
	Page
	Form     EventForm
	Errors   map[string]string
	Statuses []string
}

type AdminImagesPage struct {
	Page
	Images []Image
}

// EventStatuses lists the accepted event statuses in display order.
var EventStatuses = []string{StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled}
