package clubsite

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

func component(format string, args ...any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	})
}

// withFlashes prefixes a marker with one "flash[kind]=msg" line per flash.
func withFlashes(p Page, format string, args ...any) templ.Component {
	var b strings.Builder
	for _, f := range p.Flashes {
		fmt.Fprintf(&b, "flash[%s]=%s\n", f.Kind, f.Message)
	}
	if p.User != nil {
		fmt.Fprintf(&b, "user=%s role=%s\n", p.User.Email, p.User.Role)
	}
	fmt.Fprintf(&b, format, args...)
	return component("%s", b.String())
}

func postTitles(posts []BlogPost) string {
	titles := make([]string, len(posts))
	for i, p := range posts {
		titles[i] = p.Title
	}
	return strings.Join(titles, ",")
}

func testimonialNames(ts []Testimonial) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return strings.Join(names, ",")
}

// stubViews renders plain-text markers that tests can assert on.
func stubViews() ViewFuncs {
	blogList := func(p BlogPage) string {
		return fmt.Sprintf("shown=%d total=%d more=%t next=%d failed=%t titles=%s",
			p.Posts.Shown(), p.Posts.Total, p.Posts.HasMore(), p.Posts.NextShow(), p.Failed, postTitles(p.Posts.Items))
	}
	feedbackList := func(p FeedbacksPage) string {
		return fmt.Sprintf("shown=%d total=%d more=%t failed=%t names=%s",
			p.Testimonials.Shown(), p.Testimonials.Total, p.Testimonials.HasMore(), p.Failed, testimonialNames(p.Testimonials.Items))
	}
	return ViewFuncs{
		Home: func(p HomePage) templ.Component {
			return withFlashes(p.Page, "page:home events=%d testimonials=%d eventsFailed=%t testimonialsFailed=%t",
				len(p.Events), len(p.Testimonials), p.EventsFailed, p.TestimonialsFailed)
		},
		Members: func(p MembersPage) templ.Component {
			return withFlashes(p.Page, "page:members presidents=%d members=%d", len(p.Presidents), len(p.Members))
		},
		Events: func(p EventsPage) templ.Component {
			return withFlashes(p.Page, "page:events upcoming=%d past=%d failed=%t", len(p.Upcoming), len(p.Past), p.Failed)
		},
		Blog: func(p BlogPage) templ.Component {
			return withFlashes(p.Page, "page:blog %s", blogList(p))
		},
		BlogList: func(p BlogPage) templ.Component {
			return component("bloglist %s", blogList(p))
		},
		Post: func(p PostPage) templ.Component {
			return withFlashes(p.Page, "page:post title=%s recent=%d og=%s", p.Post.Title, len(p.Recent), p.Meta.OGType)
		},
		Feedbacks: func(p FeedbacksPage) templ.Component {
			return withFlashes(p.Page, "page:feedbacks %s", feedbackList(p))
		},
		FeedbackList: func(p FeedbacksPage) templ.Component {
			return component("feedbacklist %s", feedbackList(p))
		},
		Contact: func(p ContactPage) templ.Component {
			sent := p.Message != nil
			return withFlashes(p.Page, "page:contact sent=%t errors=%d", sent, len(p.Errors))
		},
		Auth: func(p AuthPage) templ.Component {
			return withFlashes(p.Page, "page:auth mode=%s error=%s errors=%d", p.Mode, p.Error, len(p.Errors))
		},
		AdminDashboard: func(p AdminDashboardPage) templ.Component {
			return withFlashes(p.Page, "page:admin posts=%d events=%d testimonials=%d pending=%d analytics=%t loadErr=%t",
				p.Counts.BlogPosts, p.Counts.Events, p.Counts.Testimonials, p.Counts.PendingTestimonials, p.Analytics != nil, p.LoadErr != "")
		},
		AdminBlog: func(p AdminBlogPage) templ.Component {
			return withFlashes(p.Page, "page:adminblog published=%d drafts=%d", p.Published, p.Drafts)
		},
		AdminEvents: func(p AdminEventsPage) templ.Component {
			return withFlashes(p.Page, "page:adminevents events=%d upcoming=%d past=%d", len(p.Events), p.Upcoming, p.Past)
		},
		AdminPostForm: func(p AdminPostFormPage) templ.Component {
			return withFlashes(p.Page, "page:postform id=%s errors=%d", p.Form.ID, len(p.Errors))
		},
		AdminEventForm: func(p AdminEventFormPage) templ.Component {
			return withFlashes(p.Page, "page:eventform id=%s errors=%d", p.Form.ID, len(p.Errors))
		},
		AdminImages: func(p AdminImagesPage) templ.Component {
			return withFlashes(p.Page, "page:images count=%d", len(p.Images))
		},
		NotFound: func(p Page) templ.Component {
			return withFlashes(p, "page:notfound")
		},
		ServerError: func(p Page) templ.Component {
			return withFlashes(p, "page:error")
		},
	}
}

// testEnv drives an App through its Echo router with a cookie jar, the way
// a browser would.
type testEnv struct {
	t       *testing.T
	app     *App
	fake    *fakeBackend
	cookies map[string]*http.Cookie
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	fake := newFakeBackend()
	base := []Option{
		WithBackend(fake),
		WithLogger(zerolog.Nop()),
		WithStaticDir(t.TempDir()),
	}
	app := New(SiteConfig{
		SessionSecret: "test-secret-test-secret-test-secret",
		URL:           "http://example.test",
	}, stubViews(), append(base, opts...)...)
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.Close() })
	return &testEnv{t: t, app: app, fake: fake, cookies: map[string]*http.Cookie{}}
}

func (e *testEnv) send(req *http.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.app.Echo.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(e.cookies, c.Name)
			continue
		}
		e.cookies[c.Name] = c
	}
	return rec
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.send(httptest.NewRequest(http.MethodGet, path, nil))
}

// csrf returns the current token, fetching a page that sets it if needed.
func (e *testEnv) csrf() string {
	e.t.Helper()
	if c, ok := e.cookies["_csrf"]; ok {
		return c.Value
	}
	e.get("/robots.txt")
	c, ok := e.cookies["_csrf"]
	require.True(e.t, ok, "no csrf cookie set")
	return c.Value
}

func (e *testEnv) post(path string, form url.Values) *httptest.ResponseRecorder {
	e.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("_csrf", e.csrf())
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.send(req)
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", e.csrf())
	return e.send(req)
}

// follow GETs the redirect target of rec.
func (e *testEnv) follow(rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	e.t.Helper()
	require.Equal(e.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return e.get(rec.Header().Get("Location"))
}

func (e *testEnv) createAccount(email, password, role string) {
	e.t.Helper()
	hash, err := HashPassword(password)
	require.NoError(e.t, err)
	acc := Account{Email: email, PasswordHash: hash, Role: role}
	require.NoError(e.t, e.fake.CreateAccount(context.Background(), &acc))
}

func (e *testEnv) login(email, password string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.post("/auth/login/", url.Values{"email": {email}, "password": {password}})
}

// loginAdmin creates an admin account and signs in as it.
func (e *testEnv) loginAdmin() {
	e.t.Helper()
	e.createAccount("admin@example.test", "secret123", RoleAdmin)
	rec := e.login("admin@example.test", "secret123")
	require.Equal(e.t, http.StatusSeeOther, rec.Code, rec.Body.String())
}
