package clubsite

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// newPage collects what every layout needs. It consumes pending flashes,
// so call it once per response, before rendering.
func (a *App) newPage(c echo.Context, title, description string) Page {
	path := c.Request().URL.Path
	if description == "" {
		description = a.Config.Description
	}
	fullTitle := a.Config.Name
	if title != "" {
		fullTitle = title + " | " + a.Config.Name
	}
	return Page{
		Meta: PageMeta{
			Title:       fullTitle,
			Description: description,
			URL:         BuildURL(a.Config.URL, path),
			OGType:      "website",
		},
		Site: SiteInfo{
			Name:        a.Config.Name,
			URL:         a.Config.URL,
			Description: a.Config.Description,
		},
		Club:    a.Club(),
		CSRF:    CsrfToken(c),
		Flashes: popFlashes(c),
		User:    CurrentViewer(c),
		Path:    path,
		Year:    now().Year(),
	}
}

// showParam reads ?show=N; anything unparsable means the first step.
func showParam(c echo.Context, step int) int {
	n, err := strconv.Atoi(c.QueryParam("show"))
	if err != nil || n < step {
		return step
	}
	return n
}

func wantsFragment(c echo.Context) bool {
	return c.QueryParam("partial") == "list"
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	p := HomePage{}

	events, err := a.Cache.Events(ctx)
	if err != nil {
		a.Log.Error().Err(err).Str("op", "home.events").Msg("failed to load events")
		p.EventsFailed = true
	}
	p.Events = upcomingPreview(events, 3)

	testimonials, err := a.Cache.ApprovedTestimonials(ctx)
	if err != nil {
		a.Log.Error().Err(err).Str("op", "home.testimonials").Msg("failed to load testimonials")
		p.TestimonialsFailed = true
	}
	if len(testimonials) > 3 {
		testimonials = testimonials[:3]
	}
	p.Testimonials = testimonials
	p.Feedback = FeedbackForm{Next: "/"}

	p.Page = a.newPage(c, "", a.Club().Tagline)
	return Render(c, a.Views.Home(p))
}

func (a *App) handleMembers(c echo.Context) error {
	club := a.Club()
	var rest []Member
	for _, m := range club.Members {
		if !strings.EqualFold(m.Role, "president") {
			rest = append(rest, m)
		}
	}
	return Render(c, a.Views.Members(MembersPage{
		Page:       a.newPage(c, "Members", "Meet the people behind "+club.Name+"."),
		Presidents: club.Presidents(),
		Members:    rest,
	}))
}

func (a *App) handleEvents(c echo.Context) error {
	p := EventsPage{Now: now()}
	events, err := a.Cache.Events(c.Request().Context())
	if err != nil {
		a.Log.Error().Err(err).Str("op", "events.list").Msg("failed to load events")
		p.Failed = true
	}
	p.Upcoming, p.Past = SplitEvents(events)
	p.Page = a.newPage(c, "Events", "Competitions, workshops and meetups run by the club.")
	return Render(c, a.Views.Events(p))
}

func (a *App) handleBlog(c echo.Context) error {
	p := BlogPage{}
	posts, err := a.Cache.PublishedPosts(c.Request().Context())
	if err != nil {
		a.Log.Error().Err(err).Str("op", "blog.list").Msg("failed to load posts")
		p.Failed = true
	}
	step := a.Config.BlogPageSize
	p.Posts = NewWindow(posts, showParam(c, step), step)
	if wantsFragment(c) {
		return Render(c, a.Views.BlogList(p))
	}
	p.Page = a.newPage(c, "Blog", "News and announcements from the club.")
	return Render(c, a.Views.Blog(p))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}

	posts, _ := a.Cache.PublishedPosts(ctx)
	var recent []BlogPost
	for _, p := range posts {
		if p.ID != post.ID {
			recent = append(recent, p)
		}
		if len(recent) == 3 {
			break
		}
	}

	page := a.newPage(c, post.Title, post.Excerpt)
	page.Meta.OGType = "article"
	page.Meta.Image = absoluteURL(a.Config.URL, post.FeaturedImageURL)
	return Render(c, a.Views.Post(PostPage{Page: page, Post: post, Recent: recent}))
}

func (a *App) handleFeedbacks(c echo.Context) error {
	p := FeedbacksPage{Form: FeedbackForm{Next: "/feedbacks/"}}
	testimonials, err := a.Cache.ApprovedTestimonials(c.Request().Context())
	if err != nil {
		a.Log.Error().Err(err).Str("op", "feedbacks.list").Msg("failed to load testimonials")
		p.Failed = true
	}
	step := a.Config.FeedbackPage
	p.Testimonials = NewWindow(testimonials, showParam(c, step), step)
	if wantsFragment(c) {
		return Render(c, a.Views.FeedbackList(p))
	}
	p.Page = a.newPage(c, "Feedbacks", "What students and guests say about the club.")
	return Render(c, a.Views.Feedbacks(p))
}

// handleFeedbackSubmit stores a testimonial for moderation. The outcome is
// reported through a flash on the page the form was posted from.
func (a *App) handleFeedbackSubmit(c echo.Context) error {
	var f FeedbackForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.trim()
	back := safeNext(f.Next, "/feedbacks/")

	if f.Rating == 0 {
		addFlash(c, flashError, "Please provide a rating before submitting.")
		return c.Redirect(http.StatusSeeOther, back)
	}
	if err := c.Validate(&f); err != nil {
		addFlash(c, flashError, firstMessage(fieldErrors(err), "Please check the form and try again."))
		return c.Redirect(http.StatusSeeOther, back)
	}

	t := Testimonial{
		Name:     f.Name,
		Email:    f.Email,
		Position: f.Position,
		Feedback: f.Feedback,
		Rating:   f.Rating,
		Approved: false,
	}
	if err := a.Backend.CreateTestimonial(c.Request().Context(), &t); err != nil {
		a.Log.Error().Err(err).Str("op", "feedback.create").Msg("failed to save feedback")
		addFlash(c, flashError, "Failed to submit feedback. Please try again.")
		return c.Redirect(http.StatusSeeOther, back)
	}
	a.Cache.InvalidateTestimonials()
	addFlash(c, flashSuccess, "Thank you for your feedback! It will appear once approved.")
	return c.Redirect(http.StatusSeeOther, back)
}

// firstMessage picks a deterministic message from field errors.
func firstMessage(errs map[string]string, fallback string) string {
	for _, field := range []string{"name", "email", "position", "feedback", "rating"} {
		if msg, ok := errs[field]; ok {
			return titleCase(field) + ": " + msg
		}
	}
	return fallback
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.PublishedPosts(c.Request().Context())
	if err != nil {
		a.Log.Error().Err(err).Str("op", "sitemap").Msg("failed to load posts")
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.PublishedPosts(c.Request().Context())
	if err != nil {
		a.Log.Error().Err(err).Str("op", "feed").Msg("failed to load posts")
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nDisallow: /admin/\nDisallow: /auth/\nDisallow: /api/\n\nSitemap: " +
		strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	code := http.StatusInternalServerError
	if errors.As(err, &he) {
		code = he.Code
	}
	if code == http.StatusNotFound && acceptsHTML(c) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.newPage(c, "Page not found", "")))
		return
	}
	if code >= 500 {
		a.Log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
		if acceptsHTML(c) {
			_ = RenderStatus(c, code, a.Views.ServerError(a.newPage(c, "Something went wrong", "")))
			return
		}
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

func acceptsHTML(c echo.Context) bool {
	return !strings.HasPrefix(c.Request().URL.Path, "/api/")
}
