package clubsite

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdminDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	p := AdminDashboardPage{MemberCount: len(a.Club().Members)}

	var errs []error
	var err error
	if p.Counts, err = a.Backend.Counts(ctx); err != nil {
		errs = append(errs, fmt.Errorf("counts: %w", err))
	}
	if p.Events, err = a.Backend.ListEvents(ctx, EventFilter{Order: ByCreated}); err != nil {
		errs = append(errs, fmt.Errorf("events: %w", err))
	}
	if p.Posts, err = a.Backend.ListBlogPosts(ctx, PostFilter{}); err != nil {
		errs = append(errs, fmt.Errorf("posts: %w", err))
	}
	if p.Testimonials, err = a.Backend.ListTestimonials(ctx, TestimonialFilter{}); err != nil {
		errs = append(errs, fmt.Errorf("testimonials: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		a.Log.Error().Err(err).Str("op", "admin.dashboard").Msg("failed to load dashboard data")
		p.LoadErr = "Some data could not be loaded. Refresh to try again."
	}

	if a.analyticsHandler != nil {
		stats, err := a.analyticsHandler.Summary(c, c.QueryParam("period"))
		if err != nil {
			a.Log.Error().Err(err).Str("op", "admin.analytics").Msg("failed to load analytics")
		}
		p.Analytics = stats
	}

	p.Page = a.newPage(c, "Admin", "")
	return Render(c, a.Views.AdminDashboard(p))
}

// Blog posts

func (a *App) handleAdminBlog(c echo.Context) error {
	posts, err := a.Backend.ListBlogPosts(c.Request().Context(), PostFilter{})
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	p := AdminBlogPage{Posts: posts}
	for _, post := range posts {
		if post.Published {
			p.Published++
		} else {
			p.Drafts++
		}
	}
	p.Page = a.newPage(c, "Blog admin", "")
	return Render(c, a.Views.AdminBlog(p))
}

func (a *App) renderPostForm(c echo.Context, code int, f PostForm, errs map[string]string) error {
	images, err := a.Backend.ListImages(c.Request().Context())
	if err != nil {
		a.Log.Error().Err(err).Str("op", "admin.images").Msg("failed to list images")
	}
	title := "New post"
	if f.ID != "" {
		title = "Edit post"
	}
	return RenderStatus(c, code, a.Views.AdminPostForm(AdminPostFormPage{
		Page:   a.newPage(c, title, ""),
		Form:   f,
		Errors: errs,
		Images: images,
	}))
}

func (a *App) handleAdminPostNew(c echo.Context) error {
	return a.renderPostForm(c, http.StatusOK, PostForm{Category: DefaultCategory}, nil)
}

func (a *App) handleAdminPostEdit(c echo.Context) error {
	post, err := a.Backend.GetBlogPost(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}
	return a.renderPostForm(c, http.StatusOK, postFormFrom(post), nil)
}

func (a *App) handleAdminPostSave(c echo.Context) error {
	var f PostForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.trim()
	if err := c.Validate(&f); err != nil {
		return a.renderPostForm(c, http.StatusUnprocessableEntity, f, fieldErrors(err))
	}

	ctx := c.Request().Context()
	post := f.post()
	var err error
	if post.ID == "" {
		err = a.Backend.CreateBlogPost(ctx, &post)
	} else {
		err = a.Backend.UpdateBlogPost(ctx, &post)
	}
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		a.Log.Error().Err(err).Str("op", "admin.post.save").Msg("failed to save post")
		addFlash(c, flashError, "Failed to save the post. Please try again.")
		return a.renderPostForm(c, http.StatusInternalServerError, f, nil)
	}
	a.Cache.InvalidatePosts()
	addFlash(c, flashSuccess, fmt.Sprintf("Post %q saved.", post.Title))
	return c.Redirect(http.StatusSeeOther, "/admin/blog/")
}

func (a *App) handleAdminPostDelete(c echo.Context) error {
	err := a.Backend.DeleteBlogPost(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, ErrNotFound):
		addFlash(c, flashError, "That post no longer exists.")
	case err != nil:
		a.Log.Error().Err(err).Str("op", "admin.post.delete").Msg("failed to delete post")
		addFlash(c, flashError, "Failed to delete the post.")
	default:
		a.Cache.InvalidatePosts()
		addFlash(c, flashSuccess, "Post deleted.")
	}
	return c.Redirect(http.StatusSeeOther, "/admin/blog/")
}

// Events

func (a *App) handleAdminEvents(c echo.Context) error {
	events, err := a.Backend.ListEvents(c.Request().Context(), EventFilter{Order: ByCreated})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	upcoming, past := SplitEvents(events)
	return Render(c, a.Views.AdminEvents(AdminEventsPage{
		Page:     a.newPage(c, "Events admin", ""),
		Events:   events,
		Upcoming: len(upcoming),
		Past:     len(past),
	}))
}

func (a *App) renderEventForm(c echo.Context, code int, f EventForm, errs map[string]string) error {
	title := "New event"
	if f.ID != "" {
		title = "Edit event"
	}
	return RenderStatus(c, code, a.Views.AdminEventForm(AdminEventFormPage{
		Page:     a.newPage(c, title, ""),
		Form:     f,
		Errors:   errs,
		Statuses: EventStatuses,
	}))
}

func (a *App) handleAdminEventNew(c echo.Context) error {
	return a.renderEventForm(c, http.StatusOK, EventForm{Status: StatusUpcoming}, nil)
}

func (a *App) handleAdminEventEdit(c echo.Context) error {
	ev, err := a.Backend.GetEvent(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	return a.renderEventForm(c, http.StatusOK, eventFormFrom(ev), nil)
}

func (a *App) handleAdminEventSave(c echo.Context) error {
	var f EventForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.trim()
	errs := fieldErrors(c.Validate(&f))
	ev, dateErrs := f.event()
	for k, v := range dateErrs {
		if errs == nil {
			errs = map[string]string{}
		}
		if _, ok := errs[k]; !ok {
			errs[k] = v
		}
	}
	if len(errs) > 0 {
		return a.renderEventForm(c, http.StatusUnprocessableEntity, f, errs)
	}

	ctx := c.Request().Context()
	var err error
	if ev.ID == "" {
		err = a.Backend.CreateEvent(ctx, &ev)
	} else {
		err = a.Backend.UpdateEvent(ctx, &ev)
	}
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		a.Log.Error().Err(err).Str("op", "admin.event.save").Msg("failed to save event")
		addFlash(c, flashError, "Failed to save the event. Please try again.")
		return a.renderEventForm(c, http.StatusInternalServerError, f, nil)
	}
	a.Cache.InvalidateEvents()
	addFlash(c, flashSuccess, fmt.Sprintf("Event %q saved.", ev.Title))
	return c.Redirect(http.StatusSeeOther, "/admin/events/")
}

func (a *App) handleAdminEventDelete(c echo.Context) error {
	err := a.Backend.DeleteEvent(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, ErrNotFound):
		addFlash(c, flashError, "That event no longer exists.")
	case err != nil:
		a.Log.Error().Err(err).Str("op", "admin.event.delete").Msg("failed to delete event")
		addFlash(c, flashError, "Failed to delete the event.")
	default:
		a.Cache.InvalidateEvents()
		addFlash(c, flashSuccess, "Event deleted.")
	}
	return c.Redirect(http.StatusSeeOther, "/admin/events/")
}

// Testimonials

func (a *App) setApproved(c echo.Context, approved bool, done string) error {
	err := a.Backend.SetTestimonialApproved(c.Request().Context(), c.Param("id"), approved)
	switch {
	case errors.Is(err, ErrNotFound):
		addFlash(c, flashError, "That testimonial no longer exists.")
	case err != nil:
		a.Log.Error().Err(err).Str("op", "admin.testimonial.moderate").Msg("failed to update testimonial")
		addFlash(c, flashError, "Failed to update the testimonial.")
	default:
		a.Cache.InvalidateTestimonials()
		addFlash(c, flashSuccess, done)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/#testimonials")
}

func (a *App) handleTestimonialApprove(c echo.Context) error {
	return a.setApproved(c, true, "Testimonial approved.")
}

func (a *App) handleTestimonialArchive(c echo.Context) error {
	return a.setApproved(c, false, "Testimonial archived.")
}

func (a *App) handleTestimonialDelete(c echo.Context) error {
	err := a.Backend.DeleteTestimonial(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, ErrNotFound):
		addFlash(c, flashError, "That testimonial no longer exists.")
	case err != nil:
		a.Log.Error().Err(err).Str("op", "admin.testimonial.delete").Msg("failed to delete testimonial")
		addFlash(c, flashError, "Failed to delete the testimonial.")
	default:
		a.Cache.InvalidateTestimonials()
		addFlash(c, flashSuccess, "Testimonial deleted.")
	}
	return c.Redirect(http.StatusSeeOther, "/admin/#testimonials")
}
