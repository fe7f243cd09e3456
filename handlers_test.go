package clubsite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPost(t *testing.T, f *fakeBackend, title string, published bool) BlogPost {
	t.Helper()
	p := BlogPost{Title: title, Author: "Club", Content: "Body of " + title, Published: published}
	require.NoError(t, f.CreateBlogPost(context.Background(), &p))
	return p
}

func seedEvent(t *testing.T, f *fakeBackend, title, status string, date *time.Time) Event {
	t.Helper()
	e := Event{Title: title, Description: "About " + title, EventType: "workshop", Status: status, EventDate: date}
	require.NoError(t, f.CreateEvent(context.Background(), &e))
	return e
}

func seedTestimonial(t *testing.T, f *fakeBackend, name string, approved bool) Testimonial {
	t.Helper()
	tm := Testimonial{Name: name, Email: name + "@example.test", Feedback: "Great club", Rating: 5, Approved: approved}
	require.NoError(t, f.CreateTestimonial(context.Background(), &tm))
	return tm
}

func feedbackForm(rating string) url.Values {
	return url.Values{
		"name":     {"Asha"},
		"email":    {"asha@example.test"},
		"position": {"Student"},
		"feedback": {"Loved the hackathon."},
		"rating":   {rating},
		"next":     {"/"},
	}
}

func TestHomeShowsPreviews(t *testing.T) {
	env := newTestEnv(t)
	d := time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := range 4 {
		date := d.AddDate(0, 0, i)
		seedEvent(t, env.fake, fmt.Sprintf("Upcoming %d", i), StatusUpcoming, &date)
	}
	seedEvent(t, env.fake, "Finished", StatusCompleted, nil)
	for i := range 5 {
		seedTestimonial(t, env.fake, fmt.Sprintf("t%d", i), true)
	}
	seedTestimonial(t, env.fake, "pending", false)

	rec := env.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "page:home events=3 testimonials=3 eventsFailed=false testimonialsFailed=false")
	assert.Equal(t, "private, no-store", rec.Header().Get("Cache-Control"))
}

func TestPagesDegradeWhenBackendFails(t *testing.T) {
	env := newTestEnv(t)
	env.fake.failLists = true

	tests := []struct {
		path string
		want string
	}{
		{"/", "eventsFailed=true testimonialsFailed=true"},
		{"/events/", "failed=true"},
		{"/blog/", "failed=true"},
		{"/feedbacks/", "failed=true"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.get(tt.path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestMembersSplitsPresidents(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/members/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "page:members presidents=2 members=6")
}

func TestMissingTrailingSlashRedirects(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/blog")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/blog/", rec.Header().Get("Location"))
}

func TestEventsSplitUpcomingAndPast(t *testing.T) {
	env := newTestEnv(t)
	d := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	seedEvent(t, env.fake, "Hackathon", StatusUpcoming, &d)
	seedEvent(t, env.fake, "Expo", StatusOngoing, nil)
	seedEvent(t, env.fake, "Intra", StatusCompleted, &d)
	seedEvent(t, env.fake, "Rained out", StatusCancelled, nil)

	rec := env.get("/events/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "page:events upcoming=2 past=2 failed=false")
}

func TestBlogListsOnlyPublishedPosts(t *testing.T) {
	env := newTestEnv(t)
	seedPost(t, env.fake, "Draft", false)
	seedPost(t, env.fake, "Live", true)

	rec := env.get("/blog/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "total=1")
	assert.Contains(t, body, "titles=Live")
	assert.NotContains(t, body, "Draft")
}

func TestBlogLoadMoreUsesCachedList(t *testing.T) {
	env := newTestEnv(t)
	for i := range 8 {
		seedPost(t, env.fake, fmt.Sprintf("P%d", i), true)
	}

	rec := env.get("/blog/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shown=6 total=8 more=true next=12")
	lists := env.fake.count("ListBlogPosts")

	rec = env.get("/blog/?show=12&partial=list")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "bloglist "), body)
	assert.Contains(t, body, "shown=8 total=8 more=false")
	assert.Equal(t, lists, env.fake.count("ListBlogPosts"))
}

func TestPostPage(t *testing.T) {
	env := newTestEnv(t)
	live := seedPost(t, env.fake, "Results are out", true)
	seedPost(t, env.fake, "Other news", true)
	draft := seedPost(t, env.fake, "Secret", false)

	rec := env.get(live.Link())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "page:post title=Results are out recent=1 og=article")

	for _, path := range []string{draft.Link(), "/blog/missing/"} {
		rec = env.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "page:notfound", path)
	}
}

func TestFeedbacksLoadMore(t *testing.T) {
	env := newTestEnv(t)
	for i := range 6 {
		seedTestimonial(t, env.fake, fmt.Sprintf("n%d", i), true)
	}

	rec := env.get("/feedbacks/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shown=4 total=6 more=true")

	rec = env.get("/feedbacks/?show=8&partial=list")
	assert.Contains(t, rec.Body.String(), "feedbacklist shown=6 total=6 more=false")
}

func TestFeedbackWithoutRatingIsRejectedLocally(t *testing.T) {
	env := newTestEnv(t)
	env.csrf()
	before := env.fake.total()

	rec := env.post("/feedbacks/", feedbackForm("0"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, before, env.fake.total())

	page := env.follow(rec)
	assert.Contains(t, page.Body.String(), "flash[error]=Please provide a rating before submitting.")
}

func TestFeedbackIsStoredUnapproved(t *testing.T) {
	env := newTestEnv(t)
	form := feedbackForm("4")
	form.Set("next", "/feedbacks/")

	rec := env.post("/feedbacks/", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/feedbacks/", rec.Header().Get("Location"))
	require.Equal(t, 1, env.fake.count("CreateTestimonial"))

	stored := env.fake.testimonials["id-1"]
	assert.False(t, stored.Approved)
	assert.Equal(t, 4, stored.Rating)
	assert.Equal(t, "Asha", stored.Name)

	page := env.follow(rec)
	body := page.Body.String()
	assert.Contains(t, body, "flash[success]=Thank you for your feedback! It will appear once approved.")
	assert.Contains(t, body, "total=0")
}

func TestFeedbackApprovedAppearsPublicly(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusSeeOther, env.post("/feedbacks/", feedbackForm("5")).Code)
	assert.Contains(t, env.get("/feedbacks/").Body.String(), "total=0")

	env.loginAdmin()
	rec := env.post("/admin/testimonials/id-1/approve/", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/#testimonials", rec.Header().Get("Location"))

	body := env.get("/feedbacks/").Body.String()
	assert.Contains(t, body, "total=1")
	assert.Contains(t, body, "names=Asha")
}

func TestFeedbackWriteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fake.failWrites = true

	rec := env.post("/feedbacks/", feedbackForm("3"))
	page := env.follow(rec)
	assert.Contains(t, page.Body.String(), "flash[error]=Failed to submit feedback. Please try again.")
}

func TestFeedbackValidation(t *testing.T) {
	env := newTestEnv(t)
	form := feedbackForm("5")
	form.Set("name", "  ")

	rec := env.post("/feedbacks/", form)
	page := env.follow(rec)
	assert.Contains(t, page.Body.String(), "flash[error]=Name: This field is required.")
	assert.Equal(t, 0, env.fake.count("CreateTestimonial"))
}

func TestFeedbackIgnoresForeignNext(t *testing.T) {
	env := newTestEnv(t)
	form := feedbackForm("5")
	form.Set("next", "https://evil.example/")

	rec := env.post("/feedbacks/", form)
	assert.Equal(t, "/feedbacks/", rec.Header().Get("Location"))
}

func TestPostWithoutCSRFIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.csrf()
	req := httptest.NewRequest(http.MethodPost, "/feedbacks/", strings.NewReader(feedbackForm("5").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.send(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, env.fake.count("CreateTestimonial"))
}

func TestContact(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/contact/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "page:contact sent=false errors=0")

	rec = env.post("/contact/", url.Values{"name": {"Ravi"}, "email": {"not-an-email"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "sent=false errors=3")

	rec = env.post("/contact/", url.Values{
		"name":    {"Ravi"},
		"email":   {"ravi@example.test"},
		"subject": {"Joining"},
		"message": {"How do I join?"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sent=true errors=0")
}

func TestRobotsFeedAndSitemap(t *testing.T) {
	env := newTestEnv(t)
	p := seedPost(t, env.fake, "Hello", true)
	seedPost(t, env.fake, "Hidden", false)

	rec := env.get("/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /admin/")
	assert.Contains(t, rec.Body.String(), "Sitemap: http://example.test/sitemap.xml")

	rec = env.get("/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	assert.Contains(t, rec.Body.String(), "<title>Hello</title>")
	assert.NotContains(t, rec.Body.String(), "Hidden")

	rec = env.get("/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<loc>http://example.test/</loc>")
	assert.Contains(t, body, "<loc>http://example.test/events/</loc>")
	assert.Contains(t, body, "<loc>http://example.test/blog/"+p.ID+"/</loc>")
}

func TestEmbeddedAssets(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/assets/site.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))

	rec = env.get("/favicon.svg")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
}

func TestAPILists(t *testing.T) {
	env := newTestEnv(t)
	seedPost(t, env.fake, "Public", true)
	seedPost(t, env.fake, "Draft", false)
	seedTestimonial(t, env.fake, "Meera", true)
	d := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	seedEvent(t, env.fake, "Hackathon", StatusUpcoming, &d)
	seedEvent(t, env.fake, "Intra", StatusCompleted, &d)

	var posts ListResponse[BlogPost]
	rec := env.get("/api/blog-posts")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	assert.Equal(t, "ok", posts.Status)
	require.Len(t, posts.Data, 1)
	assert.Equal(t, "Public", posts.Data[0].Title)

	var events ListResponse[Event]
	rec = env.get("/api/events?status=completed")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events.Data, 1)
	assert.Equal(t, "Intra", events.Data[0].Title)

	var testimonials ListResponse[Testimonial]
	rec = env.get("/api/testimonials")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &testimonials))
	require.Len(t, testimonials.Data, 1)
	assert.Empty(t, testimonials.Data[0].Email)
}

func TestAPIListReportsFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fake.failLists = true

	rec := env.get("/api/events")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"error","data":[]}`, rec.Body.String())
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON("/api/chat", `{"message":"Who are the presidents?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Reply, "Soustin Roy")

	rec = env.postJSON("/api/chat", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "message is required")

	rec = env.postJSON("/api/chat", `{"message":"`+strings.Repeat("a", chatMaxMessage+1)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownPageRendersNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/nowhere/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "page:notfound")

	rec = env.get("/api/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "page:notfound")
}
