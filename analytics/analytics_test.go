package analytics

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseUserAgent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ua                  string
		browser, os, device string
	}{
		{chromeUA, "Chrome", "Windows", "Desktop"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile Safari", "Safari", "iOS", "Mobile"},
		{"Mozilla/5.0 (iPad; CPU OS 17_0) Mobile Safari", "Safari", "iOS", "Tablet"},
		{"Mozilla/5.0 (Linux; Android 14) Chrome/120 Mobile", "Chrome", "Android", "Mobile"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko Firefox/121.0", "Firefox", "Linux", "Desktop"},
		{"Mozilla/5.0 (Windows NT 10.0) Chrome/120 Edg/120", "Edge", "Windows", "Desktop"},
	}
	for _, tt := range tests {
		b, o, d := ParseUserAgent(tt.ua)
		assert.Equal(t, tt.browser, b, tt.ua)
		assert.Equal(t, tt.os, o, tt.ua)
		assert.Equal(t, tt.device, d, tt.ua)
	}
}

func TestBots(t *testing.T) {
	t.Parallel()
	assert.True(t, IsBot(""))
	assert.True(t, IsBot("Mozilla/5.0 (compatible; Googlebot/2.1)"))
	assert.False(t, IsBot(chromeUA))
	assert.Equal(t, "Googlebot", ExtractBotName("Mozilla/5.0 (compatible; Googlebot/2.1)"))
	assert.Equal(t, "Other Bot", ExtractBotName("acmebot/1.0"))
	assert.Equal(t, "Unknown", ExtractBotName("curl/8"))
}

func TestCleanReferrer(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"":                                  "Direct",
		"https://www.google.com/search?q=x": "Google",
		"https://www.instagram.com/warp":    "Instagram",
		"https://news.ycombinator.com/item": "news.ycombinator.com",
		"https://www.warp.club/blog/":       "Direct",
		"not a url":                         "Other",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanReferrer(in, "warp.club"), in)
	}
}

func TestHashingUsesSalt(t *testing.T) {
	t.Parallel()
	assert.Len(t, HashIP("a", "10.0.0.1"), 16)
	assert.NotEqual(t, HashIP("a", "10.0.0.1"), HashIP("b", "10.0.0.1"))
	assert.Equal(t, GenerateVisitorID("s", "ip", "ua"), GenerateVisitorID("s", "ip", "ua"))
	assert.NotEqual(t, GenerateVisitorID("s", "ip", "ua1"), GenerateVisitorID("s", "ip", "ua2"))
}

func TestSaltPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.db")
	s1, err := NewStore(path)
	require.NoError(t, err)
	salt := s1.Salt()
	require.NotEmpty(t, salt)
	require.NoError(t, s1.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, salt, s2.Salt())
}

func TestGetStats(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	visits := []*Visit{
		{VisitorID: "v1", IPHash: "h1", Browser: "Chrome", OS: "Windows", Device: "Desktop", Path: "/", Referrer: "Direct", Timestamp: now},
		{VisitorID: "v1", IPHash: "h1", Browser: "Chrome", OS: "Windows", Device: "Desktop", Path: "/blog/", Referrer: "Direct", Timestamp: now},
		{VisitorID: "v2", IPHash: "h2", Browser: "Safari", OS: "iOS", Device: "Mobile", Path: "/", Referrer: "Instagram", Timestamp: now},
		{VisitorID: "v3", IPHash: "h3", Browser: "Firefox", OS: "Linux", Device: "Desktop", Path: "/", Referrer: "Direct", Timestamp: now.AddDate(0, 0, -60)},
	}
	for _, v := range visits {
		require.NoError(t, s.SaveVisit(ctx, v))
	}
	require.NoError(t, s.SaveBotVisit(ctx, &BotVisit{BotName: "Googlebot", IPHash: "b", UserAgent: "Googlebot", Path: "/", Timestamp: now}))

	stats, err := s.GetStats(ctx, now.AddDate(0, 0, -7), now.Add(time.Hour), false, false)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalViews)
	assert.Equal(t, 2, stats.UniqueVisitors)
	assert.Equal(t, 1, stats.BotVisits)
	require.NotEmpty(t, stats.TopPages)
	assert.Equal(t, PageStat{Path: "/", Views: 2}, stats.TopPages[0])
	assert.Equal(t, DimensionStat{Name: "Chrome", Count: 2}, stats.BrowserStats[0])
	assert.Len(t, stats.DailyViews, 1)

	realtime, err := s.GetRealtimeVisitors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, realtime)

	require.NoError(t, s.CleanupOldVisits(ctx, 30))
	stats, err = s.GetStats(ctx, now.AddDate(0, 0, -365), now.Add(time.Hour), false, true)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalViews)
}

func TestStatsEndpoint(t *testing.T) {
	s := setupStore(t)
	var logs bytes.Buffer
	h := NewHandler(s, zerolog.New(&logs))

	e := echo.New()
	h.RegisterRoutes(e.Group("/admin"))
	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics/stats?period=week", nil))
		return rec
	}

	rec := get()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"period_days":7`)
	assert.Empty(t, logs.String())

	require.NoError(t, s.Close())
	rec = get()
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), `"message":"failed to get stats"`)
	assert.Contains(t, logs.String(), `"period":"week"`)
}

func TestFillHourlyData(t *testing.T) {
	t.Parallel()
	from := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	got := fillHourlyData([]DailyView{{Date: "12:00", Views: 4}}, from)
	require.Len(t, got, 24)
	assert.Equal(t, "10:00", got[0].Date)
	assert.Equal(t, 4, got[2].Views)
	assert.Equal(t, "09:00", got[23].Date)
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()
	p, days, hourly, monthly := parsePeriod("bogus")
	assert.Equal(t, "week", p)
	assert.Equal(t, 7, days)
	assert.False(t, hourly)
	assert.False(t, monthly)

	_, days, hourly, _ = parsePeriod("today")
	assert.Equal(t, 1, days)
	assert.True(t, hourly)
}

func TestTrackable(t *testing.T) {
	t.Parallel()
	for _, p := range []string{"/", "/blog/", "/events/", "/blog/abc/"} {
		assert.True(t, Trackable(p), p)
	}
	for _, p := range []string{"/admin/", "/api/events", "/assets/site.css", "/public/uploads/a.jpg", "/feed.xml"} {
		assert.False(t, Trackable(p), p)
	}
}

func TestRecorderMiddleware(t *testing.T) {
	s := setupStore(t)
	rec := NewRecorder(s, "warp.club", 16, zerolog.Nop())

	e := echo.New()
	e.Use(rec.Middleware())
	e.GET("/*", func(c echo.Context) error {
		if c.Request().URL.Path == "/missing/" {
			return c.String(http.StatusNotFound, "nope")
		}
		return c.String(http.StatusOK, "ok")
	})

	do := func(path, ua string, dnt bool) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("User-Agent", ua)
		if dnt {
			req.Header.Set("DNT", "1")
		}
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	do("/", chromeUA, false)
	do("/blog/", chromeUA, false)
	do("/blog/?partial=list&show=12", chromeUA, false)
	do("/missing/", chromeUA, false)
	do("/admin/", chromeUA, false)
	do("/events/", chromeUA, true)
	do("/", "Googlebot/2.1", false)

	rec.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	stats, err := s.GetStats(ctx, now.Add(-time.Hour), now.Add(time.Hour), false, false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalViews)
	assert.Equal(t, 1, stats.UniqueVisitors)
	assert.Equal(t, 1, stats.BotVisits)
	assert.Zero(t, rec.Dropped())
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))
}
