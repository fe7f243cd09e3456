package clubsite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpclub/clubsite/mediastore"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, World! 2025", "hello-world-2025"},
		{"  Trailing -- ", "trailing"},
		{"WarP Intra '24", "warp-intra-24"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "http://example.test/", BuildURL("http://example.test"))
	assert.Equal(t, "http://example.test/blog/id-1/", BuildURL("http://example.test", "blog", "id-1"))
	assert.Equal(t, "http://example.test/members/", BuildURL("http://example.test/", "/members"))
}

func TestAbsoluteURLAndHost(t *testing.T) {
	assert.Equal(t, "http://example.test/public/a.jpg", absoluteURL("http://example.test", "/public/a.jpg"))
	assert.Equal(t, "https://cdn.example/x.jpg", absoluteURL("http://example.test", "https://cdn.example/x.jpg"))
	assert.Empty(t, absoluteURL("http://example.test", ""))

	assert.Equal(t, "warp.club", hostOf("https://www.warp.club/blog/"))
	assert.Equal(t, "localhost", hostOf("http://localhost:3000"))
}

func TestTitleCaseAndFilterEmpty(t *testing.T) {
	assert.Equal(t, "Event Type", titleCase("event_type"))
	assert.Equal(t, []string{"AI/ML", "CTF"}, FilterEmpty([]string{" AI/ML ", "", "  ", "CTF"}))
	assert.Nil(t, FilterEmpty(nil))
}

func TestWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}

	w := NewWindow(items, 6, 6)
	assert.Equal(t, 6, w.Shown())
	assert.True(t, w.HasMore())
	assert.Equal(t, 12, w.NextShow())

	w = NewWindow(items, 12, 6)
	assert.Equal(t, 8, w.Shown())
	assert.False(t, w.HasMore())

	w = NewWindow(items, 1, 6)
	assert.Equal(t, 6, w.Shown())

	w = NewWindow[int](nil, 6, 6)
	assert.Equal(t, 0, w.Shown())
	assert.False(t, w.HasMore())

	w = NewWindow(items, 0, 0)
	assert.Equal(t, 8, w.Shown())
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/events/", safeNext("/events/", "/"))
	assert.Equal(t, "/", safeNext("", "/"))
	assert.Equal(t, "/", safeNext("//evil.example/", "/"))
	assert.Equal(t, "/", safeNext("https://evil.example/", "/"))
	assert.Equal(t, "/", safeNext(`/\evil.example`, "/"))
}

func TestBuildContactMessage(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	msg := BuildContactMessage(ContactForm{
		Name:    "Ravi",
		Email:   "ravi@example.test",
		Subject: "Joining us",
		Message: "How do I join?\nI am in 9th grade.",
	}, "WarP Computer Club", "club@example.test", at)

	assert.Equal(t, "club@example.test", msg.To)
	assert.Equal(t, "Joining us", msg.Subject)
	lines := strings.Split(msg.Body, "\n")
	assert.Equal(t, strings.Repeat("=", 78), lines[0])
	assert.Contains(t, msg.Body, "WARP COMPUTER CLUB")
	assert.Contains(t, msg.Body, "| Name: Ravi")
	assert.Contains(t, msg.Body, "| Sent: 2025-03-04T05:06:07Z")
	assert.Contains(t, msg.Body, "| I am in 9th grade.")

	assert.True(t, strings.HasPrefix(msg.MailtoURL, "mailto:club@example.test?subject=Joining%20us&body="))
	assert.NotContains(t, msg.MailtoURL, "+")
	assert.Contains(t, msg.GmailURL, "to=club%40example.test")
	assert.Contains(t, msg.GmailURL, "&su=Joining%20us")
}

func TestFieldErrors(t *testing.T) {
	v := newFormValidator()

	errs := fieldErrors(v.Validate(&ContactForm{}))
	assert.Equal(t, map[string]string{
		"name":    "This field is required.",
		"email":   "This field is required.",
		"subject": "This field is required.",
		"message": "This field is required.",
	}, errs)

	errs = fieldErrors(v.Validate(&AuthForm{Email: "a@b.co", Password: "123"}))
	assert.Equal(t, map[string]string{"password": "Must be at least 6 characters."}, errs)

	errs = fieldErrors(v.Validate(&FeedbackForm{Name: "A", Feedback: "ok", Rating: 6}))
	assert.Equal(t, map[string]string{"rating": "Must be 5 or less."}, errs)

	errs = fieldErrors(v.Validate(&EventForm{Title: "t", Description: "d", EventType: "x", Status: "later"}))
	assert.Equal(t, "Choose one of: upcoming, ongoing, completed, cancelled.", errs["status"])

	assert.Nil(t, fieldErrors(nil))
	assert.Nil(t, fieldErrors(errors.New("boom")))
}

func TestFirstMessageIsDeterministic(t *testing.T) {
	errs := map[string]string{"rating": "bad", "email": "Enter a valid email address."}
	assert.Equal(t, "Email: Enter a valid email address.", firstMessage(errs, "fallback"))
	assert.Equal(t, "fallback", firstMessage(nil, "fallback"))
}

func TestParseFormDate(t *testing.T) {
	d, err := parseFormDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseFormDate("2025-05-01T10:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC), *d)

	d, err = parseFormDate("2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), *d)
	assert.Equal(t, "2025-05-01T00:00", formDate(d))

	_, err = parseFormDate("May 1st")
	assert.Error(t, err)
}

func encodePNG(t *testing.T, w, h int) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return bytes.NewReader(buf.Bytes())
}

func TestProcessImage(t *testing.T) {
	img, data, err := processImage(encodePNG(t, 1600, 400), "Robotics Lab.PNG")
	require.NoError(t, err)
	assert.Equal(t, "robotics-lab.jpg", img.Filename)
	assert.Equal(t, 800, img.Width)
	assert.Equal(t, 200, img.Height)
	assert.Equal(t, len(data), img.Size)

	decoded, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 800, decoded.Bounds().Dx())

	img, _, err = processImage(encodePNG(t, 100, 50), "!!!.png")
	require.NoError(t, err)
	assert.Equal(t, "image.jpg", img.Filename)
	assert.Equal(t, 100, img.Width)

	_, _, err = processImage(strings.NewReader("plain text"), "a.png")
	assert.Error(t, err)
}

func TestUniqueFilename(t *testing.T) {
	ctx := context.Background()
	media := mediastore.NewLocal(filepath.Join(t.TempDir(), "uploads"), "public/uploads")

	name, err := uniqueFilename(ctx, media, nil, "poster.jpg")
	require.NoError(t, err)
	assert.Equal(t, "poster.jpg", name)

	_, err = media.Put(ctx, "poster.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	name, err = uniqueFilename(ctx, media, []Image{{Filename: "poster-2.jpg"}}, "poster.jpg")
	require.NoError(t, err)
	assert.Equal(t, "poster-3.jpg", name)
}

func TestJsonLD(t *testing.T) {
	cfg := SiteConfig{Name: "WarP Computer Club", URL: "https://warp.example"}

	var org map[string]any
	require.NoError(t, json.Unmarshal([]byte(OrganizationJsonLD(cfg, DefaultClubInfo())), &org))
	assert.Equal(t, "Organization", org["@type"])
	assert.Equal(t, "https://warp.example/", org["url"])
	assert.Equal(t, "warp.dpsmr@gmail.com", org["email"])

	post := BlogPost{ID: "id-7", Title: "Results", Author: "Girisha", FeaturedImageURL: "/public/uploads/r.jpg"}
	var posting map[string]any
	require.NoError(t, json.Unmarshal([]byte(BlogPostingJsonLD(post, cfg)), &posting))
	assert.Equal(t, "Results", posting["headline"])
	assert.Equal(t, "https://warp.example/blog/id-7/", posting["url"])
	assert.Equal(t, "https://warp.example/public/uploads/r.jpg", posting["image"])
}

func TestSetClubInfoCleansLists(t *testing.T) {
	a := New(SiteConfig{Name: "Fallback Club"}, ViewFuncs{})
	a.SetClubInfo(ClubInfo{
		Activities: []string{"CTF", " "},
		Members:    []Member{{Name: "Ada Lovelace", Role: "President", Skills: []string{"", "Math"}}},
	})

	club := a.Club()
	assert.Equal(t, "Fallback Club", club.Name)
	assert.Equal(t, []string{"CTF"}, club.Activities)
	assert.Equal(t, []string{"Math"}, club.Members[0].Skills)
	assert.Equal(t, "AL", club.Members[0].Initials())
	assert.Len(t, club.Presidents(), 1)
}

func TestClubKnowledge(t *testing.T) {
	d := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	k := DefaultClubInfo().Knowledge([]Event{
		{Title: "Hackathon", Status: StatusUpcoming, EventDate: &d},
		{Title: "Expo", Status: StatusOngoing},
		{Title: "Quiz", Status: StatusCompleted, EventDate: &d},
	})
	assert.Equal(t, []string{"Hackathon (May 1, 2025)", "Expo (TBD)"}, k.UpcomingEvents)
	assert.Contains(t, k.PastEvents, "Quiz (May 1, 2025)")
	assert.Contains(t, k.PastEvents, "WarP Intra '24")
	assert.Equal(t, []string{"Soustin Roy", "Deeptanshu Shekhar"}, k.Presidents)
	assert.Contains(t, k.Members, "Ansh Mittal - Executive (11th Grade)")
}

func TestUpcomingPreview(t *testing.T) {
	events := []Event{
		{Title: "a", Status: StatusUpcoming},
		{Title: "b", Status: StatusCompleted},
		{Title: "c", Status: StatusOngoing},
		{Title: "d", Status: StatusUpcoming},
	}
	got := upcomingPreview(events, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "c", got[1].Title)
}

func TestRegistrationOpen(t *testing.T) {
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	past := at.Add(-time.Hour)
	e := Event{Status: StatusUpcoming, RegistrationLink: "https://forms.example/r", MaxParticipants: 2, CurrentParticipants: 1}
	assert.True(t, e.RegistrationOpen(at))

	full := e
	full.CurrentParticipants = 2
	assert.False(t, full.RegistrationOpen(at))

	closed := e
	closed.RegistrationDeadline = &past
	assert.False(t, closed.RegistrationOpen(at))

	done := e
	done.Status = StatusCompleted
	assert.False(t, done.RegistrationOpen(at))
}
