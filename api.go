package clubsite

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/warpclub/clubsite/chatbot"
)

const (
	apiMaxLimit    = 100
	chatMaxMessage = 1000
)

// ListResponse wraps the public JSON lists. On failure Status is "error"
// and Data is empty, so clients can render their empty state.
type ListResponse[T any] struct {
	Status string `json:"status"`
	Data   []T    `json:"data"`
}

func limitParam(c echo.Context) int {
	n, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || n <= 0 {
		return 0
	}
	return min(n, apiMaxLimit)
}

func respondList[T any](a *App, c echo.Context, op string, items []T, err error) error {
	if err != nil {
		a.Log.Error().Err(err).Str("op", op).Msg("api list failed")
		return c.JSON(http.StatusOK, ListResponse[T]{Status: "error", Data: []T{}})
	}
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, ListResponse[T]{Status: "ok", Data: items})
}

func (a *App) handleAPIBlogPosts(c echo.Context) error {
	posts, err := a.Backend.ListBlogPosts(c.Request().Context(), PostFilter{PublishedOnly: true, Limit: limitParam(c)})
	return respondList(a, c, "api.blog-posts", posts, err)
}

func (a *App) handleAPIEvents(c echo.Context) error {
	events, err := a.Backend.ListEvents(c.Request().Context(), EventFilter{
		Status: c.QueryParam("status"),
		Order:  ByEventDate,
		Limit:  limitParam(c),
	})
	return respondList(a, c, "api.events", events, err)
}

func (a *App) handleAPITestimonials(c echo.Context) error {
	testimonials, err := a.Backend.ListTestimonials(c.Request().Context(), TestimonialFilter{ApprovedOnly: true, Limit: limitParam(c)})
	for i := range testimonials {
		testimonials[i].Email = ""
	}
	return respondList(a, c, "api.testimonials", testimonials, err)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleChat answers a question about the club from the configured profile
// and the current event list.
func (a *App) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, chatResponse{Error: "invalid request"})
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return c.JSON(http.StatusBadRequest, chatResponse{Error: "message is required"})
	}
	if utf8.RuneCountInString(msg) > chatMaxMessage {
		return c.JSON(http.StatusBadRequest, chatResponse{Error: "message is too long"})
	}

	events, err := a.Cache.Events(c.Request().Context())
	if err != nil {
		a.Log.Warn().Err(err).Str("op", "chat.events").Msg("answering without events")
	}
	reply := chatbot.New(a.Club().Knowledge(events)).Reply(msg)
	return c.JSON(http.StatusOK, chatResponse{Reply: reply})
}
