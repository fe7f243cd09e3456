package analytics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler serves analytics summaries to administrators.
type Handler struct {
	store *Store
	log   zerolog.Logger
}

// NewHandler creates a new analytics handler.
func NewHandler(store *Store, log zerolog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// StatsResponse is the JSON response for the stats endpoint.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	Realtime   int    `json:"realtime_visitors"`
	PeriodDays int    `json:"period_days"`
	Hourly     bool   `json:"hourly"`
	Monthly    bool   `json:"monthly"`
}

// Summary returns the stats for a named period ("today", "week", "month", "year").
func (h *Handler) Summary(c echo.Context, period string) (*StatsResponse, error) {
	_, days, hourly, monthly := parsePeriod(period)
	ctx := c.Request().Context()

	now := time.Now().UTC()
	from, to := calcTimeRange(now, days, hourly)

	stats, err := h.store.GetStats(ctx, from, to, hourly, monthly)
	if err != nil {
		return nil, err
	}
	if hourly {
		stats.DailyViews = fillHourlyData(stats.DailyViews, from)
	}
	realtime, _ := h.store.GetRealtimeVisitors(ctx)

	return &StatsResponse{
		Stats:      stats,
		Realtime:   realtime,
		PeriodDays: days,
		Hourly:     hourly,
		Monthly:    monthly,
	}, nil
}

// GetStats returns analytics statistics as JSON.
func (h *Handler) GetStats(c echo.Context) error {
	period := c.QueryParam("period")
	resp, err := h.Summary(c, period)
	if err != nil {
		h.log.Error().Err(err).Str("period", period).Msg("failed to get stats")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes mounts the stats endpoint on an already-protected group.
func (h *Handler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/analytics/stats", h.GetStats)
}

func parsePeriod(period string) (string, int, bool, bool) {
	switch period {
	case "today":
		return period, 1, true, false
	case "month":
		return period, 30, false, false
	case "year":
		return period, 365, false, true
	default:
		return "week", 7, false, false
	}
}

// calcTimeRange returns the from/to times for the given period.
func calcTimeRange(now time.Time, days int, hourly bool) (time.Time, time.Time) {
	if hourly {
		currentHour := now.Truncate(time.Hour)
		from := currentHour.Add(-23 * time.Hour)
		return from, now.Add(time.Second)
	}
	from := now.AddDate(0, 0, -days).Truncate(24 * time.Hour)
	to := now.Add(24 * time.Hour).Truncate(24 * time.Hour)
	return from, to
}

// fillHourlyData ensures all 24 hourly slots are present, filling gaps with zero.
func fillHourlyData(sparse []DailyView, from time.Time) []DailyView {
	dataMap := make(map[string]int, len(sparse))
	for _, v := range sparse {
		dataMap[v.Date] = v.Views
	}

	result := make([]DailyView, 24)
	for i := range result {
		hour := from.Add(time.Duration(i) * time.Hour)
		label := fmt.Sprintf("%02d:00", hour.Hour())
		result[i] = DailyView{Date: label, Views: dataMap[label]}
	}
	return result
}
