package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"converge/internal/service"
)

type StatsHandler struct {
	timerService *service.TimerService
}

func NewStatsHandler(timerService *service.TimerService) *StatsHandler {
	return &StatsHandler{timerService: timerService}
}

func (h *StatsHandler) Summary(c *gin.Context) {
	var date time.Time
	if rawDate := c.Query("date"); rawDate != "" {
		parsed, apiErr := h.timerService.ParseDay(rawDate)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}
		date = parsed
	}
	c.JSON(http.StatusOK, gin.H{"summary": h.timerService.Summary(date)})
}

func (h *StatsHandler) History(c *gin.Context) {
	limit := queryInt(c, "limit", service.DefaultHistoryLimit)
	c.JSON(http.StatusOK, gin.H{"sessions": h.timerService.History(limit)})
}

func (h *StatsHandler) Chart(c *gin.Context) {
	days := queryInt(c, "days", service.DefaultChartDays)
	c.JSON(http.StatusOK, gin.H{"days": h.timerService.Chart(days)})
}

func (h *StatsHandler) ClearSessions(c *gin.Context) {
	h.timerService.ClearSessions()
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
