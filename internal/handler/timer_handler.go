package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"converge/internal/service"
)

const eventBuffer = 32

type TimerHandler struct {
	timerService *service.TimerService
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.timerService.State()})
}

func (h *TimerHandler) GetSnapshot(c *gin.Context) {
	snapshot, apiErr := h.timerService.Snapshot(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": snapshot})
}

func (h *TimerHandler) Start(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.timerService.Start()})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.timerService.Pause()})
}

func (h *TimerHandler) Reset(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.timerService.Reset()})
}

func (h *TimerHandler) Next(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.timerService.StartNextPhase()})
}

// Events streams engine events as server-sent events. The first event is
// the current state so clients can render before the next tick.
func (h *TimerHandler) Events(c *gin.Context) {
	events, cancel := h.timerService.Subscribe(eventBuffer)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("state", h.timerService.State())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		}
	})
}
