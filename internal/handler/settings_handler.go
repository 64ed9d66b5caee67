package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"converge/internal/model"
	"converge/internal/service"
)

type SettingsHandler struct {
	timerService *service.TimerService
}

// updateSettingsRequest leaves omitted fields at their current value.
type updateSettingsRequest struct {
	WorkDurationMinutes       *int  `json:"workDurationMinutes"`
	ShortBreakDurationMinutes *int  `json:"shortBreakDurationMinutes"`
	LongBreakDurationMinutes  *int  `json:"longBreakDurationMinutes"`
	PomodorosUntilLongBreak   *int  `json:"pomodorosUntilLongBreak"`
	AutoContinue              *bool `json:"autoContinue"`
}

func NewSettingsHandler(timerService *service.TimerService) *SettingsHandler {
	return &SettingsHandler{timerService: timerService}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.timerService.Settings()})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	updated, apiErr := h.timerService.UpdateSettings(req.apply(h.timerService.Settings()))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": updated})
}

func (h *SettingsHandler) Reset(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.timerService.ResetSettings()})
}

func (r updateSettingsRequest) apply(current model.Settings) model.Settings {
	if r.WorkDurationMinutes != nil {
		current.WorkDurationMinutes = *r.WorkDurationMinutes
	}
	if r.ShortBreakDurationMinutes != nil {
		current.ShortBreakDurationMinutes = *r.ShortBreakDurationMinutes
	}
	if r.LongBreakDurationMinutes != nil {
		current.LongBreakDurationMinutes = *r.LongBreakDurationMinutes
	}
	if r.PomodorosUntilLongBreak != nil {
		current.PomodorosUntilLongBreak = *r.PomodorosUntilLongBreak
	}
	if r.AutoContinue != nil {
		current.AutoContinue = *r.AutoContinue
	}
	return current
}
