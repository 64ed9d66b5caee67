package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"converge/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

type tokenRequest struct {
	Passphrase string `json:"passphrase"`
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	result, apiErr := h.authService.IssueToken(req.Passphrase)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, result)
}
