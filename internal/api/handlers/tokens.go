package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/presence/internal/auth"
	"github.com/your-org/presence/pkg/dto"
)

// TokenHandler issues session tokens. Admin-gated: the identity provider in
// front of the service normally mints these, this endpoint covers
// service-to-service bootstrap and testing.
type TokenHandler struct {
	issuer *auth.Issuer
}

func NewTokenHandler(issuer *auth.Issuer) *TokenHandler {
	return &TokenHandler{issuer: issuer}
}

func (h *TokenHandler) Issue(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, expiresIn, err := h.issuer.Issue(req.SubjectID, req.Roles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{Token: token, ExpiresIn: expiresIn})
}
