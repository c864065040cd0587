package handler

import (
	"net/http"

	"github.com/druid-matt/ossinsight/internal/auth/credentials"
	"github.com/druid-matt/ossinsight/internal/serr"

	"github.com/gin-gonic/gin"
)

type passwordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	userID, err := h.creds.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch err {
		case credentials.ErrAlreadyRegistered:
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		default:
			writeErr(c, serr.New(err, http.StatusBadRequest, "registration failed"))
		}
		return
	}

	h.issueSession(c, userID, "", nil)
}

func (h *Handler) loginPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	userID, err := h.creds.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.issueSession(c, userID, "", nil)
}
