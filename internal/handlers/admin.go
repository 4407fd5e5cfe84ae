package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
)

// AdminHandler exchanges the operator key for a short-lived admin JWT. The
// key is stored as a bcrypt hash, never in the clear.
type AdminHandler struct {
	log          *logger.Logger
	adminKeyHash string
	jwtSecret    []byte
	tokenTTL     time.Duration
}

func NewAdminHandler(log *logger.Logger, adminKeyHash string, jwtSecret []byte, tokenTTL time.Duration) *AdminHandler {
	return &AdminHandler{
		log:          log.With("handler", "AdminHandler"),
		adminKeyHash: adminKeyHash,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
	}
}

type loginRequest struct {
	Key string `json:"key" binding:"required"`
}

// Login issues the admin token. POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if h.adminKeyHash == "" {
		RespondError(c, http.StatusServiceUnavailable, "admin_login_disabled", errors.New("no admin key configured"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.adminKeyHash), []byte(req.Key)); err != nil {
		h.log.Warn("Admin login rejected")
		RespondError(c, http.StatusUnauthorized, "invalid_key", errors.New("invalid key"))
		return
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "token_sign_failed", err)
		return
	}
	RespondOK(c, gin.H{"token": token, "expires_at": claims.ExpiresAt.Time})
}
