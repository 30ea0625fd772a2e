package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Almirante-Ming/Rose/store"
	"github.com/Almirante-Ming/Rose/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccountStore interface {
	FindAccount(ctx context.Context, login string) (store.Account, error)
}

type LoginHandler struct {
	accounts AccountStore
	secret   string
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewLoginHandler(accounts AccountStore, secret string, ttl time.Duration, logger *zap.Logger) *LoginHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LoginHandler{accounts: accounts, secret: secret, ttl: ttl, now: time.Now, logger: logger}
}

func (h *LoginHandler) Register(r gin.IRoutes) {
	r.POST("/login", h.Login)
}

// Login takes a form with username (email or phone) and password.
func (h *LoginHandler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	if len(username) == 0 || len(password) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	account, err := h.accounts.FindAccount(c.Request.Context(), username)

	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	if err != nil || !store.CheckPassword(account.PasswordHash, password) {
		h.logger.Info("login rejected", zap.String("username", username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
		return
	}

	raw, err := token.Issue(h.secret, token.Payload{
		Subject:     account.Person.Email,
		UserID:      account.Person.ID,
		HasUserID:   true,
		AccessLevel: account.AccessLevel(),
		ExpiresAt:   h.now().Add(h.ttl),
	})

	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": raw, "token_type": "bearer"})
}
