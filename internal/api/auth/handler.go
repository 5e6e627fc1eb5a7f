package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"felicidade/internal/model"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// UserFinder 按邮箱查找用户，缺失时返回错误。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Handler 提供登录接口。
type Handler struct {
	users     UserFinder
	jwtSecret []byte
	logger    *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(users UserFinder, jwtSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email,min=5,max=255"`
	Password string `json:"password" binding:"required,min=5,max=255"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login 校验邮箱与密码并返回 JWT。
//
// 邮箱不存在与密码错误返回同一个 400，避免泄露账号是否存在。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.users.FindByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := IssueToken(h.jwtSecret, user.ID, user.IsAdmin)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	if h.logger != nil {
		h.logger.Info("user logged in", slog.String("email", email), slog.Bool("is_admin", user.IsAdmin))
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}
