package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"felicidade/internal/api/auth"
	"felicidade/internal/api/middleware"
	"felicidade/internal/model"
	"felicidade/internal/pkg/mailqueue"
	"felicidade/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// userRequest 注册与资料更新共用的请求体。
type userRequest struct {
	Name     string `json:"name" binding:"required,min=5,max=50"`
	Email    string `json:"email" binding:"required,email,min=5,max=255"`
	Password string `json:"password" binding:"required,min=5,max=255"`
}

// userResponse 去掉密码哈希的用户表示。
type userResponse struct {
	ID    uint   `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// handleRegister 创建新用户。
//
// POST /api/users
//
// 用户与其空日程表在同一事务内创建。成功时响应头带 x-auth-token，
// 响应体不包含密码字段。
func (s *Server) handleRegister(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	_, err := s.users.FindByEmail(c.Request.Context(), email)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user already registered"})
		return
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("query user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query user failed"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user := model.User{
		Name:     req.Name,
		Email:    email,
		Password: string(hash),
		IsAdmin:  false,
	}
	if err := s.users.CreateWithAgenda(c.Request.Context(), &user); err != nil {
		s.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}

	token, err := auth.IssueToken([]byte(s.cfg.Security.JWTSecret), user.ID, user.IsAdmin)
	if err != nil {
		s.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	if metrics.UsersRegisteredTotal != nil {
		metrics.UsersRegisteredTotal.Inc()
	}
	// 欢迎邮件异步投递，入队失败不影响注册结果
	if s.mailq != nil {
		msg := &mailqueue.Message{UserID: user.ID, Email: user.Email, Name: user.Name}
		if err := s.mailq.Enqueue(c.Request.Context(), msg); err != nil {
			s.logger.Warn("enqueue welcome email failed", slog.String("email", email), slog.String("error", err.Error()))
		}
	} else if s.mailer != nil {
		go func(email, name string) {
			if err := s.mailer.SendWelcome(email, name); err != nil {
				s.logger.Warn("send welcome email failed", slog.String("email", email), slog.String("error", err.Error()))
			}
		}(user.Email, user.Name)
	}

	s.logger.Info("user registered", slog.String("email", email))
	c.Header(middleware.TokenHeader, token)
	c.JSON(http.StatusOK, userResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

// handleListUsers 返回所有用户（密码哈希从不序列化）。
//
// GET /api/users
func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context())
	if err != nil {
		s.logger.Error("list users failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// handleCurrentUser 返回当前登录用户。
//
// GET /api/users/me
//
// 令牌里的身份只作为查找键，数据总是重新从数据库读取。
func (s *Server) handleCurrentUser(c *gin.Context) {
	user, err := s.users.FindByID(c.Request.Context(), getUserID(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.logger.Error("query user failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query user failed"})
		return
	}
	c.JSON(http.StatusOK, userResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

// handleGetUser 按 ID 返回用户。
//
// GET /api/users/:id
func (s *Server) handleGetUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	user, err := s.users.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.logger.Error("query user failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query user failed"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// handleUpdateUser 更新用户资料（姓名/邮箱/密码）。
//
// PUT /api/users/:id
//
// 所有字段重新校验，提供的密码总是重新哈希。
func (s *Server) handleUpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.users.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.logger.Error("query user failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query user failed"})
		return
	}

	// 新邮箱不能属于其他用户
	if existing, err := s.users.FindByEmail(c.Request.Context(), email); err == nil && existing.ID != user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user.Name = req.Name
	user.Email = email
	user.Password = string(hash)
	if err := s.users.Update(c.Request.Context(), user); err != nil {
		s.logger.Error("update user failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update user failed"})
		return
	}

	c.JSON(http.StatusOK, user)
}
