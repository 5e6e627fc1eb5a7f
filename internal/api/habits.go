package api

import (
	"errors"
	"log/slog"
	"net/http"

	"felicidade/internal/model"

	"github.com/gin-gonic/gin"
)

type habitRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category" binding:"required"`
}

// handleListHabits 返回所有习惯记录。
//
// GET /api/habits
func (s *Server) handleListHabits(c *gin.Context) {
	habits, err := s.habits.List(c.Request.Context())
	if err != nil {
		s.logger.Error("list habits failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list habits failed"})
		return
	}
	c.JSON(http.StatusOK, habits)
}

// handleGetHabit 按 ID 返回习惯记录。
//
// GET /api/habits/:id
func (s *Server) handleGetHabit(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
		return
	}

	habit, err := s.habits.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
			return
		}
		s.logger.Error("query habit failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query habit failed"})
		return
	}
	c.JSON(http.StatusOK, habit)
}

// handleCreateHabit 创建习惯记录，三个字段都必填。
//
// POST /api/habits
func (s *Server) handleCreateHabit(c *gin.Context) {
	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit := model.Habit{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	}
	if err := s.habits.Create(c.Request.Context(), &habit); err != nil {
		s.logger.Error("create habit failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create habit failed"})
		return
	}
	c.JSON(http.StatusOK, habit)
}
