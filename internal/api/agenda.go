package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"felicidade/internal/model"

	"github.com/gin-gonic/gin"
)

// eventRequest 新增或替换事件的请求体。
//
// 日期可选，但传了就必须是合法的 RFC3339 时间戳（JSON 解码时校验）。
type eventRequest struct {
	InitialDate *time.Time `json:"initialDate"`
	FinalDate   *time.Time `json:"finalDate"`
	Title       string     `json:"title" binding:"required"`
	Content     string     `json:"content"`
}

type upsertEventRequest struct {
	Event eventRequest `json:"event"`
}

type createAgendaRequest struct {
	User uint `json:"user" binding:"required"`
}

// handleListAgendas 返回日程表列表。
//
// GET /api/agenda?user=<id>
//
// user 查询参数把结果收窄到单个用户。
func (s *Server) handleListAgendas(c *gin.Context) {
	if userParam := c.Query("user"); userParam != "" {
		userID, err := strconv.ParseUint(userParam, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		agendas, err := s.agendas.ListByUser(c.Request.Context(), uint(userID))
		if err != nil {
			s.logger.Error("list agendas failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list agendas failed"})
			return
		}
		c.JSON(http.StatusOK, agendas)
		return
	}

	agendas, err := s.agendas.List(c.Request.Context())
	if err != nil {
		s.logger.Error("list agendas failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list agendas failed"})
		return
	}
	c.JSON(http.StatusOK, agendas)
}

// handleGetAgenda 按 ID 返回日程表，事件按插入顺序。
//
// GET /api/agenda/:id
func (s *Server) handleGetAgenda(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "agenda not found"})
		return
	}

	agenda, err := s.agendas.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "agenda not found"})
			return
		}
		s.logger.Error("query agenda failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query agenda failed"})
		return
	}
	c.JSON(http.StatusOK, agenda)
}

// handleCreateAgenda 为指定用户创建空日程表。
//
// POST /api/agenda
//
// 注册流程内部走事务创建；这个端点保留给补建场景。
// 每个用户最多一个日程表。
func (s *Server) handleCreateAgenda(c *gin.Context) {
	var req createAgendaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.agendas.FindByUser(c.Request.Context(), req.User); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agenda already exists"})
		return
	} else if !errors.Is(err, ErrNotFound) {
		s.logger.Error("query agenda failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query agenda failed"})
		return
	}

	agenda := model.Agenda{UserID: req.User, Events: []model.Event{}}
	if err := s.agendas.Create(c.Request.Context(), &agenda); err != nil {
		s.logger.Error("create agenda failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create agenda failed"})
		return
	}
	c.JSON(http.StatusOK, agenda)
}

// handleUpsertEvent 追加或原地替换日程事件。
//
// PUT /api/agenda/:id?eventId=<id>
//
// 带 eventId 时替换对应事件（保留位置），不存在返回 404；
// 不带时在序列末尾追加新事件。返回更新后的完整日程表。
func (s *Server) handleUpsertEvent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "agenda not found"})
		return
	}

	var req upsertEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.agendas.FindByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "agenda not found"})
			return
		}
		s.logger.Error("query agenda failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query agenda failed"})
		return
	}

	event := model.Event{
		InitialDate: req.Event.InitialDate,
		FinalDate:   req.Event.FinalDate,
		Title:       req.Event.Title,
		Content:     req.Event.Content,
	}

	if eventIDParam := c.Query("eventId"); eventIDParam != "" {
		eventID, err := strconv.ParseUint(eventIDParam, 10, 32)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		matched, err := s.agendas.ReplaceEvent(c.Request.Context(), id, uint(eventID), &event)
		if err != nil {
			s.logger.Error("replace event failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "replace event failed"})
			return
		}
		if !matched {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
	} else {
		if err := s.agendas.AppendEvent(c.Request.Context(), id, &event); err != nil {
			s.logger.Error("append event failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "append event failed"})
			return
		}
	}

	agenda, err := s.agendas.FindByID(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("reload agenda failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query agenda failed"})
		return
	}
	c.JSON(http.StatusOK, agenda)
}

// handleDeleteEvent 按 eventId 删除日程事件。
//
// DELETE /api/agenda/:id?eventId=<id>
//
// eventId 缺失返回 400，找不到对应事件返回 404。
// 剩余事件保持相对顺序，返回更新后的日程表。
func (s *Server) handleDeleteEvent(c *gin.Context) {
	eventIDParam := c.Query("eventId")
	if eventIDParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event id is required"})
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "agenda not found"})
		return
	}
	if _, err := s.agendas.FindByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "agenda not found"})
			return
		}
		s.logger.Error("query agenda failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query agenda failed"})
		return
	}

	eventID, err := strconv.ParseUint(eventIDParam, 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	matched, err := s.agendas.DeleteEvent(c.Request.Context(), id, uint(eventID))
	if err != nil {
		s.logger.Error("delete event failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete event failed"})
		return
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	agenda, err := s.agendas.FindByID(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("reload agenda failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query agenda failed"})
		return
	}
	c.JSON(http.StatusOK, agenda)
}
