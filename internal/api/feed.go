package api

import (
	"errors"
	"log/slog"
	"net/http"

	"felicidade/internal/model"
	"felicidade/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// feedRequest 创建与编辑内容条目的请求体。
//
// IsAnon 用指针区分“传了 false”和“没传”。
type feedRequest struct {
	Title       string `json:"title" binding:"required,min=5,max=255"`
	Description string `json:"description" binding:"required,min=5"`
	IsAnon      *bool  `json:"isAnon" binding:"required"`
}

// handleListFeed 返回所有已发布的内容条目，按创建顺序排列。
//
// GET /api/feed
func (s *Server) handleListFeed(c *gin.Context) {
	feeds, err := s.feeds.ListAuthorized(c.Request.Context())
	if err != nil {
		s.logger.Error("list feed failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list feed failed"})
		return
	}
	c.JSON(http.StatusOK, feeds)
}

// handleGetFeed 按 ID 返回条目。
//
// GET /api/feed/:id
//
// 未发布的条目对所有调用方返回 403，包括作者本人。
func (s *Server) handleGetFeed(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	feed, err := s.feeds.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		s.logger.Error("query feed failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query feed failed"})
		return
	}
	if !feed.IsAuthorized {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

// handleCreateFeed 创建草稿条目。
//
// POST /api/feed
//
// 作者取自令牌身份，发布标记固定为 false，只有管理员发布后可见。
func (s *Server) handleCreateFeed(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	feed := model.Feed{
		Title:        req.Title,
		Description:  req.Description,
		IsAnon:       *req.IsAnon,
		AuthorID:     getUserID(c),
		IsAuthorized: false,
	}
	if err := s.feeds.Create(c.Request.Context(), &feed); err != nil {
		s.logger.Error("create feed failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create feed failed"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

// handleUpdateFeed 编辑条目（标题/描述/匿名标记）。
//
// PUT /api/feed/:id
//
// 只有作者可以编辑，管理员也不行。编辑不影响发布标记。
func (s *Server) handleUpdateFeed(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	feed, err := s.feeds.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		s.logger.Error("query feed failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query feed failed"})
		return
	}
	if feed.AuthorID != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	feed.Title = req.Title
	feed.Description = req.Description
	feed.IsAnon = *req.IsAnon
	if err := s.feeds.Save(c.Request.Context(), feed); err != nil {
		s.logger.Error("update feed failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update feed failed"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

// handleDeleteFeed 删除条目，返回被删除的条目。
//
// DELETE /api/feed/:id
//
// 作者或管理员可以删除，其他人返回 403。
func (s *Server) handleDeleteFeed(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	feed, err := s.feeds.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		s.logger.Error("query feed failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query feed failed"})
		return
	}
	if !getIsAdmin(c) && feed.AuthorID != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if err := s.feeds.Delete(c.Request.Context(), id); err != nil {
		s.logger.Error("delete feed failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete feed failed"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

// handleAuthorizeFeed 发布条目（草稿 -> 已发布）。
//
// POST /api/feed/authorize/:id
//
// 仅管理员，幂等，没有反向转换。
func (s *Server) handleAuthorizeFeed(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	feed, err := s.feeds.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		s.logger.Error("query feed failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query feed failed"})
		return
	}

	if !feed.IsAuthorized {
		feed.IsAuthorized = true
		if err := s.feeds.Save(c.Request.Context(), feed); err != nil {
			s.logger.Error("authorize feed failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authorize feed failed"})
			return
		}
		if metrics.FeedsAuthorizedTotal != nil {
			metrics.FeedsAuthorizedTotal.Inc()
		}
		s.logger.Info("feed authorized", slog.Uint64("feed_id", uint64(feed.ID)), slog.Uint64("admin_id", uint64(getUserID(c))))
	}
	c.JSON(http.StatusOK, feed)
}
