package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"felicidade/internal/api/auth"
	"felicidade/internal/api/middleware"
	"felicidade/internal/config"
	"felicidade/internal/model"
	"felicidade/internal/pkg/mailqueue"
	"felicidade/internal/pkg/metrics"
	"felicidade/internal/pkg/notify"
	"felicidade/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端以及 Gin 路由引擎。
// 所有 handler 通过 store 接口访问数据，测试里可以替换为内存实现。
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	rdb    *redis.Client
	router *gin.Engine
	auth   *auth.Handler
	mailer notify.Notifier
	mailq  *mailqueue.Queue

	users   UserStore
	feeds   FeedStore
	agendas AgendaStore
	habits  HabitStore
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis（限流）
// 3. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Agenda{}, &model.Event{}, &model.Feed{}, &model.Habit{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	// 初始化 Prometheus 指标
	metrics.Init()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	users := dbUserStore{db: db}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		rdb:     rdb,
		router:  r,
		auth:    auth.NewHandler(users, cfg.Security.JWTSecret, logger),
		mailer:  notify.NewEmailNotifier(&cfg.Email, logger),
		mailq:   mailqueue.NewQueue(rdb, logger, mailqueue.DefaultStream),
		users:   users,
		feeds:   dbFeedStore{db: db},
		agendas: dbAgendaStore{db: db},
		habits:  dbHabitStore{db: db},
	}

	limiter := ratelimit.NewRedisRateLimiter(rdb, "felicidade:ratelimit:auth", cfg.App.RateLimit, cfg.App.RateBurst)
	s.registerRoutes(limiter)
	return s, nil
}

// StartMailWorker 启动欢迎邮件的后台投递 Worker。
//
// Worker 随 ctx 取消而退出。
func (s *Server) StartMailWorker(ctx context.Context) error {
	worker, err := mailqueue.NewWorker(s.rdb, s.mailer, s.logger, mailqueue.DefaultStream)
	if err != nil {
		return err
	}
	go worker.Run(ctx)
	return nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与 Redis 连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes(limiter *ratelimit.RateLimiter) {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	authRequired := middleware.Auth(s.cfg.Security.JWTSecret)
	adminOnly := middleware.RequireAdmin()
	rateLimited := middleware.RateLimit(limiter, s.logger)

	api := s.router.Group("/api")

	// 凭证端点带限流，防止暴力注册/撞库
	api.POST("/users", rateLimited, s.handleRegister)
	api.GET("/users", s.handleListUsers)
	api.GET("/users/me", authRequired, s.handleCurrentUser)
	api.GET("/users/:id", s.handleGetUser)
	api.PUT("/users/:id", s.handleUpdateUser)

	api.POST("/auth", rateLimited, s.auth.Login)

	api.GET("/feed", s.handleListFeed)
	api.GET("/feed/:id", s.handleGetFeed)
	api.POST("/feed", authRequired, s.handleCreateFeed)
	api.PUT("/feed/:id", authRequired, s.handleUpdateFeed)
	api.DELETE("/feed/:id", authRequired, s.handleDeleteFeed)
	api.POST("/feed/authorize/:id", authRequired, adminOnly, s.handleAuthorizeFeed)

	api.GET("/agenda", s.handleListAgendas)
	api.GET("/agenda/:id", s.handleGetAgenda)
	api.POST("/agenda", s.handleCreateAgenda)
	api.PUT("/agenda/:id", s.handleUpsertEvent)
	api.DELETE("/agenda/:id", s.handleDeleteEvent)

	api.GET("/habits", s.handleListHabits)
	api.GET("/habits/:id", s.handleGetHabit)
	api.POST("/habits", s.handleCreateHabit)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseIDParam 解析路径中的 :id。
//
// 非法格式按“资源不存在”处理，错误返回 false 时调用方直接结束请求。
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// getUserID 读取认证中间件写入的用户 ID。
func getUserID(c *gin.Context) uint {
	v, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}

// getIsAdmin 读取认证中间件写入的管理员标记。
func getIsAdmin(c *gin.Context) bool {
	v, ok := c.Get(middleware.ContextIsAdmin)
	if !ok {
		return false
	}
	isAdmin, _ := v.(bool)
	return isAdmin
}
