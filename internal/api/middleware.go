package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jurisrank/jurisapi/internal/config"
	"github.com/jurisrank/jurisapi/internal/core"
	"github.com/jurisrank/jurisapi/internal/logger"
	"github.com/jurisrank/jurisapi/internal/model"
	"github.com/jurisrank/jurisapi/internal/stats"
	"github.com/jurisrank/jurisapi/internal/store"
)

// 请求上下文键
const (
	ctxClientInfo = "client_info"
	ctxDecision   = "rate_limit_decision"
)

// RateLimitMiddleware 准入控制中间件
//
// Derives the client identity, asks the engine for a decision, attaches the
// standard quota headers to every response and rejects with 429 when the
// quota is exhausted. Stats and audit writes are best-effort.
func RateLimitMiddleware(rl *core.RateLimiter, sink stats.Sink, db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := core.Identify(
			c.GetHeader("Authorization"),
			c.GetHeader("X-API-Key"),
			c.ClientIP(),
			c.Request.UserAgent(),
		)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		now := time.Now()
		dec := rl.Check(identity, route, now)

		for k, v := range core.BuildHeaders(dec) {
			c.Header(k, v)
		}

		c.Set(ctxClientInfo, model.ClientInfo{
			Identity: identity,
			Tier:     dec.Tier,
			IP:       c.ClientIP(),
		})
		c.Set(ctxDecision, dec)

		if sink != nil {
			if err := sink.Record(c.Request.Context(), stats.Event{
				Identity: identity,
				Tier:     dec.Tier,
				Route:    route,
				Method:   c.Request.Method,
				Allowed:  dec.Allowed,
				At:       now,
			}); err != nil {
				logger.Debug("stats record failed", "error", err)
			}
		}

		if db != nil {
			if err := db.SaveDecision(&model.DecisionLog{
				ID:         core.GenerateLogID(),
				Timestamp:  now,
				Identity:   identity,
				Tier:       dec.Tier,
				Route:      route,
				Method:     c.Request.Method,
				Allowed:    dec.Allowed,
				Limit:      dec.Limit,
				Remaining:  dec.Remaining,
				RetryAfter: dec.RetryAfter,
				ClientIP:   c.ClientIP(),
			}); err != nil {
				logger.Warn("decision audit write failed", "error", err)
			}
		}

		if !dec.Allowed {
			c.JSON(429, model.ErrorResponse{
				Error: model.ErrorDetail{
					Code:    "RATE_LIMIT_EXCEEDED",
					Message: "Rate limit exceeded. " + dec.Policy,
					Type:    "rate_limit_error",
					Details: &model.RateLimitDetails{
						Limit:      dec.Limit,
						Window:     dec.WindowSeconds,
						RetryAfter: dec.RetryAfter,
					},
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// clientInfo 从上下文取客户端信息
func clientInfo(c *gin.Context) (model.ClientInfo, bool) {
	v, ok := c.Get(ctxClientInfo)
	if !ok {
		return model.ClientInfo{}, false
	}
	info, ok := v.(model.ClientInfo)
	return info, ok
}

// AuthMiddleware API Key 认证中间件（管理接口）
func AuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 如果未设置 API Key，跳过认证
		if apiKey == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(401, model.ErrorResponse{
				Error: model.ErrorDetail{
					Code:    "missing_api_key",
					Message: "Missing Authorization header",
					Type:    "authentication_error",
				},
			})
			c.Abort()
			return
		}

		// 解析 Bearer token
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			// 没有 Bearer 前缀，可能直接是 key
			token = auth
		}

		if token != apiKey {
			c.JSON(401, model.ErrorResponse{
				Error: model.ErrorDetail{
					Code:    "invalid_api_key",
					Message: "Invalid API key",
					Type:    "authentication_error",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CORSMiddleware CORS 中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Requested-With")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// SecurityHeadersMiddleware 安全响应头中间件
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RecoveryMiddleware 恢复中间件
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", "error", err, "path", c.Request.URL.Path)
				c.JSON(500, model.ErrorResponse{
					Error: model.ErrorDetail{
						Code:    "internal_error",
						Message: "Internal server error",
						Type:    "internal_error",
					},
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// LoggerMiddleware 请求日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("http request",
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"method", c.Request.Method,
			"path", path)
	}
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, rl *core.RateLimiter, sink stats.Sink, db *store.Store) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(SecurityHeadersMiddleware())

	analysis := NewAnalysisHandler()
	limits := NewRateLimitHandler(rl)
	admin := NewAdminHandler(rl, db, cfg)

	// 公共 API（经过准入控制）
	v1 := r.Group("/api/v1")
	v1.Use(RateLimitMiddleware(rl, sink, db))
	{
		v1.POST("/analysis/constitutional", analysis.ConstitutionalAnalysis)
		v1.POST("/document/enhance", analysis.EnhanceDocument)
		v1.POST("/search/precedents", analysis.SearchPrecedents)

		v1.GET("/rate-limit/stats", limits.Stats)
		v1.GET("/rate-limit/my-usage", limits.MyUsage)
	}

	// 管理 API（可选管理密钥认证，不消耗配额）
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(AuthMiddleware(cfg.Server.AdminAPIKey))
	{
		adminGroup.GET("/decisions", admin.GetDecisions)
		adminGroup.GET("/stats", admin.GetStats)
		adminGroup.GET("/config", admin.GetConfig)
		adminGroup.POST("/sweep", admin.Sweep)
	}

	// 健康检查端点
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
