package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jurisrank/jurisapi/internal/config"
	"github.com/jurisrank/jurisapi/internal/core"
	"github.com/jurisrank/jurisapi/internal/model"
	"github.com/jurisrank/jurisapi/internal/store"
)

// AdminHandler 管理 API 处理器
type AdminHandler struct {
	rl    *core.RateLimiter
	store *store.Store
	cfg   *config.Config
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(rl *core.RateLimiter, store *store.Store, cfg *config.Config) *AdminHandler {
	return &AdminHandler{rl: rl, store: store, cfg: cfg}
}

// GetDecisions 查询决策审计日志
func (h *AdminHandler) GetDecisions(c *gin.Context) {
	var query model.DecisionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(400, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "invalid_query",
				Message: "Invalid query: " + err.Error(),
				Type:    "invalid_request_error",
			},
		})
		return
	}

	logs, err := h.store.QueryDecisions(&query)
	if err != nil {
		c.JSON(500, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "internal_error",
				Message: err.Error(),
				Type:    "internal_error",
			},
		})
		return
	}

	c.JSON(200, gin.H{"data": logs})
}

// GetStats 获取审计统计（每日 + 按路由）
func (h *AdminHandler) GetStats(c *gin.Context) {
	days := 7
	if d := c.Query("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			days = n
		}
	}

	dailyStats, err := h.store.GetDailyStats(days)
	if err != nil {
		c.JSON(500, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "internal_error",
				Message: err.Error(),
				Type:    "internal_error",
			},
		})
		return
	}

	routeStats, err := h.store.GetRouteStats(days)
	if err != nil {
		c.JSON(500, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "internal_error",
				Message: err.Error(),
				Type:    "internal_error",
			},
		})
		return
	}

	c.JSON(200, gin.H{
		"daily":  dailyStats,
		"routes": routeStats,
		"engine": h.rl.Stats(time.Now()),
	})
}

// GetConfig 获取生效的准入配置
func (h *AdminHandler) GetConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"server": gin.H{
			"host": h.cfg.Server.Host,
			"port": h.cfg.Server.Port,
		},
		"rate_limit": gin.H{
			"tiers":           h.cfg.RateLimit.Tiers,
			"endpoints":       h.cfg.RateLimit.Endpoints,
			"idle_threshold":  h.cfg.RateLimit.IdleThreshold,
			"reaper_interval": h.cfg.RateLimit.ReaperInterval,
			"burst_smoothing": h.cfg.RateLimit.BurstSmoothing,
		},
		"stats":   gin.H{"backend": h.cfg.Stats.Backend},
		"logging": h.cfg.Logging,
	})
}

// Sweep 立即执行一次空闲客户端驱逐
func (h *AdminHandler) Sweep(c *gin.Context) {
	evicted := h.rl.Sweep(time.Now())
	c.JSON(200, gin.H{"evicted": evicted})
}
