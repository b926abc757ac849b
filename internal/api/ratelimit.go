package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jurisrank/jurisapi/internal/core"
	"github.com/jurisrank/jurisapi/internal/model"
)

// RateLimitHandler 限流监控处理器
type RateLimitHandler struct {
	rl *core.RateLimiter
}

// NewRateLimitHandler 创建限流监控处理器
func NewRateLimitHandler(rl *core.RateLimiter) *RateLimitHandler {
	return &RateLimitHandler{rl: rl}
}

// Stats 获取限流全局统计
func (h *RateLimitHandler) Stats(c *gin.Context) {
	stats := h.rl.Stats(time.Now())
	c.JSON(200, gin.H{
		"success": true,
		"data":    stats,
		"metadata": gin.H{
			"timestamp": time.Now().Unix(),
		},
	})
}

// MyUsage 获取调用方自己的用量
func (h *RateLimitHandler) MyUsage(c *gin.Context) {
	info, ok := clientInfo(c)
	if !ok {
		// 中间件未运行时不应到达这里
		c.JSON(500, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "internal_error",
				Message: "Client identity unavailable",
				Type:    "internal_error",
			},
		})
		return
	}

	usage, _ := h.rl.Usage(info.Identity, time.Now())
	c.JSON(200, gin.H{
		"success": true,
		"data":    usage,
	})
}
