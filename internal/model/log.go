package model

import "time"

// DecisionLog 准入决策审计日志
type DecisionLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Identity  string    `json:"identity"`
	Tier      Tier      `json:"tier"`
	Route     string    `json:"route"`
	Method    string    `json:"method"`

	// 决策结果
	Allowed    bool `json:"allowed"`
	Limit      int  `json:"limit"`
	Remaining  int  `json:"remaining"`
	RetryAfter int  `json:"retry_after,omitempty"`

	// 客户端信息
	ClientIP string `json:"client_ip,omitempty"`
}

// DailyDecisionStats 每日决策统计汇总
type DailyDecisionStats struct {
	Date          string  `json:"date"`
	TotalRequests int     `json:"total_requests"`
	AllowedRate   float64 `json:"allowed_rate"`
	Violations    int     `json:"violations"`
	UniqueClients int     `json:"unique_clients"`
}

// RouteDecisionStats 按路由的决策统计
type RouteDecisionStats struct {
	Route         string  `json:"route"`
	TotalRequests int     `json:"total_requests"`
	AllowedRate   float64 `json:"allowed_rate"`
	Violations    int     `json:"violations"`
}

// DecisionQuery 决策日志查询参数
type DecisionQuery struct {
	Identity  string    `form:"identity"`
	Route     string    `form:"route"`
	Tier      string    `form:"tier"`
	Allowed   *bool     `form:"allowed"`
	StartTime time.Time `form:"start_time"`
	EndTime   time.Time `form:"end_time"`
	Limit     int       `form:"limit"`
	Offset    int       `form:"offset"`
}
