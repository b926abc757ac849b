package model

// UsageSnapshot 单个客户端的用量快照
type UsageSnapshot struct {
	ClientTier    Tier  `json:"client_tier"`
	RequestsMade  int   `json:"requests_made"` // 当前小时窗口计数
	MinuteCount   int   `json:"minute_count"`
	DayCount      int   `json:"day_count"`
	TotalRequests int64 `json:"total_requests"`
	Violations    int64 `json:"violations"`
	FirstRequest  int64 `json:"first_request,omitempty"` // Unix 秒
	LastRequest   int64 `json:"last_request,omitempty"`  // Unix 秒
}

// RateLimitStats 限流全局统计
type RateLimitStats struct {
	TotalClients    int     `json:"total_clients"`
	TotalRequests   int64   `json:"total_requests"`
	TotalViolations int64   `json:"total_violations"`
	ViolationRate   float64 `json:"violation_rate"`
	ActiveClients   int     `json:"active_clients"` // 最近 5 分钟内有请求
}
