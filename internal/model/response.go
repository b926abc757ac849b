package model

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Type    string            `json:"type,omitempty"`
	Details *RateLimitDetails `json:"details,omitempty"`
}

// RateLimitDetails 限流错误附加信息
type RateLimitDetails struct {
	Limit      int `json:"limit"`
	Window     int `json:"window"` // 秒
	RetryAfter int `json:"retry_after"`
}
