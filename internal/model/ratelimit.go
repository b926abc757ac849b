package model

// Tier 客户端服务层级
type Tier string

const (
	TierDefault       Tier = "default"
	TierAuthenticated Tier = "authenticated"
	TierPremium       Tier = "premium"
	TierAdmin         Tier = "admin"
)

// ParseTier 解析层级字符串，未知值回退到 default
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierAuthenticated, TierPremium, TierAdmin:
		return Tier(s)
	default:
		return TierDefault
	}
}

// QuotaPolicy 配额策略
//
// RequestsPerHour is the headline limit and is always positive after config
// defaulting. The minute/day windows are optional: zero means "no limit for
// that window" (an explicit sentinel, never float infinity).
type QuotaPolicy struct {
	RequestsPerHour   int `yaml:"requests_per_hour" json:"requests_per_hour"`
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute,omitempty"` // 0=无限
	RequestsPerDay    int `yaml:"requests_per_day" json:"requests_per_day,omitempty"`       // 0=无限
	BurstAllowance    int `yaml:"burst_allowance" json:"burst_allowance,omitempty"`
}

// Decision 准入决策
//
// Limit / Remaining / ResetEpoch / WindowSeconds always describe the hourly
// window, which is the headline metric on the wire. RetryAfter is only set
// when Allowed is false.
type Decision struct {
	Allowed       bool
	Tier          Tier
	Limit         int
	Remaining     int
	ResetEpoch    int64
	WindowSeconds int
	Policy        string
	Burst         int
	RetryAfter    int
}

// ClientInfo 客户端信息（存入 gin.Context）
type ClientInfo struct {
	Identity string // 准入引擎使用的客户端标识
	Tier     Tier   // 识别出的层级
	IP       string // 客户端 IP
}
