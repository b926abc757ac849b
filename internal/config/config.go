package config

import (
	"fmt"
	"os"

	"github.com/jurisrank/jurisapi/internal/model"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Stats     StatsConfig     `yaml:"stats"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// RateLimitConfig 准入控制配置
type RateLimitConfig struct {
	// Tiers 层级默认策略表，键为 default/authenticated/premium/admin
	Tiers map[string]model.QuotaPolicy `yaml:"tiers"`
	// Endpoints 路由级覆盖策略表
	Endpoints map[string]model.QuotaPolicy `yaml:"endpoints"`

	AdminKeys   []string `yaml:"admin_keys"`
	PremiumKeys []string `yaml:"premium_keys"`

	IdleThreshold  int `yaml:"idle_threshold"`  // 秒，空闲客户端驱逐阈值
	ReaperInterval int `yaml:"reaper_interval"` // 秒，驱逐扫描周期

	// BurstSmoothing 启用基于令牌桶的突发平滑（burst_allowance 生效）
	BurstSmoothing bool `yaml:"burst_smoothing"`
}

// StatsConfig 决策事件统计配置
type StatsConfig struct {
	Backend string      `yaml:"backend"` // memory | redis
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load 从文件加载配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default 返回纯默认配置（不读文件）
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults 设置默认值
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18090
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/jurisapi.db"
	}
	if cfg.Database.RetentionDays == 0 {
		cfg.Database.RetentionDays = 7
	}
	if cfg.RateLimit.IdleThreshold == 0 {
		cfg.RateLimit.IdleThreshold = 86400
	}
	if cfg.RateLimit.ReaperInterval == 0 {
		cfg.RateLimit.ReaperInterval = 300
	}
	if len(cfg.RateLimit.Tiers) == 0 {
		cfg.RateLimit.Tiers = DefaultTierPolicies()
	}
	if len(cfg.RateLimit.Endpoints) == 0 {
		cfg.RateLimit.Endpoints = DefaultEndpointOverrides()
	}
	if cfg.Stats.Backend == "" {
		cfg.Stats.Backend = "memory"
	}
	if cfg.Stats.Redis.Addr == "" {
		cfg.Stats.Redis.Addr = "localhost:6379"
	}
	if cfg.Stats.Redis.Prefix == "" {
		cfg.Stats.Redis.Prefix = "jurisapi:ratelimit"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// validate 校验配置的硬约束
func validate(cfg *Config) error {
	for name, p := range cfg.RateLimit.Tiers {
		if p.RequestsPerHour <= 0 {
			return fmt.Errorf("tier %q: requests_per_hour must be positive", name)
		}
	}
	for route, p := range cfg.RateLimit.Endpoints {
		if p.RequestsPerHour <= 0 {
			return fmt.Errorf("endpoint %q: requests_per_hour must be positive", route)
		}
	}
	switch cfg.Stats.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("stats backend %q: must be memory or redis", cfg.Stats.Backend)
	}
	return nil
}

// DefaultTierPolicies 各层级的出厂默认配额
func DefaultTierPolicies() map[string]model.QuotaPolicy {
	return map[string]model.QuotaPolicy{
		string(model.TierDefault): {
			RequestsPerHour:   100,
			RequestsPerMinute: 10,
			RequestsPerDay:    500,
			BurstAllowance:    10,
		},
		string(model.TierAuthenticated): {
			RequestsPerHour:   1000,
			RequestsPerMinute: 50,
			RequestsPerDay:    5000,
			BurstAllowance:    20,
		},
		string(model.TierPremium): {
			RequestsPerHour:   5000,
			RequestsPerMinute: 200,
			RequestsPerDay:    25000,
			BurstAllowance:    50,
		},
		string(model.TierAdmin): {
			RequestsPerHour:   10000,
			RequestsPerMinute: 500,
			RequestsPerDay:    100000,
			BurstAllowance:    100,
		},
	}
}

// DefaultEndpointOverrides 路由级出厂覆盖（收紧高成本端点）
func DefaultEndpointOverrides() map[string]model.QuotaPolicy {
	return map[string]model.QuotaPolicy{
		"/api/v1/analysis/constitutional": {
			RequestsPerHour:   50,
			RequestsPerMinute: 5,
			BurstAllowance:    10,
		},
		"/api/v1/document/enhance": {
			RequestsPerHour:   25,
			RequestsPerMinute: 3,
			BurstAllowance:    10,
		},
		"/api/v1/search/precedents": {
			RequestsPerHour:   200,
			RequestsPerMinute: 20,
			BurstAllowance:    10,
		},
	}
}

// Save 保存配置到文件
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
