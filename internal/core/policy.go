package core

import (
	"sync"

	"github.com/jurisrank/jurisapi/internal/model"
)

// PolicyResolver 配额策略解析器
//
// Merges a tier's default policy with any endpoint-specific override into one
// effective policy (field-wise minimum, zero meaning "no constraint" for the
// optional windows). Policies are configuration, not per-request state, so
// resolved results are memoized per (tier, route).
type PolicyResolver struct {
	tiers     map[model.Tier]model.QuotaPolicy
	endpoints map[string]model.QuotaPolicy

	mu    sync.RWMutex
	cache map[policyKey]model.QuotaPolicy
}

type policyKey struct {
	tier  model.Tier
	route string
}

// NewPolicyResolver 创建策略解析器
func NewPolicyResolver(tiers map[model.Tier]model.QuotaPolicy, endpoints map[string]model.QuotaPolicy) *PolicyResolver {
	return &PolicyResolver{
		tiers:     tiers,
		endpoints: endpoints,
		cache:     make(map[policyKey]model.QuotaPolicy),
	}
}

// Resolve 解析 (层级, 路由) 的有效策略
func (p *PolicyResolver) Resolve(tier model.Tier, route string) model.QuotaPolicy {
	key := policyKey{tier: tier, route: route}

	p.mu.RLock()
	cached, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return cached
	}

	base, ok := p.tiers[tier]
	if !ok {
		base = p.tiers[model.TierDefault]
	}

	effective := base
	if override, ok := p.endpoints[route]; ok {
		effective = model.QuotaPolicy{
			RequestsPerHour:   minLimit(base.RequestsPerHour, override.RequestsPerHour),
			RequestsPerMinute: minLimit(base.RequestsPerMinute, override.RequestsPerMinute),
			RequestsPerDay:    minLimit(base.RequestsPerDay, override.RequestsPerDay),
			BurstAllowance:    minLimit(base.BurstAllowance, override.BurstAllowance),
		}
	}

	p.mu.Lock()
	p.cache[key] = effective
	p.mu.Unlock()

	return effective
}

// minLimit 取两个限额的最小值，0 表示无限制
func minLimit(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}
