package core

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jurisrank/jurisapi/internal/config"
	"github.com/jurisrank/jurisapi/internal/logger"
	"github.com/jurisrank/jurisapi/internal/model"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
	dayWindow    = 24 * time.Hour

	// activeWindow 活跃客户端判定窗口
	activeWindow = 5 * time.Minute

	// shardCount 客户端表分片数，必须是 2 的幂
	shardCount = 64
)

// usageRecord 单客户端用量记录
//
// Fixed-window counters: a window's count resets to zero exactly when
// now - start >= the window duration, and start advances to now at that
// moment. Counts never go negative; a negative count means a locking bug and
// panics rather than being silently repaired.
type usageRecord struct {
	minuteCount int
	hourCount   int
	dayCount    int
	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time

	totalRequests int64
	violations    int64
	firstRequest  time.Time
	lastRequest   time.Time
}

// shard 客户端表分片，各自持锁
type shard struct {
	mu      sync.Mutex
	clients map[string]*usageRecord
}

// RateLimiter 准入控制引擎
//
// Check is pure in-memory arithmetic plus one shard-lock acquisition; it
// never blocks on I/O. One instance is constructed at process start and
// passed explicitly to every consumer.
type RateLimiter struct {
	shards     [shardCount]*shard
	classifier *TierClassifier
	resolver   *PolicyResolver
	burst      *burstGuard // nil 表示未启用突发平滑

	idleThreshold  time.Duration
	reaperInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter 创建准入控制引擎
func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	tiers := make(map[model.Tier]model.QuotaPolicy, len(cfg.Tiers))
	for name, p := range cfg.Tiers {
		tiers[model.ParseTier(name)] = p
	}

	rl := &RateLimiter{
		classifier:     NewTierClassifier(cfg.AdminKeys, cfg.PremiumKeys),
		resolver:       NewPolicyResolver(tiers, cfg.Endpoints),
		idleThreshold:  time.Duration(cfg.IdleThreshold) * time.Second,
		reaperInterval: time.Duration(cfg.ReaperInterval) * time.Second,
		stopCh:         make(chan struct{}),
	}
	for i := range rl.shards {
		rl.shards[i] = &shard{clients: make(map[string]*usageRecord)}
	}
	if cfg.BurstSmoothing {
		rl.burst = newBurstGuard()
	}
	return rl
}

// Classify 判定客户端层级
func (r *RateLimiter) Classify(identity string) model.Tier {
	return r.classifier.Classify(identity)
}

// Policy 获取 (层级, 路由) 的有效策略
func (r *RateLimiter) Policy(tier model.Tier, route string) model.QuotaPolicy {
	return r.resolver.Resolve(tier, route)
}

func (r *RateLimiter) shardFor(identity string) *shard {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return r.shards[h.Sum32()&(shardCount-1)]
}

// Check 对一次请求做准入决策并更新计数
//
// Windows are independent and all must pass (AND semantics), checked in the
// order minute, hour, day so the reported retry time is the shortest accurate
// wait. A rejected request charges no window counter.
func (r *RateLimiter) Check(identity, route string, now time.Time) model.Decision {
	tier := r.classifier.Classify(identity)
	policy := r.resolver.Resolve(tier, route)

	sh := r.shardFor(identity)
	sh.mu.Lock()

	rec, ok := sh.clients[identity]
	if !ok {
		rec = &usageRecord{
			minuteStart:  now,
			hourStart:    now,
			dayStart:     now,
			firstRequest: now,
			lastRequest:  now,
		}
		sh.clients[identity] = rec
	}

	rec.rollWindows(now)

	type windowCheck struct {
		limit    int
		count    int
		start    time.Time
		duration time.Duration
	}
	checks := []windowCheck{
		{policy.RequestsPerMinute, rec.minuteCount, rec.minuteStart, minuteWindow},
		{policy.RequestsPerHour, rec.hourCount, rec.hourStart, hourWindow},
		{policy.RequestsPerDay, rec.dayCount, rec.dayStart, dayWindow},
	}
	for _, w := range checks {
		if w.limit <= 0 {
			continue
		}
		if w.count >= w.limit {
			rec.violations++
			dec := r.rejectDecision(tier, policy, rec, now, w.start, w.duration)
			sh.mu.Unlock()
			return dec
		}
	}

	// 突发平滑（可选）：窗口检查之外的附加令牌桶约束
	if r.burst != nil {
		if retry, ok := r.burst.admit(identity, policy, now); !ok {
			rec.violations++
			dec := r.rejectDecision(tier, policy, rec, now, rec.hourStart, hourWindow)
			if retry > 0 && retry < dec.RetryAfter {
				dec.RetryAfter = retry
			}
			sh.mu.Unlock()
			return dec
		}
	}

	rec.minuteCount++
	rec.hourCount++
	rec.dayCount++
	rec.totalRequests++
	rec.lastRequest = now

	dec := model.Decision{
		Allowed:       true,
		Tier:          tier,
		Limit:         policy.RequestsPerHour,
		Remaining:     remaining(policy.RequestsPerHour, rec.hourCount),
		ResetEpoch:    rec.hourStart.Add(hourWindow).Unix(),
		WindowSeconds: int(hourWindow / time.Second),
		Policy:        policyDescription(policy),
		Burst:         policy.BurstAllowance,
	}
	sh.mu.Unlock()
	return dec
}

// rollWindows 推进过期窗口（固定窗口重置）
func (rec *usageRecord) rollWindows(now time.Time) {
	if now.Sub(rec.minuteStart) >= minuteWindow {
		rec.minuteCount = 0
		rec.minuteStart = now
	}
	if now.Sub(rec.hourStart) >= hourWindow {
		rec.hourCount = 0
		rec.hourStart = now
	}
	if now.Sub(rec.dayStart) >= dayWindow {
		rec.dayCount = 0
		rec.dayStart = now
	}
	if rec.minuteCount < 0 || rec.hourCount < 0 || rec.dayCount < 0 {
		// A negative counter means the locking discipline is broken.
		panic(fmt.Sprintf("ratelimit: negative window counter (%d/%d/%d)",
			rec.minuteCount, rec.hourCount, rec.dayCount))
	}
}

func (r *RateLimiter) rejectDecision(tier model.Tier, policy model.QuotaPolicy, rec *usageRecord, now, windowStart time.Time, window time.Duration) model.Decision {
	return model.Decision{
		Allowed:       false,
		Tier:          tier,
		Limit:         policy.RequestsPerHour,
		Remaining:     remaining(policy.RequestsPerHour, rec.hourCount),
		ResetEpoch:    rec.hourStart.Add(hourWindow).Unix(),
		WindowSeconds: int(hourWindow / time.Second),
		Policy:        policyDescription(policy),
		Burst:         policy.BurstAllowance,
		RetryAfter:    retryAfterSeconds(now, windowStart, window),
	}
}

// retryAfterSeconds 距违规窗口重置还需等待的秒数（向上取整，至少 1）
func retryAfterSeconds(now, windowStart time.Time, window time.Duration) int {
	wait := window - now.Sub(windowStart)
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func remaining(limit, count int) int {
	if rem := limit - count; rem > 0 {
		return rem
	}
	return 0
}

func policyDescription(p model.QuotaPolicy) string {
	return fmt.Sprintf("%d per hour", p.RequestsPerHour)
}

// Usage 获取某客户端的用量快照，不存在时返回 false
func (r *RateLimiter) Usage(identity string, now time.Time) (model.UsageSnapshot, bool) {
	tier := r.classifier.Classify(identity)

	sh := r.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.clients[identity]
	if !ok {
		return model.UsageSnapshot{ClientTier: tier}, false
	}

	// Snapshot reflects current window boundaries without charging anything.
	rec.rollWindows(now)

	return model.UsageSnapshot{
		ClientTier:    tier,
		RequestsMade:  rec.hourCount,
		MinuteCount:   rec.minuteCount,
		DayCount:      rec.dayCount,
		TotalRequests: rec.totalRequests,
		Violations:    rec.violations,
		FirstRequest:  rec.firstRequest.Unix(),
		LastRequest:   rec.lastRequest.Unix(),
	}, true
}

// Stats 聚合全局统计（逐分片加锁，不阻塞其它分片的热路径）
func (r *RateLimiter) Stats(now time.Time) model.RateLimitStats {
	var stats model.RateLimitStats
	for _, sh := range r.shards {
		sh.mu.Lock()
		stats.TotalClients += len(sh.clients)
		for _, rec := range sh.clients {
			stats.TotalRequests += rec.totalRequests
			stats.TotalViolations += rec.violations
			if now.Sub(rec.lastRequest) < activeWindow {
				stats.ActiveClients++
			}
		}
		sh.mu.Unlock()
	}

	total := stats.TotalRequests
	if total < 1 {
		total = 1
	}
	stats.ViolationRate = float64(stats.TotalViolations) / float64(total)
	return stats
}

// Sweep 同步驱逐空闲客户端记录，返回驱逐数量
func (r *RateLimiter) Sweep(now time.Time) int {
	evicted := 0
	for _, sh := range r.shards {
		sh.mu.Lock()
		for identity, rec := range sh.clients {
			if now.Sub(rec.lastRequest) > r.idleThreshold {
				delete(sh.clients, identity)
				if r.burst != nil {
					r.burst.forget(identity)
				}
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// StartReaper 启动后台驱逐扫描
func (r *RateLimiter) StartReaper() {
	go func() {
		ticker := time.NewTicker(r.reaperInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				if n := r.Sweep(time.Now()); n > 0 {
					logger.Info("reaper evicted idle clients", "count", n)
				}
			}
		}
	}()
}

// Stop 停止后台驱逐扫描
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}
