package core

import (
	"sync"
	"time"

	"github.com/jurisrank/jurisapi/internal/model"
	"golang.org/x/time/rate"
)

// burstGuard 突发平滑护栏
//
// When enabled, each client also has to pass a token bucket sized by the
// policy's burst_allowance and refilled at the hourly limit spread over the
// hour. This never loosens a window limit, it only spreads traffic inside
// the configured windows.
type burstGuard struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func newBurstGuard() *burstGuard {
	return &burstGuard{buckets: make(map[string]*rate.Limiter)}
}

// admit 尝试从客户端令牌桶取一个令牌
//
// Returns (retryAfterSeconds, allowed). The bucket is created from the first
// effective policy seen for the identity; the reaper drops it together with
// the usage record.
func (g *burstGuard) admit(identity string, policy model.QuotaPolicy, now time.Time) (int, bool) {
	burst := policy.BurstAllowance
	if burst <= 0 {
		return 0, true
	}

	g.mu.Lock()
	lim, ok := g.buckets[identity]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(policy.RequestsPerHour)/hourWindow.Seconds()), burst)
		g.buckets[identity] = lim
	}
	g.mu.Unlock()

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return 0, false
	}
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
		secs := int((delay + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		return secs, false
	}
	return 0, true
}

// forget 丢弃客户端的令牌桶
func (g *burstGuard) forget(identity string) {
	g.mu.Lock()
	delete(g.buckets, identity)
	g.mu.Unlock()
}
