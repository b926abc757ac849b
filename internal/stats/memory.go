package stats

import (
	"context"
	"sync"
)

// Counters 允许/拒绝计数对
type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// MemorySink 进程内统计接收器
type MemorySink struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byTier  map[string]Counters
}

// NewMemorySink 创建内存统计接收器
func NewMemorySink() *MemorySink {
	return &MemorySink{
		byRoute: make(map[string]Counters),
		byTier:  make(map[string]Counters),
	}
}

// Record 记录一次决策事件
func (s *MemorySink) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bump := func(c *Counters) {
		if ev.Allowed {
			c.Allowed++
		} else {
			c.Denied++
		}
	}

	bump(&s.total)

	route := ev.Method + " " + ev.Route
	c := s.byRoute[route]
	bump(&c)
	s.byRoute[route] = c

	tc := s.byTier[string(ev.Tier)]
	bump(&tc)
	s.byTier[string(ev.Tier)] = tc

	return nil
}

// Total 全局计数
func (s *MemorySink) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByRoute 按路由计数快照
func (s *MemorySink) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}

// ByTier 按层级计数快照
func (s *MemorySink) ByTier() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byTier))
	for k, v := range s.byTier {
		out[k] = v
	}
	return out
}
