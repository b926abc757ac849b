// Package stats 决策事件统计汇聚
//
// Sinks are best-effort: a failed Record must never fail or delay the
// admission path, callers log and move on.
package stats

import (
	"context"
	"time"

	"github.com/jurisrank/jurisapi/internal/model"
)

// Event 一次准入决策事件
type Event struct {
	Identity string
	Tier     model.Tier
	Route    string
	Method   string
	Allowed  bool
	At       time.Time
}

// Sink 决策事件接收器
type Sink interface {
	Record(ctx context.Context, ev Event) error
}
