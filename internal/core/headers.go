package core

import (
	"strconv"

	"github.com/jurisrank/jurisapi/internal/model"
)

// 标准配额响应头
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderWindow     = "X-RateLimit-Window"
	HeaderPolicy     = "X-RateLimit-Policy"
	HeaderRetryAfter = "Retry-After"
)

// BuildHeaders 将决策渲染为标准配额响应头
//
// Retry-After is only emitted on rejection; everything else is emitted on
// every decision.
func BuildHeaders(d model.Decision) map[string]string {
	h := map[string]string{
		HeaderLimit:     strconv.Itoa(d.Limit),
		HeaderRemaining: strconv.Itoa(d.Remaining),
		HeaderReset:     strconv.FormatInt(d.ResetEpoch, 10),
		HeaderWindow:    strconv.Itoa(d.WindowSeconds),
		HeaderPolicy:    d.Policy,
	}
	if !d.Allowed {
		h[HeaderRetryAfter] = strconv.Itoa(d.RetryAfter)
	}
	return h
}
