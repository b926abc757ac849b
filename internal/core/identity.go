package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/jurisrank/jurisapi/internal/model"
)

const (
	identityPrefixAPI  = "api:"
	identityPrefixAnon = "anon:"
)

// hashKey 计算凭证的短哈希（SHA-256 前 16 个十六进制字符）
func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// Identify 从请求元数据派生客户端标识
//
// Priority: Bearer token > X-API-Key > IP + User-Agent composite.
// Deterministic and side-effect free; the anonymous fallback may collide
// across NATed clients, which is accepted.
func Identify(authorization, apiKey, remoteIP, userAgent string) string {
	auth := strings.TrimSpace(authorization)
	if strings.HasPrefix(auth, "Bearer ") {
		if token := strings.TrimSpace(auth[len("Bearer "):]); token != "" {
			return identityPrefixAPI + hashKey(token)
		}
	}
	if k := strings.TrimSpace(apiKey); k != "" {
		return identityPrefixAPI + hashKey(k)
	}

	if remoteIP == "" {
		remoteIP = "unknown"
	}
	if userAgent == "" {
		userAgent = "unknown"
	}
	return identityPrefixAnon + hashKey(remoteIP+"|"+userAgent)
}

// IdentityForKey 计算某个 API Key 对应的客户端标识
//
// Used to turn configured admin/premium keys into the same identity form
// Identify produces for the matching Bearer token.
func IdentityForKey(key string) string {
	return identityPrefixAPI + hashKey(strings.TrimSpace(key))
}

// IsAnonymous 判断标识是否为匿名回退标识
func IsAnonymous(identity string) bool {
	return strings.HasPrefix(identity, identityPrefixAnon)
}

// TierClassifier 层级识别器
//
// The lookup sets are process-wide read-mostly configuration: built once at
// startup, safe for concurrent reads, never mutated afterwards.
type TierClassifier struct {
	admin   map[string]struct{}
	premium map[string]struct{}
}

// NewTierClassifier 创建层级识别器
//
// adminKeys/premiumKeys are raw API keys from config; they are hashed into
// identity form here so the plaintext never leaves startup.
func NewTierClassifier(adminKeys, premiumKeys []string) *TierClassifier {
	tc := &TierClassifier{
		admin:   make(map[string]struct{}, len(adminKeys)),
		premium: make(map[string]struct{}, len(premiumKeys)),
	}
	for _, k := range adminKeys {
		if strings.TrimSpace(k) != "" {
			tc.admin[IdentityForKey(k)] = struct{}{}
		}
	}
	for _, k := range premiumKeys {
		if strings.TrimSpace(k) != "" {
			tc.premium[IdentityForKey(k)] = struct{}{}
		}
	}
	return tc
}

// Classify 根据标识判定层级
func (tc *TierClassifier) Classify(identity string) model.Tier {
	if !strings.HasPrefix(identity, identityPrefixAPI) {
		return model.TierDefault
	}
	if _, ok := tc.admin[identity]; ok {
		return model.TierAdmin
	}
	if _, ok := tc.premium[identity]; ok {
		return model.TierPremium
	}
	return model.TierAuthenticated
}
