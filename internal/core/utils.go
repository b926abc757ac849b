package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateLogID 生成决策日志 ID
func GenerateLogID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("dec_%d_%s", time.Now().UnixNano(), hex.EncodeToString(b))
}
