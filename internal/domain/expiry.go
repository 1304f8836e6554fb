package domain

import "time"

// NowMillis 返回当前的毫秒级 Unix 时间戳。
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// IsLive 统一的过期判定：expiresAt 为 nil 表示永不过期；
// 否则恰好等于 now 时仍然存活，严格小于 now 才算过期。
func IsLive(expiresAt *int64, now int64) bool {
	if expiresAt == nil {
		return true
	}
	return *expiresAt >= now
}
