// Package token 生成分享链接使用的不可猜测令牌。
package token

import (
	"crypto/rand"
	"fmt"
)

// 令牌字母表：大小写字母加数字，共62个符号。
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ShareTokenLength 分享令牌长度。62^16 约 4.7e28 种组合，足以抵御枚举。
const ShareTokenLength = 16

// NewShareToken 用密码学随机源生成一个分享令牌。
func NewShareToken() (string, error) {
	return Generate(ShareTokenLength)
}

// Generate 生成指定长度的随机令牌。
// 用拒绝采样消除 256 % 62 的取模偏差，保证每个符号等概率。
func Generate(length int) (string, error) {
	b := make([]byte, length)
	buf := make([]byte, 1)
	// 248 = 62 * 4，是不超过 256 的最大 62 倍数
	const limit = 248

	for i := 0; i < length; {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		if buf[0] >= limit {
			continue
		}
		b[i] = alphabet[int(buf[0])%len(alphabet)]
		i++
	}
	return string(b), nil
}
