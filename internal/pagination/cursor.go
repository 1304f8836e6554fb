// Package pagination 实现基于键集（keyset）的游标分页编解码。
// 游标编码邮件列表中最后一行的 (receivedAt, id) 键，
// 下一页从严格小于该键的位置继续，排序稳定不受新邮件插入影响。
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCursor 游标格式非法（不是合法的 base64url 或载荷格式错误）。
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Cursor 键集分页游标，指向排序键 (ReceivedAt DESC, ID DESC) 中的一行。
type Cursor struct {
	ReceivedAt int64  // 毫秒级 Unix 时间戳
	ID         string // 该行的主键，用于同一时间戳内的决胜
}

// Encode 将游标编码为不含填充的 base64url 字符串。
// 载荷为 "receivedAt:id" 明文，游标不承载任何敏感信息。
func (c Cursor) Encode() string {
	payload := strconv.FormatInt(c.ReceivedAt, 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Decode 解析客户端回传的游标字符串。
// 任何畸形输入（非法 base64、缺少分隔符、时间戳非数字）都返回 ErrInvalidCursor。
func Decode(raw string) (Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %s", ErrInvalidCursor, raw)
	}

	payload := string(data)
	sep := strings.IndexByte(payload, ':')
	if sep <= 0 || sep == len(payload)-1 {
		return Cursor{}, fmt.Errorf("%w: %s", ErrInvalidCursor, raw)
	}

	ts, err := strconv.ParseInt(payload[:sep], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %s", ErrInvalidCursor, raw)
	}

	return Cursor{ReceivedAt: ts, ID: payload[sep+1:]}, nil
}

// After 判断一行 (receivedAt, id) 是否排在游标之后（即属于下一页）。
// 排序为 receivedAt 降序、id 降序，因此"之后"意味着键严格更小。
func (c Cursor) After(receivedAt int64, id string) bool {
	if receivedAt != c.ReceivedAt {
		return receivedAt < c.ReceivedAt
	}
	return id < c.ID
}
