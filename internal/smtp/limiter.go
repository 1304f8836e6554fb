package smtp

import (
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ConnectionLimiter SMTP 连接限流器。
// 并发连接数用计数器约束，新建连接速率用令牌桶约束。
type ConnectionLimiter struct {
	maxConns int
	limiter  *rate.Limiter

	mu      sync.Mutex
	current int
}

// NewConnectionLimiter 创建连接限流器。
// connPerSecond <= 0 时不做速率限制。
func NewConnectionLimiter(maxConns int, connPerSecond float64) *ConnectionLimiter {
	limit := rate.Inf
	burst := maxConns
	if connPerSecond > 0 {
		limit = rate.Limit(connPerSecond)
		burst = int(connPerSecond) + 1
	}
	return &ConnectionLimiter{
		maxConns: maxConns,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Acquire 获取连接许可。
func (l *ConnectionLimiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current >= l.maxConns {
		return false
	}
	if !l.limiter.Allow() {
		return false
	}

	l.current++
	return true
}

// Release 释放连接。
func (l *ConnectionLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current > 0 {
		l.current--
	}
}

// Current 当前连接数。
func (l *ConnectionLimiter) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// LimitListener 包装 net.Listener，超过限额的连接直接关闭。
type LimitListener struct {
	net.Listener
	limiter *ConnectionLimiter
	log     *zap.Logger
}

// NewLimitListener 创建受限监听器。
func NewLimitListener(inner net.Listener, limiter *ConnectionLimiter, log *zap.Logger) *LimitListener {
	if log == nil {
		log = zap.NewNop()
	}
	return &LimitListener{Listener: inner, limiter: limiter, log: log}
}

// Accept 接受连接并套用限流。被拒的连接立即关闭，继续等待下一个。
func (l *LimitListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		if !l.limiter.Acquire() {
			l.log.Warn("smtp connection rejected by limiter",
				zap.String("remote_addr", conn.RemoteAddr().String()),
			)
			conn.Close()
			continue
		}
		return &limitedConn{Conn: conn, limiter: l.limiter}, nil
	}
}

type limitedConn struct {
	net.Conn
	limiter *ConnectionLimiter

	closeOnce sync.Once
}

func (c *limitedConn) Close() error {
	c.closeOnce.Do(c.limiter.Release)
	return c.Conn.Close()
}
