package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProbe verifies the cache with a protocol-level PING.
type RedisProbe struct {
	service string
	addr    string
	timeout time.Duration
}

// NewRedisProbe builds a probe for the given service name and host:port.
func NewRedisProbe(service, addr string) *RedisProbe {
	return &RedisProbe{service: service, addr: addr, timeout: DefaultTimeout}
}

// Service implements Prober.
func (p *RedisProbe) Service() string { return p.service }

// Probe implements Prober.
func (p *RedisProbe) Probe(ctx context.Context) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{
		Addr:         p.addr,
		DialTimeout:  p.timeout,
		ReadTimeout:  p.timeout,
		WriteTimeout: p.timeout,
	})
	defer client.Close()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return newResult(p.service, start, false, fmt.Sprintf("ping: %v", err))
	}

	detail := fmt.Sprintf("ping %s", pong)
	if clients, err := client.ClientList(ctx).Result(); err == nil {
		detail = fmt.Sprintf("ping %s, %d clients", pong, countLines(clients))
	}
	return newResult(p.service, start, true, detail)
}

func countLines(s string) int {
	count := 0
	for _, r := range s {
		if r == '\n' {
			count++
		}
	}
	return count
}
