package probe

import (
	"context"
	"fmt"
	"net"
	"time"
)

// TCPProbe checks bare reachability of a host:port. It is the weakest check
// and only used where no richer protocol is available.
type TCPProbe struct {
	service string
	addr    string
	timeout time.Duration
}

// NewTCPProbe builds a probe for the given service name and host:port.
func NewTCPProbe(service, addr string) *TCPProbe {
	return &TCPProbe{service: service, addr: addr, timeout: DefaultTimeout}
}

// Service implements Prober.
func (p *TCPProbe) Service() string { return p.service }

// Probe implements Prober.
func (p *TCPProbe) Probe(ctx context.Context) Result {
	start := time.Now()

	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return newResult(p.service, start, false, fmt.Sprintf("dial %s: %v", p.addr, err))
	}
	_ = conn.Close()
	return newResult(p.service, start, true, fmt.Sprintf("%s reachable", p.addr))
}
