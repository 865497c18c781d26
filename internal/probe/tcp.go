package probe

import (
	"context"
	"net"
	"time"
)

// TCPProber checks that a TCP connection to address can be established.
type TCPProber struct {
	address string
	dialer  net.Dialer
}

func NewTCPProber(address string, timeout time.Duration) *TCPProber {
	return &TCPProber{
		address: address,
		dialer:  net.Dialer{Timeout: timeout},
	}
}

func (p *TCPProber) Target() string {
	return "tcp://" + p.address
}

func (p *TCPProber) Probe(ctx context.Context) Result {
	res := newResult(p.Target())

	start := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	conn.Close()

	res.OK = true
	return res
}
