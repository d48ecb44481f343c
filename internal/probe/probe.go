// Package probe tests whether a network address answers an ICMP echo.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Probe defaults: one echo, one second to resolve and one second to wait
// for the reply.
const (
	DefaultResolveTimeout = time.Second
	DefaultReplyTimeout   = time.Second
)

// protocolICMP is the IANA protocol number for ICMP over IPv4.
const protocolICMP = 1

// ErrNoAddress is returned when a name resolves to no IPv4 address.
var ErrNoAddress = errors.New("no ipv4 address")

// ICMP sends a single echo request and waits for the matching reply.
type ICMP struct {
	// Privileged selects raw ICMP sockets ("ip4:icmp", needs CAP_NET_RAW)
	// instead of unprivileged datagram sockets ("udp4", needs
	// net.ipv4.ping_group_range to include the daemon's group).
	Privileged bool

	ResolveTimeout time.Duration
	ReplyTimeout   time.Duration

	Resolver *net.Resolver

	seq atomic.Uint32
}

// NewICMP creates a prober with default timeouts.
func NewICMP(privileged bool) *ICMP {
	return &ICMP{
		Privileged:     privileged,
		ResolveTimeout: DefaultResolveTimeout,
		ReplyTimeout:   DefaultReplyTimeout,
	}
}

// Check resolves address and reports whether it answered an echo request.
// Any failure (resolution, socket, timeout) is reported as unreachable.
func (p *ICMP) Check(ctx context.Context, address string) bool {
	if err := p.Ping(ctx, address); err != nil {
		log.Printf("probe: %s unreachable: %v", address, err)
		return false
	}
	return true
}

// Ping is Check with the failure reason.
func (p *ICMP) Ping(ctx context.Context, address string) error {
	ip, err := p.resolve(ctx, address)
	if err != nil {
		return err
	}

	network, listen := "udp4", "0.0.0.0"
	if p.Privileged {
		network = "ip4:icmp"
	}
	conn, err := icmp.ListenPacket(network, listen)
	if err != nil {
		return fmt.Errorf("open icmp socket: %w", err)
	}
	defer conn.Close()

	id := os.Getpid() & 0xffff
	seq := int(p.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: []byte("net-watchdog")},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("marshal echo: %w", err)
	}

	var dst net.Addr = &net.UDPAddr{IP: ip}
	if p.Privileged {
		dst = &net.IPAddr{IP: ip}
	}

	deadline := time.Now().Add(p.replyTimeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	if _, err := conn.WriteTo(wb, dst); err != nil {
		return fmt.Errorf("send echo: %w", err)
	}

	rb := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			return fmt.Errorf("wait for reply: %w", err)
		}
		if !sameIP(peer, ip) {
			continue
		}
		rm, err := icmp.ParseMessage(protocolICMP, rb[:n])
		if err != nil {
			continue
		}
		if rm.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := rm.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq {
			continue
		}
		// Unprivileged sockets get their ID rewritten by the kernel.
		if p.Privileged && echo.ID != id {
			continue
		}
		return nil
	}
}

func (p *ICMP) resolve(ctx context.Context, address string) (net.IP, error) {
	if address == "" {
		return nil, errors.New("empty address")
	}
	if ip := net.ParseIP(address); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("%s: %w", address, ErrNoAddress)
	}

	timeout := p.ResolveTimeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	ips, err := resolver.LookupIP(ctx, "ip4", address)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", address, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil && !v4.IsUnspecified() {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("resolve %s: %w", address, ErrNoAddress)
}

func (p *ICMP) replyTimeout() time.Duration {
	if p.ReplyTimeout <= 0 {
		return DefaultReplyTimeout
	}
	return p.ReplyTimeout
}

func sameIP(addr net.Addr, ip net.IP) bool {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.Equal(ip)
	case *net.IPAddr:
		return a.IP.Equal(ip)
	}
	return false
}
