package netsweep

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Prober is the pluggable reachability capability. Probe sends a single
// probe to address and reports the round-trip time on success. Any error
// counts as a lost probe; the engine never propagates it further.
type Prober interface {
	Probe(ctx context.Context, address string, seq int) (time.Duration, error)
}

// ICMPProber probes hosts with ICMP echo requests. It needs a raw ICMP
// socket, which on most systems means elevated privileges or the
// net.ipv4.ping_group_range sysctl.
type ICMPProber struct {
	packetSize int
	ttl        int
	timeout    time.Duration
	id         int
}

// NewICMPProber creates an ICMP echo prober with the given payload size,
// time to live, and per-probe timeout.
func NewICMPProber(packetSizeBytes, timeToLive int, perPingTimeout time.Duration) *ICMPProber {
	return &ICMPProber{
		packetSize: packetSizeBytes,
		ttl:        timeToLive,
		timeout:    perPingTimeout,
		id:         os.Getpid() & 0xffff,
	}
}

// Probe sends one echo request and waits for the matching reply
func (p *ICMPProber) Probe(ctx context.Context, address string, seq int) (time.Duration, error) {
	ip := net.ParseIP(address)
	if ip == nil || ip.To4() == nil {
		return 0, &InvalidAddressError{Address: address}
	}
	dst := &net.IPAddr{IP: ip.To4()}

	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return 0, fmt.Errorf("failed to open ICMP socket: %w", err)
	}
	defer conn.Close()

	if pc := conn.IPv4PacketConn(); pc != nil {
		if err := pc.SetTTL(p.ttl); err != nil {
			return 0, fmt.Errorf("failed to set TTL: %w", err)
		}
	}

	seq &= 0xffff
	msg := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: make([]byte, p.packetSize),
		},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ICMP message: %w", err)
	}

	start := time.Now()
	if _, err := conn.WriteTo(wire, dst); err != nil {
		return 0, err
	}

	deadline := start.Add(p.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}

	// The socket sees every ICMP packet addressed to this process, so keep
	// reading until the reply matching our ID, sequence, and peer shows up
	// or the deadline passes.
	buf := make([]byte, 1500+p.packetSize)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return 0, err
		}

		rm, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), buf[:n])
		if err != nil {
			continue
		}
		if rm.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := rm.Body.(*icmp.Echo)
		if !ok || echo.ID != p.id || echo.Seq != seq {
			continue
		}
		if peerAddr, ok := peer.(*net.IPAddr); !ok || !peerAddr.IP.Equal(dst.IP) {
			continue
		}

		return time.Since(start), nil
	}
}
