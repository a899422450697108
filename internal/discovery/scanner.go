package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Host is one currently-visible advertisement together with the
// address a joiner should dial.
type Host struct {
	Advertisement
	Addr     string
	LastSeen time.Time
}

// Scanner listens for host announcements and keeps a table of the
// hosts seen recently. Entries expire after Options.Expiry without a
// broadcast, modelling peers that left without notice.
type Scanner struct {
	log *zap.Logger

	mu     sync.Mutex
	active bool
	hosts  map[string]Host
	pc     net.PacketConn
	cancel context.CancelFunc
	done   chan struct{}

	updates chan []Host
}

func NewScanner(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{
		log:     log,
		hosts:   map[string]Host{},
		updates: make(chan []Host, 1),
	}
}

// Start binds the discovery socket and begins probing and listening.
func (s *Scanner) Start(ctx context.Context, opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return fmt.Errorf("scanner already running")
	}
	opts = opts.withDefaults()

	bind := fmt.Sprintf(":%d", opts.Port)
	if opts.Port == 0 {
		// Ephemeral binds stay on loopback.
		bind = "127.0.0.1:0"
	}
	pc, err := net.ListenPacket("udp4", bind)
	if err != nil {
		// Hosting on this machine holds the discovery port; scanning
		// then falls back to an ephemeral port and relies on probes.
		pc, err = net.ListenPacket("udp4", ":0")
		if err != nil {
			return fmt.Errorf("bind discovery socket: %w", err)
		}
	}

	target := opts.Target
	if target == "" {
		target = broadcastTarget(opts.Port)
	}
	raddr, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		_ = pc.Close()
		return err
	}

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.pc = pc
	s.active = true

	stop := context.AfterFunc(cctx, func() { _ = pc.Close() })

	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error { return s.probeLoop(gctx, pc, raddr, opts.ProbeEvery) })
	g.Go(func() error { return s.readLoop(gctx, pc) })
	g.Go(func() error { return s.pruneLoop(gctx, opts.Expiry) })
	go func() {
		defer close(done)
		defer stop()
		if err := g.Wait(); err != nil && cctx.Err() == nil {
			s.log.Warn("scanner stopped", zap.Error(err))
		}
		cancel()
	}()
	return nil
}

// Stop releases the socket and any pending waiters. Idempotent.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.cancel()
	<-s.done
	s.active = false
}

// LocalAddr reports the bound UDP address, mainly for tests.
func (s *Scanner) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pc == nil {
		return nil
	}
	return s.pc.LocalAddr()
}

// Hosts returns a snapshot of the currently-visible hosts.
func (s *Scanner) Hosts() []Host {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Host, 0, len(s.hosts))
	for _, h := range s.hosts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Updates delivers the latest host list after each change, coalescing
// bursts; only the newest snapshot is retained.
func (s *Scanner) Updates() <-chan []Host {
	return s.updates
}

func (s *Scanner) probeLoop(ctx context.Context, pc net.PacketConn, raddr net.Addr, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()

	if _, err := pc.WriteTo(probePacket, raddr); err != nil {
		s.log.Debug("probe failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, err := pc.WriteTo(probePacket, raddr); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Debug("probe failed", zap.Error(err))
			}
		}
	}
}

func (s *Scanner) readLoop(ctx context.Context, pc net.PacketConn) error {
	buf := make([]byte, 2048)
	for {
		n, src, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		ad, ok := decodeAnnounce(buf[:n])
		if !ok {
			continue
		}
		ip := src.(*net.UDPAddr).IP
		s.observe(ad, ip, time.Now())
	}
}

func (s *Scanner) observe(ad Advertisement, ip net.IP, now time.Time) {
	s.mu.Lock()
	prev, known := s.hosts[ad.HostID]
	host := Host{
		Advertisement: ad,
		Addr:          net.JoinHostPort(ip.String(), fmt.Sprintf("%d", ad.Port)),
		LastSeen:      now,
	}
	s.hosts[ad.HostID] = host
	changed := !known || prev.Status != ad.Status || prev.Addr != host.Addr
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Scanner) pruneLoop(ctx context.Context, expiry time.Duration) error {
	every := expiry / 5
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			if s.prune(now, expiry) {
				s.notify()
			}
		}
	}
}

func (s *Scanner) prune(now time.Time, expiry time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for id, h := range s.hosts {
		if now.Sub(h.LastSeen) > expiry {
			delete(s.hosts, id)
			changed = true
		}
	}
	return changed
}

func (s *Scanner) notify() {
	snap := s.Hosts()
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}
