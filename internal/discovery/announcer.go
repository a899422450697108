package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Announcer broadcasts a host advertisement and answers LOOKUP probes
// while a session is open for joining.
type Announcer struct {
	log *zap.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAnnouncer(log *zap.Logger) *Announcer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Announcer{log: log}
}

// Start begins the periodic broadcast. It fails with ErrAlreadyHosting
// while a previous Start is still active.
func (a *Announcer) Start(ctx context.Context, ad Advertisement, opts Options) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active {
		return ErrAlreadyHosting
	}
	opts = opts.withDefaults()

	payload, err := encodeAnnounce(ad)
	if err != nil {
		return err
	}
	bind := fmt.Sprintf(":%d", opts.Port)
	if opts.Port == 0 {
		// Ephemeral binds stay on loopback.
		bind = "127.0.0.1:0"
	}
	pc, err := net.ListenPacket("udp4", bind)
	if err != nil {
		return fmt.Errorf("bind discovery port: %w", err)
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
	a.cancel = cancel
	a.done = done
	a.active = true

	// Closing the socket is what actually unblocks the reply loop.
	stop := context.AfterFunc(cctx, func() { _ = pc.Close() })

	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error { return a.announceLoop(gctx, pc, raddr, payload, opts.AnnounceEvery) })
	g.Go(func() error { return a.replyLoop(gctx, pc, payload) })
	go func() {
		defer close(done)
		defer stop()
		if err := g.Wait(); err != nil && cctx.Err() == nil {
			a.log.Warn("announcer stopped", zap.Error(err))
		}
		cancel()
	}()

	a.log.Info("hosting announced",
		zap.String("host_id", ad.HostID),
		zap.Int("session_port", ad.Port),
		zap.Int("discovery_port", opts.Port))
	return nil
}

// Stop halts broadcasting. Idempotent; safe when not hosting.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return
	}
	a.cancel()
	<-a.done
	a.active = false
}

func (a *Announcer) announceLoop(ctx context.Context, pc net.PacketConn, raddr net.Addr, payload []byte, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()

	// First announcement goes out immediately so joiners don't wait a
	// full interval.
	if _, err := pc.WriteTo(payload, raddr); err != nil {
		a.log.Debug("broadcast failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, err := pc.WriteTo(payload, raddr); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.log.Debug("broadcast failed", zap.Error(err))
			}
		}
	}
}

func (a *Announcer) replyLoop(ctx context.Context, pc net.PacketConn, payload []byte) error {
	buf := make([]byte, 1024)
	for {
		n, src, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if string(buf[:n]) != string(probePacket) {
			continue
		}
		if _, err := pc.WriteTo(payload, src); err != nil {
			a.log.Debug("probe reply failed", zap.Error(err))
		}
	}
}
