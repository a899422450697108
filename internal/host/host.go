// Package host coordinates the hosting side: announce on the LAN,
// wait for one joiner, hand the connection to a session.
package host

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LukeWait/rps-lan/internal/discovery"
	"github.com/LukeWait/rps-lan/internal/session"
	"github.com/LukeWait/rps-lan/internal/transport"
)

// Config carries what hosting needs from settings and the profile.
type Config struct {
	Name          string
	Bind          string
	SessionPort   int
	DiscoveryPort int
	Rounds        int
	Transport     transport.Options
	Discovery     discovery.Options
}

// Result is delivered once per StartHosting: either a connected
// session or the reason hosting ended (context.Canceled after a
// StopHosting).
type Result struct {
	Session *session.Session
	Err     error
}

// Coordinator owns the announcer and the TCP listener for at most one
// hosting attempt at a time.
type Coordinator struct {
	log *zap.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewCoordinator(log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{log: log}
}

// StartHosting binds the session port, starts broadcasting and waits
// for a joiner in the background. Exactly one Result is delivered.
func (c *Coordinator) StartHosting(ctx context.Context, cfg Config) (<-chan Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		select {
		case <-c.done:
			// Previous attempt already finished (joiner connected or
			// accept failed); hosting again is fine.
			c.active = false
		default:
			return nil, discovery.ErrAlreadyHosting
		}
	}

	ln, err := transport.Listen(net.JoinHostPort(cfg.Bind, fmt.Sprintf("%d", cfg.SessionPort)))
	if err != nil {
		return nil, fmt.Errorf("bind session port: %w", err)
	}

	ad := discovery.Advertisement{
		HostID: uuid.NewString(),
		Name:   cfg.Name,
		Port:   ln.Addr().(*net.TCPAddr).Port,
		Rounds: cfg.Rounds,
		Status: discovery.StatusOpen,
	}
	dopts := cfg.Discovery
	dopts.Port = cfg.DiscoveryPort

	announcer := discovery.NewAnnouncer(c.log)
	cctx, cancel := context.WithCancel(ctx)
	if err := announcer.Start(cctx, ad, dopts); err != nil {
		cancel()
		_ = ln.Close()
		return nil, err
	}

	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.active = true

	result := make(chan Result, 1)
	go func() {
		defer close(done)
		defer cancel()
		defer func() { _ = ln.Close() }()

		peer, err := ln.Accept(cctx, c.log, cfg.Transport)
		// Whoever connects, the advertisement comes down first so no
		// second joiner shows up in peers' lists.
		announcer.Stop()
		if err != nil {
			result <- Result{Err: err}
			return
		}
		c.log.Info("joiner connected", zap.String("peer", peer.RemoteAddr()))
		s := session.New(ctx, peer, session.RoleHost, cfg.Name, cfg.Rounds, c.log)
		result <- Result{Session: s}
	}()
	return result, nil
}

// StopHosting cancels a pending accept and releases the sockets.
// Idempotent; safe to call when not hosting.
func (c *Coordinator) StopHosting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.cancel()
	<-c.done
	c.active = false
}

// Hosting reports whether an accept is still pending.
func (c *Coordinator) Hosting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		select {
		case <-c.done:
			c.active = false
		default:
		}
	}
	return c.active
}
