// Package transport maintains one reliable, ordered byte stream per
// session and frames game, chat and control messages over it.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/LukeWait/rps-lan/internal/wire"
)

var ErrConnectionRefused = errors.New("connection refused")
var ErrTimeout = errors.New("connection timed out")
var ErrConnectionLost = errors.New("connection lost")

const (
	DefaultHeartbeatInterval = 2 * time.Second
	// Three missed heartbeats and the peer is declared lost.
	DefaultIdleTimeout = 6 * time.Second

	dialTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// Options tune the keep-alive behaviour; zero values pick defaults.
type Options struct {
	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	return o
}

// Dial connects to a host at addr.
func Dial(ctx context.Context, addr string, log *zap.Logger, opts Options) (*Peer, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyDialErr(err)
	}
	return NewPeer(conn, log, opts), nil
}

func classifyDialErr(err error) error {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	case errors.Is(err, context.Canceled):
		return context.Canceled
	default:
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return err
	}
}

// Listener accepts the single joiner connection on the host side.
type Listener struct {
	ln net.Listener
}

func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }

// Accept blocks until a joiner connects or ctx is cancelled. A cancel
// closes the socket so the wait is released immediately.
func (l *Listener) Accept(ctx context.Context, log *zap.Logger, opts Options) (*Peer, error) {
	stop := context.AfterFunc(ctx, func() { _ = l.ln.Close() })
	defer stop()

	conn, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return NewPeer(conn, log, opts), nil
}

// Peer owns one established connection: a single locked writer, a read
// loop feeding Frames, and a heartbeat writer. Once Frames closes,
// Err reports why.
type Peer struct {
	conn net.Conn
	br   *bufio.Reader
	opts Options
	log  *zap.Logger

	wmu sync.Mutex

	frames chan Frame
	done   chan struct{}

	failOnce sync.Once
	errMu    sync.Mutex
	err      error
}

func NewPeer(conn net.Conn, log *zap.Logger, opts Options) *Peer {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Peer{
		conn:   conn,
		br:     bufio.NewReader(conn),
		opts:   opts.withDefaults(),
		log:    log,
		frames: make(chan Frame, 16),
		done:   make(chan struct{}),
	}
	go p.readLoop()
	go p.heartbeatLoop()
	return p
}

func (p *Peer) RemoteAddr() string { return p.conn.RemoteAddr().String() }

// Frames delivers inbound game/chat/control frames in receive order.
// The channel closes when the connection is gone.
func (p *Peer) Frames() <-chan Frame { return p.frames }

// Err reports why Frames closed. Nil means a local Close.
func (p *Peer) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

// Send writes one frame. Safe for concurrent use.
func (p *Peer) Send(ch wire.Channel, payload []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	select {
	case <-p.done:
		return p.sendErr()
	default:
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writeFrame(p.conn, ch, payload); err != nil {
		err = fmt.Errorf("%w: %v", ErrConnectionLost, err)
		p.fail(err)
		return err
	}
	return nil
}

func (p *Peer) sendErr() error {
	if err := p.Err(); err != nil {
		return err
	}
	return ErrConnectionLost
}

// SendMessage encodes a wire message and sends it on the channel.
func (p *Peer) SendMessage(ch wire.Channel, msgType string, payload any) error {
	data, err := wire.Encode(msgType, payload)
	if err != nil {
		return err
	}
	return p.Send(ch, data)
}

// Close tears the connection down and releases any pending read.
func (p *Peer) Close() {
	p.fail(nil)
}

func (p *Peer) fail(err error) {
	p.failOnce.Do(func() {
		p.errMu.Lock()
		p.err = err
		p.errMu.Unlock()
		close(p.done)
		_ = p.conn.Close()
	})
}

func (p *Peer) readLoop() {
	defer close(p.frames)
	for {
		_ = p.conn.SetReadDeadline(time.Now().Add(p.opts.IdleTimeout))
		f, err := readFrame(p.br)
		if err != nil {
			p.fail(p.classifyReadErr(err))
			return
		}
		// Empty control frames are heartbeats; they only refresh the
		// read deadline.
		if f.Channel == wire.ChannelControl && len(f.Payload) == 0 {
			continue
		}
		select {
		case p.frames <- f:
		case <-p.done:
			return
		}
	}
}

func (p *Peer) classifyReadErr(err error) error {
	select {
	case <-p.done:
		// Locally closed; not a loss.
		return p.Err()
	default:
	}
	var nerr net.Error
	switch {
	case errors.As(err, &nerr) && nerr.Timeout():
		return fmt.Errorf("%w: no heartbeat within %s", ErrConnectionLost, p.opts.IdleTimeout)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: peer closed the connection", ErrConnectionLost)
	default:
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
}

func (p *Peer) heartbeatLoop() {
	t := time.NewTicker(p.opts.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-t.C:
			if err := p.Send(wire.ChannelControl, nil); err != nil {
				p.log.Debug("heartbeat write failed", zap.Error(err))
				return
			}
		}
	}
}
