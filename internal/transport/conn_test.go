package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LukeWait/rps-lan/internal/wire"
)

func pipePeers(t *testing.T, opts Options) (*Peer, *Peer) {
	t.Helper()
	a, b := net.Pipe()
	pa := NewPeer(a, nil, opts)
	pb := NewPeer(b, nil, opts)
	t.Cleanup(func() {
		pa.Close()
		pb.Close()
	})
	return pa, pb
}

func recvFrame(t *testing.T, p *Peer, within time.Duration) Frame {
	t.Helper()
	select {
	case f, ok := <-p.Frames():
		if !ok {
			t.Fatalf("frames closed unexpectedly: %v", p.Err())
		}
		return f
	case <-time.After(within):
		t.Fatalf("timed out waiting for frame")
		return Frame{}
	}
}

func TestPeer_SendReceive(t *testing.T) {
	a, b := pipePeers(t, Options{})

	require.NoError(t, a.Send(wire.ChannelGame, []byte("rock")))
	f := recvFrame(t, b, time.Second)
	assert.Equal(t, wire.ChannelGame, f.Channel)
	assert.Equal(t, []byte("rock"), f.Payload)

	require.NoError(t, b.Send(wire.ChannelChat, []byte("gl hf")))
	f = recvFrame(t, a, time.Second)
	assert.Equal(t, wire.ChannelChat, f.Channel)
	assert.Equal(t, []byte("gl hf"), f.Payload)
}

func TestPeer_PerChannelOrderPreserved(t *testing.T) {
	a, b := pipePeers(t, Options{})

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, a.Send(wire.ChannelChat, []byte(text)))
	}
	for _, want := range []string{"one", "two", "three"} {
		f := recvFrame(t, b, time.Second)
		assert.Equal(t, want, string(f.Payload))
	}
}

func TestPeer_RemoteCloseSurfacesConnectionLost(t *testing.T) {
	a, b := pipePeers(t, Options{})

	a.Close()

	select {
	case _, ok := <-b.Frames():
		require.False(t, ok, "expected closed frame channel")
	case <-time.After(time.Second):
		t.Fatal("remote close not observed")
	}
	require.ErrorIs(t, b.Err(), ErrConnectionLost)

	require.Error(t, b.Send(wire.ChannelGame, []byte("rock")))
}

func TestPeer_LocalCloseReleasesPendingReceive(t *testing.T) {
	a, _ := pipePeers(t, Options{})

	done := make(chan struct{})
	go func() {
		for range a.Frames() {
		}
		close(done)
	}()

	a.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pending receive not released by Close")
	}
	// A deliberate local close is not a loss.
	assert.NoError(t, a.Err())
}

func TestPeer_HeartbeatsKeepIdleConnectionAlive(t *testing.T) {
	opts := Options{HeartbeatInterval: 20 * time.Millisecond, IdleTimeout: 100 * time.Millisecond}
	a, b := pipePeers(t, opts)

	// Several idle windows pass with only heartbeats flowing.
	time.Sleep(5 * opts.IdleTimeout)

	require.NoError(t, a.Send(wire.ChannelGame, []byte("paper")))
	f := recvFrame(t, b, time.Second)
	assert.Equal(t, []byte("paper"), f.Payload)
}

func TestPeer_MissedHeartbeatsTriggerConnectionLost(t *testing.T) {
	// Only one side runs a Peer; the raw end never sends anything, so
	// the idle deadline has to fire.
	rawEnd, peerEnd := net.Pipe()
	defer rawEnd.Close()
	p := NewPeer(peerEnd, nil, Options{HeartbeatInterval: time.Hour, IdleTimeout: 50 * time.Millisecond})
	defer p.Close()

	select {
	case _, ok := <-p.Frames():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("idle timeout never fired")
	}
	require.ErrorIs(t, p.Err(), ErrConnectionLost)
}

func TestDialRefusedAndListenerCancel(t *testing.T) {
	// Grab a port and close it so the dial is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(t.Context(), addr, nil, Options{})
	require.ErrorIs(t, err, ErrConnectionRefused)
}
