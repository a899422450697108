// Package session owns one connected game: a single loop serializes
// every touch of the state machine, bridging the transport peer on one
// side and the UI adapter's notification channel on the other.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LukeWait/rps-lan/internal/game"
	"github.com/LukeWait/rps-lan/internal/transport"
	"github.com/LukeWait/rps-lan/internal/wire"
)

type Role string

const (
	RoleHost   Role = "host"
	RoleJoiner Role = "joiner"
)

type Msg interface{ isSessionMsg() }

// SubmitMove locks in the local player's move for the current round.
type SubmitMove struct{ Move game.Move }

func (SubmitMove) isSessionMsg() {}

// SendChat sends a chat line to the peer.
type SendChat struct{ Text string }

func (SendChat) isSessionMsg() {}

// AdvanceRound confirms a resolved round and opens the next one.
type AdvanceRound struct{}

func (AdvanceRound) isSessionMsg() {}

// Disconnect ends the session from the local side.
type Disconnect struct{}

func (Disconnect) isSessionMsg() {}

// GetView reflects internal state without data races; test hook.
type GetView struct {
	Reply chan View
}

func (GetView) isSessionMsg() {}

type fromPeer struct{ frame transport.Frame }

func (fromPeer) isSessionMsg() {}

type peerLost struct{ err error }

func (peerLost) isSessionMsg() {}

type View struct {
	Role     Role
	PeerName string
	State    game.State
}

// Notification is the UI adapter callback surface.
type Notification interface{ isNotification() }

// PeerConnected fires once the peer's hello arrives and round 1 opens.
type PeerConnected struct {
	PeerName string
	Rounds   int
}

func (PeerConnected) isNotification() {}

// RoundStarted fires whenever a new round opens for moves.
type RoundStarted struct{ Round int }

func (RoundStarted) isNotification() {}

// MoveNoted fires when a player's move is registered but the round is
// still waiting on the other player.
type MoveNoted struct {
	Player game.Player
	Round  int
}

func (MoveNoted) isNotification() {}

// RoundResolved carries one finished round and the running score.
type RoundResolved struct {
	Result game.RoundResult
	Score  game.Score
}

func (RoundResolved) isNotification() {}

// SessionComplete fires after the final round resolves.
type SessionComplete struct{ Score game.Score }

func (SessionComplete) isNotification() {}

// Disconnected fires on any path out of a live session. Forfeited is
// set when rounds were still unresolved; the score is frozen at the
// last resolved round either way.
type Disconnected struct {
	Score     game.Score
	Forfeited bool
	Err       error
}

func (Disconnected) isNotification() {}

// ChatReceived carries one chat line, local echo included.
type ChatReceived struct {
	Msg   wire.ChatPayload
	Local bool
}

func (ChatReceived) isNotification() {}

// Rejected reports a refused command, e.g. a duplicate move.
type Rejected struct{ Err error }

func (Rejected) isNotification() {}

type Session struct {
	inbox  chan Msg
	events chan Notification

	role      Role
	localName string
	peerName  string
	state     game.State
	peer      *transport.Peer

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New wires a connected peer into a fresh session and sends our hello.
// rounds comes from the host's settings, or from the advertisement on
// the joiner side; the host's value wins if they ever disagree.
func New(parent context.Context, peer *transport.Peer, role Role, localName string, rounds int, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:     make(chan Msg, 64),
		events:    make(chan Notification, 64),
		role:      role,
		localName: localName,
		state:     game.NewState(rounds),
		peer:      peer,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := peer.SendMessage(wire.ChannelControl, wire.TypeHello, wire.HelloPayload{
		Name:   localName,
		Rounds: rounds,
	}); err != nil {
		log.Warn("hello send failed", zap.Error(err))
	}

	go s.pump()
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Events delivers notifications in order. The channel closes once the
// session reaches a terminal state and has shut down.
func (s *Session) Events() <-chan Notification { return s.events }

// pump moves transport frames into the inbox so the loop stays the
// only goroutine touching state.
func (s *Session) pump() {
	for f := range s.peer.Frames() {
		select {
		case s.inbox <- fromPeer{frame: f}:
		case <-s.ctx.Done():
			return
		}
	}
	select {
	case s.inbox <- peerLost{err: s.peer.Err()}:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	defer close(s.events)
	defer s.cancel()
	defer s.peer.Close()

	for {
		select {
		case <-s.ctx.Done():
			return
		case m := <-s.inbox:
			switch msg := m.(type) {
			case SubmitMove:
				s.handleLocalMove(msg.Move)

			case SendChat:
				s.handleLocalChat(msg.Text)

			case AdvanceRound:
				s.apply(game.Command{Type: game.CmdAdvanceRound})

			case Disconnect:
				s.handleLocalDisconnect()
				return

			case GetView:
				msg.Reply <- View{Role: s.role, PeerName: s.peerName, State: s.state}

			case fromPeer:
				s.handleFrame(msg.frame)

			case peerLost:
				s.handlePeerLost(msg.err)
				return
			}
			if s.terminal() {
				return
			}
		}
	}
}

func (s *Session) terminal() bool {
	return s.state.Phase == game.PhaseComplete || s.state.Phase == game.PhaseDisconnected
}

func (s *Session) handleLocalMove(mv game.Move) {
	round := s.state.Round
	if !s.apply(game.Command{Type: game.CmdSubmitMove, Player: game.PlayerLocal, Move: mv}) {
		return
	}
	err := s.peer.SendMessage(wire.ChannelGame, wire.TypeMove, wire.MovePayload{
		Round: round,
		Move:  string(mv),
	})
	if err != nil {
		s.log.Warn("move send failed", zap.Error(err))
	}
}

func (s *Session) handleLocalChat(text string) {
	payload := wire.ChatPayload{Sender: s.localName, SentAt: time.Now(), Text: text}
	if err := s.peer.SendMessage(wire.ChannelChat, wire.TypeChat, payload); err != nil {
		s.log.Warn("chat send failed", zap.Error(err))
		return
	}
	s.notify(ChatReceived{Msg: payload, Local: true})
}

func (s *Session) handleLocalDisconnect() {
	reason := wire.ByeFinished
	if s.state.Phase == game.PhaseRoundActive || s.state.Phase == game.PhaseRoundResolved {
		reason = wire.ByeMidGame
	}
	_ = s.peer.SendMessage(wire.ChannelControl, wire.TypeBye, wire.ByePayload{Reason: reason})
	if !s.terminal() {
		s.apply(game.Command{Type: game.CmdPeerLost})
	}
}

func (s *Session) handlePeerLost(err error) {
	if s.terminal() {
		return
	}
	s.log.Info("peer lost", zap.Error(err))
	events, newState, aerr := game.Apply(s.state, game.Command{Type: game.CmdPeerLost})
	if aerr != nil {
		return
	}
	s.state = newState
	for _, ev := range events {
		if ev.Type == game.EvtDisconnected {
			s.notify(Disconnected{Score: ev.Score, Forfeited: true, Err: err})
		}
	}
}

func (s *Session) handleFrame(f transport.Frame) {
	msg, err := wire.Decode(f.Payload)
	if err != nil {
		s.log.Warn("undecodable frame", zap.Uint8("channel", uint8(f.Channel)), zap.Error(err))
		return
	}

	switch f.Channel {
	case wire.ChannelControl:
		s.handleControl(msg)
	case wire.ChannelGame:
		s.handleGame(msg)
	case wire.ChannelChat:
		s.handleChat(msg)
	}
}

func (s *Session) handleControl(msg wire.Message) {
	switch msg.Type {
	case wire.TypeHello:
		var hello wire.HelloPayload
		if err := msg.DecodePayload(&hello); err != nil {
			s.log.Warn("bad hello", zap.Error(err))
			return
		}
		s.peerName = hello.Name
		// The host configured the session; a joiner adopts its round
		// count before play starts.
		if s.role == RoleJoiner && s.state.Phase == game.PhaseWaiting && hello.Rounds != s.state.TotalRounds {
			s.state = game.NewState(hello.Rounds)
		}
		if s.state.Phase == game.PhaseWaiting {
			s.notify(PeerConnected{PeerName: hello.Name, Rounds: s.state.TotalRounds})
			s.apply(game.Command{Type: game.CmdStartSession})
		}

	case wire.TypeBye:
		var bye wire.ByePayload
		_ = msg.DecodePayload(&bye)
		if s.terminal() {
			return
		}
		events, newState, err := game.Apply(s.state, game.Command{Type: game.CmdPeerLost})
		if err != nil {
			return
		}
		s.state = newState
		for _, ev := range events {
			if ev.Type == game.EvtDisconnected {
				s.notify(Disconnected{Score: ev.Score, Forfeited: bye.Reason == wire.ByeMidGame})
			}
		}

	default:
		s.log.Debug("unknown control message", zap.String("type", msg.Type))
	}
}

func (s *Session) handleGame(msg wire.Message) {
	if msg.Type != wire.TypeMove {
		s.log.Debug("unknown game message", zap.String("type", msg.Type))
		return
	}
	var mv wire.MovePayload
	if err := msg.DecodePayload(&mv); err != nil {
		s.log.Warn("bad move payload", zap.Error(err))
		return
	}
	move, ok := game.ParseMove(mv.Move)
	if !ok {
		s.log.Warn("peer sent unknown move", zap.String("move", mv.Move))
		return
	}
	// The peer may advance to the next round and move before we do.
	if s.state.Phase == game.PhaseRoundResolved && mv.Round == s.state.Round+1 {
		s.apply(game.Command{Type: game.CmdAdvanceRound})
	}
	s.apply(game.Command{Type: game.CmdSubmitMove, Player: game.PlayerPeer, Move: move})
}

func (s *Session) handleChat(msg wire.Message) {
	if msg.Type != wire.TypeChat {
		return
	}
	var chat wire.ChatPayload
	if err := msg.DecodePayload(&chat); err != nil {
		s.log.Warn("bad chat payload", zap.Error(err))
		return
	}
	s.notify(ChatReceived{Msg: chat})
}

// apply runs one command, keeps the new state and fans events out as
// notifications. Returns false when the command was refused.
func (s *Session) apply(cmd game.Command) bool {
	events, newState, err := game.Apply(s.state, cmd)
	if err != nil {
		// Peer-originated commands that are refused (e.g. a duplicate
		// move from a buggy client) are dropped, not surfaced.
		if cmd.Player != game.PlayerPeer {
			s.notify(Rejected{Err: err})
		}
		return false
	}
	s.state = newState

	for _, ev := range events {
		switch ev.Type {
		case game.EvtRoundStarted:
			s.notify(RoundStarted{Round: ev.Round})
		case game.EvtMoveSubmitted:
			s.notify(MoveNoted{Player: ev.Player, Round: ev.Round})
		case game.EvtRoundResolved:
			s.notify(RoundResolved{Result: *ev.Result, Score: ev.Score})
		case game.EvtSessionCompleted:
			s.notify(SessionComplete{Score: ev.Score})
		case game.EvtDisconnected:
			s.notify(Disconnected{Score: ev.Score})
		}
	}
	return true
}

func (s *Session) notify(n Notification) {
	select {
	case s.events <- n:
	default:
		// The UI adapter stopped draining; dropping beats deadlock.
		s.log.Warn("notification dropped", zap.Any("notification", n))
	}
}
