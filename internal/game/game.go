package game

import "errors"

var ErrWrongPhase = errors.New("command not valid in current phase")
var ErrDuplicateMove = errors.New("move already submitted this round")
var ErrInvalidMove = errors.New("invalid move")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrSessionOver = errors.New("session already finished")

type Move string

const (
	MoveRock     Move = "rock"
	MovePaper    Move = "paper"
	MoveScissors Move = "scissors"
)

// beats maps each move to the move it defeats.
var beats = map[Move]Move{
	MoveRock:     MoveScissors,
	MoveScissors: MovePaper,
	MovePaper:    MoveRock,
}

func ParseMove(s string) (Move, bool) {
	switch Move(s) {
	case MoveRock, MovePaper, MoveScissors:
		return Move(s), true
	default:
		return "", false
	}
}

type Player string

const (
	PlayerLocal Player = "local"
	PlayerPeer  Player = "peer"
)

type Outcome string

const (
	OutcomeLocalWin Outcome = "local_win"
	OutcomePeerWin  Outcome = "peer_win"
	OutcomeDraw     Outcome = "draw"
)

// Resolve applies the fixed tie-break table to one pair of moves.
func Resolve(local, peer Move) Outcome {
	switch {
	case local == peer:
		return OutcomeDraw
	case beats[local] == peer:
		return OutcomeLocalWin
	default:
		return OutcomePeerWin
	}
}

type Phase string

const (
	PhaseWaiting       Phase = "waiting_for_peer"
	PhaseRoundActive   Phase = "round_active"
	PhaseRoundResolved Phase = "round_resolved"
	PhaseComplete      Phase = "session_complete"
	PhaseDisconnected  Phase = "disconnected"
)

type RoundResult struct {
	Round     int
	LocalMove Move
	PeerMove  Move
	Outcome   Outcome
}

type Score struct {
	Local int
	Peer  int
	Draws int
}

type State struct {
	Phase       Phase
	TotalRounds int
	Round       int // 1-based, current round while active/resolved
	Pending     map[Player]Move
	Results     []RoundResult
	Score       Score
}

func NewState(totalRounds int) State {
	return State{
		Phase:       PhaseWaiting,
		TotalRounds: totalRounds,
		Pending:     map[Player]Move{},
	}
}

type CommandType string

const (
	CmdStartSession CommandType = "StartSession"
	CmdSubmitMove   CommandType = "SubmitMove"
	CmdAdvanceRound CommandType = "AdvanceRound"
	CmdPeerLost     CommandType = "PeerLost"
)

type Command struct {
	Type   CommandType
	Player Player
	Move   Move
}

type EventType string

const (
	EvtRoundStarted     EventType = "RoundStarted"
	EvtMoveSubmitted    EventType = "MoveSubmitted"
	EvtRoundResolved    EventType = "RoundResolved"
	EvtSessionCompleted EventType = "SessionCompleted"
	EvtDisconnected     EventType = "Disconnected"
)

type Event struct {
	Type   EventType
	Player Player
	Round  int
	Result *RoundResult
	Score  Score
}

func terminal(p Phase) bool {
	return p == PhaseComplete || p == PhaseDisconnected
}

// Apply runs one command against the state and returns the resulting
// events plus the next state. The input state is never mutated on an
// error path.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if terminal(s.Phase) {
		return nil, s, ErrSessionOver
	}

	newState := s

	switch cmd.Type {
	case CmdStartSession:
		if s.Phase != PhaseWaiting {
			return nil, s, ErrWrongPhase
		}
		newState.Phase = PhaseRoundActive
		newState.Round = 1
		newState.Pending = map[Player]Move{}
		events := []Event{
			{Type: EvtRoundStarted, Round: 1},
		}
		return events, newState, nil

	case CmdSubmitMove:
		if s.Phase != PhaseRoundActive {
			return nil, s, ErrWrongPhase
		}
		if _, ok := beats[cmd.Move]; !ok {
			return nil, s, ErrInvalidMove
		}
		if _, ok := s.Pending[cmd.Player]; ok {
			return nil, s, ErrDuplicateMove
		}

		// Copy-on-write so the caller's old state stays intact.
		pending := map[Player]Move{}
		for p, m := range s.Pending {
			pending[p] = m
		}
		pending[cmd.Player] = cmd.Move
		newState.Pending = pending

		events := []Event{
			{Type: EvtMoveSubmitted, Player: cmd.Player, Round: s.Round},
		}

		if len(pending) < 2 {
			return events, newState, nil
		}

		// Both moves in, resolve the round.
		result := RoundResult{
			Round:     s.Round,
			LocalMove: pending[PlayerLocal],
			PeerMove:  pending[PlayerPeer],
			Outcome:   Resolve(pending[PlayerLocal], pending[PlayerPeer]),
		}
		newState.Results = append(append([]RoundResult{}, s.Results...), result)
		switch result.Outcome {
		case OutcomeLocalWin:
			newState.Score.Local++
		case OutcomePeerWin:
			newState.Score.Peer++
		case OutcomeDraw:
			newState.Score.Draws++
		}
		newState.Phase = PhaseRoundResolved
		events = append(events, Event{
			Type:   EvtRoundResolved,
			Round:  s.Round,
			Result: &result,
			Score:  newState.Score,
		})

		// Completion happens at resolve time on the final round, so a
		// session never sees more than TotalRounds resolved rounds.
		if s.Round == s.TotalRounds {
			newState.Phase = PhaseComplete
			events = append(events, Event{Type: EvtSessionCompleted, Score: newState.Score})
		}
		return events, newState, nil

	case CmdAdvanceRound:
		if s.Phase != PhaseRoundResolved {
			return nil, s, ErrWrongPhase
		}
		newState.Round = s.Round + 1
		newState.Pending = map[Player]Move{}
		newState.Phase = PhaseRoundActive
		events := []Event{
			{Type: EvtRoundStarted, Round: newState.Round},
		}
		return events, newState, nil

	case CmdPeerLost:
		// Unresolved rounds are forfeited; the score stays at its last
		// resolved value.
		newState.Phase = PhaseDisconnected
		events := []Event{
			{Type: EvtDisconnected, Round: s.Round, Score: s.Score},
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
