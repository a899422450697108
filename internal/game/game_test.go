package game

import (
	"errors"
	"testing"
)

func activeState(total int) State {
	s := NewState(total)
	s.Phase = PhaseRoundActive
	s.Round = 1
	return s
}

func TestResolve_Antisymmetry(t *testing.T) {
	moves := []Move{MoveRock, MovePaper, MoveScissors}
	for _, a := range moves {
		for _, b := range moves {
			got := Resolve(a, b)
			flipped := Resolve(b, a)
			if a == b {
				if got != OutcomeDraw {
					t.Fatalf("Resolve(%s,%s): want draw, got %s", a, b, got)
				}
				continue
			}
			if got == OutcomeLocalWin && flipped != OutcomePeerWin {
				t.Fatalf("Resolve(%s,%s)=%s but Resolve(%s,%s)=%s", a, b, got, b, a, flipped)
			}
			if got == OutcomePeerWin && flipped != OutcomeLocalWin {
				t.Fatalf("Resolve(%s,%s)=%s but Resolve(%s,%s)=%s", a, b, got, b, a, flipped)
			}
			if got == OutcomeDraw {
				t.Fatalf("Resolve(%s,%s): unequal moves must not draw", a, b)
			}
		}
	}
}

func TestResolve_TieBreakTable(t *testing.T) {
	cases := []struct {
		name  string
		local Move
		peer  Move
		want  Outcome
	}{
		{name: "rock beats scissors", local: MoveRock, peer: MoveScissors, want: OutcomeLocalWin},
		{name: "scissors beats paper", local: MoveScissors, peer: MovePaper, want: OutcomeLocalWin},
		{name: "paper beats rock", local: MovePaper, peer: MoveRock, want: OutcomeLocalWin},
		{name: "scissors loses to rock", local: MoveScissors, peer: MoveRock, want: OutcomePeerWin},
		{name: "equal moves draw", local: MovePaper, peer: MovePaper, want: OutcomeDraw},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.local, tc.peer); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestApply_DuplicateMoveRejectedWithoutStateChange(t *testing.T) {
	s := activeState(3)
	_, s, err := Apply(s, Command{Type: CmdSubmitMove, Player: PlayerLocal, Move: MoveRock})
	if err != nil {
		t.Fatalf("first submit: unexpected err %v", err)
	}

	_, next, err := Apply(s, Command{Type: CmdSubmitMove, Player: PlayerLocal, Move: MovePaper})
	if !errors.Is(err, ErrDuplicateMove) {
		t.Fatalf("want ErrDuplicateMove, got %v", err)
	}
	if next.Pending[PlayerLocal] != MoveRock {
		t.Fatalf("rejected submit altered state: %+v", next.Pending)
	}
	if next.Phase != PhaseRoundActive || next.Round != 1 {
		t.Fatalf("rejected submit advanced the round: %+v", next)
	}
}

func TestApply_MoveOutsidePhase(t *testing.T) {
	cases := []struct {
		name  string
		setup State
		cmd   Command
		want  error
	}{
		{
			name:  "submit while waiting",
			setup: NewState(3),
			cmd:   Command{Type: CmdSubmitMove, Player: PlayerLocal, Move: MoveRock},
			want:  ErrWrongPhase,
		},
		{
			name:  "advance while active",
			setup: activeState(3),
			cmd:   Command{Type: CmdAdvanceRound},
			want:  ErrWrongPhase,
		},
		{
			name:  "start twice",
			setup: activeState(3),
			cmd:   Command{Type: CmdStartSession},
			want:  ErrWrongPhase,
		},
		{
			name:  "unknown move",
			setup: activeState(3),
			cmd:   Command{Type: CmdSubmitMove, Player: PlayerLocal, Move: Move("lizard")},
			want:  ErrInvalidMove,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Apply(tc.setup, tc.cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

// A full three round match: (rock,scissors), (paper,paper),
// (scissors,rock) ends 1-1 complete.
func TestApply_ThreeRoundMatch(t *testing.T) {
	rounds := []struct {
		local Move
		peer  Move
	}{
		{MoveRock, MoveScissors},
		{MovePaper, MovePaper},
		{MoveScissors, MoveRock},
	}

	s := NewState(3)
	events, s, err := Apply(s, Command{Type: CmdStartSession})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !ContainsEvent(events, EvtRoundStarted) {
		t.Fatalf("start: expected EvtRoundStarted")
	}

	for i, r := range rounds {
		if _, s, err = Apply(s, Command{Type: CmdSubmitMove, Player: PlayerLocal, Move: r.local}); err != nil {
			t.Fatalf("round %d local: %v", i+1, err)
		}
		if events, s, err = Apply(s, Command{Type: CmdSubmitMove, Player: PlayerPeer, Move: r.peer}); err != nil {
			t.Fatalf("round %d peer: %v", i+1, err)
		}
		if !ContainsEvent(events, EvtRoundResolved) {
			t.Fatalf("round %d: expected EvtRoundResolved", i+1)
		}
		if i < len(rounds)-1 {
			if _, s, err = Apply(s, Command{Type: CmdAdvanceRound}); err != nil {
				t.Fatalf("advance after round %d: %v", i+1, err)
			}
		}
	}

	if s.Phase != PhaseComplete {
		t.Fatalf("want PhaseComplete, got %s", s.Phase)
	}
	if !ContainsEvent(events, EvtSessionCompleted) {
		t.Fatalf("final round: expected EvtSessionCompleted")
	}
	if s.Score != (Score{Local: 1, Peer: 1, Draws: 1}) {
		t.Fatalf("final score: got %+v", s.Score)
	}
	if len(s.Results) != 3 {
		t.Fatalf("want exactly 3 resolved rounds, got %d", len(s.Results))
	}
}

func TestApply_CompletesAfterExactlyNRounds(t *testing.T) {
	s := NewState(1)
	_, s, _ = Apply(s, Command{Type: CmdStartSession})
	_, s, _ = Apply(s, Command{Type: CmdSubmitMove, Player: PlayerLocal, Move: MoveRock})
	events, s, err := Apply(s, Command{Type: CmdSubmitMove, Player: PlayerPeer, Move: MovePaper})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if s.Phase != PhaseComplete {
		t.Fatalf("single-round session should complete, got %s", s.Phase)
	}
	if !ContainsEvent(events, EvtSessionCompleted) {
		t.Fatalf("expected EvtSessionCompleted on last resolve")
	}

	// Terminal state rejects everything afterwards.
	_, _, err = Apply(s, Command{Type: CmdSubmitMove, Player: PlayerLocal, Move: MoveRock})
	if !errors.Is(err, ErrSessionOver) {
		t.Fatalf("want ErrSessionOver, got %v", err)
	}
}

func TestApply_PeerLostFreezesScore(t *testing.T) {
	s := NewState(3)
	_, s, _ = Apply(s, Command{Type: CmdStartSession})
	_, s, _ = Apply(s, Command{Type: CmdSubmitMove, Player: PlayerLocal, Move: MoveRock})
	_, s, _ = Apply(s, Command{Type: CmdSubmitMove, Player: PlayerPeer, Move: MoveScissors})
	_, s, _ = Apply(s, Command{Type: CmdAdvanceRound})

	// Local has moved in round 2, peer drops before answering.
	_, s, _ = Apply(s, Command{Type: CmdSubmitMove, Player: PlayerLocal, Move: MovePaper})
	events, s, err := Apply(s, Command{Type: CmdPeerLost})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if s.Phase != PhaseDisconnected {
		t.Fatalf("want PhaseDisconnected, got %s", s.Phase)
	}
	if !ContainsEvent(events, EvtDisconnected) {
		t.Fatalf("expected EvtDisconnected")
	}
	if s.Score != (Score{Local: 1}) {
		t.Fatalf("score must freeze at last resolved round, got %+v", s.Score)
	}
	if len(s.Results) != 1 {
		t.Fatalf("unresolved round must not be recorded, got %d results", len(s.Results))
	}
}

func TestParseMove(t *testing.T) {
	if m, ok := ParseMove("scissors"); !ok || m != MoveScissors {
		t.Fatalf("got %q ok=%v", m, ok)
	}
	if _, ok := ParseMove("spock"); ok {
		t.Fatalf("expected parse failure")
	}
}
