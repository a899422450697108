package cli

import (
	"strings"
	"testing"

	"github.com/LukeWait/rps-lan/internal/game"
	"github.com/LukeWait/rps-lan/internal/profile"
)

func TestVerdict(t *testing.T) {
	cases := []struct {
		name  string
		score game.Score
		want  profile.Result
	}{
		{"ahead", game.Score{Local: 2, Peer: 1}, profile.ResultWin},
		{"behind", game.Score{Local: 0, Peer: 3}, profile.ResultLoss},
		{"level", game.Score{Local: 1, Peer: 1, Draws: 1}, profile.ResultTie},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := verdict(tc.score); got != tc.want {
				t.Fatalf("verdict(%+v) = %q, want %q", tc.score, got, tc.want)
			}
		})
	}
}

func TestDescribeRound(t *testing.T) {
	r := game.RoundResult{Round: 2, LocalMove: game.MoveRock, PeerMove: game.MoveScissors, Outcome: game.OutcomeLocalWin}
	got := describeRound(r, "alice")
	if !strings.Contains(got, "rock beats") || !strings.Contains(got, "alice") {
		t.Fatalf("unexpected description %q", got)
	}

	draw := game.RoundResult{Round: 1, LocalMove: game.MovePaper, PeerMove: game.MovePaper, Outcome: game.OutcomeDraw}
	if got := describeRound(draw, "alice"); !strings.Contains(got, "draw") {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestDescribeFinal(t *testing.T) {
	if got := describeFinal(game.Score{Local: 2, Peer: 1}, "bob"); !strings.Contains(got, "you win") {
		t.Fatalf("unexpected verdict line %q", got)
	}
	if got := describeFinal(game.Score{Local: 1, Peer: 2}, "bob"); !strings.Contains(got, "bob wins") {
		t.Fatalf("unexpected verdict line %q", got)
	}
	if got := describeFinal(game.Score{Local: 1, Peer: 1, Draws: 1}, "bob"); !strings.Contains(got, "draw") {
		t.Fatalf("unexpected verdict line %q", got)
	}
}
