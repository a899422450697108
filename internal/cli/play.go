package cli

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/LukeWait/rps-lan/internal/game"
	"github.com/LukeWait/rps-lan/internal/profile"
	"github.com/LukeWait/rps-lan/internal/session"
)

const playHelp = `commands:
  rock | paper | scissors   play a move
  /chat <text>              send a chat message
  /next                     start the next round
  /quit                     leave the game`

// playSession runs the terminal side of a match: typed commands go
// into the session inbox, notifications come back out and get printed.
// It returns once the session ends; when username is set the outcome
// lands in the profile store.
func playSession(ctx context.Context, s *session.Session, store *profile.Store, username string) error {
	fmt.Println(playHelp)

	// Stdin reads cannot be interrupted, so the reader runs detached
	// and is abandoned when the session ends.
	var quit atomic.Bool
	done := make(chan struct{})
	defer close(done)
	go readCommands(s, &quit, done)

	peerName := "opponent"
	var result profile.Result

	for n := range s.Events() {
		switch ev := n.(type) {
		case session.PeerConnected:
			peerName = ev.PeerName
			fmt.Printf("connected to %s, best of %d rounds\n", ev.PeerName, ev.Rounds)

		case session.RoundStarted:
			fmt.Printf("round %d: type rock, paper or scissors\n", ev.Round)

		case session.MoveNoted:
			if ev.Player == game.PlayerPeer {
				fmt.Printf("%s has locked in a move\n", peerName)
			} else {
				fmt.Printf("move locked in, waiting for %s\n", peerName)
			}

		case session.RoundResolved:
			fmt.Println(describeRound(ev.Result, peerName))
			fmt.Printf("score: you %d, %s %d, draws %d\n", ev.Score.Local, peerName, ev.Score.Peer, ev.Score.Draws)
			fmt.Println("type /next when ready")

		case session.SessionComplete:
			result = verdict(ev.Score)
			fmt.Println(describeFinal(ev.Score, peerName))

		case session.Disconnected:
			if ev.Forfeited || quit.Load() {
				if quit.Load() {
					result = profile.ResultLoss
					fmt.Println("you left the game, remaining rounds forfeited")
				} else {
					result = profile.ResultWin
					fmt.Printf("%s left the game, remaining rounds forfeited\n", peerName)
				}
				fmt.Printf("final score: you %d, %s %d\n", ev.Score.Local, peerName, ev.Score.Peer)
			}
			if ev.Err != nil {
				fmt.Println("connection lost:", ev.Err)
			}

		case session.ChatReceived:
			if ev.Local {
				fmt.Printf("you: %s\n", ev.Msg.Text)
			} else {
				fmt.Printf("%s: %s\n", ev.Msg.Sender, ev.Msg.Text)
			}

		case session.Rejected:
			fmt.Println("not allowed:", ev.Err)
		}
	}

	if store != nil && username != "" && result != "" {
		if err := store.RecordResult(ctx, username, result); err != nil {
			log.Warn("result not recorded", zap.String("user", username), zap.Error(err))
		}
	}
	return nil
}

func readCommands(s *session.Session, quit *atomic.Bool, done <-chan struct{}) {
	for {
		raw, err := stdin.ReadString('\n')
		if err != nil {
			return
		}
		line := strings.TrimSpace(raw)
		var msg session.Msg
		switch {
		case line == "":
			continue
		case line == "/quit":
			quit.Store(true)
			msg = session.Disconnect{}
		case line == "/next":
			msg = session.AdvanceRound{}
		case strings.HasPrefix(line, "/chat "):
			msg = session.SendChat{Text: strings.TrimPrefix(line, "/chat ")}
		default:
			mv, ok := game.ParseMove(strings.ToLower(line))
			if !ok {
				fmt.Println(playHelp)
				continue
			}
			msg = session.SubmitMove{Move: mv}
		}

		select {
		case s.Inbox() <- msg:
		case <-done:
			return
		}
		if line == "/quit" {
			return
		}
	}
}

func describeRound(r game.RoundResult, peer string) string {
	switch r.Outcome {
	case game.OutcomeDraw:
		return fmt.Sprintf("round %d: both chose %s, draw", r.Round, r.LocalMove)
	case game.OutcomeLocalWin:
		return fmt.Sprintf("round %d: your %s beats %s's %s", r.Round, r.LocalMove, peer, r.PeerMove)
	default:
		return fmt.Sprintf("round %d: %s's %s beats your %s", r.Round, peer, r.PeerMove, r.LocalMove)
	}
}

func describeFinal(score game.Score, peer string) string {
	tally := fmt.Sprintf("you %d, %s %d, draws %d", score.Local, peer, score.Peer, score.Draws)
	switch {
	case score.Local > score.Peer:
		return "you win the match! " + tally
	case score.Local < score.Peer:
		return fmt.Sprintf("%s wins the match. %s", peer, tally)
	default:
		return "the match is a draw. " + tally
	}
}

func verdict(score game.Score) profile.Result {
	switch {
	case score.Local > score.Peer:
		return profile.ResultWin
	case score.Local < score.Peer:
		return profile.ResultLoss
	default:
		return profile.ResultTie
	}
}
