// pawnme-local plays a terminal game against the scripted opponent.
// Moves are entered as coordinate pairs ("e2e4", "a7a8q").
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pawnme/pawnme-server/internal/local"
	"github.com/pawnme/pawnme-server/internal/rules"
	"github.com/pawnme/pawnme-server/internal/scripted"
)

func main() {
	human := rules.White
	if len(os.Args) > 1 && strings.EqualFold(os.Args[1], "black") {
		human = rules.Black
	}

	match := local.NewMatch(human, scripted.New())
	fmt.Printf("You play %s. Enter moves like e2e4 (a7a8q to promote), or 'quit'.\n", human)
	fmt.Println(match.State(nil).FEN)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "quit" || line == "exit" {
			return
		}
		if len(line) < 4 {
			fmt.Println("enter origin and destination squares, e.g. e2e4")
			continue
		}

		from, to, promo := line[:2], line[2:4], line[4:]
		humanMove, botMove, err := match.Play(from, to, promo)
		switch {
		case errors.Is(err, local.ErrGameOver):
			fmt.Println("the game is over; restart to play again")
			continue
		case errors.Is(err, rules.ErrIllegalMove):
			fmt.Println("illegal move")
			continue
		case err != nil:
			fmt.Printf("error: %v\n", err)
			continue
		}

		fmt.Printf("you: %s", humanMove.SAN)
		if botMove != nil {
			fmt.Printf("  opponent: %s", botMove.SAN)
		}
		fmt.Println()

		last := humanMove
		if botMove != nil {
			last = botMove
		}
		state := match.State(last)
		fmt.Println(state.FEN)
		if state.GameOver {
			switch {
			case state.Checkmate && last.Side == human:
				fmt.Println("checkmate, you win")
			case state.Checkmate:
				fmt.Println("checkmate, you lose")
			default:
				fmt.Println("draw")
			}
			return
		}
	}
}
