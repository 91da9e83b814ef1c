package scripted

import (
	"testing"

	"github.com/pawnme/pawnme-server/internal/rules"
)

func TestPickReturnsLegalMove(t *testing.T) {
	g := rules.NewGame()
	bot := NewSeeded(1)

	pick, ok := bot.Pick(g)
	if !ok {
		t.Fatalf("expected a move at the start position")
	}
	if _, err := g.Apply(pick.From, pick.To, pick.Promotion); err != nil {
		t.Fatalf("bot picked illegal move %+v: %v", pick, err)
	}
}

func TestPickPrefersOnlyCapture(t *testing.T) {
	g, err := rules.Reconstruct([]string{"e2e4", "d7d5"})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	bot := NewSeeded(7)

	// exd5 is the sole capture; the bot must take it every time.
	for i := 0; i < 10; i++ {
		pick, ok := bot.Pick(g)
		if !ok {
			t.Fatalf("no move picked")
		}
		if pick.From != "e4" || pick.To != "d5" || !pick.IsCapture {
			t.Fatalf("expected e4d5 capture, got %+v", pick)
		}
	}
}

func TestPickPrefersPromotionOverCapture(t *testing.T) {
	// White pawn on b7; promoting (and capturing) on a8 beats plain captures.
	g, err := rules.Reconstruct([]string{"a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "b8c6"})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	bot := NewSeeded(3)

	pick, ok := bot.Pick(g)
	if !ok {
		t.Fatalf("no move picked")
	}
	if !pick.IsPromotion || pick.From != "b7" {
		t.Fatalf("expected promotion from b7, got %+v", pick)
	}
}
