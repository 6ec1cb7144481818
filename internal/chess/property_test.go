package chess

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// randomPosition plays up to maxPlies random legal moves from the start and
// returns the board and the side to move.
func randomPosition(t *rapid.T, maxPlies int) (*Board, Side) {
	b := NewBoard()
	side := White
	plies := rapid.IntRange(0, maxPlies).Draw(t, "plies")
	for i := 0; i < plies; i++ {
		moves := b.LegalMoves(side)
		if len(moves) == 0 {
			break
		}
		m := moves[rapid.IntRange(0, len(moves)-1).Draw(t, "move")]
		if _, err := b.ApplyMove(m.From, m.To, side, NoKind); err != nil {
			t.Fatalf("listed move %s rejected: %v", m, err)
		}
		side = side.Opponent()
	}
	return b, side
}

func anySquare(t *rapid.T, label string) Square {
	return Square{
		Row: rapid.IntRange(0, 7).Draw(t, label+"_row"),
		Col: rapid.IntRange(0, 7).Draw(t, label+"_col"),
	}
}

func TestRejectedMoveLeavesBoardUnchanged(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b, side := randomPosition(t, 30)
		from, to := anySquare(t, "from"), anySquare(t, "to")
		mover := side
		if rapid.Bool().Draw(t, "wrong_side") {
			mover = side.Opponent()
		}
		before := b.Clone()
		legal := b.MoveIsLegal(from, to, mover)
		if !b.Equal(before) {
			t.Fatalf("MoveIsLegal mutated the board")
		}
		_, err := b.ApplyMove(from, to, mover, NoKind)
		if legal != (err == nil) {
			t.Fatalf("MoveIsLegal=%v but ApplyMove err=%v", legal, err)
		}
		if !legal && !b.Equal(before) {
			t.Fatalf("rejected %s%s changed the board", from, to)
		}
	})
}

func TestNonCaptureKeepsPopulation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b, side := randomPosition(t, 30)
		moves := b.LegalMoves(side)
		if len(moves) == 0 {
			t.Skip("no legal moves")
		}
		m := moves[rapid.IntRange(0, len(moves)-1).Draw(t, "pick")]
		n := b.Count()
		out, err := b.ApplyMove(m.From, m.To, side, NoKind)
		require.NoError(t, err)
		if out.Captured.IsEmpty() {
			require.Equal(t, n, b.Count(), "population changed on quiet move %s", m)
		} else {
			require.Equal(t, n-1, b.Count(), "capture %s", m)
		}
		// the mover can never be left in check
		require.False(t, b.InCheck(side), "move %s exposed the king", m)
		// a pawn never survives on its last rank
		p := b.At(m.To)
		if m.To.Row == 0 || m.To.Row == 7 {
			require.NotEqual(t, Pawn, p.Kind)
		}
	})
}

// The corentings engine knows castling and en passant, which these rules
// omit; the FEN we hand it never grants either, so both move sets must match.
func TestLegalMovesMatchReferenceEngine(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b, side := randomPosition(t, 40)

		opt, err := nchess.FEN(b.FEN(side, 1))
		require.NoError(t, err)
		ref := nchess.NewGame(opt)

		want := map[string]bool{}
		for _, mv := range ref.ValidMoves() {
			want[mv.S1().String()+mv.S2().String()] = true
		}
		got := map[string]bool{}
		for _, mv := range b.LegalMoves(side) {
			got[mv.String()] = true
		}
		require.Equal(t, want, got, "position %s", b.FEN(side, 1))

		mated := b.IsCheckmate(side)
		require.Equal(t, mated, b.InCheck(side) && len(want) == 0)
	})
}
