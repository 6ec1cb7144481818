package chess

// Outcome describes what a successful ApplyMove changed.
type Outcome struct {
	Moved    Piece
	Captured Piece
	// Promoted is NoKind unless a pawn reached its last rank.
	Promoted Kind
}

// KingCaptured reports whether the move took a king.
func (o Outcome) KingCaptured() bool { return o.Captured.Kind == King }

// ApplyMove moves side's piece from from to to. The board is left untouched
// when the move is rejected. A pawn reaching its last rank becomes promo, or
// a queen when promo is not a valid promotion kind.
func (b *Board) ApplyMove(from, to Square, side Side, promo Kind) (Outcome, error) {
	if err := b.checkMove(from, to, side); err != nil {
		return Outcome{}, err
	}
	moved := b.At(from)
	out := Outcome{Moved: moved, Captured: b.relocate(from, to)}
	if moved.Kind == Pawn && to.Row == lastRow(side) {
		if !promo.IsPromotion() {
			promo = Queen
		}
		b.cells[to.Row][to.Col] = Piece{Kind: promo, Side: side}
		out.Promoted = promo
	}
	return out, nil
}

func lastRow(side Side) int {
	if side == Black {
		return 7
	}
	return 0
}
