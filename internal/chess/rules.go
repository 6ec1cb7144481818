package chess

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrInvalidSquare = fmt.Errorf("%w: invalid square", ErrIllegalMove)
	ErrNoPiece       = fmt.Errorf("%w: no piece on source square", ErrIllegalMove)
	ErrNotOwner      = fmt.Errorf("%w: piece belongs to the opponent", ErrIllegalMove)
	ErrSelfCapture   = fmt.Errorf("%w: destination holds own piece", ErrIllegalMove)
	ErrIllegalShape  = fmt.Errorf("%w: piece cannot move that way", ErrIllegalMove)
	ErrKingExposed   = fmt.Errorf("%w: move leaves king in check", ErrIllegalMove)
)

// shapeRule reports whether a piece on from can reach to given the current
// occupancy. Ownership and self-capture are checked before a rule runs.
type shapeRule func(b *Board, from, to Square, side Side) bool

var shapeRules = [...]shapeRule{
	Pawn:   pawnShape,
	Knight: knightShape,
	Bishop: bishopShape,
	Rook:   rookShape,
	Queen:  queenShape,
	King:   kingShape,
}

func pawnShape(b *Board, from, to Square, side Side) bool {
	dir, startRow := -1, 6
	if side == Black {
		dir, startRow = 1, 1
	}
	dr, dc := to.Row-from.Row, to.Col-from.Col
	target := b.At(to)
	switch {
	case dc == 0 && dr == dir:
		return target.IsEmpty()
	case dc == 0 && dr == 2*dir && from.Row == startRow:
		mid := Square{Row: from.Row + dir, Col: from.Col}
		return b.At(mid).IsEmpty() && target.IsEmpty()
	case abs(dc) == 1 && dr == dir:
		return !target.IsEmpty() && target.Side != side
	}
	return false
}

func knightShape(_ *Board, from, to Square, _ Side) bool {
	dr, dc := abs(to.Row-from.Row), abs(to.Col-from.Col)
	return (dr == 1 && dc == 2) || (dr == 2 && dc == 1)
}

func bishopShape(b *Board, from, to Square, _ Side) bool {
	dr, dc := abs(to.Row-from.Row), abs(to.Col-from.Col)
	return dr == dc && dr > 0 && b.pathClear(from, to)
}

func rookShape(b *Board, from, to Square, _ Side) bool {
	dr, dc := to.Row-from.Row, to.Col-from.Col
	return (dr == 0) != (dc == 0) && b.pathClear(from, to)
}

func queenShape(b *Board, from, to Square, side Side) bool {
	return rookShape(b, from, to, side) || bishopShape(b, from, to, side)
}

func kingShape(_ *Board, from, to Square, _ Side) bool {
	dr, dc := abs(to.Row-from.Row), abs(to.Col-from.Col)
	return dr <= 1 && dc <= 1 && dr+dc > 0
}

// pathClear reports whether every square strictly between from and to is
// empty. Callers guarantee a straight or diagonal line.
func (b *Board) pathClear(from, to Square) bool {
	stepR, stepC := sign(to.Row-from.Row), sign(to.Col-from.Col)
	r, c := from.Row+stepR, from.Col+stepC
	for r != to.Row || c != to.Col {
		if !b.cells[r][c].IsEmpty() {
			return false
		}
		r += stepR
		c += stepC
	}
	return true
}

// checkPseudo validates ownership, self-capture and movement shape.
func (b *Board) checkPseudo(from, to Square, side Side) error {
	if !from.Valid() || !to.Valid() {
		return ErrInvalidSquare
	}
	p := b.At(from)
	if p.IsEmpty() {
		return ErrNoPiece
	}
	if p.Side != side {
		return ErrNotOwner
	}
	if from == to {
		return ErrIllegalShape
	}
	if t := b.At(to); !t.IsEmpty() && t.Side == side {
		return ErrSelfCapture
	}
	if !shapeRules[p.Kind](b, from, to, side) {
		return ErrIllegalShape
	}
	return nil
}

// checkMove is checkPseudo followed by the king-safety filter. The
// simulation happens on a copy, so the receiver is never touched.
func (b *Board) checkMove(from, to Square, side Side) error {
	if err := b.checkPseudo(from, to, side); err != nil {
		return err
	}
	sim := *b
	sim.relocate(from, to)
	if sim.InCheck(side) {
		return ErrKingExposed
	}
	return nil
}

func (b *Board) relocate(from, to Square) Piece {
	captured := b.cells[to.Row][to.Col]
	b.cells[to.Row][to.Col] = b.cells[from.Row][from.Col]
	b.cells[from.Row][from.Col] = NoPiece
	return captured
}

// MoveIsLegal reports whether side may move the piece on from to to.
func (b *Board) MoveIsLegal(from, to Square, side Side) bool {
	return b.checkMove(from, to, side) == nil
}

// Attacked reports whether any piece of by could move onto sq under
// pseudo-legal rules.
func (b *Board) Attacked(sq Square, by Side) bool {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			p := b.cells[r][c]
			if p.IsEmpty() || p.Side != by {
				continue
			}
			if b.checkPseudo(Square{Row: r, Col: c}, sq, by) == nil {
				return true
			}
		}
	}
	return false
}

// InCheck reports whether side's king is attacked. A side without a king is
// never in check.
func (b *Board) InCheck(side Side) bool {
	k, ok := b.KingSquare(side)
	if !ok {
		return false
	}
	return b.Attacked(k, side.Opponent())
}

// LegalMoves lists every move side can make after king-safety filtering.
func (b *Board) LegalMoves(side Side) []Move {
	var moves []Move
	b.eachLegal(side, func(m Move) bool {
		moves = append(moves, m)
		return true
	})
	return moves
}

// HasLegalMove is LegalMoves without the allocation; it stops at the first hit.
func (b *Board) HasLegalMove(side Side) bool {
	found := false
	b.eachLegal(side, func(Move) bool {
		found = true
		return false
	})
	return found
}

func (b *Board) eachLegal(side Side, fn func(Move) bool) {
	for fr := 0; fr < 8; fr++ {
		for fc := 0; fc < 8; fc++ {
			p := b.cells[fr][fc]
			if p.IsEmpty() || p.Side != side {
				continue
			}
			from := Square{Row: fr, Col: fc}
			for tr := 0; tr < 8; tr++ {
				for tc := 0; tc < 8; tc++ {
					to := Square{Row: tr, Col: tc}
					if b.checkMove(from, to, side) != nil {
						continue
					}
					if !fn(Move{From: from, To: to}) {
						return
					}
				}
			}
		}
	}
}

// IsCheckmate reports whether side is in check with no legal reply.
func (b *Board) IsCheckmate(side Side) bool {
	return b.InCheck(side) && !b.HasLegalMove(side)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
