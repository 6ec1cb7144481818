package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// StartRows is the initial layout from rank 8 down to rank 1.
var StartRows = [8]string{
	"rnbqkbnr",
	"pppppppp",
	"........",
	"........",
	"........",
	"........",
	"PPPPPPPP",
	"RNBQKBNR",
}

// Board holds the piece layout of one game. It is a plain value: copying a
// Board copies the whole grid. A Board is not safe for concurrent use.
type Board struct {
	cells [8][8]Piece
}

// NewBoard returns a board in the starting position.
func NewBoard() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// ParseBoard builds a board from eight rank strings (rank 8 first). Each row
// holds eight piece letters or '.'; spaces are ignored.
func ParseBoard(rows ...string) (*Board, error) {
	if len(rows) != 8 {
		return nil, fmt.Errorf("board needs 8 rows, got %d", len(rows))
	}
	b := &Board{}
	for r, raw := range rows {
		row := strings.ReplaceAll(raw, " ", "")
		if len(row) != 8 {
			return nil, fmt.Errorf("row %d: need 8 cells, got %d", r+1, len(row))
		}
		for c := 0; c < 8; c++ {
			p, ok := PieceFromLetter(row[c])
			if !ok {
				return nil, fmt.Errorf("row %d: unknown piece %q", r+1, row[c])
			}
			b.cells[r][c] = p
		}
	}
	return b, nil
}

// Reset restores the standard starting position.
func (b *Board) Reset() {
	nb, _ := ParseBoard(StartRows[:]...)
	b.cells = nb.cells
}

// At returns the occupant of sq, NoPiece for empty or off-board squares.
func (b *Board) At(sq Square) Piece {
	if !sq.Valid() {
		return NoPiece
	}
	return b.cells[sq.Row][sq.Col]
}

// Set places p on sq. Used for fixtures and move application.
func (b *Board) Set(sq Square, p Piece) {
	if sq.Valid() {
		b.cells[sq.Row][sq.Col] = p
	}
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	cp := *b
	return &cp
}

// Equal reports whether both boards hold the same layout.
func (b *Board) Equal(o *Board) bool {
	return o != nil && b.cells == o.cells
}

// Count returns the number of occupied cells.
func (b *Board) Count() int {
	n := 0
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if !b.cells[r][c].IsEmpty() {
				n++
			}
		}
	}
	return n
}

// Owned reports whether the piece on sq belongs to side.
func (b *Board) Owned(sq Square, side Side) bool {
	p := b.At(sq)
	return !p.IsEmpty() && p.Side == side
}

// KingSquare finds side's king.
func (b *Board) KingSquare(side Side) (Square, bool) {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			p := b.cells[r][c]
			if p.Kind == King && p.Side == side {
				return Square{Row: r, Col: c}, true
			}
		}
	}
	return Square{}, false
}

// Rows renders each rank as space separated letters, rank 8 first.
func (b *Board) Rows() []string {
	out := make([]string, 8)
	for r := 0; r < 8; r++ {
		cells := make([]string, 8)
		for c := 0; c < 8; c++ {
			cells[c] = string(b.cells[r][c].Letter())
		}
		out[r] = strings.Join(cells, " ")
	}
	return out
}

func (b *Board) String() string {
	return strings.Join(b.Rows(), "\n")
}

// FEN encodes the placement and side to move. Castling and en passant are
// not part of these rules, so those fields are always "-".
func (b *Board) FEN(turn Side, fullmove int) string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		empty := 0
		for c := 0; c < 8; c++ {
			p := b.cells[r][c]
			if p.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(p.Letter())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if r < 7 {
			sb.WriteByte('/')
		}
	}
	active := "w"
	if turn == Black {
		active = "b"
	}
	if fullmove < 1 {
		fullmove = 1
	}
	fmt.Fprintf(&sb, " %s - - 0 %d", active, fullmove)
	return sb.String()
}
