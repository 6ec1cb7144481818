package chess

import (
	"fmt"
	"strings"
)

// Side identifies one of the two players.
type Side uint8

const (
	NoSide Side = iota
	White
	Black
)

func (s Side) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// Opponent returns the other side. NoSide maps to itself.
func (s Side) Opponent() Side {
	switch s {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoSide
	}
}

// ParseSide accepts "white"/"w" and "black"/"b".
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return NoSide, false
	}
}

// Kind is the closed set of piece kinds.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{
	NoKind: "",
	Pawn:   "pawn",
	Knight: "knight",
	Bishop: "bishop",
	Rook:   "rook",
	Queen:  "queen",
	King:   "king",
}

var kindLetters = [...]byte{
	NoKind: '.',
	Pawn:   'p',
	Knight: 'n',
	Bishop: 'b',
	Rook:   'r',
	Queen:  'q',
	King:   'k',
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

// promotionKinds is the fixed set a pawn may become.
var promotionKinds = map[string]Kind{
	"queen":  Queen,
	"q":      Queen,
	"rook":   Rook,
	"r":      Rook,
	"bishop": Bishop,
	"b":      Bishop,
	"knight": Knight,
	"n":      Knight,
}

// ParsePromotion maps a requested promotion to a kind. Anything outside
// queen/rook/bishop/knight reports false.
func ParsePromotion(s string) (Kind, bool) {
	k, ok := promotionKinds[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

// IsPromotion reports whether k is an allowed promotion target.
func (k Kind) IsPromotion() bool {
	return k == Queen || k == Rook || k == Bishop || k == Knight
}

// Piece is a cell occupant. The zero value is an empty cell.
type Piece struct {
	Kind Kind
	Side Side
}

// NoPiece is the empty cell.
var NoPiece = Piece{}

func (p Piece) IsEmpty() bool { return p.Kind == NoKind }

// Letter returns the piece letter, uppercase for white, '.' when empty.
func (p Piece) Letter() byte {
	if p.IsEmpty() {
		return '.'
	}
	c := kindLetters[p.Kind]
	if p.Side == White {
		c -= 'a' - 'A'
	}
	return c
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return ""
	}
	return string(p.Letter())
}

// PieceFromLetter is the inverse of Letter.
func PieceFromLetter(c byte) (Piece, bool) {
	if c == '.' {
		return NoPiece, true
	}
	side := Black
	lower := c
	if c >= 'A' && c <= 'Z' {
		side = White
		lower = c + ('a' - 'A')
	}
	for k, l := range kindLetters {
		if Kind(k) != NoKind && l == lower {
			return Piece{Kind: Kind(k), Side: side}, true
		}
	}
	return NoPiece, false
}

// Square addresses a cell by grid indices: Row 0 is rank 8, Col 0 is file a.
type Square struct {
	Row int
	Col int
}

// ParseSquare converts algebraic notation such as "e2".
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	file, rank := s[0], s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return Square{Row: 8 - int(rank-'0'), Col: int(file - 'a')}, nil
}

// MustSquare panics on malformed input. Intended for fixtures.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

func (sq Square) Valid() bool {
	return sq.Row >= 0 && sq.Row < 8 && sq.Col >= 0 && sq.Col < 8
}

func (sq Square) String() string {
	if !sq.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + sq.Col), byte('0' + 8 - sq.Row)})
}

// Move is a from/to pair.
type Move struct {
	From Square
	To   Square
}

func (m Move) String() string { return m.From.String() + m.To.String() }
