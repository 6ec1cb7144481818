// Package chessdto defines the JSON records exchanged between the chess
// server and its clients.
package chessdto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Message types.
const (
	TypeJoin         = "JOIN"
	TypeMove         = "MOVE"
	TypeJoinOK       = "JOIN_OK"
	TypeJoinFail     = "JOIN_FAIL"
	TypeLobbyUpdate  = "LOBBY_UPDATE"
	TypeGameStart    = "GAME_START"
	TypeUpdate       = "UPDATE"
	TypeOpponentLeft = "OPPONENT_LEFT"
)

// Reply statuses.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Envelope carries only the discriminator of an inbound record.
type Envelope struct {
	Type string `json:"type"`
}

// Join asks to enter a named room.
type Join struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Room string `json:"room"`
}

// Move asks to move a piece. PromotionTo is optional.
type Move struct {
	Type        string `json:"type"`
	SelectedPos string `json:"selected_pos"`
	TargetPos   string `json:"target_pos"`
	PromotionTo string `json:"promotion_to,omitempty"`
}

// Inbound is a decoded client record. Exactly one of Join or Move is set for
// known types.
type Inbound struct {
	Type string
	Join *Join
	Move *Move
}

// ErrProtocol marks a well-formed JSON value that is not a valid client
// record, such as an array or a field of the wrong type.
var ErrProtocol = errors.New("protocol error")

// DecodeInbound parses one client record. Unknown types decode without error
// and leave both payloads nil. Shape errors wrap ErrProtocol; bytes that are
// not JSON at all do not.
func DecodeInbound(raw []byte) (*Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, decodeErr("envelope", err)
	}
	in := &Inbound{Type: strings.ToUpper(strings.TrimSpace(env.Type))}
	switch in.Type {
	case TypeJoin:
		var j Join
		if err := json.Unmarshal(raw, &j); err != nil {
			return nil, decodeErr("join", err)
		}
		in.Join = &j
	case TypeMove:
		var m Move
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, decodeErr("move", err)
		}
		in.Move = &m
	}
	return in, nil
}

func decodeErr(what string, err error) error {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return fmt.Errorf("%w: decode %s: %w", ErrProtocol, what, err)
}

// JoinOK acknowledges a join to the joining connection.
type JoinOK struct {
	Type    string `json:"type"`
	Room    string `json:"room"`
	Role    string `json:"role"`
	Players int    `json:"players"`
}

// JoinFail rejects a join.
type JoinFail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// LobbyUpdate is broadcast whenever a room's roster changes. Players lists
// the sides in join order; Names lists the matching display names.
type LobbyUpdate struct {
	Type    string   `json:"type"`
	Room    string   `json:"room"`
	Players []string `json:"players"`
	Names   []string `json:"names"`
	Total   int      `json:"total"`
}

// GameStart is broadcast when a room reaches two participants.
type GameStart struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OpponentLeft tells the remaining participant that the other one is gone.
type OpponentLeft struct {
	Type    string `json:"type"`
	Room    string `json:"room"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Reply is a plain status answer to the originating connection.
type Reply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MoveResult is sent to the mover (Type empty) and, as an UPDATE, to the
// opponent.
type MoveResult struct {
	Type         string  `json:"type,omitempty"`
	Status       string  `json:"status"`
	Message      string  `json:"message,omitempty"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	Captured     *string `json:"captured"` // null when nothing was taken
	GameOver     bool    `json:"game_over"`
	Winner       string  `json:"winner,omitempty"`
	PromotedTo   string  `json:"promoted_to,omitempty"`
	MoverName    string  `json:"mover_name"`
	OpponentName string  `json:"opponent_name"`
	WinnerName   string  `json:"winner_name,omitempty"`
	Check        bool    `json:"check"`
	Checkmate    bool    `json:"checkmate"`
	Turn         string  `json:"turn,omitempty"`
	FEN          string  `json:"fen,omitempty"`
}

// CapturedPiece returns the captured letter, or "" for a quiet move.
func (r MoveResult) CapturedPiece() string {
	if r.Captured == nil {
		return ""
	}
	return *r.Captured
}

// AsUpdate returns the opponent's copy of a mover reply.
func (r MoveResult) AsUpdate() MoveResult {
	r.Type = TypeUpdate
	r.Message = ""
	return r
}
