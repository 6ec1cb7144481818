package lobby

import (
	"context"
	"time"

	"github.com/park285/chess-room-server/internal/chess"
)

// MaxMembers is the room capacity.
const MaxMembers = 2

// Participant is one live connection that can be seated in a room.
type Participant interface {
	ID() string
	Send(ctx context.Context, msg any) error
}

// Phase represents a room lifecycle state.
type Phase string

const (
	PhaseForming  Phase = "FORMING"
	PhaseActive   Phase = "ACTIVE"
	PhaseFinished Phase = "FINISHED"
)

// Member is a seated participant.
type Member struct {
	Participant Participant
	Name        string
	Side        chess.Side
	JoinedAt    time.Time
}

// ID is shorthand for the participant id.
func (m Member) ID() string { return m.Participant.ID() }

// PlayerInfo is the public part of a Member.
type PlayerInfo struct {
	Name string `json:"name"`
	Side string `json:"side"`
}

// RoomInfo is a point-in-time summary of a room, used by the directory and
// the status endpoint. It never includes the board.
type RoomInfo struct {
	ID        string       `json:"id"`
	Phase     Phase        `json:"phase"`
	Turn      string       `json:"turn,omitempty"`
	Winner    string       `json:"winner,omitempty"`
	Plies     int          `json:"plies"`
	Players   []PlayerInfo `json:"players"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Assignment is the result of a successful Join.
type Assignment struct {
	Room   *Room
	Side   chess.Side
	Name   string
	Roster []Member
	// Created is set when this join opened the room.
	Created bool
	// Started is set when this join seated the second player.
	Started bool
}

// Departure is the result of Leave for a participant that was seated.
type Departure struct {
	Room      *Room
	Member    Member
	Remaining []Member
	// Emptied is set when the room was discarded.
	Emptied bool
	// Abandoned is set when a game in progress lost a player.
	Abandoned bool
}

// Errors
var (
	ErrInvalidArgs   = errf("invalid arguments")
	ErrInvalidRoom   = errf("room name is required")
	ErrRoomFull      = errf("room already has two participants")
	ErrAlreadyJoined = errf("participant already seated in a room")
	ErrRoomNotFound  = errf("room not found")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
