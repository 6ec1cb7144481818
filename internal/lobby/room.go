package lobby

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/park285/chess-room-server/internal/chess"
)

// Room is one game session. Seating and game state are locked separately:
// the registry edits seats under its own lock without ever waiting on the
// game lock, which a session may hold while writing to a slow peer. The game
// state catches up with the seats whenever the game lock is taken.
type Room struct {
	ID        string
	createdAt time.Time
	clock     func() time.Time

	// seatMu is a leaf lock: nothing else is acquired while it is held.
	seatMu sync.Mutex
	seats  []Member
	rev    uint64 // bumped on every seat change

	mu    sync.Mutex
	state State
}

// State is the mutable part of a room. It is only valid inside Update.
type State struct {
	Board  *chess.Board
	Turn   chess.Side
	Phase  Phase
	Winner chess.Side
	Plies  int

	members   []Member
	rev       uint64 // seat revision members was copied from
	announced bool
	updatedAt time.Time
}

func newRoom(id string, clock func() time.Time) *Room {
	now := clock()
	return &Room{
		ID:        id,
		createdAt: now,
		clock:     clock,
		state: State{
			Board:     chess.NewBoard(),
			Turn:      chess.White,
			Phase:     PhaseForming,
			updatedAt: now,
		},
	}
}

// Update runs fn with exclusive access to the room state.
func (r *Room) Update(fn func(st *State) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncLocked()
	return fn(&r.state)
}

// Info returns a summary of the room.
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncLocked()
	return r.infoLocked()
}

// reserve seats p on the first free side, white before black.
func (r *Room) reserve(p Participant, name string, now time.Time) (Member, error) {
	r.seatMu.Lock()
	defer r.seatMu.Unlock()
	if len(r.seats) >= MaxMembers {
		return Member{}, ErrRoomFull
	}
	side := chess.White
	for _, m := range r.seats {
		if m.Side == chess.White {
			side = chess.Black
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = side.String()
	}
	m := Member{Participant: p, Name: name, Side: side, JoinedAt: now}
	r.seats = append(r.seats, m)
	r.rev++
	return m, nil
}

// release frees the seat held by id and returns who is left.
func (r *Room) release(id string) (Member, []Member) {
	r.seatMu.Lock()
	defer r.seatMu.Unlock()
	var gone Member
	for i, m := range r.seats {
		if m.ID() == id {
			gone = m
			r.seats = append(r.seats[:i:i], r.seats[i+1:]...)
			r.rev++
			break
		}
	}
	return gone, append([]Member(nil), r.seats...)
}

func (r *Room) roster() ([]Member, uint64) {
	r.seatMu.Lock()
	defer r.seatMu.Unlock()
	return append([]Member(nil), r.seats...), r.rev
}

// syncLocked brings the game state in line with the seats. Any roster
// change starts a fresh game once both sides are filled and suspends the
// game otherwise. Caller holds r.mu.
func (r *Room) syncLocked() (started, abandoned bool) {
	seats, rev := r.roster()
	st := &r.state
	if rev == st.rev {
		return false, false
	}
	now := r.clock()
	abandoned = st.Phase == PhaseActive
	st.members = seats
	st.rev = rev
	st.updatedAt = now
	if len(seats) == MaxMembers {
		st.activate(now)
		return true, abandoned
	}
	st.Phase = PhaseForming
	st.Winner = chess.NoSide
	return false, abandoned
}

func (r *Room) infoLocked() RoomInfo {
	st := &r.state
	info := RoomInfo{
		ID:        r.ID,
		Phase:     st.Phase,
		Plies:     st.Plies,
		Players:   make([]PlayerInfo, 0, len(st.members)),
		CreatedAt: r.createdAt,
		UpdatedAt: st.updatedAt,
	}
	if st.Phase == PhaseActive {
		info.Turn = st.Turn.String()
	}
	if st.Winner != chess.NoSide {
		info.Winner = st.Winner.String()
	}
	for _, m := range st.members {
		info.Players = append(info.Players, PlayerInfo{Name: m.Name, Side: m.Side.String()})
	}
	return info
}

// Members returns the seated members in join order.
func (s *State) Members() []Member {
	return append([]Member(nil), s.members...)
}

// Member looks up a seated participant.
func (s *State) Member(id string) (Member, bool) {
	for _, m := range s.members {
		if m.ID() == id {
			return m, true
		}
	}
	return Member{}, false
}

// Opponent returns the other seated participant, if any.
func (s *State) Opponent(id string) (Member, bool) {
	for _, m := range s.members {
		if m.ID() != id {
			return m, true
		}
	}
	return Member{}, false
}

// Active reports whether moves are currently accepted.
func (s *State) Active() bool { return s.Phase == PhaseActive }

// Advance records a successful move and hands the turn over.
func (s *State) Advance(now time.Time) {
	s.Plies++
	s.Turn = s.Turn.Opponent()
	s.updatedAt = now
}

// Finish ends the game in favour of winner.
func (s *State) Finish(winner chess.Side, now time.Time) {
	s.Phase = PhaseFinished
	s.Winner = winner
	s.updatedAt = now
}

// ClaimStart reports true exactly once per game, the first time it is called
// while a freshly started game has both members seated.
func (s *State) ClaimStart() bool {
	if s.Phase != PhaseActive || s.announced || len(s.members) != MaxMembers {
		return false
	}
	s.announced = true
	return true
}

// Fullmove is the FEN move number for the current position.
func (s *State) Fullmove() int { return s.Plies/2 + 1 }

// activate starts a fresh game.
func (s *State) activate(now time.Time) {
	s.Board.Reset()
	s.Turn = chess.White
	s.Phase = PhaseActive
	s.Winner = chess.NoSide
	s.Plies = 0
	s.announced = false
	s.updatedAt = now
}

// Broadcast sends msg to every member. A failing member does not stop
// delivery to the others; all failures are returned together.
func (s *State) Broadcast(ctx context.Context, msg any) error {
	return s.SendOthers(ctx, "", msg)
}

// SendOthers sends msg to every member except exceptID.
func (s *State) SendOthers(ctx context.Context, exceptID string, msg any) error {
	var errs *multierror.Error
	for _, m := range s.members {
		if exceptID != "" && m.ID() == exceptID {
			continue
		}
		if err := m.Participant.Send(ctx, msg); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("send to %s: %w", m.ID(), err))
		}
	}
	return errs.ErrorOrNil()
}
