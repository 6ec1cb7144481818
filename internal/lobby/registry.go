package lobby

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/chess-room-server/internal/obslog"
	"go.uber.org/zap"
)

const directoryTimeout = 2 * time.Second

// Registry owns every live room. Its lock guards the room map, the
// participant index and seat changes. It is never held while waiting on a
// room's game lock, so a room stuck behind a slow peer cannot stall the
// others.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	byPeer map[string]*Room // participant id -> room

	dir    Directory
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Registry)

// WithDirectory mirrors room summaries into d.
func WithDirectory(d Directory) Option {
	return func(r *Registry) {
		if d != nil {
			r.dir = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:  make(map[string]*Room),
		byPeer: make(map[string]*Room),
		dir:    NopDirectory{},
		logger: obslog.L(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Join seats p in roomID, creating the room if needed. The first free side
// is assigned, white before black.
func (r *Registry) Join(ctx context.Context, roomID, name string, p Participant) (*Assignment, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrInvalidRoom
	}
	if p == nil || strings.TrimSpace(p.ID()) == "" {
		return nil, ErrInvalidArgs
	}

	r.mu.Lock()
	if cur, ok := r.byPeer[p.ID()]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyJoined, cur.ID)
	}
	room, exists := r.rooms[roomID]
	if !exists {
		room = newRoom(roomID, r.now)
	}
	m, err := room.reserve(p, name, r.now())
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if !exists {
		r.rooms[roomID] = room
	}
	r.byPeer[p.ID()] = room
	r.mu.Unlock()

	// only this join waits if a session is mid-write on the room
	room.mu.Lock()
	started, _ := room.syncLocked()
	roster := room.state.Members()
	info := room.infoLocked()
	room.mu.Unlock()

	r.logger.Info("room_join",
		zap.String("room", roomID),
		zap.String("participant", p.ID()),
		zap.String("name", m.Name),
		zap.String("side", m.Side.String()),
		zap.Int("members", len(roster)),
		zap.Bool("started", started),
	)
	r.publish(ctx, info)

	return &Assignment{Room: room, Side: m.Side, Name: m.Name, Roster: roster, Created: !exists, Started: started}, nil
}

// Leave unseats p. It returns nil when p is not seated, so repeated calls
// are harmless.
func (r *Registry) Leave(ctx context.Context, p Participant) *Departure {
	if p == nil {
		return nil
	}

	r.mu.Lock()
	room, ok := r.byPeer[p.ID()]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.byPeer, p.ID())
	member, remaining := room.release(p.ID())
	emptied := len(remaining) == 0
	if emptied && r.rooms[room.ID] == room {
		delete(r.rooms, room.ID)
	}
	r.mu.Unlock()

	room.mu.Lock()
	_, abandoned := room.syncLocked()
	info := room.infoLocked()
	room.mu.Unlock()

	r.logger.Info("room_leave",
		zap.String("room", room.ID),
		zap.String("participant", p.ID()),
		zap.String("name", member.Name),
		zap.Int("members", len(remaining)),
		zap.Bool("abandoned", abandoned),
	)
	if emptied {
		r.unpublish(ctx, room.ID)
	} else {
		r.publish(ctx, info)
	}
	return &Departure{Room: room, Member: member, Remaining: remaining, Emptied: emptied, Abandoned: abandoned}
}

// Get returns the live room with the given id.
func (r *Registry) Get(roomID string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[strings.TrimSpace(roomID)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// RoomOf returns the room p is seated in.
func (r *Registry) RoomOf(p Participant) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byPeer[p.ID()]
	return room, ok
}

// Len is the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Snapshot summarises every live room, ordered by id.
func (r *Registry) Snapshot() []RoomInfo {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Refresh republishes a room summary after a non-structural change such as
// a move.
func (r *Registry) Refresh(ctx context.Context, room *Room) {
	if room == nil {
		return
	}
	r.publish(ctx, room.Info())
}

func (r *Registry) publish(ctx context.Context, info RoomInfo) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), directoryTimeout)
	defer cancel()
	if err := r.dir.Publish(dctx, info); err != nil {
		r.logger.Warn("directory_publish_error", zap.String("room", info.ID), zap.Error(err))
	}
}

func (r *Registry) unpublish(ctx context.Context, roomID string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), directoryTimeout)
	defer cancel()
	if err := r.dir.Remove(dctx, roomID); err != nil {
		r.logger.Warn("directory_remove_error", zap.String("room", roomID), zap.Error(err))
	}
}
