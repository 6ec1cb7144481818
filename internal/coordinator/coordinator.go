// Package coordinator runs the per-connection protocol: joining a room,
// relaying moves through the rules engine and cleaning up on disconnect.
package coordinator

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/park285/chess-room-server/internal/lobby"
	"github.com/park285/chess-room-server/internal/msgcat"
	"github.com/park285/chess-room-server/internal/obslog"
	"github.com/park285/chess-room-server/internal/transport"
	"github.com/park285/chess-room-server/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Coordinator serves connections against one registry. It is safe for
// concurrent use; all per-connection state lives in HandleSession.
type Coordinator struct {
	reg    *lobby.Registry
	cat    *msgcat.Catalog
	logger *zap.Logger
	now    func() time.Time

	endOnCheckmate     bool
	notifyOpponentLeft bool
}

type Option func(*Coordinator)

func WithCatalog(c *msgcat.Catalog) Option {
	return func(co *Coordinator) {
		if c != nil {
			co.cat = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(co *Coordinator) {
		if l != nil {
			co.logger = l
		}
	}
}

// WithEndOnCheckmate ends the game when a move checkmates the opponent.
// King capture always ends it.
func WithEndOnCheckmate(on bool) Option {
	return func(co *Coordinator) { co.endOnCheckmate = on }
}

// WithNotifyOpponentLeft tells the remaining member when the other one
// disconnects.
func WithNotifyOpponentLeft(on bool) Option {
	return func(co *Coordinator) { co.notifyOpponentLeft = on }
}

func WithClock(now func() time.Time) Option {
	return func(co *Coordinator) { co.now = now }
}

func New(reg *lobby.Registry, opts ...Option) *Coordinator {
	co := &Coordinator{
		reg:                reg,
		logger:             obslog.L(),
		now:                time.Now,
		endOnCheckmate:     true,
		notifyOpponentLeft: true,
	}
	for _, opt := range opts {
		opt(co)
	}
	if co.cat == nil {
		co.cat = msgcat.Default()
	}
	return co
}

// session is the coordinator's view of one connection.
type session struct {
	conn transport.Conn
	log  *zap.Logger

	room *lobby.Room // nil while unjoined
	name string
}

// HandleSession runs the protocol on conn until the peer disconnects, a
// transport error occurs or ctx is cancelled. It always leaves the room and
// closes conn before returning. A clean disconnect returns nil.
func (c *Coordinator) HandleSession(ctx context.Context, conn transport.Conn) error {
	s := &session{
		conn: conn,
		log:  c.logger.With(zap.String("conn", conn.ID()), zap.String("remote", conn.RemoteAddr())),
	}
	s.log.Info("session_start")

	err := c.serve(ctx, s)
	c.terminate(ctx, s)

	if isDisconnect(ctx, err) {
		s.log.Info("session_end")
		return nil
	}
	s.log.Warn("session_end", zap.Error(err))
	return err
}

func (c *Coordinator) serve(ctx context.Context, s *session) error {
	for {
		raw, err := s.conn.Receive(ctx)
		if err != nil {
			return err
		}
		in, err := chessdto.DecodeInbound(raw)
		if errors.Is(err, chessdto.ErrProtocol) {
			s.log.Debug("malformed_message", zap.Error(err))
			if err := s.conn.Send(ctx, chessdto.Reply{Status: chessdto.StatusFail, Message: c.cat.Text("protocol.malformed", nil)}); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if err := c.dispatch(ctx, s, in); err != nil {
			return err
		}
	}
}

// dispatch handles one inbound record. Only transport failures are returned.
func (c *Coordinator) dispatch(ctx context.Context, s *session, in *chessdto.Inbound) error {
	switch in.Type {
	case chessdto.TypeJoin:
		return c.handleJoin(ctx, s, in.Join)
	case chessdto.TypeMove:
		return c.handleMove(ctx, s, in.Move)
	default:
		s.log.Debug("unknown_message", zap.String("type", in.Type))
		return s.conn.Send(ctx, chessdto.Reply{Status: chessdto.StatusFail, Message: c.cat.Text("protocol.unknown", nil)})
	}
}

// terminate leaves the room and releases the connection. The remaining
// member, if any, is told about it.
func (c *Coordinator) terminate(ctx context.Context, s *session) {
	ctx = context.WithoutCancel(ctx)
	if d := c.reg.Leave(ctx, s.conn); d != nil && !d.Emptied && c.notifyOpponentLeft {
		c.announceDeparture(ctx, d)
	}
	s.room = nil
	_ = s.conn.Close()
}

func (c *Coordinator) announceDeparture(ctx context.Context, d *lobby.Departure) {
	left := chessdto.OpponentLeft{
		Type:    chessdto.TypeOpponentLeft,
		Room:    d.Room.ID,
		Name:    d.Member.Name,
		Message: c.cat.Text("lobby.opponent_left", map[string]any{"Name": d.Member.Name}),
	}
	_ = d.Room.Update(func(st *lobby.State) error {
		update := lobbyUpdate(d.Room.ID, st)
		for _, m := range d.Remaining {
			// skip anyone who left or was replaced since
			if _, ok := st.Member(m.ID()); !ok {
				continue
			}
			if err := m.Participant.Send(ctx, left); err != nil {
				c.logger.Warn("notify_error", zap.String("room", d.Room.ID), zap.String("conn", m.ID()), zap.Error(err))
				continue
			}
			if err := m.Participant.Send(ctx, update); err != nil {
				c.logger.Warn("notify_error", zap.String("room", d.Room.ID), zap.String("conn", m.ID()), zap.Error(err))
			}
		}
		return nil
	})
}

func lobbyUpdate(roomID string, st *lobby.State) chessdto.LobbyUpdate {
	members := st.Members()
	u := chessdto.LobbyUpdate{
		Type:    chessdto.TypeLobbyUpdate,
		Room:    roomID,
		Players: make([]string, 0, len(members)),
		Names:   make([]string, 0, len(members)),
		Total:   len(members),
	}
	for _, m := range members {
		u.Players = append(u.Players, m.Side.String())
		u.Names = append(u.Names, m.Name)
	}
	return u
}

func isDisconnect(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, transport.ErrClosed) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
