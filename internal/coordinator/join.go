package coordinator

import (
	"context"
	"errors"

	"github.com/park285/chess-room-server/internal/lobby"
	"github.com/park285/chess-room-server/pkg/chessdto"
	"go.uber.org/zap"
)

func (c *Coordinator) handleJoin(ctx context.Context, s *session, j *chessdto.Join) error {
	if s.room != nil {
		return c.rejectJoin(ctx, s, "join.already_joined", map[string]any{"Room": s.room.ID}, lobby.ErrAlreadyJoined)
	}
	a, err := c.reg.Join(ctx, j.Room, j.Name, s.conn)
	if err != nil {
		switch {
		case errors.Is(err, lobby.ErrRoomFull):
			return c.rejectJoin(ctx, s, "join.room_full", nil, err)
		case errors.Is(err, lobby.ErrInvalidRoom):
			return c.rejectJoin(ctx, s, "join.room_required", nil, err)
		case errors.Is(err, lobby.ErrAlreadyJoined):
			return c.rejectJoin(ctx, s, "join.already_joined", map[string]any{"Room": j.Room}, err)
		default:
			return c.rejectJoin(ctx, s, "join.failed", map[string]any{"Room": j.Room}, err)
		}
	}
	s.room = a.Room
	s.name = a.Name
	s.log = s.log.With(zap.String("room", a.Room.ID), zap.String("side", a.Side.String()))

	return a.Room.Update(func(st *lobby.State) error {
		ack := chessdto.JoinOK{
			Type:    chessdto.TypeJoinOK,
			Room:    a.Room.ID,
			Role:    a.Side.String(),
			Players: len(st.Members()),
		}
		if err := s.conn.Send(ctx, ack); err != nil {
			return err
		}
		if err := st.Broadcast(ctx, lobbyUpdate(a.Room.ID, st)); err != nil {
			s.log.Warn("broadcast_error", zap.String("type", chessdto.TypeLobbyUpdate), zap.Error(err))
		}
		if st.ClaimStart() {
			start := chessdto.GameStart{Type: chessdto.TypeGameStart, Message: c.cat.Text("game.start", nil)}
			if err := st.Broadcast(ctx, start); err != nil {
				s.log.Warn("broadcast_error", zap.String("type", chessdto.TypeGameStart), zap.Error(err))
			}
			s.log.Info("game_start")
		}
		return nil
	})
}

func (c *Coordinator) rejectJoin(ctx context.Context, s *session, key string, data map[string]any, cause error) error {
	s.log.Info("join_rejected", zap.Error(cause))
	return s.conn.Send(ctx, chessdto.JoinFail{Type: chessdto.TypeJoinFail, Message: c.cat.Text(key, data)})
}
