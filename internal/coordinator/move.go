package coordinator

import (
	"context"
	"errors"

	"github.com/park285/chess-room-server/internal/chess"
	"github.com/park285/chess-room-server/internal/lobby"
	"github.com/park285/chess-room-server/pkg/chessdto"
	"go.uber.org/zap"
)

// errRejected marks a move answered with a fail reply. It never leaves
// handleMove.
var errRejected = errors.New("move rejected")

func (c *Coordinator) handleMove(ctx context.Context, s *session, m *chessdto.Move) error {
	if s.room == nil {
		return c.fail(ctx, s, "move.not_joined", nil)
	}
	room := s.room
	err := room.Update(func(st *lobby.State) error {
		return c.playMove(ctx, s, st, m)
	})
	if errors.Is(err, errRejected) {
		return nil
	}
	// a failed reply can still follow an applied move
	c.reg.Refresh(ctx, room)
	return err
}

// playMove runs under the room lock: every check, the board change, the
// turn flip and both notifications happen without interleaving with the
// opponent.
func (c *Coordinator) playMove(ctx context.Context, s *session, st *lobby.State, m *chessdto.Move) error {
	mover, ok := st.Member(s.conn.ID())
	if !ok {
		return c.reject(ctx, s, "move.not_joined", nil)
	}
	switch st.Phase {
	case lobby.PhaseForming:
		return c.reject(ctx, s, "move.waiting", nil)
	case lobby.PhaseFinished:
		return c.reject(ctx, s, "move.game_over", nil)
	}
	if st.Turn != mover.Side {
		return c.reject(ctx, s, "move.not_your_turn", map[string]any{"Turn": st.Turn.String()})
	}
	from, err := chess.ParseSquare(m.SelectedPos)
	if err != nil {
		return c.reject(ctx, s, "move.invalid_square", map[string]any{"Square": m.SelectedPos})
	}
	to, err := chess.ParseSquare(m.TargetPos)
	if err != nil {
		return c.reject(ctx, s, "move.invalid_square", map[string]any{"Square": m.TargetPos})
	}
	if p := st.Board.At(from); !p.IsEmpty() && p.Side != mover.Side {
		return c.reject(ctx, s, "move.not_owner", map[string]any{"From": from.String()})
	}
	promo, _ := chess.ParsePromotion(m.PromotionTo)

	out, err := st.Board.ApplyMove(from, to, mover.Side, promo)
	if err != nil {
		s.log.Debug("move_rejected", zap.String("from", from.String()), zap.String("to", to.String()), zap.Error(err))
		return c.reject(ctx, s, "move.invalid", nil)
	}

	now := c.now()
	st.Advance(now)
	opponent, _ := st.Opponent(mover.ID())
	next := st.Turn

	res := chessdto.MoveResult{
		Status:       chessdto.StatusSuccess,
		Message:      c.cat.Text("move.ok", nil),
		From:         from.String(),
		To:           to.String(),
		MoverName:    mover.Name,
		OpponentName: opponent.Name,
		Check:        st.Board.InCheck(next),
	}
	if !out.Captured.IsEmpty() {
		taken := out.Captured.String()
		res.Captured = &taken
	}
	if out.Promoted != chess.NoKind {
		res.PromotedTo = out.Promoted.String()
	}
	res.Checkmate = res.Check && !st.Board.HasLegalMove(next)

	if out.KingCaptured() || (c.endOnCheckmate && res.Checkmate) {
		st.Finish(mover.Side, now)
		res.GameOver = true
		res.Winner = mover.Side.String()
		res.WinnerName = mover.Name
		res.Message = c.cat.Text("move.win", map[string]any{"WinnerName": mover.Name})
	} else {
		res.Turn = next.String()
	}
	res.FEN = st.Board.FEN(next, st.Fullmove())

	s.log.Info("move_applied",
		zap.String("from", res.From),
		zap.String("to", res.To),
		zap.String("captured", res.CapturedPiece()),
		zap.String("promoted", res.PromotedTo),
		zap.Int("ply", st.Plies),
		zap.Bool("check", res.Check),
	)
	if res.GameOver {
		s.log.Info("game_over", zap.String("winner", res.Winner), zap.String("winner_name", res.WinnerName), zap.Bool("checkmate", res.Checkmate))
	}

	// The move is already applied, so the opponent hears about it even when
	// the mover's own connection is broken.
	replyErr := s.conn.Send(ctx, res)
	if err := st.SendOthers(ctx, mover.ID(), res.AsUpdate()); err != nil {
		s.log.Warn("broadcast_error", zap.String("type", chessdto.TypeUpdate), zap.Error(err))
	}
	return replyErr
}

// reject answers the mover and reports errRejected so the caller knows the
// state was not touched.
func (c *Coordinator) reject(ctx context.Context, s *session, key string, data map[string]any) error {
	if err := c.fail(ctx, s, key, data); err != nil {
		return err
	}
	return errRejected
}

func (c *Coordinator) fail(ctx context.Context, s *session, key string, data map[string]any) error {
	return s.conn.Send(ctx, chessdto.Reply{Status: chessdto.StatusFail, Message: c.cat.Text(key, data)})
}
