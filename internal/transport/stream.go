package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRecordTooLarge is returned when an inbound record exceeds the size cap.
var ErrRecordTooLarge = errors.New("record too large")

// budgetReader fails once more than its budget has been read since the last
// reset. The decoder may have buffered part of the next record already, so
// a single record can use at most twice the budget.
type budgetReader struct {
	r    io.Reader
	left int64
}

func (b *budgetReader) reset(n int64) { b.left = n }

func (b *budgetReader) Read(p []byte) (int, error) {
	if b.left <= 0 {
		return 0, ErrRecordTooLarge
	}
	if int64(len(p)) > b.left {
		p = p[:b.left]
	}
	n, err := b.r.Read(p)
	b.left -= int64(n)
	return n, err
}

// StreamConn frames records on a byte stream. Inbound records are
// consecutive JSON values, with or without separating whitespace; outbound
// records are written one per line.
type StreamConn struct {
	id     string
	conn   net.Conn
	budget *budgetReader
	dec    *json.Decoder

	readTimeout  time.Duration
	writeTimeout time.Duration

	wmu       sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

type StreamOption func(*StreamConn)

// WithReadTimeout bounds the wait for each inbound record.
func WithReadTimeout(d time.Duration) StreamOption {
	return func(c *StreamConn) { c.readTimeout = d }
}

// WithWriteTimeout bounds each outbound write.
func WithWriteTimeout(d time.Duration) StreamOption {
	return func(c *StreamConn) { c.writeTimeout = d }
}

func NewStreamConn(conn net.Conn, opts ...StreamOption) *StreamConn {
	budget := &budgetReader{r: conn}
	c := &StreamConn{
		id:     uuid.NewString(),
		conn:   conn,
		budget: budget,
		dec:    json.NewDecoder(budget),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *StreamConn) ID() string         { return c.id }
func (c *StreamConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

// Receive returns the raw bytes of the next JSON value. A malformed or
// oversized value leaves the decoder unusable, so any error should end the
// session.
func (c *StreamConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, ErrClosed
	default:
	}
	var deadline time.Time
	if c.readTimeout > 0 {
		deadline = time.Now().Add(c.readTimeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	c.budget.reset(maxFrame)
	var raw json.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return raw, nil
}

// Send writes v as a single line. Concurrent sends never interleave.
func (c *StreamConn) Send(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	b = append(b, '\n')

	c.wmu.Lock()
	defer c.wmu.Unlock()
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	var deadline time.Time
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err = c.conn.Write(b)
	return err
}

func (c *StreamConn) Close() error {
	err := ErrClosed
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
