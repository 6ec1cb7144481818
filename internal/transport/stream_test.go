package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipe(t *testing.T, opts ...StreamOption) (*StreamConn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	c := NewStreamConn(server, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, client
}

func TestStreamReceiveBackToBackRecords(t *testing.T) {
	c, client := pipe(t)
	go func() {
		_, _ = client.Write([]byte(`{"type":"JOIN","name":"A","room":"R1"}{"type":"MOVE"}` + "\n" + `  {"type":"X"}`))
	}()

	ctx := context.Background()
	want := []string{`{"type":"JOIN","name":"A","room":"R1"}`, `{"type":"MOVE"}`, `{"type":"X"}`}
	for _, w := range want {
		raw, err := c.Receive(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, w, string(raw))
	}
}

func TestStreamReceiveEOF(t *testing.T) {
	c, client := pipe(t)
	_ = client.Close()
	_, err := c.Receive(context.Background())
	assert.True(t, errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe), "got %v", err)
}

func TestStreamReceiveMalformed(t *testing.T) {
	c, client := pipe(t)
	go func() { _, _ = client.Write([]byte(`{"type": nope}`)) }()
	_, err := c.Receive(context.Background())
	assert.Error(t, err)
}

func TestStreamReceiveOversizedRecord(t *testing.T) {
	c, client := pipe(t)
	go func() {
		_, _ = client.Write([]byte(`{"type":"JOIN","room":"R1"}`))
		_, _ = client.Write([]byte(`{"type":"` + strings.Repeat("a", 3*maxFrame)))
	}()

	ctx := context.Background()
	raw, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"JOIN","room":"R1"}`, string(raw))

	_, err = c.Receive(ctx)
	assert.ErrorIs(t, err, ErrRecordTooLarge)
}

func TestStreamBudgetIsPerRecord(t *testing.T) {
	c, client := pipe(t)
	rec := `{"pad":"` + strings.Repeat("x", maxFrame/2) + `"}`
	go func() {
		for i := 0; i < 4; i++ {
			_, _ = client.Write([]byte(rec))
		}
	}()
	for i := 0; i < 4; i++ {
		raw, err := c.Receive(context.Background())
		require.NoError(t, err, "record %d", i)
		assert.Len(t, raw, len(rec))
	}
}

func TestStreamReceiveHonoursContext(t *testing.T) {
	c, _ := pipe(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamReadTimeout(t *testing.T) {
	c, _ := pipe(t, WithReadTimeout(30*time.Millisecond))
	_, err := c.Receive(context.Background())
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}

func TestStreamSendWritesLines(t *testing.T) {
	c, client := pipe(t, WithWriteTimeout(time.Second))
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Send(ctx, map[string]int{"seq": i}))
		}(i)
	}

	seen := map[int]bool{}
	sc := bufio.NewScanner(client)
	for len(seen) < n && sc.Scan() {
		var rec map[string]int
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), "line %q", sc.Text())
		seen[rec["seq"]] = true
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestStreamClosed(t *testing.T) {
	c, _ := pipe(t)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClosed)
	assert.ErrorIs(t, c.Send(context.Background(), "x"), ErrClosed)
	_, err := c.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NotEmpty(t, c.ID())
}
