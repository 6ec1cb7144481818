package lobby

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestDirectory(t *testing.T) (*RedisDirectory, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb, err := NewRedisClient(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisDirectory(rdb, ""), mr
}

func TestRedisDirectoryFollowsRegistry(t *testing.T) {
	dir, mr := newTestDirectory(t)
	r := NewRegistry(WithDirectory(dir))
	ctx := context.Background()
	a, b := newPeer("a"), newPeer("b")

	if _, err := r.Join(ctx, "R1", "Alice", a); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := r.Join(ctx, "R1", "Bob", b); err != nil {
		t.Fatalf("join: %v", err)
	}
	rooms, err := dir.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Phase != PhaseActive || len(rooms[0].Players) != 2 {
		t.Fatalf("unexpected directory contents: %+v", rooms)
	}
	if ttl := mr.TTL("chess:room:R1"); ttl <= 0 || ttl > ttlRoom {
		t.Fatalf("room key should carry a ttl, got %v", ttl)
	}

	r.Leave(ctx, a)
	rooms, _ = dir.List(ctx)
	if len(rooms) != 1 || rooms[0].Phase != PhaseForming {
		t.Fatalf("expected forming room after leave: %+v", rooms)
	}
	r.Leave(ctx, b)
	rooms, _ = dir.List(ctx)
	if len(rooms) != 0 {
		t.Fatalf("expected empty directory, got %+v", rooms)
	}
	if mr.Exists("chess:room:R1") {
		t.Fatalf("room key should be deleted")
	}
}

func TestRedisDirectoryPrunesExpired(t *testing.T) {
	dir, mr := newTestDirectory(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, id := range []string{"b", "a"} {
		if err := dir.Publish(ctx, RoomInfo{ID: id, Phase: PhaseForming, CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	mr.Del("chess:room:b")

	rooms, err := dir.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != "a" {
		t.Fatalf("expected only room a, got %+v", rooms)
	}
	if ok, _ := mr.SIsMember("chess:rooms", "b"); ok {
		t.Fatalf("stale id should be pruned from the index")
	}
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := NewRedisClient(context.Background(), "://nope"); err == nil {
		t.Fatalf("expected error for malformed url")
	}
}

var _ Directory = (*RedisDirectory)(nil)
