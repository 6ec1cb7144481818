package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/chess-room-server/internal/lobby"
	"github.com/park285/chess-room-server/internal/statusclient"
)

const usage = `usage: roomctl [flags] health|rooms

flags:
`

func main() {
	fs := flag.NewFlagSet("roomctl", flag.ExitOnError)
	addr := fs.String("addr", envDefault("STATUS_URL", "http://127.0.0.1:8080"), "status endpoint base URL")
	redisURL := fs.String("redis", "", "read rooms from the Redis directory at this URL instead")
	namespace := fs.String("namespace", envDefault("REDIS_NAMESPACE", "chess"), "Redis key namespace")
	asJSON := fs.Bool("json", false, "print raw JSON")
	timeout := fs.Duration("timeout", 8*time.Second, "overall timeout")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch cmd := fs.Arg(0); cmd {
	case "health":
		err = health(ctx, os.Stdout, statusclient.NewClient(*addr))
	case "rooms":
		var rooms []lobby.RoomInfo
		rooms, err = listRooms(ctx, *addr, *redisURL, *namespace)
		if err == nil {
			err = printRooms(os.Stdout, rooms, *asJSON)
		}
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("roomctl: %v", err)
	}
}

func health(ctx context.Context, w io.Writer, c *statusclient.Client) error {
	h, err := c.Health(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "status=%s rooms=%d\n", h.Status, h.Rooms)
	return err
}

func listRooms(ctx context.Context, addr, redisURL, namespace string) ([]lobby.RoomInfo, error) {
	if redisURL == "" {
		return statusclient.NewClient(addr).Rooms(ctx)
	}
	rdb, err := lobby.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	defer rdb.Close()
	return lobby.NewRedisDirectory(rdb, namespace).List(ctx)
}

func printRooms(w io.Writer, rooms []lobby.RoomInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rooms)
	}
	if len(rooms) == 0 {
		_, err := fmt.Fprintln(w, "no rooms")
		return err
	}
	for _, r := range rooms {
		players := make([]string, 0, len(r.Players))
		for _, p := range r.Players {
			players = append(players, p.Name+"("+p.Side+")")
		}
		line := fmt.Sprintf("%-16s %-9s plies=%-4d players=%s", r.ID, r.Phase, r.Plies, strings.Join(players, ","))
		if r.Turn != "" {
			line += " turn=" + r.Turn
		}
		if r.Winner != "" {
			line += " winner=" + r.Winner
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
