package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedMessagesRender(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("move.not_your_turn", map[string]any{"Turn": "black"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Not your turn. It's black's turn." {
		t.Fatalf("unexpected text %q", got)
	}
	if got := c.Text("protocol.unknown", nil); got != "Unknown message type." {
		t.Fatalf("unexpected text %q", got)
	}
	for _, k := range c.Keys() {
		if _, err := c.Render(k, map[string]any{"Room": "r", "Turn": "w", "From": "e2", "Square": "z9", "Name": "n", "WinnerName": "w"}); err != nil {
			t.Fatalf("key %s does not render: %v", k, err)
		}
	}
}

func TestMissingDataIsAnError(t *testing.T) {
	c := Default()
	if _, err := c.Render("move.not_owner", map[string]any{}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if got := c.Text("move.not_owner", map[string]any{}); got != "move.not_owner" {
		t.Fatalf("fallback should be the key, got %q", got)
	}
	if got := c.Text("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("fallback should be the key, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "10-game.yaml"), []byte("game:\n  start: \"Let's play!\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("game.start", nil); got != "Let's play!" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("move.ok", nil); got != "Move Made." {
		t.Fatalf("embedded default lost: %q", got)
	}
}

func TestDuplicateOverrideKeysRejected(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("move:\n  ok: \"fine\"\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}
