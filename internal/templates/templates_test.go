package templates

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatSubstitutesNamedTokens(t *testing.T) {
	c := &Cache{templates: map[string]string{
		"wall_collision": "You can't go that way, {name}.",
	}}
	got := c.Format("wall_collision", map[string]any{"name": "Alric"})
	want := "You can't go that way, Alric."
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatSubstitutesListTokens(t *testing.T) {
	c := &Cache{templates: map[string]string{
		"room_exits": "Exits: [exits]",
	}}
	got := c.Format("room_exits", map[string]any{"exits": []string{"north", "east"}})
	want := "Exits: north, east"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatLeavesUnknownTokensAlone(t *testing.T) {
	c := &Cache{templates: map[string]string{
		"greeting": "Hello, {name}!",
	}}
	got := c.Format("greeting", map[string]any{})
	if got != "Hello, {name}!" {
		t.Errorf("Format with a missing arg should leave the token as-is, got %q", got)
	}
}

func TestFormatMissingTemplateFallsBackToLiteral(t *testing.T) {
	c := &Cache{templates: map[string]string{}}
	got := c.Format("unknown_key", map[string]any{"name": "Oracle"})
	if got != "unknown_key: Oracle" {
		t.Errorf("Format for a missing key = %q, want a literal fallback containing the name", got)
	}
	got = c.Format("unknown_key", nil)
	if got != "unknown_key" {
		t.Errorf("Format with no name arg should fall back to the bare key, got %q", got)
	}
}

func TestSetOverridesATemplate(t *testing.T) {
	c := &Cache{templates: map[string]string{}}
	c.Set("foo", "{bar}")
	if got := c.Format("foo", map[string]any{"bar": "baz"}); got != "baz" {
		t.Errorf("Format after Set = %q, want baz", got)
	}
}

func TestAllReturnsASnapshotCopy(t *testing.T) {
	c := &Cache{templates: map[string]string{"a": "1"}}
	snap := c.All()
	snap["a"] = "mutated"
	if got := c.Format("a", nil); got != "1" {
		t.Errorf("mutating the All() snapshot should not affect the cache, got %q", got)
	}
}

func TestLoadMissingFileReturnsEmptyCache(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load of a missing file should not error, got %v", err)
	}
	if len(c.All()) != 0 {
		t.Error("Load of a missing file should yield an empty cache")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.yaml")
	content := "messages:\n  wall_collision: \"You bump into a wall, {name}.\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	got := c.Format("wall_collision", map[string]any{"name": "Bram"})
	if got != "You bump into a wall, Bram." {
		t.Errorf("Format after Load = %q", got)
	}
}
