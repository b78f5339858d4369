package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelrelay.ai/internal/sim/game"
)

func readJSONL(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	var out []map[string]any
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "ticks")
	now := time.Date(2026, 1, 2, 3, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(map[string]int{"tick": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"tick": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := readJSONL(t, filepath.Join(dir, "ticks-2026-01-02-03.jsonl.zst"))
	second := readJSONL(t, filepath.Join(dir, "ticks-2026-01-02-04.jsonl.zst"))
	if len(first) != 1 || len(second) != 1 || second[0]["tick"] != float64(2) {
		t.Fatalf("first=%v second=%v", first, second)
	}
}

func TestTickLoggerAndSessionLogger(t *testing.T) {
	dir := t.TempDir()
	tl := NewTickLogger(dir)
	if err := tl.WriteTick(game.TickLogEntry{Tick: 7, Clients: 2}); err != nil {
		t.Fatalf("write tick: %v", err)
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var failures int
	sl := NewSessionLogger(dir, func(string, ...any) { failures++ })
	sl.RecordJoin(game.RecordedJoin{Tick: 1, Name: "alice", UUID: "u"})
	sl.RecordLeave(game.RecordedLeave{Tick: 9, Name: "alice", Reason: "Timed out"})
	if err := sl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if failures != 0 {
		t.Fatalf("write failures=%d", failures)
	}

	ticks, _ := filepath.Glob(filepath.Join(dir, "ticks", "ticks-*.jsonl.zst"))
	sessions, _ := filepath.Glob(filepath.Join(dir, "sessions", "sessions-*.jsonl.zst"))
	if len(ticks) != 1 || len(sessions) != 1 {
		t.Fatalf("ticks=%v sessions=%v", ticks, sessions)
	}
	if got := readJSONL(t, ticks[0]); len(got) != 1 || got[0]["tick"] != float64(7) {
		t.Fatalf("ticks=%v", got)
	}
	got := readJSONL(t, sessions[0])
	if len(got) != 2 || got[0]["event"] != "join" || got[1]["event"] != "leave" {
		t.Fatalf("sessions=%v", got)
	}
	leave, _ := got[1]["leave"].(map[string]any)
	if leave["reason"] != "Timed out" {
		t.Fatalf("leave=%v", got[1])
	}
}
