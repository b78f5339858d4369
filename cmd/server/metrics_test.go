package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voxelrelay.ai/internal/persistence/indexdb"
	"voxelrelay.ai/internal/sim/game"
)

func TestMetricsHandler(t *testing.T) {
	h := metricsHandler("world", func() game.Metrics {
		return game.Metrics{Tick: 42, Clients: 3, PlayerCount: 3, MaxPlayers: 16, IndexedChunks: 5}
	}, func() (indexdb.Stats, bool) {
		return indexdb.Stats{QueueCapacity: 8, DropTickTotal: 2}, true
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`voxelrelay_world_tick{world="world"} 42`,
		`voxelrelay_world_clients{world="world"} 3`,
		`voxelrelay_player_slots{world="world",kind="max"} 16`,
		`voxelrelay_chunk_index{world="world",metric="chunks"} 5`,
		`voxelrelay_index_dropped_total{kind="tick"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestMetricsHandler_IndexDisabled(t *testing.T) {
	h := metricsHandler("world", func() game.Metrics { return game.Metrics{} }, func() (indexdb.Stats, bool) { return indexdb.Stats{}, false })
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(rec.Body.String(), "voxelrelay_index_queue") {
		t.Fatalf("index metrics emitted while disabled")
	}
}

func TestRecorders_SessionsEndpoint(t *testing.T) {
	rec, err := openRecorders(t.TempDir(), false, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rec.RecordJoin(game.RecordedJoin{Tick: 1, UUID: "u", Name: "alice"})
	if err := rec.WriteTick(game.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("write tick: %v", err)
	}

	srv := httptest.NewServer(sessionsHandler(rec))
	defer srv.Close()

	var body struct {
		Sessions []indexdb.SessionRow `json:"sessions"`
	}
	// The index writer is asynchronous; poll until the join lands.
	for i := 0; i < 500 && len(body.Sessions) == 0; i++ {
		resp, err := http.Get(srv.URL)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if len(body.Sessions) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if len(body.Sessions) != 1 || body.Sessions[0].Name != "alice" {
		t.Fatalf("sessions=%+v", body.Sessions)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
