package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"voxelrelay.ai/internal/persistence/indexdb"
	"voxelrelay.ai/internal/sim/game"
)

func metricsHandler(worldID string, metrics func() game.Metrics, index func() (indexdb.Stats, bool)) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP voxelrelay_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE voxelrelay_world_tick gauge\n")
		fmt.Fprintf(rw, "voxelrelay_world_tick{world=%q} %d\n", worldID, m.Tick)

		fmt.Fprintf(rw, "# HELP voxelrelay_world_clients Current number of registered clients.\n")
		fmt.Fprintf(rw, "# TYPE voxelrelay_world_clients gauge\n")
		fmt.Fprintf(rw, "voxelrelay_world_clients{world=%q} %d\n", worldID, m.Clients)

		fmt.Fprintf(rw, "# HELP voxelrelay_player_slots Reserved and maximum player slots.\n")
		fmt.Fprintf(rw, "# TYPE voxelrelay_player_slots gauge\n")
		fmt.Fprintf(rw, "voxelrelay_player_slots{world=%q,kind=%q} %d\n", worldID, "used", m.PlayerCount)
		fmt.Fprintf(rw, "voxelrelay_player_slots{world=%q,kind=%q} %d\n", worldID, "max", m.MaxPlayers)

		fmt.Fprintf(rw, "# HELP voxelrelay_world_entities Live entity count.\n")
		fmt.Fprintf(rw, "# TYPE voxelrelay_world_entities gauge\n")
		fmt.Fprintf(rw, "voxelrelay_world_entities{world=%q} %d\n", worldID, m.Entities)

		fmt.Fprintf(rw, "# HELP voxelrelay_chunk_index Chunk index occupancy.\n")
		fmt.Fprintf(rw, "# TYPE voxelrelay_chunk_index gauge\n")
		fmt.Fprintf(rw, "voxelrelay_chunk_index{world=%q,metric=%q} %d\n", worldID, "entities", m.IndexedEntities)
		fmt.Fprintf(rw, "voxelrelay_chunk_index{world=%q,metric=%q} %d\n", worldID, "chunks", m.IndexedChunks)
		fmt.Fprintf(rw, "voxelrelay_chunk_index{world=%q,metric=%q} %d\n", worldID, "subscribed_chunks", m.SubscribedChunks)

		fmt.Fprintf(rw, "# HELP voxelrelay_sessions_total Joins and leaves since start.\n")
		fmt.Fprintf(rw, "# TYPE voxelrelay_sessions_total counter\n")
		fmt.Fprintf(rw, "voxelrelay_sessions_total{world=%q,event=%q} %d\n", worldID, "join", m.JoinsTotal)
		fmt.Fprintf(rw, "voxelrelay_sessions_total{world=%q,event=%q} %d\n", worldID, "leave", m.LeavesTotal)

		fmt.Fprintf(rw, "# HELP voxelrelay_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE voxelrelay_world_step_ms gauge\n")
		fmt.Fprintf(rw, "voxelrelay_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)

		if index == nil {
			return
		}
		st, ok := index()
		if !ok {
			return
		}
		fmt.Fprintf(rw, "# HELP voxelrelay_index_queue Session index writer queue.\n")
		fmt.Fprintf(rw, "# TYPE voxelrelay_index_queue gauge\n")
		fmt.Fprintf(rw, "voxelrelay_index_queue{metric=%q} %d\n", "depth", st.QueueDepth)
		fmt.Fprintf(rw, "voxelrelay_index_queue{metric=%q} %d\n", "capacity", st.QueueCapacity)
		fmt.Fprintf(rw, "# HELP voxelrelay_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE voxelrelay_index_dropped_total counter\n")
		fmt.Fprintf(rw, "voxelrelay_index_dropped_total{kind=%q} %d\n", "tick", st.DropTickTotal)
		fmt.Fprintf(rw, "voxelrelay_index_dropped_total{kind=%q} %d\n", "join", st.DropJoinTotal)
		fmt.Fprintf(rw, "voxelrelay_index_dropped_total{kind=%q} %d\n", "leave", st.DropLeaveTotal)
	}
}

func sessionsHandler(rec *recorders) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if rec == nil || rec.idx == nil {
			http.Error(rw, "session index disabled", http.StatusServiceUnavailable)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, err := rec.idx.RecentSessions(r.Context(), limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"sessions": rows})
	}
}
