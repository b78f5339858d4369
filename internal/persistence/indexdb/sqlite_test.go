package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"voxelrelay.ai/internal/sim/game"
)

func TestSQLiteIndex_SessionsAndTicks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	idx.RecordJoin(game.RecordedJoin{Tick: 1, At: at, ClientID: 0, EntityID: 3, UUID: "u-alice", Name: "alice"})
	idx.RecordJoin(game.RecordedJoin{Tick: 2, At: at, ClientID: 1, EntityID: 4, UUID: "u-bob", Name: "bob"})
	for tick := uint64(1); tick <= 5; tick++ {
		_ = idx.WriteTick(game.TickLogEntry{Tick: tick, Time: at, Clients: 2})
	}
	idx.RecordLeave(game.RecordedLeave{Tick: 5, At: at.Add(time.Second), UUID: "u-alice", Name: "alice", Reason: "Timed out"})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	n, err := idx.TickCount(ctx)
	if err != nil || n != 5 {
		t.Fatalf("ticks=%d err=%v", n, err)
	}
	rows, err := idx.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "bob" || rows[1].Name != "alice" {
		t.Fatalf("rows=%+v", rows)
	}
	alice := rows[1]
	if alice.LeaveTick != 5 || alice.Reason != "Timed out" || !alice.JoinedAt.Equal(at) {
		t.Fatalf("alice=%+v", alice)
	}
	if !rows[0].LeftAt.IsZero() || rows[0].Reason != "" {
		t.Fatalf("bob session should be open: %+v", rows[0])
	}
}

func TestSQLiteIndex_LeaveClosesOldestOpenSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// Duplicate login: the replaced session is the older one and leaves first.
	idx.RecordJoin(game.RecordedJoin{Tick: 1, UUID: "u", Name: "alice"})
	idx.RecordJoin(game.RecordedJoin{Tick: 2, UUID: "u", Name: "alice"})
	idx.RecordLeave(game.RecordedLeave{Tick: 2, UUID: "u", Reason: "Logged in from another location!"})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	rows, err := idx.RecentSessions(context.Background(), 0)
	if err != nil || len(rows) != 2 {
		t.Fatalf("rows=%+v err=%v", rows, err)
	}
	if rows[0].JoinTick != 2 || rows[0].LeaveTick != 0 {
		t.Fatalf("newest session closed: %+v", rows[0])
	}
	if rows[1].JoinTick != 1 || rows[1].LeaveTick != 2 {
		t.Fatalf("oldest session still open: %+v", rows[1])
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick}

	_ = s.WriteTick(game.TickLogEntry{Tick: 2})
	s.RecordJoin(game.RecordedJoin{Tick: 2})
	s.RecordLeave(game.RecordedLeave{Tick: 2})

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropJoinTotal != 1 || st.DropLeaveTotal != 1 {
		t.Fatalf("stats=%+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_ClosedIsNoop(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_ = idx.WriteTick(game.TickLogEntry{Tick: 1})
	idx.RecordJoin(game.RecordedJoin{})
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
