package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelrelay.ai/internal/sim/game"
)

// SQLiteIndex is a queryable record of sessions and tick summaries. Writes
// are queued and applied by one goroutine so the tick loop never waits on
// disk; when the queue is full the write is dropped and counted.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick  atomic.Uint64
	dropJoin  atomic.Uint64
	dropLeave atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqJoin
	reqLeave
)

type req struct {
	kind reqKind

	tick  game.TickLogEntry
	join  game.RecordedJoin
	leave game.RecordedLeave
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropTickTotal  uint64 `json:"drop_tick_total"`
	DropJoinTotal  uint64 `json:"drop_join_total"`
	DropLeaveTotal uint64 `json:"drop_leave_total"`
}

// SessionRow is one client session; LeftAt is zero while it is open.
type SessionRow struct {
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	EntityID  uint64    `json:"entity_id"`
	JoinTick  uint64    `json:"join_tick"`
	JoinedAt  time.Time `json:"joined_at"`
	LeaveTick uint64    `json:"leave_tick,omitempty"`
	LeftAt    time.Time `json:"left_at,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			at TEXT NOT NULL,
			clients INTEGER NOT NULL,
			entities INTEGER NOT NULL,
			joins INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			created INTEGER NOT NULL,
			moved INTEGER NOT NULL,
			crossed INTEGER NOT NULL,
			removed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL,
			name TEXT NOT NULL,
			client_id INTEGER NOT NULL,
			entity_id INTEGER NOT NULL,
			join_tick INTEGER NOT NULL,
			joined_at TEXT NOT NULL,
			leave_tick INTEGER,
			left_at TEXT,
			reason TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_uuid ON sessions(uuid, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTick(entry game.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// The JSONL tick log remains the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordJoin(j game.RecordedJoin) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqJoin, join: j}:
	default:
		s.dropJoin.Add(1)
	}
}

func (s *SQLiteIndex) RecordLeave(l game.RecordedLeave) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqLeave, leave: l}:
	default:
		s.dropLeave.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropTickTotal:  s.dropTick.Load(),
		DropJoinTotal:  s.dropJoin.Load(),
		DropLeaveTotal: s.dropLeave.Load(),
	}
}

// RecentSessions returns up to limit sessions, newest first.
func (s *SQLiteIndex) RecentSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT uuid, name, entity_id, join_tick, joined_at,
		COALESCE(leave_tick, 0), COALESCE(left_at, ''), COALESCE(reason, '')
		FROM sessions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var (
			r                SessionRow
			joinedAt, leftAt string
		)
		if err := rows.Scan(&r.UUID, &r.Name, &r.EntityID, &r.JoinTick, &joinedAt, &r.LeaveTick, &leftAt, &r.Reason); err != nil {
			return nil, err
		}
		r.JoinedAt, _ = time.Parse(time.RFC3339Nano, joinedAt)
		if leftAt != "" {
			r.LeftAt, _ = time.Parse(time.RFC3339Nano, leftAt)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TickCount is the number of recorded ticks.
func (s *SQLiteIndex) TickCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticks`).Scan(&n)
	return n, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,at,clients,entities,joins,leaves,created,moved,crossed,removed) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertJoin, _ := s.db.Prepare(`INSERT INTO sessions(uuid,name,client_id,entity_id,join_tick,joined_at) VALUES(?,?,?,?,?,?)`)
	closeSession, _ := s.db.Prepare(`UPDATE sessions SET leave_tick=?, left_at=?, reason=?
		WHERE id = (SELECT id FROM sessions WHERE uuid=? AND leave_tick IS NULL ORDER BY id LIMIT 1)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertJoin, closeSession} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqTick:
			t := r.tick
			if insertTick != nil {
				_, err = tx.Stmt(insertTick).Exec(
					int64(t.Tick),
					formatTime(t.Time),
					t.Clients,
					t.Entities,
					len(t.Joins),
					len(t.Leaves),
					t.Created,
					t.Moved,
					t.Crossed,
					t.Removed,
				)
			}
		case reqJoin:
			j := r.join
			if insertJoin != nil {
				_, err = tx.Stmt(insertJoin).Exec(j.UUID, j.Name, int64(j.ClientID), int64(j.EntityID), int64(j.Tick), formatTime(j.At))
			}
		case reqLeave:
			l := r.leave
			if closeSession != nil {
				_, err = tx.Stmt(closeSession).Exec(int64(l.Tick), formatTime(l.At), l.Reason, l.UUID)
			}
		}
		if err != nil {
			rollback()
			continue
		}
		opCount++
		flushIfNeeded()
	}

	commit()
}
