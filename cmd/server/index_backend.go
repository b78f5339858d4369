package main

import (
	"log"
	"path/filepath"

	"voxelrelay.ai/internal/persistence/indexdb"
	persistlog "voxelrelay.ai/internal/persistence/log"
	"voxelrelay.ai/internal/sim/game"
)

// recorders fans tick and session records out to the compressed JSONL logs
// and, unless disabled, the sqlite index.
type recorders struct {
	ticks    *persistlog.TickLogger
	sessions *persistlog.SessionLogger
	idx      *indexdb.SQLiteIndex
}

func openRecorders(worldDir string, disableDB bool, logger *log.Logger) (*recorders, error) {
	r := &recorders{
		ticks:    persistlog.NewTickLogger(worldDir),
		sessions: persistlog.NewSessionLogger(worldDir, logger.Printf),
	}
	if disableDB {
		return r, nil
	}
	idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	r.idx = idx
	return r, nil
}

func (r *recorders) WriteTick(entry game.TickLogEntry) error {
	if r.idx != nil {
		_ = r.idx.WriteTick(entry)
	}
	return r.ticks.WriteTick(entry)
}

func (r *recorders) RecordJoin(j game.RecordedJoin) {
	r.sessions.RecordJoin(j)
	if r.idx != nil {
		r.idx.RecordJoin(j)
	}
}

func (r *recorders) RecordLeave(l game.RecordedLeave) {
	r.sessions.RecordLeave(l)
	if r.idx != nil {
		r.idx.RecordLeave(l)
	}
}

// IndexStats is the zero Stats when the index is disabled.
func (r *recorders) IndexStats() (indexdb.Stats, bool) {
	if r.idx == nil {
		return indexdb.Stats{}, false
	}
	return r.idx.Stats(), true
}

func (r *recorders) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{r.ticks, r.sessions} {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	if r.idx != nil {
		if err := r.idx.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
