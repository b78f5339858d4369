package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "voxelrelay.ai/internal/persistence/log"
	"voxelrelay.ai/internal/sim/game"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory")
		worldID  = flag.String("world", "world", "world id")
		fromTick = flag.Uint64("from_tick", 0, "start checking from tick (inclusive, optional)")
		toTick   = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	worldDir := filepath.Join(*dataDir, "worlds", strings.TrimSpace(*worldID))

	ts, err := replayTicks(worldDir, *fromTick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay ticks:", err)
		os.Exit(1)
	}
	fmt.Printf("ticks ok: first=%d last=%d checked=%d joins=%d leaves=%d crossed=%d peak_clients=%d\n",
		ts.First, ts.Last, ts.Checked, ts.Joins, ts.Leaves, ts.Crossed, ts.PeakClients)

	online, err := replaySessions(worldDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay sessions:", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(online))
	for _, j := range online {
		names = append(names, j.Name)
	}
	sort.Strings(names)
	fmt.Printf("sessions ok: online_at_end=%d %v\n", len(online), names)
}

type tickSummary struct {
	First, Last uint64
	Checked     uint64
	Joins       int
	Leaves      int
	Crossed     int
	PeakClients int
}

// replayTicks walks the tick log and fails on any gap or reordering.
func replayTicks(worldDir string, from, to uint64) (tickSummary, error) {
	var s tickSummary
	var prev uint64
	started := false
	err := persistlog.ReadTicks(worldDir, func(e game.TickLogEntry) error {
		if e.Tick < from {
			return nil
		}
		if to != 0 && e.Tick > to {
			return nil
		}
		if started && e.Tick != prev+1 {
			return fmt.Errorf("tick gap: after=%d got=%d", prev, e.Tick)
		}
		if !started {
			s.First = e.Tick
			started = true
		}
		for _, j := range e.Joins {
			if j.Tick != e.Tick {
				return fmt.Errorf("join of %s recorded at tick %d inside tick %d", j.Name, j.Tick, e.Tick)
			}
		}
		prev = e.Tick
		s.Last = e.Tick
		s.Checked++
		s.Joins += len(e.Joins)
		s.Leaves += len(e.Leaves)
		s.Crossed += e.Crossed
		if e.Clients > s.PeakClients {
			s.PeakClients = e.Clients
		}
		return nil
	})
	return s, err
}

// replaySessions rebuilds the set of players still online when the log ends.
func replaySessions(worldDir string) (map[string]game.RecordedJoin, error) {
	online := map[string]game.RecordedJoin{}
	err := persistlog.ReadSessions(worldDir, func(e persistlog.SessionEvent) error {
		switch {
		case e.Join != nil:
			online[e.Join.UUID] = *e.Join
		case e.Leave != nil:
			delete(online, e.Leave.UUID)
		default:
			return fmt.Errorf("unknown session event %q", e.Event)
		}
		return nil
	})
	return online, err
}
