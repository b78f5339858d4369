package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	uuid := fs.String("uuid", "", "uuid filter (sessions)")
	_ = fs.Parse(args)

	q := "sessions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runQuery(db, os.Stdout, q, *limit, strings.TrimSpace(*uuid)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if strings.HasPrefix(err.Error(), "unknown query") {
			fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-limit N] [-uuid U] sessions|online|ticks")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type sessionRow struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	ClientID  int64  `json:"client_id"`
	EntityID  int64  `json:"entity_id"`
	JoinTick  int64  `json:"join_tick"`
	JoinedAt  string `json:"joined_at"`
	LeaveTick *int64 `json:"leave_tick,omitempty"`
	LeftAt    string `json:"left_at,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type tickRow struct {
	Tick     int64  `json:"tick"`
	At       string `json:"at"`
	Clients  int    `json:"clients"`
	Entities int    `json:"entities"`
	Joins    int    `json:"joins"`
	Leaves   int    `json:"leaves"`
	Created  int    `json:"created"`
	Moved    int    `json:"moved"`
	Crossed  int    `json:"crossed"`
	Removed  int    `json:"removed"`
}

func runQuery(db *sql.DB, out io.Writer, q string, limit int, uuid string) error {
	if limit <= 0 {
		limit = 20
	}
	switch q {
	case "sessions", "online":
		where := []string{}
		args := []any{}
		if q == "online" {
			where = append(where, "leave_tick IS NULL")
		}
		if uuid != "" {
			where = append(where, "uuid=?")
			args = append(args, uuid)
		}
		stmt := `SELECT id,uuid,name,client_id,entity_id,join_tick,joined_at,leave_tick,COALESCE(left_at,''),COALESCE(reason,'') FROM sessions`
		if len(where) > 0 {
			stmt += " WHERE " + strings.Join(where, " AND ")
		}
		stmt += " ORDER BY id DESC LIMIT ?"
		args = append(args, limit)

		rows, err := db.Query(stmt, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r sessionRow
			var leave sql.NullInt64
			if err := rows.Scan(&r.ID, &r.UUID, &r.Name, &r.ClientID, &r.EntityID, &r.JoinTick, &r.JoinedAt, &leave, &r.LeftAt, &r.Reason); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if leave.Valid {
				r.LeaveTick = &leave.Int64
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "ticks":
		rows, err := db.Query(`SELECT tick,at,clients,entities,joins,leaves,created,moved,crossed,removed FROM ticks ORDER BY tick DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r tickRow
			if err := rows.Scan(&r.Tick, &r.At, &r.Clients, &r.Entities, &r.Joins, &r.Leaves, &r.Created, &r.Moved, &r.Crossed, &r.Removed); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query: %s", q)
	}
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
