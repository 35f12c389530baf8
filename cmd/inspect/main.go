// inspect browses a local session journal: recorded sessions, their chunk
// counts, and the provenance log of uploads, model swaps, and stops.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google-research/falken-go/internal/journal"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the session journal db")
	sessionID := flag.String("session", "", "show one session's chunks and provenance")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/journal.db [--session id] [--json]")
		os.Exit(2)
	}

	store, err := journal.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *sessionID != "" {
		err = runSessionMode(store, *sessionID, *jsonOut)
	} else {
		err = runListMode(store, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type sessionRow struct {
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id"`
	BrainID   string `json:"brain_id"`
	Type      string `json:"type"`
	Snapshot  string `json:"starting_snapshot,omitempty"`
	Chunks    int    `json:"chunks"`
}

func runListMode(store *journal.Store, jsonOut bool) error {
	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions recorded")
		return nil
	}
	rows := make([]sessionRow, len(sessions))
	for i, s := range sessions {
		chunks, err := store.Chunks(s.SessionID, "")
		if err != nil {
			return err
		}
		rows[i] = sessionRow{
			SessionID: s.SessionID,
			ProjectID: s.ProjectID,
			BrainID:   s.BrainID,
			Type:      s.Type.String(),
			Snapshot:  s.StartingSnapshotID,
			Chunks:    len(chunks),
		}
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}
	fmt.Printf("%-36s  %-20s  %6s\n", "SESSION", "TYPE", "CHUNKS")
	for _, r := range rows {
		fmt.Printf("%-36s  %-20s  %6d\n", r.SessionID, r.Type, r.Chunks)
	}
	return nil
}

// #endregion list-mode

// #region session-mode

type sessionDetail struct {
	SessionID string         `json:"session_id"`
	Episodes  map[string]int `json:"episode_steps"`
	Events    []eventRow     `json:"events"`
}

type eventRow struct {
	Type      string `json:"type"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

func runSessionMode(store *journal.Store, sessionID string, jsonOut bool) error {
	chunks, err := store.Chunks(sessionID, "")
	if err != nil {
		return err
	}
	events, err := store.Events(sessionID)
	if err != nil {
		return err
	}

	detail := sessionDetail{SessionID: sessionID, Episodes: make(map[string]int)}
	for _, c := range chunks {
		detail.Episodes[c.EpisodeID] += len(c.Steps)
	}
	for _, e := range events {
		detail.Events = append(detail.Events, eventRow{
			Type:      e.Type,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format("2006-01-02 15:04:05.000"),
		})
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(detail)
	}

	fmt.Printf("session %s: %d episodes, %d chunks\n", sessionID, len(detail.Episodes), len(chunks))
	for id, steps := range detail.Episodes {
		fmt.Printf("  episode %-36s  %5d steps\n", id, steps)
	}
	fmt.Println("provenance:")
	for _, e := range detail.Events {
		fmt.Printf("  %s  %-12s  %s\n", e.CreatedAt, e.Type, e.Detail)
	}
	return nil
}

// #endregion session-mode
