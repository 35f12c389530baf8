// replay prints the step stream of a journaled session: per episode, each
// step's action source, reward, and timestamp, so a training run can be
// audited without the service.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google-research/falken-go/internal/journal"
	"github.com/google-research/falken-go/internal/wire"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the session journal db")
	sessionID := flag.String("session", "", "session to replay")
	episodeID := flag.String("episode", "", "restrict to one episode")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *dbPath == "" || *sessionID == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/journal.db --session id [--episode id] [--json]")
		os.Exit(2)
	}

	store, err := journal.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := run(store, *sessionID, *episodeID, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region replay

type stepRow struct {
	Episode   string   `json:"episode"`
	Chunk     int32    `json:"chunk"`
	Index     int      `json:"index"`
	Source    string   `json:"source"`
	ModelID   string   `json:"model_id,omitempty"`
	Reward    *float32 `json:"reward,omitempty"`
	Timestamp int64    `json:"timestamp_millis"`
	State     string   `json:"episode_state"`
}

func run(store *journal.Store, sessionID, episodeID string, jsonOut bool) error {
	chunks, err := store.Chunks(sessionID, episodeID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks recorded for session %s", sessionID)
	}

	var rows []stepRow
	index := make(map[string]int)
	for _, c := range chunks {
		for _, s := range c.Steps {
			rows = append(rows, stepRow{
				Episode:   c.EpisodeID,
				Chunk:     c.ChunkID,
				Index:     index[c.EpisodeID],
				Source:    s.Actions.Source.String(),
				ModelID:   c.ModelID,
				Reward:    s.Reward,
				Timestamp: s.TimestampMillis,
				State:     c.State.String(),
			})
			index[c.EpisodeID]++
		}
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	current := ""
	for _, r := range rows {
		if r.Episode != current {
			current = r.Episode
			fmt.Printf("episode %s (%s)\n", r.Episode, finalState(chunks, r.Episode))
		}
		reward := "-"
		if r.Reward != nil {
			reward = fmt.Sprintf("%.3f", *r.Reward)
		}
		fmt.Printf("  #%-5d chunk=%-3d source=%-20s reward=%-8s t=%d\n",
			r.Index, r.Chunk, r.Source, reward, r.Timestamp)
	}
	return nil
}

// finalState returns the state of an episode's last chunk.
func finalState(chunks []wire.Chunk, episodeID string) string {
	state := wire.EpisodeUnspecified
	for _, c := range chunks {
		if c.EpisodeID == episodeID {
			state = c.State
		}
	}
	return state.String()
}

// #endregion replay
