package journal

import (
	"log"

	"github.com/google-research/falken-go/internal/wire"
)

// Recorder is the write-side handle given to sessions. A nil Recorder (or
// one around a nil Store) drops everything, so call sites never branch on
// whether journaling is enabled. Journal failures are logged, never
// propagated; losing a local record must not fail an episode.
type Recorder struct {
	store *Store
}

// NewRecorder wraps a store; store may be nil.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) enabled() bool {
	return r != nil && r.store != nil
}

// Session records session metadata.
func (r *Recorder) Session(sess wire.Session) {
	if !r.enabled() {
		return
	}
	if err := r.store.PutSession(sess); err != nil {
		log.Printf("[JOURNAL] session %s: %v", sess.SessionID, err)
	}
}

// Chunk records one uploaded chunk.
func (r *Recorder) Chunk(sessionID string, c wire.Chunk) {
	if !r.enabled() {
		return
	}
	if err := r.store.PutChunk(sessionID, c); err != nil {
		log.Printf("[JOURNAL] chunk %s/%s#%d: %v", sessionID, c.EpisodeID, c.ChunkID, err)
	}
}

// Event records one provenance entry.
func (r *Recorder) Event(sessionID, eventType, detail string) {
	if !r.enabled() {
		return
	}
	if err := r.store.PutEvent(sessionID, eventType, detail); err != nil {
		log.Printf("[JOURNAL] event %s %s: %v", sessionID, eventType, err)
	}
}
