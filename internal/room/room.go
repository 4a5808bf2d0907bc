// Package room relays live story rooms: participants connect over WebSocket,
// vote on choices and hear beats together. Events fan out through a Broker,
// in process or across instances via Redis.
package room

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown room id.
var ErrNotFound = errors.New("room not found")

// DefaultVoteWindow is how long a room collects votes for a choice.
const DefaultVoteWindow = 12 * time.Second

// Mode is the audience size a room is tuned for.
type Mode string

const (
	ModeDuo    Mode = "duo"
	ModeParty  Mode = "party"
	ModeGlobal Mode = "global"
)

// ParseMode validates s; empty selects party.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeParty, nil
	case ModeDuo, ModeParty, ModeGlobal:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown room mode %q", s)
}

// Room is a live listening session.
type Room struct {
	ID           string    `json:"id"`
	StoryID      string    `json:"story_id,omitempty"`
	RunID        string    `json:"run_id,omitempty"`
	Mode         Mode      `json:"mode"`
	VoteWindowMs int64     `json:"vote_window_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Directory keeps the rooms of this instance.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]Room
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]Room)}
}

// Create registers a room for storyID and runID (either may be empty).
func (d *Directory) Create(storyID, runID string, mode Mode) Room {
	r := Room{
		ID:           uuid.NewString(),
		StoryID:      storyID,
		RunID:        runID,
		Mode:         mode,
		VoteWindowMs: DefaultVoteWindow.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}

	d.mu.Lock()
	d.rooms[r.ID] = r
	d.mu.Unlock()
	return r
}

// Get returns the room with id.
func (d *Directory) Get(id string) (Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[id]
	if !ok {
		return Room{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}
