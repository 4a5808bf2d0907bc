// Package message defines the request and response bodies exchanged between
// the transports and the dispatcher.
package message

import (
	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/narration"
	"github.com/nadzzz/ovida/internal/room"
	"github.com/nadzzz/ovida/internal/run"
	"github.com/nadzzz/ovida/internal/soundstage"
	"github.com/nadzzz/ovida/internal/story"
)

// SynthesizeRequest asks for one narration to be rendered.
type SynthesizeRequest struct {
	// Text is the narration to render.
	Text string `json:"text"`

	// Mode is the request context: "run" (default), "replay" or "room-live".
	Mode audio.Mode `json:"mode,omitempty"`

	// StoryVoicePolicy overrides the story's own policy when set.
	StoryVoicePolicy audio.VoicePolicy `json:"story_voice_policy,omitempty"`

	audio.SynthesisOptions
}

// SynthesizeResponse carries the engine decision and its result.
type SynthesizeResponse struct {
	Choice audio.EngineChoice `json:"choice"`
	Engine string             `json:"engine"`
	Result audio.Result       `json:"result" swaggertype:"object"`
}

// StoriesResponse lists the catalog.
type StoriesResponse struct {
	Stories []story.Story `json:"stories"`
}

// CreateRunRequest starts a run. A zero seed is replaced by the current time.
type CreateRunRequest struct {
	StoryID string `json:"story_id"`
	Seed    int64  `json:"seed,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`
}

// RunResponse wraps a run.
type RunResponse struct {
	Run run.Run `json:"run"`
}

// BeatAudio is the rendered audio of a beat.
type BeatAudio struct {
	Provider   string                `json:"provider"`
	URLs       []string              `json:"urls"`
	MIME       string                `json:"mime"`
	Soundstage soundstage.Plan       `json:"soundstage"`
	Narrator   audio.NarratorProfile `json:"narrator"`
}

// BeatResponse is the next beat of a run with its audio.
type BeatResponse struct {
	RunID string         `json:"run_id"`
	Beat  narration.Beat `json:"beat"`
	Audio BeatAudio      `json:"audio"`
}

// ReplayResponse carries the signed replay document of a run.
type ReplayResponse struct {
	ID     string     `json:"id"`
	Replay run.Replay `json:"replay"`
}

// VerifyResponse reports whether a replay document is valid.
type VerifyResponse struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// CreateRoomRequest opens a room. Mode defaults to "party".
type CreateRoomRequest struct {
	StoryID string `json:"story_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// RoomResponse wraps a room.
type RoomResponse struct {
	Room room.Room `json:"room"`
}

// LiveBeatRequest plays a beat into a room. Narration is generated when
// empty. Seed applies only to rooms without a run.
type LiveBeatRequest struct {
	BeatIdx   int    `json:"beat_idx"`
	Narration string `json:"narration,omitempty"`
	Seed      int64  `json:"seed,omitempty"`
	VoiceID   string `json:"voice_id,omitempty"`
}

// LiveBeatResponse reports what was broadcast to the room.
type LiveBeatResponse struct {
	RoomID string       `json:"room_id"`
	Choice string       `json:"choice"`
	Event  room.Event   `json:"event"`
	Result audio.Result `json:"result" swaggertype:"object"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
