package room

import (
	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/soundstage"
)

// Client event types.
const (
	TypeJoin  = "room.join"
	TypeVote  = "room.vote"
	TypeLeave = "room.leave"
)

// Server event types.
const (
	TypeState            = "room.state"
	TypeResult           = "room.result"
	TypeBeat             = "room.beat"
	TypeAudioStreamStart = "AUDIO_STREAM_START"
	TypeAudioStart       = "AUDIO_START"
	TypeError            = "room.error"
)

// ClientEvent is a frame sent by a room participant.
type ClientEvent struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	GuestID  string `json:"guest_id,omitempty"`
	ChoiceID string `json:"choice_id,omitempty"`
	BeatIdx  int    `json:"beat_idx,omitempty"`
}

// Event is a frame broadcast to every participant of a room.
type Event struct {
	Type     string `json:"type"`
	State    string `json:"state,omitempty"`
	ChoiceID string `json:"choice_id,omitempty"`
	BeatIdx  *int   `json:"beat_idx,omitempty"`
	Message  string `json:"message,omitempty"`

	Provider   string                 `json:"provider,omitempty"`
	Session    *audio.Session         `json:"session,omitempty"`
	URLs       []string               `json:"urls,omitempty"`
	MIME       string                 `json:"mime,omitempty"`
	Soundstage *soundstage.Plan       `json:"soundstage,omitempty"`
	Narrator   *audio.NarratorProfile `json:"narrator,omitempty"`
}

// Respond maps a client event to the event broadcast in reply. Unknown
// types yield false.
func Respond(ev ClientEvent) (Event, bool) {
	switch ev.Type {
	case TypeJoin:
		return Event{Type: TypeState, State: "joined"}, true
	case TypeLeave:
		return Event{Type: TypeState, State: "left"}, true
	case TypeVote:
		idx := ev.BeatIdx
		return Event{Type: TypeResult, ChoiceID: ev.ChoiceID, BeatIdx: &idx}, true
	}
	return Event{}, false
}

// BeatEvent announces the beat a room is about to hear.
func BeatEvent(beatIdx int) Event {
	return Event{Type: TypeBeat, BeatIdx: &beatIdx}
}

// AudioEvent describes a synthesized beat: AUDIO_STREAM_START for a live
// session, AUDIO_START for rendered files.
func AudioEvent(res audio.Result, beatIdx int) Event {
	plan := res.Plan()
	narrator := res.NarratorProfile()
	ev := Event{
		Provider:   res.ProviderName(),
		BeatIdx:    &beatIdx,
		Soundstage: &plan,
		Narrator:   &narrator,
	}
	return audio.Match(res,
		func(f *audio.FilesResult) Event {
			ev.Type = TypeAudioStart
			ev.URLs = f.URLs
			ev.MIME = f.MIME
			return ev
		},
		func(s *audio.StreamResult) Event {
			session := s.Session
			ev.Type = TypeAudioStreamStart
			ev.Session = &session
			return ev
		},
	)
}
