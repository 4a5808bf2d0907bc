package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/message"
	"github.com/nadzzz/ovida/internal/room"
	"github.com/nadzzz/ovida/internal/run"
)

// CreateRoom opens a room. A story or run, when given, must exist; a run
// also fixes the room's story.
func (d *Dispatcher) CreateRoom(ctx context.Context, req *message.CreateRoomRequest) (room.Room, error) {
	mode, err := room.ParseMode(req.Mode)
	if err != nil {
		return room.Room{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	storyID := req.StoryID
	if req.RunID != "" {
		r, err := d.runs.Get(ctx, req.RunID)
		if err != nil {
			return room.Room{}, err
		}
		if storyID != "" && storyID != r.StoryID {
			return room.Room{}, fmt.Errorf("%w: run %s belongs to story %s", ErrInvalidRequest, r.ID, r.StoryID)
		}
		storyID = r.StoryID
	}
	if storyID != "" {
		if _, err := d.stories.Get(storyID); err != nil {
			return room.Room{}, err
		}
	}

	rm := d.rooms.Create(storyID, req.RunID, mode)
	slog.Info("room created", "room_id", rm.ID, "story_id", rm.StoryID, "run_id", rm.RunID, "mode", rm.Mode)
	return rm, nil
}

// GetRoom returns a room.
func (d *Dispatcher) GetRoom(id string) (room.Room, error) {
	return d.rooms.Get(id)
}

// roomBeat resolves the narration and synthesis options of a room beat.
func (d *Dispatcher) roomBeat(ctx context.Context, roomID string, req *message.LiveBeatRequest, persist bool) (room.Room, string, audio.SynthesisOptions, error) {
	rm, err := d.rooms.Get(roomID)
	if err != nil {
		return room.Room{}, "", audio.SynthesisOptions{}, err
	}
	if req.BeatIdx < 0 {
		return room.Room{}, "", audio.SynthesisOptions{}, fmt.Errorf("%w: beat_idx must not be negative", ErrInvalidRequest)
	}
	if rm.StoryID == "" {
		return room.Room{}, "", audio.SynthesisOptions{}, fmt.Errorf("%w: room %s has no story", ErrInvalidRequest, rm.ID)
	}

	r := run.Run{
		StoryID:       rm.StoryID,
		Seed:          req.Seed,
		ModelVersion:  run.DefaultModelVersion,
		PolicyVersion: run.DefaultPolicyVersion,
		CanonVersion:  run.DefaultCanonVersion,
	}
	if rm.RunID != "" {
		if r, err = d.runs.Get(ctx, rm.RunID); err != nil {
			return room.Room{}, "", audio.SynthesisOptions{}, err
		}
	}
	opts := runOptions(r, req.BeatIdx, persist)
	if req.VoiceID != "" {
		opts.VoiceID = req.VoiceID
	}

	text := req.Narration
	if text == "" {
		beat, err := d.beats.Beat(ctx, rm.StoryID, req.BeatIdx)
		if err != nil {
			return room.Room{}, "", audio.SynthesisOptions{}, fmt.Errorf("generating beat %d: %w", req.BeatIdx, err)
		}
		text = beat.Narration
	}
	return rm, text, opts, nil
}

// StartLiveBeat narrates a beat into a room. The engine is chosen in
// room-live mode without persistence, and the room hears a room.beat event
// followed by AUDIO_STREAM_START or AUDIO_START.
func (d *Dispatcher) StartLiveBeat(ctx context.Context, roomID string, req *message.LiveBeatRequest) (*message.LiveBeatResponse, error) {
	rm, text, opts, err := d.roomBeat(ctx, roomID, req, false)
	if err != nil {
		return nil, err
	}

	p := audio.Params{Mode: audio.ModeRoomLive, StoryVoicePolicy: d.policyFor(rm.StoryID)}
	choice, _, res, err := d.synthesize(ctx, p, text, opts)
	if err != nil {
		return nil, err
	}

	ev := room.AudioEvent(res, req.BeatIdx)
	if err := d.broker.Publish(ctx, rm.ID, room.BeatEvent(req.BeatIdx)); err != nil {
		return nil, fmt.Errorf("publishing beat to room %s: %w", rm.ID, err)
	}
	if err := d.broker.Publish(ctx, rm.ID, ev); err != nil {
		return nil, fmt.Errorf("publishing audio to room %s: %w", rm.ID, err)
	}
	slog.Info("live beat started", "room_id", rm.ID, "beat_idx", req.BeatIdx, "event", ev.Type)

	return &message.LiveBeatResponse{RoomID: rm.ID, Choice: string(choice), Event: ev, Result: res}, nil
}

// FinalizeLiveBeat renders a live beat to files for the replay with the
// premium engine, bypassing selection.
func (d *Dispatcher) FinalizeLiveBeat(ctx context.Context, roomID string, req *message.LiveBeatRequest) (*audio.FilesResult, error) {
	rm, text, opts, err := d.roomBeat(ctx, roomID, req, true)
	if err != nil {
		return nil, err
	}

	engine := d.engines.Get(audio.ChoicePremium)
	res, err := engine.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, fmt.Errorf("synthesizing with %s: %w", engine.Name(), err)
	}
	files, ok := res.(*audio.FilesResult)
	if !ok {
		return nil, fmt.Errorf("room %s beat %d: %w", rm.ID, req.BeatIdx, ErrUnexpectedStream)
	}

	slog.Info("finalized live beat", "room_id", rm.ID, "run_id", rm.RunID, "beat_idx", req.BeatIdx, "urls", files.URLs)
	return files, nil
}
