package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/message"
	"github.com/nadzzz/ovida/internal/narration"
	"github.com/nadzzz/ovida/internal/run"
)

// CreateRun starts a run of a catalog story. The voice defaults to the
// story's.
func (d *Dispatcher) CreateRun(ctx context.Context, req *message.CreateRunRequest) (run.Run, error) {
	if req.StoryID == "" {
		return run.Run{}, fmt.Errorf("%w: story_id is required", ErrInvalidRequest)
	}
	s, err := d.stories.Get(req.StoryID)
	if err != nil {
		return run.Run{}, err
	}

	voice := req.VoiceID
	if voice == "" {
		voice = s.VoiceID
	}

	r, err := d.runs.Create(ctx, run.Run{StoryID: s.ID, Seed: req.Seed, VoiceID: voice})
	if err != nil {
		return run.Run{}, err
	}
	slog.Info("run created", "run_id", r.ID, "story_id", r.StoryID, "seed", r.Seed)
	return r, nil
}

// GetRun returns a run.
func (d *Dispatcher) GetRun(ctx context.Context, id string) (run.Run, error) {
	return d.runs.Get(ctx, id)
}

func runOptions(r run.Run, beatIdx int, persist bool) audio.SynthesisOptions {
	return audio.SynthesisOptions{
		StoryID:       r.StoryID,
		Seed:          r.Seed,
		BeatIdx:       beatIdx,
		ModelVersion:  r.ModelVersion,
		PolicyVersion: r.PolicyVersion,
		CanonVersion:  r.CanonVersion,
		VoiceID:       r.VoiceID,
		Persist:       audio.BoolPtr(persist),
	}
}

// policyFor returns the voice policy of storyID, empty when unknown.
func (d *Dispatcher) policyFor(storyID string) audio.VoicePolicy {
	s, err := d.stories.Get(storyID)
	if err != nil {
		return ""
	}
	return s.VoicePolicy
}

// NextBeat narrates the beat at index, or at the run's next index when index
// is nil, and advances the run past it. Run beats must be replayable, so a
// stream result is an error and leaves the run unchanged.
func (d *Dispatcher) NextBeat(ctx context.Context, runID string, index *int) (*message.BeatResponse, error) {
	r, err := d.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}

	beatIdx := r.NextBeatIdx
	if index != nil {
		beatIdx = *index
	}
	if beatIdx < 0 {
		return nil, fmt.Errorf("%w: index must not be negative", ErrInvalidRequest)
	}

	beat, err := d.beats.Beat(ctx, r.StoryID, beatIdx)
	if err != nil {
		return nil, fmt.Errorf("generating beat %d: %w", beatIdx, err)
	}

	p := audio.Params{Mode: audio.ModeRun, StoryVoicePolicy: d.policyFor(r.StoryID)}
	_, _, res, err := d.synthesize(ctx, p, beat.Narration, runOptions(r, beatIdx, true))
	if err != nil {
		return nil, err
	}
	files, ok := res.(*audio.FilesResult)
	if !ok {
		return nil, fmt.Errorf("run %s beat %d: %w", r.ID, beatIdx, ErrUnexpectedStream)
	}

	if err := d.runs.SetNextBeat(ctx, r.ID, beatIdx+1); err != nil {
		return nil, err
	}

	return &message.BeatResponse{
		RunID: r.ID,
		Beat:  beat,
		Audio: message.BeatAudio{
			Provider:   files.Provider,
			URLs:       files.URLs,
			MIME:       files.MIME,
			Soundstage: files.Soundstage,
			Narrator:   files.Narrator,
		},
	}, nil
}

// Replay builds the signed replay document of a run: every beat played so
// far (at least the opening one) and the engine a replay would render with.
func (d *Dispatcher) Replay(ctx context.Context, runID string) (run.Replay, error) {
	r, err := d.runs.Get(ctx, runID)
	if err != nil {
		return run.Replay{}, err
	}
	s, err := d.stories.Get(r.StoryID)
	if err != nil {
		return run.Replay{}, err
	}

	played := max(r.NextBeatIdx, 1)
	beats := make([]narration.Beat, 0, played)
	for i := range played {
		b, err := d.beats.Beat(ctx, r.StoryID, i)
		if err != nil {
			return run.Replay{}, fmt.Errorf("generating beat %d: %w", i, err)
		}
		beats = append(beats, b)
	}

	_, engine := d.Choose(audio.Params{Mode: audio.ModeReplay, StoryVoicePolicy: s.VoicePolicy})

	return d.replays.Sign(run.Replay{
		Version: run.ReplayVersion,
		Story:   run.ReplayStory{ID: s.ID, Title: s.Title},
		Engine:  run.ReplayEngine{LLM: r.ModelVersion, TTS: engine.Name()},
		Seed:    r.Seed,
		Beats:   beats,
	})
}

// VerifyReplay checks a replay document's shape and signature.
func (d *Dispatcher) VerifyReplay(r run.Replay) error {
	return d.replays.Verify(r)
}
