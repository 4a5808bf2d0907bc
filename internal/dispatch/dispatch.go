// Package dispatch routes narration requests to synthesis engines.
//
// Every request resolves its engine the same way: the immutable audio flags
// and the request's mode and story voice policy go through
// audio.ChooseEngine, and the registry hands back the engine for that choice.
// The per-mode flows (run beats, live room beats, replay finalisation) differ
// only in the options they build and what they do with the result.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/config"
	"github.com/nadzzz/ovida/internal/message"
	"github.com/nadzzz/ovida/internal/narration"
	"github.com/nadzzz/ovida/internal/room"
	"github.com/nadzzz/ovida/internal/run"
	"github.com/nadzzz/ovida/internal/story"
)

var (
	// ErrInvalidRequest marks requests rejected before any engine runs.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnexpectedStream is returned when a flow that needs files was
	// routed to the stream engine.
	ErrUnexpectedStream = errors.New("expected files, engine returned a stream")
)

// RunStore is the subset of the run store the dispatcher uses.
type RunStore interface {
	Create(ctx context.Context, r run.Run) (run.Run, error)
	Get(ctx context.Context, id string) (run.Run, error)
	SetNextBeat(ctx context.Context, id string, idx int) error
}

// Deps are the collaborators of a Dispatcher. All are required.
type Deps struct {
	Flags   config.AudioFlags
	Engines *audio.Registry
	Stories *story.Catalog
	Runs    RunStore
	Beats   narration.Generator
	Rooms   *room.Directory
	Broker  room.Broker
	Replays *run.ReplaySigner
}

// Dispatcher is the central routing engine.
type Dispatcher struct {
	flags   config.AudioFlags
	engines *audio.Registry
	stories *story.Catalog
	runs    RunStore
	beats   narration.Generator
	rooms   *room.Directory
	broker  room.Broker
	replays *run.ReplaySigner
}

// New creates a Dispatcher.
func New(d Deps) (*Dispatcher, error) {
	switch {
	case d.Engines == nil:
		return nil, errors.New("dispatch: engine registry is required")
	case d.Stories == nil:
		return nil, errors.New("dispatch: story catalog is required")
	case d.Runs == nil:
		return nil, errors.New("dispatch: run store is required")
	case d.Beats == nil:
		return nil, errors.New("dispatch: beat generator is required")
	case d.Rooms == nil || d.Broker == nil:
		return nil, errors.New("dispatch: room directory and broker are required")
	case d.Replays == nil:
		return nil, errors.New("dispatch: replay signer is required")
	}
	return &Dispatcher{
		flags:   d.Flags,
		engines: d.Engines,
		stories: d.Stories,
		runs:    d.Runs,
		beats:   d.Beats,
		rooms:   d.Rooms,
		broker:  d.Broker,
		replays: d.Replays,
	}, nil
}

// Choose resolves the engine for p.
func (d *Dispatcher) Choose(p audio.Params) (audio.EngineChoice, audio.Engine) {
	choice := audio.ChooseEngine(d.flags, p)
	return choice, d.engines.Get(choice)
}

// synthesize runs text through the engine chosen for p and logs the outcome.
func (d *Dispatcher) synthesize(ctx context.Context, p audio.Params, text string, opts audio.SynthesisOptions) (audio.EngineChoice, audio.Engine, audio.Result, error) {
	start := time.Now()
	choice, engine := d.Choose(p)
	logger := slog.With("mode", p.Mode, "choice", choice, "engine", engine.Name(), "story_id", opts.StoryID, "beat_idx", opts.BeatIdx)
	logger.Debug("synthesis started", "voice_policy", p.StoryVoicePolicy)

	res, err := engine.Synthesize(ctx, text, opts)
	if err != nil {
		logger.Error("synthesis failed", "error", err)
		return choice, engine, nil, fmt.Errorf("synthesizing with %s: %w", engine.Name(), err)
	}

	logger.Info("synthesis complete", "kind", res.Kind(), "provider", res.ProviderName(), "duration", time.Since(start))
	return choice, engine, res, nil
}

func validMode(m audio.Mode) bool {
	switch m {
	case audio.ModeRun, audio.ModeReplay, audio.ModeRoomLive:
		return true
	}
	return false
}

func validPolicy(p audio.VoicePolicy) bool {
	switch p {
	case "", audio.PolicyPremium, audio.PolicyRealtimeOK:
		return true
	}
	return false
}

// Synthesize renders an ad-hoc narration. The story voice policy comes from
// the request, else from the catalog when the story is known.
func (d *Dispatcher) Synthesize(ctx context.Context, req *message.SynthesizeRequest) (*message.SynthesizeResponse, error) {
	if req.StoryID == "" {
		return nil, fmt.Errorf("%w: story_id is required", ErrInvalidRequest)
	}
	if req.BeatIdx < 0 {
		return nil, fmt.Errorf("%w: beat_idx must not be negative", ErrInvalidRequest)
	}
	mode := req.Mode
	if mode == "" {
		mode = audio.ModeRun
	}
	if !validMode(mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, mode)
	}
	if !validPolicy(req.StoryVoicePolicy) {
		return nil, fmt.Errorf("%w: unknown story_voice_policy %q", ErrInvalidRequest, req.StoryVoicePolicy)
	}

	policy := req.StoryVoicePolicy
	if policy == "" {
		if s, err := d.stories.Get(req.StoryID); err == nil {
			policy = s.VoicePolicy
		}
	}

	choice, engine, res, err := d.synthesize(ctx, audio.Params{Mode: mode, StoryVoicePolicy: policy}, req.Text, req.SynthesisOptions)
	if err != nil {
		return nil, err
	}
	return &message.SynthesizeResponse{Choice: choice, Engine: engine.Name(), Result: res}, nil
}

// Stories lists the catalog.
func (d *Dispatcher) Stories() []story.Story {
	return d.stories.List()
}
