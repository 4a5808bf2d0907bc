package audio

import (
	"context"
	"fmt"

	"github.com/nadzzz/ovida/internal/config"
)

// Engine renders narration text into a Result.
type Engine interface {
	// Name returns the engine identifier (e.g., "elevenlabs", "coqui-local").
	Name() string

	// Synthesize renders text. Errors signal infrastructure failures only;
	// an unconfigured or unproductive backend returns a fallback result.
	Synthesize(ctx context.Context, text string, opts SynthesisOptions) (Result, error)
}

// EngineChoice identifies one of the synthesis backends.
type EngineChoice string

const (
	ChoicePremium  EngineChoice = "elevenlabs"
	ChoiceLocal    EngineChoice = "local"
	ChoiceRealtime EngineChoice = "openai-realtime"
)

// Mode is the context a synthesis request comes from.
type Mode string

const (
	ModeRun      Mode = "run"
	ModeReplay   Mode = "replay"
	ModeRoomLive Mode = "room-live"
)

// VoicePolicy is a story's stance on live voices.
type VoicePolicy string

const (
	PolicyPremium    VoicePolicy = "premium"
	PolicyRealtimeOK VoicePolicy = "realtime-ok"
)

// Params is the per-request input to ChooseEngine.
type Params struct {
	Mode             Mode
	StoryVoicePolicy VoicePolicy // empty when the story states none
}

// fileChoice maps the configured file engine to its backend.
func fileChoice(flags config.AudioFlags) EngineChoice {
	if flags.FileEngine == config.FileEngineLocal {
		return ChoiceLocal
	}
	return ChoicePremium
}

// ChooseEngine picks the backend for one request. Rules are evaluated top to
// bottom and the first match wins:
//
//  1. mode flag "files": the configured file backend
//  2. mode flag "realtime": the realtime backend
//  3. premium story policy: the file backend
//  4. room-live in a prod-like deployment with realtime enabled: realtime
//  5. otherwise: the file backend
func ChooseEngine(flags config.AudioFlags, p Params) EngineChoice {
	switch flags.Mode {
	case config.AudioModeFiles:
		return fileChoice(flags)
	case config.AudioModeRealtime:
		return ChoiceRealtime
	}

	if p.StoryVoicePolicy == PolicyPremium {
		return fileChoice(flags)
	}

	if p.Mode == ModeRoomLive && flags.ProdLike() && flags.RealtimeEnabled {
		return ChoiceRealtime
	}
	return fileChoice(flags)
}

// Registry maps engine choices to constructed engines.
type Registry struct {
	engines map[EngineChoice]Engine
}

// NewRegistry builds a registry. The premium engine is required; it also
// serves any choice that has no engine of its own.
func NewRegistry(premium, local, realtime Engine) (*Registry, error) {
	if premium == nil {
		return nil, fmt.Errorf("audio registry: premium engine is required")
	}
	r := &Registry{engines: map[EngineChoice]Engine{ChoicePremium: premium}}
	if local != nil {
		r.engines[ChoiceLocal] = local
	}
	if realtime != nil {
		r.engines[ChoiceRealtime] = realtime
	}
	return r, nil
}

// Get returns the engine for choice, falling back to the premium engine.
func (r *Registry) Get(choice EngineChoice) Engine {
	if e, ok := r.engines[choice]; ok {
		return e
	}
	return r.engines[ChoicePremium]
}
