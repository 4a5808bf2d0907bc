// Package realtime implements the stream engine. Instead of rendering audio
// it mints an ephemeral OpenAI realtime session that the client uses to
// negotiate a live WebRTC narration stream.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/config"
	"github.com/nadzzz/ovida/internal/soundstage"
)

const (
	// EngineName identifies this engine.
	EngineName = "openai-realtime"

	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-realtime-preview-2024-12-17"
	defaultVoice   = "verse"

	disabledInstructions = "OpenAI realtime audio is disabled. Present a fallback UI using pre-rendered narration and Foley cues."
	sessionInstructions  = "Use the provided ephemeral key with WebRTC (set as bearer token) to negotiate a live narration stream. Layer local Foley cues in sync with provided timestamps."

	narratorPrompt = "You are the live narrator of an interactive old-time radio drama. Deliver energetic, scene-setting descriptions, leave room for audience choice reveals, and acknowledge branching moments."
)

// Engine mints realtime sessions.
type Engine struct {
	apiKey  string
	baseURL string
	model   string
	voice   string
	client  *http.Client
	planner *soundstage.Planner
}

// New creates the realtime engine from config.
func New(cfg config.RealtimeConfig) *Engine {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Engine{
		apiKey:  cfg.APIKey,
		baseURL: base,
		model:   model,
		voice:   cfg.Voice,
		client:  &http.Client{},
		planner: soundstage.NewPlanner(nil),
	}
}

// Name returns the engine identifier.
func (e *Engine) Name() string { return EngineName }

// Synthesize returns a stream result. Without an API key the session only
// carries fallback instructions; a failed session request is an error.
func (e *Engine) Synthesize(ctx context.Context, text string, opts audio.SynthesisOptions) (audio.Result, error) {
	plan := e.planner.Plan(text, opts.BeatIdx)
	narrator := e.narrator(opts)

	session := audio.Session{
		Model:                  e.model,
		Voice:                  narrator.Voice,
		APIBase:                e.baseURL + "/v1/realtime",
		ConnectionInstructions: disabledInstructions,
	}

	if e.apiKey != "" {
		minted, err := e.createSession(ctx, opts, plan, narrator)
		if err != nil {
			return nil, err
		}
		session.ClientSecret = minted.ClientSecret.Value
		session.ExpiresAt = minted.ClientSecret.ExpiresAt
		session.SDPOffer = minted.SDP.Offer
		session.ICEServers = minted.ICEServers
		session.ConnectionInstructions = sessionInstructions
	}

	return &audio.StreamResult{
		Provider:   EngineName,
		Session:    session,
		Soundstage: plan,
		Narrator:   narrator,
	}, nil
}

func (e *Engine) narrator(opts audio.SynthesisOptions) audio.NarratorProfile {
	voice := opts.VoiceID
	if voice == "" {
		voice = e.voice
	}
	if voice == "" {
		voice = defaultVoice
	}
	return audio.NarratorProfile{
		Voice:     voice,
		Style:     "Live radio show narrator with interactive flair",
		Tempo:     "steady",
		Treatment: "Realtime WebRTC stream with subtle tape texture",
	}
}

// Instructions builds the narrator prompt for a session.
func Instructions(inspiration []string, opts audio.SynthesisOptions) string {
	mood := "Maintain a gentle studio hum beneath your delivery."
	if len(inspiration) > 0 {
		mood = fmt.Sprintf("Incorporate the mood of %s.", strings.Join(inspiration, ", "))
	}
	return fmt.Sprintf("%s %s Narration seed: %d. Beat index: %d.", narratorPrompt, mood, opts.Seed, opts.BeatIdx)
}

type sessionRequest struct {
	Model             string          `json:"model"`
	Voice             string          `json:"voice"`
	Instructions      string          `json:"instructions"`
	InputAudioFormat  string          `json:"input_audio_format"`
	OutputAudioFormat string          `json:"output_audio_format"`
	Metadata          sessionMetadata `json:"metadata"`
}

type sessionMetadata struct {
	StoryID   string `json:"story_id"`
	BeatIndex int    `json:"beat_index"`
}

type sessionResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
	SDP struct {
		Offer string `json:"offer"`
	} `json:"sdp"`
	ICEServers json.RawMessage `json:"ice_servers"`
}

func (e *Engine) createSession(ctx context.Context, opts audio.SynthesisOptions, plan soundstage.Plan, narrator audio.NarratorProfile) (*sessionResponse, error) {
	body, err := json.Marshal(sessionRequest{
		Model:             e.model,
		Voice:             narrator.Voice,
		Instructions:      Instructions(plan.Inspiration, opts),
		InputAudioFormat:  "g711_ulaw",
		OutputAudioFormat: "pcm16",
		Metadata:          sessionMetadata{StoryID: opts.StoryID, BeatIndex: opts.BeatIdx},
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/realtime/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("realtime session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &audio.ProviderError{Provider: EngineName, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var minted sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&minted); err != nil {
		return nil, fmt.Errorf("decoding realtime session: %w", err)
	}

	slog.Debug("realtime session minted", "story_id", opts.StoryID, "beat_idx", opts.BeatIdx, "expires_at", minted.ClientSecret.ExpiresAt)
	return &minted, nil
}
