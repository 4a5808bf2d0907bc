// Package elevenlabs implements the premium hosted file engine on top of the
// ElevenLabs text-to-speech streaming API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/audio/fileengine"
	"github.com/nadzzz/ovida/internal/config"
)

const (
	// EngineName identifies this engine.
	EngineName = "elevenlabs"

	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_turbo_v2"
	narratorVoice  = "golden-age-narrator"

	// maxAudioBytes bounds a single chunk response.
	maxAudioBytes = 32 << 20
)

// Narrator presentation shared by the file engines.
const (
	NarratorStyle     = "Old-time serial storyteller with dramatic flair"
	NarratorTempo     = "steady"
	NarratorTreatment = "Warm tube compression with vinyl crackle"
)

// Synthesizer renders chunks through the ElevenLabs API.
type Synthesizer struct {
	apiKey    string
	baseURL   string
	voiceID   string
	model     string
	streaming string
	client    *http.Client
}

// NewSynthesizer creates a synthesizer from config.
func NewSynthesizer(cfg config.ElevenLabsConfig) *Synthesizer {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Synthesizer{
		apiKey:    cfg.APIKey,
		baseURL:   base,
		voiceID:   cfg.VoiceID,
		model:     model,
		streaming: cfg.Streaming,
		client:    &http.Client{},
	}
}

// New returns the premium file engine.
func New(cfg config.ElevenLabsConfig, opts fileengine.Options) *fileengine.Engine {
	return fileengine.New(EngineName, NewSynthesizer(cfg), opts)
}

func (s *Synthesizer) Provider() string { return EngineName }

func (s *Synthesizer) Format() fileengine.Format {
	return fileengine.Format{MIME: "audio/ogg; codecs=opus", ContentType: "audio/ogg", Ext: "ogg"}
}

// Ready is false without an API key or when streaming is switched "off".
func (s *Synthesizer) Ready() bool {
	return s.apiKey != "" && s.streaming != "off"
}

func (s *Synthesizer) ResolveVoice(opts audio.SynthesisOptions) string {
	if opts.VoiceID != "" {
		return opts.VoiceID
	}
	return s.voiceID
}

func (s *Synthesizer) Narrator(opts audio.SynthesisOptions) audio.NarratorProfile {
	voice := s.ResolveVoice(opts)
	if voice == "" {
		voice = narratorVoice
	}
	return audio.NarratorProfile{
		Voice:     voice,
		Style:     NarratorStyle,
		Tempo:     NarratorTempo,
		Treatment: NarratorTreatment,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type generationConfig struct {
	ChunkLengthSchedule []int `json:"chunk_length_schedule"`
}

type requestMetadata struct {
	StoryID   string   `json:"story_id"`
	BeatIndex int      `json:"beat_index"`
	Ambience  string   `json:"ambience,omitempty"`
	Cues      []string `json:"cues"`
	Treatment string   `json:"treatment"`
}

type ttsRequest struct {
	Text                     string           `json:"text"`
	ModelID                  string           `json:"model_id"`
	VoiceSettings            voiceSettings    `json:"voice_settings"`
	GenerationConfig         generationConfig `json:"generation_config"`
	ApplyAudioPostProcessing string           `json:"apply_audio_post_processing"`
	Metadata                 requestMetadata  `json:"metadata"`
}

// SynthesizeChunk posts one chunk to /v1/text-to-speech/{voice}/stream and
// returns the OGG/Opus body.
func (s *Synthesizer) SynthesizeChunk(ctx context.Context, text string, req fileengine.ChunkRequest) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: s.model,
		VoiceSettings: voiceSettings{
			Stability:       0.45,
			SimilarityBoost: 0.88,
			Style:           0.72,
			UseSpeakerBoost: true,
		},
		GenerationConfig:         generationConfig{ChunkLengthSchedule: []int{200, 240}},
		ApplyAudioPostProcessing: "vintage_radio",
		Metadata: requestMetadata{
			StoryID:   req.Options.StoryID,
			BeatIndex: req.Options.BeatIdx,
			Ambience:  req.Plan.AmbienceID(),
			Cues:      req.Plan.Labels(),
			Treatment: NarratorTreatment,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling tts request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", s.baseURL, url.PathEscape(req.Voice))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating tts request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/ogg")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &audio.ProviderError{Provider: EngineName, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("reading tts audio: %w", err)
	}

	slog.Debug("elevenlabs chunk synthesized", "chunk", req.Index, "voice", req.Voice, "bytes", len(data))
	return data, nil
}
