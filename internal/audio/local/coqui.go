package local

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
	"github.com/nadzzz/ovida/internal/audio/fileengine"
	"github.com/nadzzz/ovida/internal/config"
)

const (
	defaultCoquiURL = "http://127.0.0.1:5002/api/tts"
	coquiNarrator   = "coqui-narrator"
	maxWAVBytes     = 64 << 20
)

// Coqui renders chunks through a Coqui TTS server.
type Coqui struct {
	endpoint string
	speaker  string
	language string
	styleWav string
	speed    float64
	client   *http.Client
}

// NewCoqui creates a Coqui synthesizer from config.
func NewCoqui(cfg config.CoquiConfig) *Coqui {
	endpoint := strings.TrimRight(cfg.URL, "/")
	if endpoint == "" {
		endpoint = defaultCoquiURL
	}
	return &Coqui{
		endpoint: endpoint,
		speaker:  cfg.Speaker,
		language: cfg.Language,
		styleWav: cfg.StyleWav,
		speed:    cfg.Speed,
		client:   &http.Client{},
	}
}

func (c *Coqui) Provider() string { return "coqui" }

func (c *Coqui) Format() fileengine.Format { return wavFormat }

// Ready is always true; an unreachable server shows up as failed chunks.
func (c *Coqui) Ready() bool { return true }

// ResolveVoice prefers the request voice, then the configured speaker.
func (c *Coqui) ResolveVoice(opts audio.SynthesisOptions) string {
	switch {
	case opts.VoiceID != "":
		return opts.VoiceID
	case c.speaker != "":
		return c.speaker
	default:
		return coquiNarrator
	}
}

func (c *Coqui) Narrator(opts audio.SynthesisOptions) audio.NarratorProfile {
	return narrator(c.ResolveVoice(opts))
}

type coquiRequest struct {
	Text                string  `json:"text"`
	AudioFormat         string  `json:"audio_format"`
	EnableTextSplitting bool    `json:"enable_text_splitting"`
	SpeakerID           string  `json:"speaker_id,omitempty"`
	LanguageID          string  `json:"language_id,omitempty"`
	StyleWav            string  `json:"style_wav,omitempty"`
	Speed               float64 `json:"speed,omitempty"`
}

// SynthesizeChunk posts one chunk and returns the WAV body. A configured
// speaker overrides the request voice.
func (c *Coqui) SynthesizeChunk(ctx context.Context, text string, req fileengine.ChunkRequest) ([]byte, error) {
	speaker := c.speaker
	if speaker == "" {
		speaker = req.Voice
	}
	payload := coquiRequest{
		Text:                text,
		AudioFormat:         "wav",
		EnableTextSplitting: true,
		SpeakerID:           speaker,
		LanguageID:          c.language,
		StyleWav:            c.styleWav,
	}
	if c.speed > 0 {
		payload.Speed = c.speed
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling coqui request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating coqui request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("coqui request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &audio.ProviderError{Provider: "coqui", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	wav, err := io.ReadAll(io.LimitReader(resp.Body, maxWAVBytes))
	if err != nil {
		return nil, fmt.Errorf("reading coqui audio: %w", err)
	}
	slog.Debug("coqui chunk synthesized", "chunk", req.Index, "speaker", speaker, "bytes", len(wav))
	return wav, nil
}
