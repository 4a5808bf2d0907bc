package local

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/audio/fileengine"
	"github.com/nadzzz/ovida/internal/config"
)

// piperVoices maps ISO-639-1 codes to Piper voice models.
var piperVoices = map[string]string{
	"en": "en_US-lessac-medium",
	"fr": "fr_FR-siwis-medium",
	"es": "es_ES-mls_10246-low",
	"de": "de_DE-thorsten-medium",
	"it": "it_IT-riccardo-x_low",
	"pt": "pt_BR-faber-medium",
	"nl": "nl_NL-mls-medium",
}

const piperDialTimeout = 10 * time.Second

// Piper renders chunks through a Piper server over the Wyoming protocol.
// Story voice ids belong to the hosted engines, so Piper always narrates
// with the model configured for its language.
type Piper struct {
	endpoint string
	voice    string
}

// NewPiper creates a Piper synthesizer from config. The language selects
// both the endpoint (from Endpoints, falling back to Endpoint) and the voice.
func NewPiper(cfg config.PiperConfig) *Piper {
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}

	endpoint := cfg.Endpoints[lang]
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "tcp://"), "http://")

	voice := cfg.Voices[lang]
	if voice == "" {
		voice = piperVoices[lang]
	}
	if voice == "" {
		voice = piperVoices["en"]
	}

	return &Piper{endpoint: endpoint, voice: voice}
}

func (p *Piper) Provider() string { return "piper" }

func (p *Piper) Format() fileengine.Format { return wavFormat }

// Ready reports whether an endpoint is configured.
func (p *Piper) Ready() bool { return p.endpoint != "" }

func (p *Piper) ResolveVoice(audio.SynthesisOptions) string { return p.voice }

func (p *Piper) Narrator(opts audio.SynthesisOptions) audio.NarratorProfile {
	return narrator(p.ResolveVoice(opts))
}

// SynthesizeChunk sends a synthesize event and collects the audio-chunk
// payloads until audio-stop, then wraps the PCM in a WAV container.
func (p *Piper) SynthesizeChunk(ctx context.Context, text string, req fileengine.ChunkRequest) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	dialer := net.Dialer{Timeout: piperDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper at %s: %w", p.endpoint, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	err = writeEvent(conn, event{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": req.Voice},
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	r := bufio.NewReader(conn)
	format := pcmFormat{rate: 22050, channels: 1, width: 2}
	var pcm bytes.Buffer

	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return nil, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			format.update(evt.Data)
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			slog.Debug("piper chunk synthesized", "chunk", req.Index, "voice", req.Voice, "pcm_bytes", pcm.Len())
			return format.wav(pcm.Bytes()), nil
		case "error":
			msg, _ := evt.Data["text"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("piper error: %s", msg)
		default:
			slog.Debug("piper event ignored", "type", evt.Type)
		}
	}
}
