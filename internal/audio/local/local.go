// Package local implements the local/offline file engine. Chunks are rendered
// either by a Coqui TTS HTTP server or by a Piper server speaking the Wyoming
// protocol; both produce WAV audio.
package local

import (
	"fmt"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/audio/elevenlabs"
	"github.com/nadzzz/ovida/internal/audio/fileengine"
	"github.com/nadzzz/ovida/internal/config"
)

var wavFormat = fileengine.Format{MIME: "audio/wav", ContentType: "audio/wav", Ext: "wav"}

// New returns the local file engine for cfg.Backend. When cfg.UseCache is
// false the store in opts is dropped and audio is returned inline.
func New(cfg config.LocalConfig, opts fileengine.Options) (*fileengine.Engine, error) {
	if !cfg.UseCache {
		opts.Store = nil
	}
	switch cfg.Backend {
	case "", "coqui":
		return fileengine.New("coqui-local", NewCoqui(cfg.Coqui), opts), nil
	case "piper":
		return fileengine.New("piper-local", NewPiper(cfg.Piper), opts), nil
	default:
		return nil, fmt.Errorf("unknown local tts backend %q", cfg.Backend)
	}
}

func narrator(voice string) audio.NarratorProfile {
	return audio.NarratorProfile{
		Voice:     voice,
		Style:     elevenlabs.NarratorStyle,
		Tempo:     elevenlabs.NarratorTempo,
		Treatment: elevenlabs.NarratorTreatment,
	}
}
