package run

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nadzzz/ovida/internal/narration"
)

// ReplayVersion is the replay document format version.
const ReplayVersion = "1.0"

// ErrBadReplay is returned by Verify for malformed or tampered documents.
var ErrBadReplay = errors.New("invalid replay")

// Replay is the shareable record of a run.
type Replay struct {
	Version   string           `json:"version"`
	Story     ReplayStory      `json:"story"`
	Engine    ReplayEngine     `json:"engine"`
	Seed      int64            `json:"seed"`
	Beats     []narration.Beat `json:"beats"`
	Signature string           `json:"signature"`
}

type ReplayStory struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ReplayEngine struct {
	LLM string `json:"llm"`
	TTS string `json:"tts"`
}

// ReplaySigner signs replay documents with HMAC-SHA256 over their JSON
// encoding with an empty signature field.
type ReplaySigner struct {
	secret []byte
}

// NewReplaySigner returns a signer keyed by secret. An empty secret is
// replaced by a random one, so signatures only verify within this process.
func NewReplaySigner(secret string) (*ReplaySigner, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating replay secret: %w", err)
		}
		slog.Warn("no replay secret configured, replay signatures will not survive a restart")
	}
	return &ReplaySigner{secret: key}, nil
}

func (s *ReplaySigner) digest(r Replay) (string, error) {
	r.Signature = ""
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding replay: %w", err)
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Sign returns r with its signature set.
func (s *ReplaySigner) Sign(r Replay) (Replay, error) {
	sig, err := s.digest(r)
	if err != nil {
		return Replay{}, err
	}
	r.Signature = sig
	return r, nil
}

// Verify checks the required fields and the signature of r.
func (s *ReplaySigner) Verify(r Replay) error {
	switch {
	case r.Version == "":
		return fmt.Errorf("%w: missing version", ErrBadReplay)
	case r.Story.ID == "" || r.Story.Title == "":
		return fmt.Errorf("%w: missing story", ErrBadReplay)
	case r.Engine.LLM == "" || r.Engine.TTS == "":
		return fmt.Errorf("%w: missing engine", ErrBadReplay)
	case r.Signature == "":
		return fmt.Errorf("%w: missing signature", ErrBadReplay)
	}
	for _, b := range r.Beats {
		if b.Index < 0 || b.Narration == "" || len(b.Choices) == 0 {
			return fmt.Errorf("%w: malformed beat %d", ErrBadReplay, b.Index)
		}
	}

	want, err := s.digest(r)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(want), []byte(r.Signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrBadReplay)
	}
	return nil
}
