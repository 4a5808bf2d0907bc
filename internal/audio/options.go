// Package audio defines the shared synthesis contract: request options, the
// cache key every file backend addresses rendered audio by, the tagged result
// returned to callers and the engine selection policy.
package audio

import (
	"strconv"
	"strings"
)

// cacheNamespace prefixes every cache key.
const cacheNamespace = "ovida"

// defaultVoiceSegment stands in for the voice when none was resolved.
const defaultVoiceSegment = "default"

// SynthesisOptions identifies the narration being rendered.
type SynthesisOptions struct {
	StoryID       string `json:"story_id"`
	Seed          int64  `json:"seed"`
	BeatIdx       int    `json:"beat_idx"`
	ModelVersion  string `json:"model_version"`
	PolicyVersion string `json:"policy_version"`
	CanonVersion  string `json:"canon_version"`

	// VoiceID is optional; empty lets the backend pick its default.
	VoiceID string `json:"voice_id,omitempty"`

	// MimeHint is the preferred MIME type for cached results.
	MimeHint string `json:"mime_hint,omitempty"`

	// Persist asks for replayable file output. Nil means unspecified.
	Persist *bool `json:"persist,omitempty"`
}

// Persistent reports whether Persist was set to true.
func (o SynthesisOptions) Persistent() bool {
	return o.Persist != nil && *o.Persist
}

// CacheKey derives the canonical key for rendered audio:
//
//	ovida:{story}:{seed}:{beat}:{model}:{policy}:{canon}:{voice}
//
// An empty voiceID becomes "default". Fields are joined verbatim; a field
// containing ':' is not escaped, so existing stored objects stay addressable.
func CacheKey(opts SynthesisOptions, voiceID string) string {
	if voiceID == "" {
		voiceID = defaultVoiceSegment
	}
	return strings.Join([]string{
		cacheNamespace,
		opts.StoryID,
		strconv.FormatInt(opts.Seed, 10),
		strconv.Itoa(opts.BeatIdx),
		opts.ModelVersion,
		opts.PolicyVersion,
		opts.CanonVersion,
		voiceID,
	}, ":")
}

// BoolPtr returns a pointer to b, for SynthesisOptions.Persist.
func BoolPtr(b bool) *bool { return &b }
