package config

import "strings"

// AudioMode is the deployment-wide audio override.
type AudioMode string

const (
	AudioModeFiles    AudioMode = "files"
	AudioModeRealtime AudioMode = "realtime"
	AudioModeAuto     AudioMode = "auto"
)

// FileEngine selects which file-producing backend serves file requests.
type FileEngine string

const (
	FileEnginePremium FileEngine = "premium"
	FileEngineLocal   FileEngine = "local"
)

// AudioFlags is the normalised, read-only view of the engine-selection flags.
// It is built once at startup and passed by value to the selector.
type AudioFlags struct {
	Mode            AudioMode
	FileEngine      FileEngine
	RealtimeEnabled bool
	Environment     string
}

// Flags normalises the raw audio settings.
func (c AudioConfig) Flags() AudioFlags {
	return AudioFlags{
		Mode:            ParseAudioMode(c.Mode),
		FileEngine:      ParseFileEngine(c.FileEngine),
		RealtimeEnabled: ParseEnabled(c.RealtimeEnabled),
		Environment:     c.Environment,
	}
}

// ParseAudioMode lower-cases raw and falls back to auto for anything unknown.
func ParseAudioMode(raw string) AudioMode {
	switch m := AudioMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case AudioModeFiles, AudioModeRealtime, AudioModeAuto:
		return m
	default:
		return AudioModeAuto
	}
}

// ParseFileEngine maps the local engine names to FileEngineLocal; everything
// else, including the legacy "elevenlabs" value, is premium.
func ParseFileEngine(raw string) FileEngine {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "local", "coqui", "piper":
		return FileEngineLocal
	default:
		return FileEnginePremium
	}
}

// ParseEnabled reports whether raw equals "true", ignoring case.
func ParseEnabled(raw string) bool {
	return strings.ToLower(raw) == "true"
}

// ProdLike reports whether the deployment is staging or production.
func (f AudioFlags) ProdLike() bool {
	env := strings.ToLower(f.Environment)
	if env == "" {
		env = "development"
	}
	return env == "staging" || env == "production" || env == "prod"
}
