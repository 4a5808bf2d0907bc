package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nadzzz/ovida/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAudioMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want config.AudioMode
	}{
		{"files", config.AudioModeFiles},
		{"realtime", config.AudioModeRealtime},
		{"auto", config.AudioModeAuto},
		{"FILES", config.AudioModeFiles},
		{"", config.AudioModeAuto},
		{"unknown-mode", config.AudioModeAuto},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, config.ParseAudioMode(tt.raw))
		})
	}
}

func TestParseFileEngine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, config.FileEnginePremium, config.ParseFileEngine(""))
	assert.Equal(t, config.FileEnginePremium, config.ParseFileEngine("elevenlabs"))
	assert.Equal(t, config.FileEngineLocal, config.ParseFileEngine(" Coqui "))
	assert.Equal(t, config.FileEngineLocal, config.ParseFileEngine("local"))
	assert.Equal(t, config.FileEngineLocal, config.ParseFileEngine("piper"))
}

func TestParseEnabled(t *testing.T) {
	t.Parallel()

	assert.True(t, config.ParseEnabled("TrUe"))
	assert.False(t, config.ParseEnabled("nope"))
	assert.False(t, config.ParseEnabled(""))
	assert.False(t, config.ParseEnabled("1"))
}

func TestAudioFlags_ProdLike(t *testing.T) {
	t.Parallel()

	for _, env := range []string{"Production", "staging", "prod"} {
		assert.True(t, config.AudioFlags{Environment: env}.ProdLike(), env)
	}
	for _, env := range []string{"development", "", "test"} {
		assert.False(t, config.AudioFlags{Environment: env}.ProdLike(), env)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ovida.yaml")
	yamlData := `
audio:
  mode: files
  chunk_chars: 400
cache:
  backend: nats
  signing_secret: "${OVIDA_TEST_SECRET}"
elevenlabs:
  voice_id: yaml-voice
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

	t.Setenv("OVIDA_TEST_SECRET", "s3cret")
	t.Setenv("REALTIME_ENABLED", "TRUE")
	t.Setenv("NODE_ENV", "staging")
	t.Setenv("FILE_AUDIO_ENGINE", "coqui")
	t.Setenv("ELEVENLABS_VOICE_ID", "env-voice")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	flags := cfg.Audio.Flags()
	assert.Equal(t, config.AudioModeFiles, flags.Mode)
	assert.Equal(t, config.FileEngineLocal, flags.FileEngine)
	assert.True(t, flags.RealtimeEnabled)
	assert.True(t, flags.ProdLike())

	assert.Equal(t, 400, cfg.Audio.ChunkChars)
	assert.Equal(t, "nats", cfg.Cache.Backend)
	assert.Equal(t, "s3cret", cfg.Cache.SigningSecret)
	assert.Equal(t, "env-voice", cfg.ElevenLabs.VoiceID)
	assert.Equal(t, "eleven_turbo_v2", cfg.ElevenLabs.Model)
	assert.Equal(t, 3600, cfg.Cache.SignTTLSeconds)
	assert.True(t, cfg.Cache.SingleFlight)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "audio-cache", cfg.Cache.Bucket)
	assert.Equal(t, 600, cfg.Audio.ChunkChars)
	assert.Equal(t, 4000, cfg.Transports.HTTP.Port)
	assert.Equal(t, "coqui", cfg.Local.Backend)
}

func TestLoad_YAMLBoolRealtime(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want bool
	}{
		{name: "unquoted true", yaml: "audio:\n  realtime_enabled: true\n  environment: production\n", want: true},
		{name: "unquoted false", yaml: "audio:\n  realtime_enabled: false\n  environment: production\n", want: false},
		{name: "quoted true", yaml: "audio:\n  realtime_enabled: \"true\"\n  environment: production\n", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ovida.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			cfg, err := config.Load(path)
			require.NoError(t, err)

			flags := cfg.Audio.Flags()
			assert.Equal(t, tt.want, flags.RealtimeEnabled)
			assert.True(t, flags.ProdLike())
		})
	}
}
