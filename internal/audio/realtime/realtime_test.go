package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/audio/realtime"
	"github.com/nadzzz/ovida/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opts() audio.SynthesisOptions {
	return audio.SynthesisOptions{StoryID: "haunted-shore", Seed: 99, BeatIdx: 3}
}

func asStream(t *testing.T, r audio.Result) *audio.StreamResult {
	t.Helper()

	s, ok := r.(*audio.StreamResult)
	require.True(t, ok, "expected stream result, got %T", r)
	return s
}

func TestEngine_Disabled(t *testing.T) {
	t.Parallel()

	engine := realtime.New(config.RealtimeConfig{})
	assert.Equal(t, "openai-realtime", engine.Name())

	res, err := engine.Synthesize(context.Background(), "Waves crash on the shore.", opts())
	require.NoError(t, err)

	stream := asStream(t, res)
	assert.Equal(t, "openai-realtime", stream.Provider)
	assert.Equal(t, "verse", stream.Session.Voice)
	assert.Equal(t, "https://api.openai.com/v1/realtime", stream.Session.APIBase)
	assert.Equal(t, "gpt-4o-realtime-preview-2024-12-17", stream.Session.Model)
	assert.Empty(t, stream.Session.ClientSecret)
	assert.Contains(t, stream.Session.ConnectionInstructions, "disabled")
	assert.Equal(t, "harbor-tide", stream.Soundstage.AmbienceID())
}

func TestEngine_MintsSession(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/realtime/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"client_secret": {"value": "ek_123", "expires_at": 1700000000},
			"sdp": {"offer": "v=0"},
			"ice_servers": [{"urls": ["stun:stun.example.org"]}]
		}`))
	}))
	defer srv.Close()

	engine := realtime.New(config.RealtimeConfig{APIKey: "sk-test", BaseURL: srv.URL, Voice: "alloy"})
	res, err := engine.Synthesize(context.Background(), "A ghost haunts the radio.", opts())
	require.NoError(t, err)

	stream := asStream(t, res)
	assert.Equal(t, "ek_123", stream.Session.ClientSecret)
	assert.Equal(t, int64(1700000000), stream.Session.ExpiresAt)
	assert.Equal(t, "v=0", stream.Session.SDPOffer)
	assert.JSONEq(t, `[{"urls": ["stun:stun.example.org"]}]`, string(stream.Session.ICEServers))
	assert.Equal(t, srv.URL+"/v1/realtime", stream.Session.APIBase)
	assert.Contains(t, stream.Session.ConnectionInstructions, "ephemeral key")
	assert.Equal(t, "alloy", stream.Narrator.Voice)

	assert.Equal(t, "alloy", got["voice"])
	assert.Equal(t, "g711_ulaw", got["input_audio_format"])
	assert.Equal(t, "pcm16", got["output_audio_format"])
	assert.Contains(t, got["instructions"], "Incorporate the mood of Shortwave Static, Ethereal Whisper.")
	assert.Contains(t, got["instructions"], "Narration seed: 99. Beat index: 3.")
	meta := got["metadata"].(map[string]any)
	assert.Equal(t, "haunted-shore", meta["story_id"])
}

func TestEngine_SessionFailureIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	engine := realtime.New(config.RealtimeConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := engine.Synthesize(context.Background(), "hello", opts())

	var pe *audio.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
}

func TestInstructions(t *testing.T) {
	t.Parallel()

	o := audio.SynthesisOptions{Seed: 5, BeatIdx: 0}
	assert.Contains(t, realtime.Instructions(nil, o), "Maintain a gentle studio hum beneath your delivery. Narration seed: 5. Beat index: 0.")
	assert.Contains(t, realtime.Instructions([]string{"A", "B"}, o), "Incorporate the mood of A, B.")

	o.VoiceID = "story-voice"
	res, err := realtime.New(config.RealtimeConfig{}).Synthesize(context.Background(), "", o)
	require.NoError(t, err)
	assert.Equal(t, "story-voice", res.NarratorProfile().Voice)
}
