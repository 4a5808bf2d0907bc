package run

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/ovida/internal/narration"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreate_Defaults(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }

	r, err := s.Create(context.Background(), Run{StoryID: "haunted-shore"})
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, int64(1700000000123), r.Seed)
	assert.Equal(t, "gpt-5", r.ModelVersion)
	assert.Equal(t, "policy-v1", r.PolicyVersion)
	assert.Equal(t, "v1", r.CanonVersion)
	assert.Equal(t, "public", r.Visibility)
	assert.Equal(t, 0, r.NextBeatIdx)

	got, err := s.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestCreate_KeepsExplicitFields(t *testing.T) {
	s := newTestStore(t)

	r, err := s.Create(context.Background(), Run{StoryID: "s", Seed: 42, VoiceID: "keeper", Visibility: "private"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), r.Seed)
	assert.Equal(t, "keeper", r.VoiceID)
	assert.Equal(t, "private", r.Visibility)

	_, err = s.Create(context.Background(), Run{})
	assert.Error(t, err)
}

func TestSetNextBeat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, Run{StoryID: "s", Seed: 1})
	require.NoError(t, err)

	require.NoError(t, s.SetNextBeat(ctx, r.ID, 3))
	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.NextBeatIdx)

	assert.ErrorIs(t, s.SetNextBeat(ctx, "missing", 1), ErrNotFound)
}

func TestGetAndDelete_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	r, err := s.Create(ctx, Run{StoryID: "s", Seed: 1})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, r.ID))
	assert.ErrorIs(t, s.Delete(ctx, r.ID), ErrNotFound)
	require.NoError(t, s.Ping(ctx))
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	s, err := Open(path)
	require.NoError(t, err)

	r, err := s.Create(context.Background(), Run{StoryID: "s", Seed: 7})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Seed)
}

func testReplay() Replay {
	return Replay{
		Version: ReplayVersion,
		Story:   ReplayStory{ID: "haunted-shore", Title: "Haunted Shore"},
		Engine:  ReplayEngine{LLM: "gpt-5", TTS: "elevenlabs"},
		Seed:    42,
		Beats: []narration.Beat{{
			Index:     0,
			Narration: "You arrive at the haunted shore, waves whispering secrets.",
			Choices:   []narration.Choice{{ID: "continue", Text: "Continue the journey"}},
		}},
	}
}

func TestReplaySigner(t *testing.T) {
	signer, err := NewReplaySigner("secret")
	require.NoError(t, err)

	signed, err := signer.Sign(testReplay())
	require.NoError(t, err)
	assert.Len(t, signed.Signature, 64)
	require.NoError(t, signer.Verify(signed))

	again, err := signer.Sign(testReplay())
	require.NoError(t, err)
	assert.Equal(t, signed.Signature, again.Signature)

	other, err := NewReplaySigner("other")
	require.NoError(t, err)
	assert.ErrorIs(t, other.Verify(signed), ErrBadReplay)
}

func TestReplaySigner_Rejects(t *testing.T) {
	signer, err := NewReplaySigner("")
	require.NoError(t, err)

	signed, err := signer.Sign(testReplay())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Replay)
	}{
		{"tampered seed", func(r *Replay) { r.Seed = 43 }},
		{"missing version", func(r *Replay) { r.Version = "" }},
		{"missing story", func(r *Replay) { r.Story.Title = "" }},
		{"missing engine", func(r *Replay) { r.Engine.TTS = "" }},
		{"missing signature", func(r *Replay) { r.Signature = "" }},
		{"beat without choices", func(r *Replay) { r.Beats = []narration.Beat{{Index: 0, Narration: "x"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := signed
			r.Beats = append([]narration.Beat(nil), signed.Beats...)
			tt.mutate(&r)
			assert.ErrorIs(t, signer.Verify(r), ErrBadReplay)
		})
	}
}
