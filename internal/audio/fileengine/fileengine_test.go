package fileengine_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/audio/fileengine"
	"github.com/nadzzz/ovida/internal/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSynth renders "audio:<text>" unless fail says otherwise.
type fakeSynth struct {
	ready bool
	voice string
	calls atomic.Int32
	fail  func(call int, text string) error
	block chan struct{}
}

func (f *fakeSynth) Provider() string { return "fake" }

func (f *fakeSynth) Format() fileengine.Format {
	return fileengine.Format{MIME: "audio/ogg; codecs=opus", ContentType: "audio/ogg", Ext: "ogg"}
}

func (f *fakeSynth) Ready() bool { return f.ready }

func (f *fakeSynth) ResolveVoice(opts audio.SynthesisOptions) string {
	if opts.VoiceID != "" {
		return opts.VoiceID
	}
	return f.voice
}

func (f *fakeSynth) Narrator(opts audio.SynthesisOptions) audio.NarratorProfile {
	return audio.NarratorProfile{Voice: f.ResolveVoice(opts), Style: "test"}
}

func (f *fakeSynth) SynthesizeChunk(ctx context.Context, text string, _ fileengine.ChunkRequest) ([]byte, error) {
	call := int(f.calls.Add(1))
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail != nil {
		if err := f.fail(call, text); err != nil {
			return nil, err
		}
	}
	return []byte("audio:" + text), nil
}

// shuffledStore lists objects in reverse order and can inject failures.
type shuffledStore struct {
	objectstore.Store
	listErr   error
	uploadErr error
	signErr   error
}

func (s *shuffledStore) List(ctx context.Context, prefix string) ([]objectstore.Object, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	objs, err := s.Store.List(ctx, prefix)
	slices.SortFunc(objs, func(a, b objectstore.Object) int { return strings.Compare(b.Key, a.Key) })
	return objs, err
}

func (s *shuffledStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	return s.Store.Upload(ctx, key, data, contentType)
}

func (s *shuffledStore) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return s.Store.SignURL(ctx, key, ttl)
}

func newStore(t *testing.T) *shuffledStore {
	t.Helper()

	signer, err := objectstore.NewSigner("http://localhost:4000", "secret")
	require.NoError(t, err)
	mem, err := objectstore.NewMemory(1000, signer)
	require.NoError(t, err)
	return &shuffledStore{Store: mem}
}

func testOptions() audio.SynthesisOptions {
	return audio.SynthesisOptions{
		StoryID:       "story-1",
		Seed:          7,
		BeatIdx:       1,
		ModelVersion:  "gpt-5",
		PolicyVersion: "policy-v1",
		CanonVersion:  "v1",
	}
}

const threeSentences = "The storm rolls in. A door creaks open. Footsteps echo."

func asFiles(t *testing.T, r audio.Result) *audio.FilesResult {
	t.Helper()

	files, ok := r.(*audio.FilesResult)
	require.True(t, ok, "expected files result, got %T", r)
	return files
}

func TestEngine_MockWhenNotReady(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: false, voice: "v"}
	engine := fileengine.New("fake", synth, fileengine.Options{Store: newStore(t)})

	res, err := engine.Synthesize(context.Background(), threeSentences, testOptions())
	require.NoError(t, err)

	files := asFiles(t, res)
	assert.Equal(t, audio.MockProvider, files.Provider)
	assert.Equal(t, audio.MockMIME, files.MIME)
	assert.Equal(t, "noir-alley", files.Soundstage.AmbienceID())
	assert.Zero(t, synth.calls.Load())
}

func TestEngine_MockWhenNoVoice(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: true}
	engine := fileengine.New("fake", synth, fileengine.Options{Store: newStore(t)})

	res, err := engine.Synthesize(context.Background(), threeSentences, testOptions())
	require.NoError(t, err)
	assert.Equal(t, audio.MockProvider, res.ProviderName())
}

func TestEngine_RendersChunksInOrderThenHitsCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	synth := &fakeSynth{ready: true, voice: "narrator"}
	engine := fileengine.New("fake", synth, fileengine.Options{Store: store, MaxChunkChars: 20})

	res, err := engine.Synthesize(ctx, threeSentences, testOptions())
	require.NoError(t, err)

	files := asFiles(t, res)
	assert.Equal(t, "fake", files.Provider)
	assert.Equal(t, "audio/ogg; codecs=opus", files.MIME)
	require.Len(t, files.URLs, 3)
	for i, u := range files.URLs {
		assert.Contains(t, u, fmt.Sprintf("/part-%03d-", i))
		assert.Contains(t, u, "ovida:story-1:7:1:gpt-5:policy-v1:v1:narrator/")
	}
	assert.Equal(t, int32(3), synth.calls.Load())

	opts := testOptions()
	opts.MimeHint = "audio/ogg"
	again, err := engine.Synthesize(ctx, threeSentences, opts)
	require.NoError(t, err)

	cached := asFiles(t, again)
	assert.Equal(t, "audio/ogg", cached.MIME)
	require.Len(t, cached.URLs, 3)
	for i, u := range cached.URLs {
		assert.Contains(t, u, fmt.Sprintf("/part-%03d-", i), "cached urls must be in name order")
	}
	assert.Equal(t, int32(3), synth.calls.Load(), "cache hit must not re-synthesize")
}

func TestEngine_AllChunksFailReturnsMock(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: true, voice: "v", fail: func(int, string) error {
		return &audio.ProviderError{Provider: "fake", StatusCode: 400, Message: "bad"}
	}}
	store := newStore(t)
	engine := fileengine.New("fake", synth, fileengine.Options{Store: store, MaxChunkChars: 20, MaxRetries: 2})

	res, err := engine.Synthesize(context.Background(), threeSentences, testOptions())
	require.NoError(t, err)
	assert.Equal(t, audio.MockProvider, res.ProviderName())
	assert.Equal(t, int32(3), synth.calls.Load(), "non-retryable errors are not retried")

	objects, err := store.List(context.Background(), "ovida:")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestEngine_PartialFailureKeepsOrder(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: true, voice: "v", fail: func(_ int, text string) error {
		if strings.Contains(text, "door") {
			return errors.New("connection reset")
		}
		return nil
	}}
	engine := fileengine.New("fake", synth, fileengine.Options{Store: newStore(t), MaxChunkChars: 20})

	res, err := engine.Synthesize(context.Background(), threeSentences, testOptions())
	require.NoError(t, err)

	files := asFiles(t, res)
	require.Len(t, files.URLs, 2)
	assert.Contains(t, files.URLs[0], "/part-000-")
	assert.Contains(t, files.URLs[1], "/part-002-")
}

func TestEngine_RetriesRetryableErrors(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: true, voice: "v", fail: func(call int, _ string) error {
		if call == 1 {
			return &audio.ProviderError{Provider: "fake", StatusCode: 503, Message: "busy"}
		}
		return nil
	}}
	engine := fileengine.New("fake", synth, fileengine.Options{
		Store:        newStore(t),
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})

	res, err := engine.Synthesize(context.Background(), "One line.", testOptions())
	require.NoError(t, err)
	assert.Len(t, asFiles(t, res).URLs, 1)
	assert.Equal(t, int32(2), synth.calls.Load())
}

func TestEngine_CallTimeoutSkipsChunk(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: true, voice: "v", block: make(chan struct{})}
	engine := fileengine.New("fake", synth, fileengine.Options{
		Store:       newStore(t),
		CallTimeout: 10 * time.Millisecond,
	})

	res, err := engine.Synthesize(context.Background(), "One line.", testOptions())
	require.NoError(t, err)
	assert.Equal(t, audio.MockProvider, res.ProviderName())
}

func TestEngine_StorageFailuresAreErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("storage down")
	tests := []struct {
		name  string
		setup func(*shuffledStore)
	}{
		{"list", func(s *shuffledStore) { s.listErr = boom }},
		{"upload", func(s *shuffledStore) { s.uploadErr = boom }},
		{"sign", func(s *shuffledStore) { s.signErr = boom }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			tt.setup(store)
			engine := fileengine.New("fake", &fakeSynth{ready: true, voice: "v"}, fileengine.Options{Store: store})

			_, err := engine.Synthesize(context.Background(), threeSentences, testOptions())
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestEngine_InlineWithoutStore(t *testing.T) {
	t.Parallel()

	engine := fileengine.New("fake", &fakeSynth{ready: true, voice: "v"}, fileengine.Options{MaxChunkChars: 20})

	res, err := engine.Synthesize(context.Background(), threeSentences, testOptions())
	require.NoError(t, err)

	files := asFiles(t, res)
	require.Len(t, files.URLs, 3)
	assert.True(t, strings.HasPrefix(files.URLs[0], "data:audio/ogg;base64,"))
}

func TestEngine_EmptyTextRendersSingleChunk(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: true, voice: "v"}
	engine := fileengine.New("fake", synth, fileengine.Options{Store: newStore(t)})

	res, err := engine.Synthesize(context.Background(), "", testOptions())
	require.NoError(t, err)
	assert.Len(t, asFiles(t, res).URLs, 1)
	assert.Equal(t, int32(1), synth.calls.Load())
	assert.Equal(t, "broadcast-hum", res.Plan().AmbienceID())
}

func TestEngine_SingleFlightCollapsesConcurrentMisses(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: true, voice: "v", block: make(chan struct{})}
	engine := fileengine.New("fake", synth, fileengine.Options{Store: newStore(t), SingleFlight: true})

	var wg sync.WaitGroup
	results := make([]audio.Result, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := engine.Synthesize(context.Background(), "One line.", testOptions())
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	require.Eventually(t, func() bool { return synth.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(synth.block)
	wg.Wait()

	assert.Equal(t, int32(1), synth.calls.Load())
	assert.Equal(t, asFiles(t, results[0]).URLs, asFiles(t, results[1]).URLs)
}

func TestEngine_CancelledContext(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: true, voice: "v", block: make(chan struct{})}
	engine := fileengine.New("fake", synth, fileengine.Options{Store: newStore(t)})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for synth.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := engine.Synthesize(ctx, "One line.", testOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_SingleFlightSurvivesCallerCancel(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{ready: true, voice: "v", block: make(chan struct{})}
	engine := fileengine.New("fake", synth, fileengine.Options{Store: newStore(t), SingleFlight: true})

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := engine.Synthesize(leaderCtx, "One line.", testOptions())
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return synth.calls.Load() == 1 }, time.Second, time.Millisecond)

	followerRes := make(chan audio.Result, 1)
	followerErr := make(chan error, 1)
	go func() {
		res, err := engine.Synthesize(context.Background(), "One line.", testOptions())
		followerRes <- res
		followerErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(synth.block)
	res := <-followerRes
	require.NoError(t, <-followerErr)
	require.Len(t, asFiles(t, res).URLs, 1)
	assert.Contains(t, asFiles(t, res).URLs[0], "/part-000-")
	assert.Equal(t, int32(1), synth.calls.Load())
}

func TestEngine_ObjectNamesSortPastHundredChunks(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := range 120 {
		fmt.Fprintf(&b, "Line %d. ", i)
	}

	store := newStore(t)
	synth := &fakeSynth{ready: true, voice: "v"}
	engine := fileengine.New("fake", synth, fileengine.Options{Store: store, MaxChunkChars: 10})

	res, err := engine.Synthesize(context.Background(), b.String(), testOptions())
	require.NoError(t, err)
	rendered := asFiles(t, res).URLs
	require.Greater(t, len(rendered), 100)

	again, err := engine.Synthesize(context.Background(), b.String(), testOptions())
	require.NoError(t, err)
	cached := asFiles(t, again).URLs
	require.Len(t, cached, len(rendered))

	tests := []struct {
		idx  int
		want string
	}{
		{0, "/part-000-"},
		{9, "/part-009-"},
		{99, "/part-099-"},
		{100, "/part-100-"},
	}
	for _, tt := range tests {
		assert.Contains(t, cached[tt.idx], tt.want)
	}
	assert.Equal(t, int32(len(rendered)), synth.calls.Load(), "cache hit must not re-synthesize")
}
