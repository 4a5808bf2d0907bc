// Package fileengine implements the cached, chunked rendering pipeline shared
// by every file-producing backend.
//
// A backend only supplies a Synthesizer that turns one chunk of text into
// audio bytes. The pipeline plans the soundstage, consults the object store
// under the cache key, splits text into chunks, renders them one after the
// other and uploads and signs each before moving on.
package fileengine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/objectstore"
	"github.com/nadzzz/ovida/internal/soundstage"
)

// Format describes the audio a synthesizer produces.
type Format struct {
	// MIME is reported on fresh results (e.g., "audio/ogg; codecs=opus").
	MIME string
	// ContentType is stored with uploaded objects.
	ContentType string
	// Ext is the object name extension, without the dot.
	Ext string
}

// Synthesizer renders single chunks for one provider.
type Synthesizer interface {
	// Provider names the backend in results and logs.
	Provider() string

	// Format returns the audio format of rendered chunks.
	Format() Format

	// Ready reports whether the provider is configured. When false the
	// pipeline answers with the mock result.
	Ready() bool

	// ResolveVoice returns the voice used for synthesis and the cache key.
	// An empty voice means synthesis is not possible.
	ResolveVoice(opts audio.SynthesisOptions) string

	// Narrator returns the narrator profile presented with results.
	Narrator(opts audio.SynthesisOptions) audio.NarratorProfile

	// SynthesizeChunk renders one chunk.
	SynthesizeChunk(ctx context.Context, text string, req ChunkRequest) ([]byte, error)
}

// ChunkRequest carries per-chunk context to a Synthesizer.
type ChunkRequest struct {
	Voice   string
	Index   int
	Options audio.SynthesisOptions
	Plan    soundstage.Plan
}

// Options tunes the pipeline. Zero values select the defaults.
type Options struct {
	// Store holds rendered audio. Nil returns audio inline as data URLs.
	Store objectstore.Store

	SignTTL       time.Duration
	MaxChunkChars int
	CallTimeout   time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration

	// Limiter paces provider calls. Nil means unlimited.
	Limiter *rate.Limiter

	// SingleFlight collapses concurrent cache misses on the same key.
	SingleFlight bool

	// Planner builds soundstage plans. Nil uses random cue ids.
	Planner *soundstage.Planner
}

const defaultSignTTL = time.Hour

// Engine is an audio.Engine backed by a Synthesizer.
type Engine struct {
	name   string
	synth  Synthesizer
	opts   Options
	flight singleflight.Group
}

// New returns an engine named name.
func New(name string, synth Synthesizer, opts Options) *Engine {
	if opts.SignTTL <= 0 {
		opts.SignTTL = defaultSignTTL
	}
	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = audio.DefaultChunkChars
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Planner == nil {
		opts.Planner = soundstage.NewPlanner(nil)
	}
	return &Engine{name: name, synth: synth, opts: opts}
}

// Name returns the engine identifier.
func (e *Engine) Name() string { return e.name }

// Synthesize renders text into a files result. Configuration gaps and
// unproductive renders degrade to the mock result; store failures are errors.
func (e *Engine) Synthesize(ctx context.Context, text string, opts audio.SynthesisOptions) (audio.Result, error) {
	plan := e.opts.Planner.Plan(text, opts.BeatIdx)
	narrator := e.synth.Narrator(opts)

	if !e.synth.Ready() {
		return audio.MockResult(plan, narrator), nil
	}
	voice := e.synth.ResolveVoice(opts)
	if voice == "" {
		return audio.MockResult(plan, narrator), nil
	}

	key := audio.CacheKey(opts, voice)
	logger := slog.With("engine", e.name, "cache_key", key)

	if e.opts.Store != nil {
		urls, err := e.cached(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(urls) > 0 {
			logger.Debug("audio cache hit", "parts", len(urls))
			mime := opts.MimeHint
			if mime == "" {
				mime = e.synth.Format().MIME
			}
			return e.files(urls, mime, plan, narrator), nil
		}
	}

	req := ChunkRequest{Voice: voice, Options: opts, Plan: plan}

	var urls []string
	var err error
	if e.opts.SingleFlight && e.opts.Store != nil {
		// The shared render outlives any single caller; CallTimeout still
		// bounds each provider call.
		flightCtx := context.WithoutCancel(ctx)
		ch := e.flight.DoChan(key, func() (any, error) {
			return e.render(flightCtx, logger, key, text, req)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			urls = append([]string(nil), res.Val.([]string)...)
		}
	} else {
		urls, err = e.render(ctx, logger, key, text, req)
		if err != nil {
			return nil, err
		}
	}

	if len(urls) == 0 {
		logger.Warn("no audio produced, returning mock")
		return audio.MockResult(plan, narrator), nil
	}
	return e.files(urls, e.synth.Format().MIME, plan, narrator), nil
}

func (e *Engine) files(urls []string, mime string, plan soundstage.Plan, narrator audio.NarratorProfile) *audio.FilesResult {
	return &audio.FilesResult{
		Provider:   e.synth.Provider(),
		URLs:       urls,
		MIME:       mime,
		Soundstage: plan,
		Narrator:   narrator,
	}
}

// cached signs every object already stored under key, in name order.
func (e *Engine) cached(ctx context.Context, key string) ([]string, error) {
	objects, err := e.opts.Store.List(ctx, key+"/")
	if err != nil {
		return nil, fmt.Errorf("listing cached audio: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	urls := make([]string, 0, len(objects))
	for _, obj := range objects {
		url, err := e.opts.Store.SignURL(ctx, obj.Key, e.opts.SignTTL)
		if err != nil {
			return nil, fmt.Errorf("signing cached audio: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// render folds over the chunks in order. A chunk that fails to synthesize is
// logged and skipped; storage failures abort the whole render.
func (e *Engine) render(ctx context.Context, logger *slog.Logger, key, text string, req ChunkRequest) ([]string, error) {
	chunks := audio.ChunksOrWhole(text, e.opts.MaxChunkChars)
	format := e.synth.Format()

	var urls []string
	for idx, chunk := range chunks {
		req.Index = idx
		data, err := e.synthesizeChunk(ctx, chunk, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("chunk synthesis failed, skipping", "chunk", idx, "error", err)
			continue
		}
		if len(data) == 0 {
			logger.Warn("chunk produced no audio, skipping", "chunk", idx)
			continue
		}

		if e.opts.Store == nil {
			urls = append(urls, dataURL(format.ContentType, data))
			continue
		}

		objectKey := fmt.Sprintf("%s/part-%03d-%s.%s", key, idx, uuid.NewString(), format.Ext)
		if err := e.opts.Store.Upload(ctx, objectKey, data, format.ContentType); err != nil {
			return nil, fmt.Errorf("uploading chunk %d: %w", idx, err)
		}
		url, err := e.opts.Store.SignURL(ctx, objectKey, e.opts.SignTTL)
		if err != nil {
			return nil, fmt.Errorf("signing chunk %d: %w", idx, err)
		}
		urls = append(urls, url)
		logger.Debug("chunk stored", "chunk", idx, "bytes", len(data))
	}
	return urls, nil
}

// synthesizeChunk makes one paced, time-limited provider call, retrying
// retryable failures up to MaxRetries times.
func (e *Engine) synthesizeChunk(ctx context.Context, text string, req ChunkRequest) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, e.opts.RetryBackoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
		if e.opts.Limiter != nil {
			if err := e.opts.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for provider slot: %w", err)
			}
		}

		data, err := e.call(ctx, text, req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !audio.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (e *Engine) call(ctx context.Context, text string, req ChunkRequest) ([]byte, error) {
	if e.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.CallTimeout)
		defer cancel()
	}
	data, err := e.synth.SynthesizeChunk(ctx, text, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s call timed out: %w", e.synth.Provider(), err)
	}
	return data, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func dataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
