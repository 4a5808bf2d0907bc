// Ovida is the audio daemon of an interactive storytelling service. It picks
// a synthesis engine per request, renders narration to cached audio files or
// hands out realtime voice sessions, and relays live room audio events.
//
// Usage:
//
//	ovida [flags]
//	ovida --config /path/to/ovida.yaml
//
// @title       ovida audio API
// @version     1.0
// @description Narration synthesis, story runs, replays and live rooms.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	_ "github.com/nadzzz/ovida/docs"
	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/audio/elevenlabs"
	"github.com/nadzzz/ovida/internal/audio/fileengine"
	"github.com/nadzzz/ovida/internal/audio/local"
	"github.com/nadzzz/ovida/internal/audio/realtime"
	"github.com/nadzzz/ovida/internal/config"
	"github.com/nadzzz/ovida/internal/dispatch"
	"github.com/nadzzz/ovida/internal/health"
	"github.com/nadzzz/ovida/internal/narration"
	"github.com/nadzzz/ovida/internal/objectstore"
	"github.com/nadzzz/ovida/internal/room"
	"github.com/nadzzz/ovida/internal/run"
	"github.com/nadzzz/ovida/internal/soundstage"
	"github.com/nadzzz/ovida/internal/story"
	"github.com/nadzzz/ovida/internal/transport"
	grpctransport "github.com/nadzzz/ovida/internal/transport/grpc"
	httptransport "github.com/nadzzz/ovida/internal/transport/http"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/ovida.local.yaml)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the configuration")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ovida %s\n", version)
		os.Exit(0)
	}

	// Deployment variables may come from a dotenv file; real env wins.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envFile, "error", err)
		os.Exit(1)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("ovida starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := serve(ctx, cfg); err != nil {
		slog.Error("ovida failed", "error", err)
		os.Exit(1)
	}
	slog.Info("ovida stopped")
}

func serve(ctx context.Context, cfg *config.Config) error {
	healthServer := health.New(cfg.Server.HealthPort)

	// Audio cache.
	signer, err := objectstore.NewSigner(cfg.Cache.PublicBaseURL, cfg.Cache.SigningSecret)
	if err != nil {
		return err
	}
	if cfg.Cache.SigningSecret == "" {
		slog.Warn("cache.signing_secret is empty; signed audio urls will not survive a restart")
	}
	store, closeStore, err := objectstore.Open(ctx, cfg.Cache, signer)
	if err != nil {
		return fmt.Errorf("opening audio cache: %w", err)
	}
	defer closeStore()
	if p, ok := store.(objectstore.Pinger); ok {
		healthServer.AddCheck("audio_cache", p.Ping)
	}

	// Engines.
	flags := cfg.Audio.Flags()
	engineOpts := fileengine.Options{
		Store:         store,
		SignTTL:       cfg.Cache.SignTTL(),
		MaxChunkChars: cfg.Audio.ChunkChars,
		CallTimeout:   cfg.Audio.CallTimeout(),
		MaxRetries:    cfg.Audio.MaxRetries,
		RetryBackoff:  cfg.Audio.RetryBackoff(),
		SingleFlight:  cfg.Cache.SingleFlight,
		Planner:       soundstage.NewPlanner(uuid.NewString),
	}
	if cfg.Audio.RequestsPerSecond > 0 {
		engineOpts.Limiter = rate.NewLimiter(rate.Limit(cfg.Audio.RequestsPerSecond), max(cfg.Audio.Burst, 1))
	}

	localEngine, err := local.New(cfg.Local, engineOpts)
	if err != nil {
		return err
	}
	engines, err := audio.NewRegistry(
		elevenlabs.New(cfg.ElevenLabs, engineOpts),
		localEngine,
		realtime.New(cfg.Realtime),
	)
	if err != nil {
		return err
	}
	slog.Info("audio engines ready",
		"mode", flags.Mode,
		"file_engine", flags.FileEngine,
		"realtime_enabled", flags.RealtimeEnabled,
		"prod_like", flags.ProdLike(),
		"local_backend", localEngine.Name())

	// Stories and runs.
	stories, err := story.Load(cfg.Stories.CatalogPath)
	if err != nil {
		return err
	}
	runs, err := run.Open(cfg.Runs.DatabasePath)
	if err != nil {
		return err
	}
	defer runs.Close()
	healthServer.AddCheck("runs", runs.Ping)

	replays, err := run.NewReplaySigner(cfg.Runs.ReplaySecret)
	if err != nil {
		return err
	}

	// Room relay. Without redis every event stays in this process.
	hub := room.NewHub()
	var broker room.Broker = room.NewLocalBroker(hub)
	if cfg.Rooms.RedisURL != "" {
		rb, err := room.NewRedisBroker(cfg.Rooms.RedisURL, hub)
		if err != nil {
			return err
		}
		defer rb.Close()
		healthServer.AddCheck("room_relay", rb.Ping)
		go func() {
			if err := rb.Run(ctx); err != nil {
				slog.Error("room relay stopped", "error", err)
			}
		}()
		broker = rb
	}
	hub.Bind(broker)

	// Create the dispatcher.
	dispatcher, err := dispatch.New(dispatch.Deps{
		Flags:   flags,
		Engines: engines,
		Stories: stories,
		Runs:    runs,
		Beats:   narration.Demo{},
		Rooms:   room.NewDirectory(),
		Broker:  broker,
		Replays: replays,
	})
	if err != nil {
		return err
	}

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		opts := httptransport.Options{
			Port:           cfg.Transports.HTTP.Port,
			RateLimitRPM:   cfg.Transports.HTTP.RateLimitRPM,
			RateLimitBurst: cfg.Transports.HTTP.RateLimitBurst,
			Hub:            hub,
			Signer:         signer,
		}
		if d, ok := store.(objectstore.Downloader); ok {
			opts.Objects = d
		}
		transports = append(transports, httptransport.New(opts))
	}

	if len(transports) == 0 {
		return errors.New("no transports enabled; enable at least one in config")
	}

	// Start health check server.
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, dispatcher); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("ovida ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	return nil
}
