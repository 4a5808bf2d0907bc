// Package transport defines the interface for pluggable transports.
//
// Each transport (HTTP/WebSocket, gRPC) implements this interface and is
// started by the daemon with the dispatcher as its Service. The dispatcher
// doesn't care how requests arrive; it only works with the Service contract.
package transport

import (
	"context"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/message"
	"github.com/nadzzz/ovida/internal/room"
	"github.com/nadzzz/ovida/internal/run"
	"github.com/nadzzz/ovida/internal/story"
)

// Service is the dispatcher surface the transports expose.
type Service interface {
	Synthesize(ctx context.Context, req *message.SynthesizeRequest) (*message.SynthesizeResponse, error)
	Stories() []story.Story

	CreateRun(ctx context.Context, req *message.CreateRunRequest) (run.Run, error)
	GetRun(ctx context.Context, id string) (run.Run, error)
	NextBeat(ctx context.Context, runID string, index *int) (*message.BeatResponse, error)
	Replay(ctx context.Context, runID string) (run.Replay, error)
	VerifyReplay(r run.Replay) error

	CreateRoom(ctx context.Context, req *message.CreateRoomRequest) (room.Room, error)
	GetRoom(id string) (room.Room, error)
	StartLiveBeat(ctx context.Context, roomID string, req *message.LiveBeatRequest) (*message.LiveBeatResponse, error)
	FinalizeLiveBeat(ctx context.Context, roomID string, req *message.LiveBeatRequest) (*audio.FilesResult, error)
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "http", "grpc").
	Name() string

	// Listen starts accepting requests and serves them from svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
