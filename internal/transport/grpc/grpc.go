// Package grpc implements the gRPC transport for ovida.
//
// The server carries the standard health and reflection services plus the
// ovida.v1.Narration service. Narration has no generated stubs: its methods
// are declared by hand and exchange the same JSON bodies as the HTTP API, so
// clients call them with the "json" content subtype.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/dispatch"
	"github.com/nadzzz/ovida/internal/message"
	"github.com/nadzzz/ovida/internal/objectstore"
	"github.com/nadzzz/ovida/internal/room"
	"github.com/nadzzz/ovida/internal/run"
	"github.com/nadzzz/ovida/internal/story"
	"github.com/nadzzz/ovida/internal/transport"
)

// ServiceName is the full name of the narration service.
const ServiceName = "ovida.v1.Narration"

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and serves requests from svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, svc)
}

// Serve runs the server on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, svc transport.Service) error {
	t.server = grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary))
	t.health = health.NewServer()

	healthpb.RegisterHealthServer(t.server, t.health)
	t.server.RegisterService(&narrationDesc, svc)
	reflection.Register(t.server)

	t.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	if err := t.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.health != nil {
		t.health.Shutdown()
	}
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// IDRequest addresses a run or room by id.
type IDRequest struct {
	ID string `json:"id"`
}

// NextBeatRequest asks for the next beat of a run.
type NextBeatRequest struct {
	RunID string `json:"run_id"`
	Index *int   `json:"index,omitempty"`
}

// LiveBeatRequest plays a beat into a room.
type LiveBeatRequest struct {
	RoomID string `json:"room_id"`
	message.LiveBeatRequest
}

// Empty is the request of methods without arguments.
type Empty struct{}

var narrationDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*transport.Service)(nil),
	Methods: []grpc.MethodDesc{
		unary("Synthesize", func(ctx context.Context, svc transport.Service, req *message.SynthesizeRequest) (any, error) {
			return svc.Synthesize(ctx, req)
		}),
		unary("ListStories", func(_ context.Context, svc transport.Service, _ *Empty) (any, error) {
			return message.StoriesResponse{Stories: svc.Stories()}, nil
		}),
		unary("CreateRun", func(ctx context.Context, svc transport.Service, req *message.CreateRunRequest) (any, error) {
			r, err := svc.CreateRun(ctx, req)
			return message.RunResponse{Run: r}, err
		}),
		unary("GetRun", func(ctx context.Context, svc transport.Service, req *IDRequest) (any, error) {
			r, err := svc.GetRun(ctx, req.ID)
			return message.RunResponse{Run: r}, err
		}),
		unary("NextBeat", func(ctx context.Context, svc transport.Service, req *NextBeatRequest) (any, error) {
			return svc.NextBeat(ctx, req.RunID, req.Index)
		}),
		unary("GetReplay", func(ctx context.Context, svc transport.Service, req *IDRequest) (any, error) {
			doc, err := svc.Replay(ctx, req.ID)
			return message.ReplayResponse{ID: req.ID, Replay: doc}, err
		}),
		unary("StartLiveBeat", func(ctx context.Context, svc transport.Service, req *LiveBeatRequest) (any, error) {
			return svc.StartLiveBeat(ctx, req.RoomID, &req.LiveBeatRequest)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ovida/v1/narration",
}

// unary declares a method whose request decodes into Req.
func unary[Req any](method string, call func(context.Context, transport.Service, *Req) (any, error)) grpc.MethodDesc {
	invoke := func(ctx context.Context, svc transport.Service, req *Req) (any, error) {
		resp, err := call(ctx, svc, req)
		if err != nil {
			return nil, toStatus(err)
		}
		return resp, nil
	}

	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "decoding %s request: %v", method, err)
			}
			svc := srv.(transport.Service)
			if interceptor == nil {
				return invoke(ctx, svc, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
				return invoke(ctx, svc, r.(*Req))
			})
		},
	}
}

// toStatus maps dispatcher errors onto gRPC status codes.
func toStatus(err error) error {
	var pe *audio.ProviderError
	switch {
	case errors.Is(err, run.ErrNotFound), errors.Is(err, story.ErrNotFound),
		errors.Is(err, room.ErrNotFound), errors.Is(err, objectstore.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, dispatch.ErrInvalidRequest), errors.Is(err, run.ErrBadReplay):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &pe):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		slog.Warn("grpc call failed", "method", info.FullMethod, "code", status.Code(err), "error", err)
		return resp, err
	}
	slog.Debug("grpc call", "method", info.FullMethod, "elapsed", time.Since(start))
	return resp, nil
}
