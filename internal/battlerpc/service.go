// Package battlerpc serves battle resolution over gRPC. Messages are
// google.protobuf.Struct values carrying the same JSON shape as the HTTP API.
package battlerpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/warsim/internal/battle"
	"github.com/cory-johannsen/warsim/internal/content"
	"github.com/cory-johannsen/warsim/internal/scenario"
	"github.com/cory-johannsen/warsim/internal/simulation"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "warsim.v1.BattleService"

// Full method names.
const (
	MethodRun = "/" + ServiceName + "/Run"
	MethodGet = "/" + ServiceName + "/Get"
)

// Request fields.
const (
	FieldScenario = "scenario"
	FieldEvents   = "events"
	FieldID       = "id"
)

// BattleServiceServer is the server API for BattleService.
type BattleServiceServer interface {
	// Run resolves {"scenario": ref, "events": bool} and returns the report.
	Run(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// Get returns the stored report for {"id": uuid}.
	Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes BattleService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BattleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: runHandler},
		{MethodName: "Get", Handler: getHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "warsim/v1/battle.proto",
}

// RegisterBattleServiceServer registers srv on s.
func RegisterBattleServiceServer(s grpc.ServiceRegistrar, srv BattleServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func runHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BattleServiceServer).Run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodRun}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BattleServiceServer).Run(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BattleServiceServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGet}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BattleServiceServer).Get(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Runner resolves a battle from a scenario reference.
type Runner interface {
	Run(ctx context.Context, ref string, observers ...battle.Sink) (*simulation.Report, error)
}

// ReportReader loads stored reports.
type ReportReader interface {
	Get(ctx context.Context, id uuid.UUID) (*simulation.Report, error)
}

// Server implements BattleServiceServer over a simulation runner.
type Server struct {
	runner  Runner
	reports ReportReader
	logger  *zap.Logger
}

// NewServer creates a Server.
//
// Precondition: runner, reports and logger must be non-nil.
func NewServer(runner Runner, reports ReportReader, logger *zap.Logger) *Server {
	return &Server{runner: runner, reports: reports, logger: logger}
}

// Run resolves the requested scenario.
//
// Postcondition: Returns the report, or InvalidArgument, NotFound or Internal.
func (s *Server) Run(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ref := req.GetFields()[FieldScenario].GetStringValue()
	if ref == "" {
		return nil, status.Error(codes.InvalidArgument, "scenario is required")
	}
	rep, err := s.runner.Run(ctx, ref)
	if err != nil {
		code := codeFor(err)
		if code == codes.Internal {
			s.logger.Error("running battle", zap.String("scenario", ref), zap.Error(err))
		}
		return nil, status.Error(code, err.Error())
	}
	if !req.GetFields()[FieldEvents].GetBoolValue() {
		cp := *rep
		cp.Events = nil
		rep = &cp
	}
	return ReportToStruct(rep)
}

// Get loads a stored report.
//
// Postcondition: Returns the report with events, or InvalidArgument, NotFound
// or Internal.
func (s *Server) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuid.Parse(req.GetFields()[FieldID].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid battle id")
	}
	rep, err := s.reports.Get(ctx, id)
	if err != nil {
		if errors.Is(err, simulation.ErrReportNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		s.logger.Error("loading battle", zap.String("id", id.String()), zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return ReportToStruct(rep)
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, scenario.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, scenario.ErrInvalid),
		errors.Is(err, content.ErrUnknownUnit),
		errors.Is(err, content.ErrUnknownEffect):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// ReportToStruct converts r to a Struct with the report's JSON field names.
func ReportToStruct(r *simulation.Report) (*structpb.Struct, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("converting report: %w", err)
	}
	return out, nil
}

// ReportFromStruct is the inverse of ReportToStruct.
func ReportFromStruct(s *structpb.Struct) (*simulation.Report, error) {
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding struct: %w", err)
	}
	var r simulation.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}
