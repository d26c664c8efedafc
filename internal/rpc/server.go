package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/diagnostics"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region server
// Server implements DiagnosticsServer over a diagnostics.Service.
type Server struct {
	svc    *diagnostics.Service
	logger *zap.Logger
}

// NewServer creates the gRPC handler. A nil logger discards output.
func NewServer(svc *diagnostics.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger}
}

// NewGRPCServer returns a grpc.Server with the diagnostics service
// registered and a logging interceptor installed.
func NewGRPCServer(svc *diagnostics.Service, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	srv := NewServer(svc, logger)
	opts = append(opts, grpc.ChainUnaryInterceptor(srv.logCalls))
	s := grpc.NewServer(opts...)
	RegisterDiagnosticsServer(s, srv)
	return s
}

// Analyze decodes a diagnostics.Request, runs it and returns the result.
func (s *Server) Analyze(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req diagnostics.Request
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	res, err := s.svc.Analyze(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

// Axes lists the axis model: {"axes": [...], "aliases": {...}}.
func (s *Server) Axes(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	model := s.svc.Model()
	aliases := map[string]string{}
	for _, pair := range model.Aliases() {
		aliases[pair[0]] = pair[1]
	}
	out, err := toStruct(AxesResponse{Axes: model.All(), Aliases: aliases})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode axes: %v", err)
	}
	return out, nil
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn("rpc failed", zap.String("method", info.FullMethod), zap.Error(err))
	} else {
		s.logger.Debug("rpc served", zap.String("method", info.FullMethod))
	}
	return resp, err
}

// #endregion server

// #region encoding
// AxesResponse is the Axes payload.
type AxesResponse struct {
	Axes    []axis.Axis       `json:"axes"`
	Aliases map[string]string `json:"aliases"`
}

// toStatus maps authoring errors to InvalidArgument.
func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, axis.ErrUnknownAxis),
		errors.Is(err, expression.ErrMalformedExpression),
		errors.Is(err, prototype.ErrUnknownPrototype),
		errors.Is(err, gate.ErrInvalidPredicate),
		errors.Is(err, regime.ErrInvalidBound):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// toStruct goes through encoding/json so struct tags decide the shape.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}

func fromStruct(s *structpb.Struct, v any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

// #endregion encoding
