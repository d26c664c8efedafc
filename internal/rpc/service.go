// Package rpc exposes the diagnostics facade over gRPC. Messages are
// google.protobuf.Struct values carrying the JSON forms of
// diagnostics.Request and diagnostics.Result, so no generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-desc
// ServiceName is the fully qualified gRPC service name.
const ServiceName = "diagnostics.v1.Diagnostics"

// Full method names.
const (
	AnalyzeMethod = "/" + ServiceName + "/Analyze"
	AxesMethod    = "/" + ServiceName + "/Axes"
)

// DiagnosticsServer is the server API.
type DiagnosticsServer interface {
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Axes(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterDiagnosticsServer registers srv on s.
func RegisterDiagnosticsServer(s grpc.ServiceRegistrar, srv DiagnosticsServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiagnosticsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
		{MethodName: "Axes", Handler: axesHandler},
	},
	Metadata: "diagnostics/v1/diagnostics.proto",
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AnalyzeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsServer).Analyze(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func axesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsServer).Axes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AxesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsServer).Axes(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc
