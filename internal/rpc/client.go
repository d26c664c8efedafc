package rpc

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/exprdiag/internal/diagnostics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client calls a remote diagnostics service.
type Client struct {
	conn   *grpc.ClientConn
	invoke grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to addr without transport security.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, invoke: conn}, nil
}

// NewClientWithConn wraps an existing connection, which the caller closes.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{invoke: cc}
}

// #endregion constructor

// #region close
// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region analyze
// Analyze runs diagnostics remotely. Request.Contexts is not sent.
func (c *Client) Analyze(ctx context.Context, req diagnostics.Request) (*diagnostics.Result, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.invoke.Invoke(ctx, AnalyzeMethod, in, out); err != nil {
		return nil, fmt.Errorf("analyze rpc: %w", err)
	}
	var res diagnostics.Result
	if err := fromStruct(out, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// Axes fetches the remote axis model.
func (c *Client) Axes(ctx context.Context) (AxesResponse, error) {
	out := new(structpb.Struct)
	if err := c.invoke.Invoke(ctx, AxesMethod, &structpb.Struct{}, out); err != nil {
		return AxesResponse{}, fmt.Errorf("axes rpc: %w", err)
	}
	var res AxesResponse
	if err := fromStruct(out, &res); err != nil {
		return AxesResponse{}, fmt.Errorf("decode axes: %w", err)
	}
	return res, nil
}

// #endregion analyze
