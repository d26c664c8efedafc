package rpc

import (
	"context"
	"net"
	"testing"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/diagnostics"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T) (*Client, *diagnostics.Service) {
	t.Helper()
	reg, err := prototype.Default(axis.NewModel())
	require.NoError(t, err)
	cfg := diagnostics.DefaultConfig()
	cfg.Simulation.SampleCount = 800
	svc := diagnostics.NewService(cfg, reg, nil)

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(svc, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, svc
}

func definition(t *testing.T, src string) expression.Definition {
	t.Helper()
	def, err := expression.ParseDefinition([]byte(src), ".json")
	require.NoError(t, err)
	return def
}

func TestAnalyzeOverGRPC(t *testing.T) {
	client, svc := startServer(t)
	seed := uint64(5)
	req := diagnostics.Request{
		Definition: definition(t, `{"id":"remote","prerequisites":[{"logic": {"and": [
			{">=": [{"var": "emotions.joy"}, 0.4]},
			{"<=": [{"var": "moodAxes.threat"}, 20]}
		]}}]}`),
		Regime: regime.Definition{"valence": {Min: regime.Ptr(0.2)}},
		Seed:   &seed,
	}

	remote, err := client.Analyze(context.Background(), req)
	require.NoError(t, err)
	local, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, local.Simulation.PassCount, remote.Simulation.PassCount)
	assert.Equal(t, local.Simulation.InRegimeCount, remote.Simulation.InRegimeCount)
	assert.InDelta(t, local.Simulation.TriggerRate, remote.Simulation.TriggerRate, 1e-12)
	require.Len(t, remote.Blockers, len(local.Blockers))
	assert.Equal(t, local.Blockers[0].ClauseID, remote.Blockers[0].ClauseID)
	assert.Equal(t, local.Report[:40], remote.Report[:40])
	require.NotNil(t, remote.Leaderboard)
	assert.Equal(t, len(local.Leaderboard.Entries), len(remote.Leaderboard.Entries))
	assert.Len(t, remote.Recommendations, len(local.Recommendations))
	assert.Equal(t, local.Simulation.Breakdown.Find("0.1").FailureCount,
		remote.Simulation.Breakdown.Find("0.1").FailureCount)
}

func TestAuthoringErrorIsInvalidArgument(t *testing.T) {
	client, _ := startServer(t)
	_, err := client.Analyze(context.Background(), diagnostics.Request{
		Definition: definition(t, `{"id":"bad","prerequisites":[{"logic": {">=": [{"var": "emotions.nope"}, 0.4]}}]}`),
	})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
}

func TestAxesOverGRPC(t *testing.T) {
	client, _ := startServer(t)
	res, err := client.Axes(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Axes, len(axis.NewModel().All()))
	assert.Equal(t, axis.SexualArousal, res.Aliases["SA"])
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.Canceled, status.Code(toStatus(context.Canceled)))
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatus(regime.ErrInvalidBound)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
}
