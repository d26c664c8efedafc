// exprdiag-mcp exposes expression diagnostics as an MCP stdio server.
//
// Configuration is read the same way as the exprdiag CLI: the YAML file named
// by EXPRDIAG_CONFIG (optional) followed by EXPRDIAG_* environment variables.
// Logs go to stderr; stdout carries the protocol.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/config"
	"github.com/danielpatrickdp/exprdiag/internal/diagnostics"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/logging"
	"github.com/danielpatrickdp/exprdiag/internal/prototype"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"github.com/danielpatrickdp/exprdiag/internal/sampler"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("EXPRDIAG_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	reg, err := prototype.Default(axis.NewModel())
	if err != nil {
		log.Fatalf("load prototypes: %v", err)
	}
	svc := diagnostics.NewService(cfg.Diagnostics(), reg, logger)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "exprdiag-mcp",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_expression",
		Description: "Run full feasibility diagnostics for an expression: trigger rate, blockers, prototype fit and recommendations. Returns the markdown report followed by the recommendations as JSON.",
	}, analyzeHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rank_prototypes",
		Description: "Rank candidate prototypes for an expression over freshly sampled states, optionally restricted to a mood regime.",
	}, rankHandler(svc, cfg.Simulation.Seed, cfg.Simulation.SampleCount))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_axes",
		Description: "List canonical axes with raw and normalized domains, plus accepted aliases.",
	}, axesHandler(svc.Model()))

	logger.Info("exprdiag-mcp ready", zap.Int("prototypes", reg.Len()))
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("exprdiag-mcp: %v", err)
	}
}

// #region inputs
type analyzeInput struct {
	Expression   expression.Definition `json:"expression"              jsonschema:"Expression definition: id plus prerequisites[].logic JsonLogic trees"`
	Regime       regime.Definition     `json:"regime,omitempty"        jsonschema:"Optional mood regime: axis name to {min,max} in normalized units"`
	Seed         *uint64               `json:"seed,omitempty"          jsonschema:"Optional sampler seed"`
	SampleCount  int                   `json:"sample_count,omitempty"  jsonschema:"Optional sample count override"`
	FitThreshold *float64              `json:"fit_threshold,omitempty" jsonschema:"Optional prototype fit threshold"`
}

type rankInput struct {
	Expression  expression.Definition `json:"expression"             jsonschema:"Expression definition"`
	Regime      regime.Definition     `json:"regime,omitempty"       jsonschema:"Optional mood regime"`
	SampleCount int                   `json:"sample_count,omitempty" jsonschema:"Sample count (default from config)"`
	Threshold   *float64              `json:"threshold,omitempty"    jsonschema:"Intensity threshold (default: the expression's reference threshold)"`
}

type axesInput struct{}

// #endregion inputs

// #region handlers
func analyzeHandler(svc *diagnostics.Service) func(context.Context, *mcp.CallToolRequest, analyzeInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input analyzeInput) (*mcp.CallToolResult, any, error) {
		res, err := svc.Analyze(ctx, diagnostics.Request{
			Definition:   input.Expression,
			Regime:       input.Regime,
			Seed:         input.Seed,
			SampleCount:  input.SampleCount,
			FitThreshold: input.FitThreshold,
		})
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(res.Report + "\n\n```json\n" + jsonString(res.Recommendations) + "\n```\n"), nil, nil
	}
}

func rankHandler(svc *diagnostics.Service, seed uint64, defaultN int) func(context.Context, *mcp.CallToolRequest, rankInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input rankInput) (*mcp.CallToolResult, any, error) {
		n := input.SampleCount
		if n <= 0 {
			n = defaultN
		}
		contexts, err := sampler.New(svc.Model(), seed).Sample(n, nil)
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		lb, err := svc.RankPrototypes(input.Expression, input.Regime, contexts, input.Threshold)
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(jsonString(lb)), nil, nil
	}
}

func axesHandler(model *axis.Model) func(context.Context, *mcp.CallToolRequest, axesInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input axesInput) (*mcp.CallToolResult, any, error) {
		aliases := map[string]string{}
		for _, pair := range model.Aliases() {
			aliases[pair[0]] = pair[1]
		}
		return textResult(jsonString(map[string]any{
			"axes":    model.All(),
			"aliases": aliases,
		})), nil, nil
	}
}

// #endregion handlers

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonString(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal: %v"}`, err)
	}
	return string(data)
}
