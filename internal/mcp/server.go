// Package mcp exposes the prediction pipeline as MCP tools over stdio, so
// operator assistants can score telemetry and inspect the feature contract
// without going through the HTTP API.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"voltguard/internal/manifest"
	"voltguard/internal/predict"
	"voltguard/internal/reconcile"
)

// Server wraps the MCP SDK server. All tools are stateless: each call
// scores independently, nothing is kept between calls.
type Server struct {
	MCPServer *sdkmcp.Server

	pipe *predict.Pipeline
	man  *manifest.Manifest
}

// NewServer creates an MCP server with the prediction tools registered.
func NewServer(pipe *predict.Pipeline, man *manifest.Manifest, version string) *Server {
	s := &Server{pipe: pipe, man: man}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "voltguard", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "predict",
		Description: "Score a batch of raw charge-point telemetry records. Returns one verdict (status, risk level, probability, failure category, root cause) per record, in input order.",
	}, s.handlePredict)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "explain",
		Description: "Reconcile one raw record and return the aligned feature vector, without scoring. Useful for debugging schema drift and alias resolution.",
	}, s.handleExplain)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "manifest",
		Description: "Return the feature manifest the classifier requires: names, roles, windows and base signals, in positional order.",
	}, s.handleManifest)
}

// --- Tool input/output types ---

type predictInput struct {
	Records []map[string]any `json:"records" jsonschema:"raw telemetry records, arbitrary numeric keys"`
}

type predictOutput struct {
	Verdicts []predict.Verdict `json:"verdicts"`
}

type explainInput struct {
	Record map[string]any `json:"record" jsonschema:"one raw telemetry record"`
}

type explainOutput struct {
	Features []alignedFeature `json:"features"`
}

type alignedFeature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type manifestOutput struct {
	Features []manifest.Descriptor `json:"features"`
}

// --- Handlers ---

func (s *Server) handlePredict(ctx context.Context, _ *sdkmcp.CallToolRequest, in predictInput) (*sdkmcp.CallToolResult, predictOutput, error) {
	if len(in.Records) == 0 {
		return nil, predictOutput{}, fmt.Errorf("records must not be empty")
	}
	records := make([]reconcile.Record, len(in.Records))
	for i, raw := range in.Records {
		records[i] = reconcile.CoerceRecord(raw)
	}
	verdicts, err := s.pipe.Predict(ctx, records)
	if err != nil {
		return nil, predictOutput{}, err
	}
	return nil, predictOutput{Verdicts: verdicts}, nil
}

func (s *Server) handleExplain(_ context.Context, _ *sdkmcp.CallToolRequest, in explainInput) (*sdkmcp.CallToolResult, explainOutput, error) {
	if in.Record == nil {
		return nil, explainOutput{}, fmt.Errorf("record is required")
	}
	vec := s.pipe.Engine().Reconcile(reconcile.CoerceRecord(in.Record))
	features := make([]alignedFeature, vec.Len())
	for i, name := range vec.Names {
		features[i] = alignedFeature{Name: name, Value: vec.Values[i]}
	}
	return nil, explainOutput{Features: features}, nil
}

func (s *Server) handleManifest(_ context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, manifestOutput, error) {
	return nil, manifestOutput{Features: s.man.Features()}, nil
}
