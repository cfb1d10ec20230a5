// Package mcpserver exposes the same §6 read-interface contract as
// internal/handler, but as an MCP tool over github.com/modelcontextprotocol/go-sdk,
// so an MCP-capable client can query social context without HTTP. The
// teacher's config.go already carries MCP_TRANSPORT/MCP_HTTP_* fields
// (internal/config.Config); this package is what finally gives them a real
// server instead of leaving them inert.
//
// NOTE: the go-sdk's exact tool-registration surface was not present in any
// retrieved reference source for this module; the shape below follows the
// SDK's documented generic-handler convention as of v1.3.0. Flagged in
// DESIGN.md as an assumption, not a grounded-on-source adaptation.
package mcpserver

import (
	"context"
	"fmt"
	"time"

	"socialcontext/internal/config"
	"socialcontext/internal/contextquery"
	"socialcontext/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ContextStore is the subset of eventstore.Store the MCP tool needs,
// identical in shape to handler.ContextStore so both surfaces stay in sync.
type ContextStore interface {
	QueryContextRecords(ctx context.Context, asset string, since, until interface{}, sources []domain.Source) ([]domain.ContextRecord, error)
	QueryQualityEvents(ctx context.Context, since, until interface{}) ([]domain.DataQualityEvent, error)
}

// ContextArgs is the input schema for the get_context tool, mirroring the
// handler's query parameters.
type ContextArgs struct {
	Asset   string   `json:"asset" jsonschema:"the asset symbol, e.g. BTC"`
	Sources []string `json:"sources" jsonschema:"subset of twitter,reddit,telegram"`
	Since   string   `json:"since" jsonschema:"RFC3339 window start"`
	Until   string   `json:"until" jsonschema:"RFC3339 window end"`
}

// Server wraps the MCP server instance and its backing store.
type Server struct {
	mcp   *mcp.Server
	store ContextStore
	cfg   *config.Config
}

// New builds the MCP server and registers the get_context tool.
func New(cfg *config.Config, store ContextStore) *Server {
	impl := &mcp.Implementation{Name: "socialcontext", Version: "1.0.0"}
	server := mcp.NewServer(impl, nil)

	s := &Server{mcp: server, store: store, cfg: cfg}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_context",
		Description: "Returns aggregated sentiment, risk indicators, and data quality for an asset over a bounded time window.",
	}, s.getContext)

	return s
}

func (s *Server) getContext(ctx context.Context, req *mcp.CallToolRequest, args ContextArgs) (*mcp.CallToolResult, any, error) {
	since, err := time.Parse(time.RFC3339, args.Since)
	if err != nil {
		return nil, nil, fmt.Errorf("mcpserver: invalid since: %w", err)
	}
	until, err := time.Parse(time.RFC3339, args.Until)
	if err != nil {
		return nil, nil, fmt.Errorf("mcpserver: invalid until: %w", err)
	}

	sources := make([]domain.Source, 0, len(args.Sources))
	for _, src := range args.Sources {
		sources = append(sources, domain.Source(src))
	}

	query, err := contextquery.Validate(args.Asset, sources, since, until)
	if err != nil {
		return nil, nil, err
	}

	records, err := s.store.QueryContextRecords(ctx, query.Asset, query.Since, query.Until, query.Sources)
	if err != nil {
		return nil, nil, fmt.Errorf("mcpserver: query context records: %w", err)
	}
	quality, err := s.store.QueryQualityEvents(ctx, query.Since, query.Until)
	if err != nil {
		return nil, nil, fmt.Errorf("mcpserver: query quality events: %w", err)
	}

	result := contextquery.Aggregate(query, records, quality)
	return nil, result, nil
}

// Run serves the MCP server over stdio. cfg.MCPTransport/cfg.MCPHTTPEnabled
// are not consulted, and cmd/server starts Run whatever they say: the
// go-sdk's HTTP transport surface could not be grounded against any
// retrieved reference source for this module (see DESIGN.md), so no HTTP
// transport is wired rather than guess at an unverified API.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
