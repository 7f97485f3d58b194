// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes boot plan tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/bootplan/internal/apperr"
	"github.com/starford/bootplan/internal/planservice"
)

// LayoutResourceURI identifies the layout contract resource.
const LayoutResourceURI = "bootplan://layout"

// Server wraps the MCP server with boot plan tools.
type Server struct {
	mcp *server.MCPServer
	svc *planservice.Service
}

// New creates a new MCP server with all boot plan tools registered.
func New(svc *planservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"bootplan",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("compile_plan",
		mcp.WithDescription("Compile the application layout into a boot plan and record it in the history. "+
			"Returns the history record and whether the plan changed since the previous compile."),
	), s.compilePlan)

	s.mcp.AddTool(mcp.NewTool("get_plan",
		mcp.WithDescription("Return the current boot plan as JSON."),
	), s.getPlan)

	s.mcp.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List models of the current plan in definition order, one per line, with their base model."),
	), s.listModels)

	s.mcp.AddTool(mcp.NewTool("list_mixins",
		mcp.WithDescription("List mixins of the current plan with the file that implements each."),
	), s.listMixins)

	s.mcp.AddTool(mcp.NewTool("list_boot_scripts",
		mcp.WithDescription("List boot scripts of the current plan in execution order."),
	), s.listBootScripts)

	s.mcp.AddTool(mcp.NewTool("plan_history",
		mcp.WithDescription("List compiled plans, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of records (default 20, max 500)")),
	), s.planHistory)

	s.mcp.AddTool(mcp.NewTool("get_layout_contract",
		mcp.WithDescription("Returns the application layout contract: where the compiler looks for "+
			"configuration, models, mixins and boot scripts. Read it before editing the layout."),
	), s.getLayoutContract)

	s.mcp.AddResource(
		mcp.NewResource(LayoutResourceURI, "Application Layout Contract",
			mcp.WithResourceDescription("Directory and file conventions the boot plan compiler reads."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError renders err for the caller, prefixed with its stable code when
// the layout caused it.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNoPlan):
		return mcp.NewToolResultError("no plan compiled yet: call compile_plan first")
	case apperr.IsCompileError(err):
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", apperr.Code(err), err.Error()))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) compilePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Compile(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"record":  res.Record,
		"changed": res.Changed,
		"models":  res.Plan.ModelNames(),
		"mixins":  res.Plan.MixinNames(),
		"boot":    res.Plan.Files.Boot,
	})
}

func (s *Server) getPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, _, err := s.svc.Current(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(plan)
}

func (s *Server) listModels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, _, err := s.svc.Current(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(plan.Models) == 0 {
		return mcp.NewToolResultText("no models"), nil
	}
	lines := make([]string, 0, len(plan.Models))
	for _, m := range plan.Models {
		line := m.Name
		if base := m.Definition.Base(); base != "" {
			line += " (base: " + base + ")"
		}
		if m.Definition == nil {
			line += " (provided by host)"
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listMixins(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, _, err := s.svc.Current(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(plan.Mixins) == 0 {
		return mcp.NewToolResultText("no mixins"), nil
	}
	lines := make([]string, 0, len(plan.Mixins))
	for _, m := range plan.Mixins {
		lines = append(lines, m.Name+"\t"+m.SourceFile)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listBootScripts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan, _, err := s.svc.Current(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(plan.Files.Boot) == 0 {
		return mcp.NewToolResultText("no boot scripts"), nil
	}
	return mcp.NewToolResultText(strings.Join(plan.Files.Boot, "\n")), nil
}

func (s *Server) planHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	recs, total, err := s.svc.History(ctx, limit, 0)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"plans": recs,
		"total": total,
	})
}

func (s *Server) getLayoutContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LayoutContract), nil
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LayoutResourceURI,
			MIMEType: "text/markdown",
			Text:     LayoutContract,
		},
	}, nil
}
