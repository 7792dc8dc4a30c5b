// CLAUDE:SUMMARY Registers the domfix MCP tools: status, reconcile, pass history, rule failures, screen digest.
package domfix

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domfix/kit"
)

// RegisterMCP registers the engine tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerStatusTool(srv)
	e.registerReconcileTool(srv)
	e.registerPassesTool(srv)
	e.registerFailuresTool(srv)
	e.registerScreenTool(srv)
}

func (e *Engine) tool(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	kit.RegisterMCPTool(srv, tool, kit.Logging(e.logger, tool.Name)(endpoint), decode)
}

// --- status ---

type emptyRequest struct{}

func (e *Engine) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domfix_status",
		Description: "Engine status: active screen, rule count, watcher counters and the last pass.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}
	e.tool(srv, tool, func(ctx context.Context, _ any) (any, error) {
		return e.Status(), nil
	}, kit.DecodeJSON[emptyRequest]())
}

// --- reconcile ---

type screenRequest struct {
	Screen string `json:"screen,omitempty"`
	Format string `json:"format,omitempty"`
}

func (e *Engine) registerReconcileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domfix_reconcile",
		Description: "Run a reconciliation pass now. Returns the pass report.",
		InputSchema: kit.InputSchema(map[string]any{
			"screen": map[string]any{"type": "string", "description": "Screen ID (default: active screen)"},
		}, nil),
	}
	e.tool(srv, tool, func(ctx context.Context, req any) (any, error) {
		r := req.(*screenRequest)
		if err := e.knownScreen(r.Screen); err != nil {
			return nil, err
		}
		return e.Reconcile(ctx, r.Screen)
	}, kit.DecodeJSON[screenRequest]())
}

// --- passes ---

type passesRequest struct {
	Screen string `json:"screen,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (e *Engine) registerPassesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domfix_passes",
		Description: "Recent pass reports, newest first.",
		InputSchema: kit.InputSchema(map[string]any{
			"screen": map[string]any{"type": "string", "description": "Filter by screen ID"},
			"limit":  map[string]any{"type": "integer", "description": "Max results (default 20)"},
		}, nil),
	}
	e.tool(srv, tool, func(ctx context.Context, req any) (any, error) {
		r := req.(*passesRequest)
		if r.Limit <= 0 {
			r.Limit = 20
		}
		passes, err := e.History(ctx, LedgerQuery{ScreenID: r.Screen, Limit: r.Limit})
		if err != nil {
			return nil, err
		}
		return map[string]any{"passes": passes, "count": len(passes)}, nil
	}, kit.DecodeJSON[passesRequest]())
}

// --- failures ---

func (e *Engine) registerFailuresTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domfix_failures",
		Description: "Rule failure counts by rule ID.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}
	e.tool(srv, tool, func(ctx context.Context, _ any) (any, error) {
		return e.FailuresByRule(ctx)
	}, kit.DecodeJSON[emptyRequest]())
}

// --- screen ---

func (e *Engine) registerScreenTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domfix_screen",
		Description: "Current content of a screen, as markdown (default) or HTML.",
		InputSchema: kit.InputSchema(map[string]any{
			"screen": map[string]any{"type": "string", "description": "Screen ID (default: active screen)"},
			"format": map[string]any{"type": "string", "enum": []any{"markdown", "html"}},
		}, nil),
	}
	e.tool(srv, tool, func(ctx context.Context, req any) (any, error) {
		r := req.(*screenRequest)
		if err := e.knownScreen(r.Screen); err != nil {
			return nil, err
		}
		html, err := e.ScreenHTML(ctx, r.Screen)
		if err != nil {
			return nil, err
		}
		screen := r.Screen
		if screen == "" {
			screen = e.hook.Current()
		}
		if r.Format == "html" {
			return map[string]string{"screen": screen, "format": "html", "content": html}, nil
		}
		md, err := Digest(html)
		if err != nil {
			return nil, err
		}
		return map[string]string{"screen": screen, "format": "markdown", "content": md}, nil
	}, kit.DecodeJSON[screenRequest]())
}

func (e *Engine) knownScreen(id string) error {
	if id == "" {
		return nil
	}
	if _, ok := e.reg.Screen(id); !ok {
		return fmt.Errorf("unknown screen %q", id)
	}
	return nil
}
