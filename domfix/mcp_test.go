package domfix

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domfix/domfix/mutation"
)

var testMCPImpl = &mcp.Implementation{Name: "domfix-test", Version: "0.1.0"}

func mcpSession(t *testing.T) (*harness, *mcp.ClientSession) {
	t.Helper()
	h := newHarness(t)
	t.Cleanup(func() { h.e.Close() })

	srv := mcp.NewServer(testMCPImpl, nil)
	h.e.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return h, session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Status(t *testing.T) {
	_, session := mcpSession(t)

	var st Status
	if err := json.Unmarshal([]byte(mcpCallTool(t, session, "domfix_status", map[string]any{})), &st); err != nil {
		t.Fatal(err)
	}
	if !st.Running || st.Screen != "wallet" || st.Passes != 1 {
		t.Errorf("status: %+v", st)
	}
}

func TestMCP_ReconcileAndPasses(t *testing.T) {
	_, session := mcpSession(t)

	var p mutation.Pass
	text := mcpCallTool(t, session, "domfix_reconcile", map[string]any{"screen": "token-detail"})
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		t.Fatal(err)
	}
	if p.ScreenID != "token-detail" || p.Trigger != mutation.TriggerManual {
		t.Errorf("reconcile: %+v", p)
	}

	var resp struct {
		Passes []mutation.Pass `json:"passes"`
		Count  int             `json:"count"`
	}
	text = mcpCallTool(t, session, "domfix_passes", map[string]any{"limit": 10})
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || resp.Passes[0].Seq != 2 {
		t.Errorf("passes: count %d", resp.Count)
	}
}

func TestMCP_UnknownScreen(t *testing.T) {
	_, session := mcpSession(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "domfix_reconcile",
		Arguments: map[string]any{"screen": "nowhere"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown screen")
	}
}

func TestMCP_Screen(t *testing.T) {
	_, session := mcpSession(t)

	var resp struct {
		Screen  string `json:"screen"`
		Format  string `json:"format"`
		Content string `json:"content"`
	}
	text := mcpCallTool(t, session, "domfix_screen", map[string]any{})
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Screen != "wallet" || resp.Format != "markdown" {
		t.Errorf("screen: %s/%s", resp.Screen, resp.Format)
	}
	if !strings.Contains(resp.Content, "![Tron](x.png)") {
		t.Errorf("content has no badge:\n%s", resp.Content)
	}

	text = mcpCallTool(t, session, "domfix_screen", map[string]any{"screen": "token-detail", "format": "html"})
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Content, `id="token-detail-screen"`) {
		t.Errorf("html: %.80s", resp.Content)
	}
}

func TestMCP_Failures(t *testing.T) {
	_, session := mcpSession(t)

	var counts map[string]int
	if err := json.Unmarshal([]byte(mcpCallTool(t, session, "domfix_failures", map[string]any{})), &counts); err != nil {
		t.Fatal(err)
	}
	if len(counts) != 0 {
		t.Errorf("failures: %v", counts)
	}
}
