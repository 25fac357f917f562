package browsertools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/browsermcp/assert"
	"github.com/hazyhaar/browsermcp/browsertools/internal/browser"
	"github.com/hazyhaar/browsermcp/kit"
	"github.com/hazyhaar/browsermcp/recording"
)

// RegisterMCP registers the browser tools on an MCP server.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerNavigateTool(srv)
	s.registerSnapshotTool(srv)
	s.registerAssertContainTextTool(srv)
	s.registerCloseTool(srv)
	s.registerRecordedStepsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (s *Server) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(*mcp.CallToolRequest) (any, error)) {
	wrapped := kit.Chain(kit.Logging(s.logger, tool.Name), s.serialize)(endpoint)
	kit.RegisterMCPTool(srv, tool, wrapped, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		r, err := decode(req)
		if err != nil {
			s.logger.Warn("browsertools: rejected call", "tool", tool.Name, "error", err)
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request: r,
			EnrichCtx: func(ctx context.Context) context.Context {
				ctx = kit.WithTransport(ctx, s.cfg.Server.Transport)
				return kit.WithSessionID(ctx, s.sessionID)
			},
		}, nil
	})
}

func noArgs(*mcp.CallToolRequest) (any, error) { return nil, nil }

// --- navigate ---

type navigateReq struct {
	URL string `json:"url"`
}

func (s *Server) registerNavigateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_navigate",
		Description: "Navigate to a URL. Returns the page snapshot whose refs the other tools accept.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "The URL to navigate to"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*navigateReq)
		if err := s.guard.Check(r.URL); err != nil {
			return nil, fmt.Errorf("navigation blocked: %w", err)
		}
		start := time.Now()
		snap, err := s.backend.Navigate(ctx, r.URL)
		if err != nil {
			return nil, err
		}
		s.record(ctx, recording.Step{
			Tool:     tool.Name,
			Trace:    "Navigate to " + r.URL,
			Code:     fmt.Sprintf("page.MustNavigate(%q).MustWaitLoad()", r.URL),
			Duration: time.Since(start),
		})
		return kit.Text(renderPage(snap)), nil
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		r, err := kit.DecodeArgs[navigateReq](req)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(r.URL) == "" {
			return nil, errors.New("url is required")
		}
		return r, nil
	}

	s.register(srv, tool, endpoint, decode)
}

// --- snapshot ---

func (s *Server) registerSnapshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_snapshot",
		Description: "Capture an accessibility-style snapshot of the current page. Refs from earlier snapshots stop resolving.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		snap, err := s.backend.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return kit.Text(renderPage(snap)), nil
	}

	s.register(srv, tool, endpoint, noArgs)
}

// --- assert_contain_text ---

func (s *Server) registerAssertContainTextTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: assert.ToolName,
		Description: `Assert that the element or the whole page contains the expected text. ` +
			`It returns JSON having "result" (PASS or FAIL), "against" (assert against element or page) ` +
			`and "error" (details if result is FAIL).`,
		InputSchema: inputSchema(map[string]any{
			"element": map[string]any{
				"type":        "string",
				"description": "Human-readable element description used to obtain permission to interact with the element",
			},
			"ref": map[string]any{
				"type":        "string",
				"description": "Exact target element reference from the page snapshot",
			},
			"against": map[string]any{
				"type":        "string",
				"enum":        []string{string(assert.AgainstElement), string(assert.AgainstPage)},
				"description": "Assert against the specified element or the whole page. If page, element and ref are not needed.",
			},
			"expected": map[string]any{
				"type":        "string",
				"description": "Expected text to be contained in the specified element or the whole page",
			},
		}, []string{"against", "expected"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(assert.Request)
		res, err := s.evaluator.Evaluate(ctx, r)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		r, err := assert.ParseRequest(req.Params.Arguments)
		if err != nil {
			return nil, err
		}
		return r, nil
	}

	s.register(srv, tool, endpoint, decode)
}

// --- close ---

func (s *Server) registerCloseTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_close",
		Description: "Close the page. The next browser_navigate opens a new one.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		if err := s.backend.Close(ctx); err != nil {
			return nil, err
		}
		return map[string]any{"closed": true}, nil
	}

	s.register(srv, tool, endpoint, noArgs)
}

// --- recorded_steps ---

type stepView struct {
	Seq    int64  `json:"seq"`
	Tool   string `json:"tool"`
	Trace  string `json:"trace"`
	Code   string `json:"code"`
	Result string `json:"result,omitempty"`
}

func (s *Server) registerRecordedStepsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "browser_recorded_steps",
		Description: "List the steps recorded in this session and a Go/rod script replaying them. Requires recording to a database.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		if s.store == nil {
			return nil, errors.New("recording to a database is not enabled")
		}
		steps, err := s.store.Steps(ctx, kit.GetSessionID(ctx))
		if err != nil {
			return nil, err
		}
		views := make([]stepView, 0, len(steps))
		for _, st := range steps {
			views = append(views, stepView{Seq: st.Seq, Tool: st.Tool, Trace: st.Trace, Code: st.Code, Result: st.Result})
		}
		return map[string]any{
			"session_id": kit.GetSessionID(ctx),
			"steps":      views,
			"script":     recording.Script(steps),
		}, nil
	}

	s.register(srv, tool, endpoint, noArgs)
}

func renderPage(snap *browser.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Page URL: %s\n", snap.URL)
	fmt.Fprintf(&b, "- Page Title: %s\n", snap.Title)
	b.WriteString("- Page Snapshot\n```yaml\n")
	b.WriteString(snap.Render())
	b.WriteString("```\n")
	return b.String()
}
