package kit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPDecodeResult holds the decoded request and an optional context enrichment.
type MCPDecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// Text is an endpoint response sent verbatim as the text content block
// instead of being JSON-encoded.
type Text string

// RegisterMCPTool registers an Endpoint as an MCP tool on the given server.
//
// Two channels are kept apart. A decode or endpoint error is a caller or
// environment fault and comes back as a tool error (IsError, plain text).
// Any response, including a negative domain outcome, is a normal result
// carried in a single text content block.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode func(*mcp.CallToolRequest) (*MCPDecodeResult, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
		if decoded.EnrichCtx != nil {
			ctx = decoded.EnrichCtx(ctx)
		}

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		text, err := encodeResponse(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	})
}

func encodeResponse(resp any) (string, error) {
	if t, ok := resp.(Text); ok {
		return string(t), nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeArgs unmarshals the tool arguments into a fresh T. Empty arguments
// decode to the zero value.
func DecodeArgs[T any](req *mcp.CallToolRequest) (*T, error) {
	var r T
	if len(req.Params.Arguments) == 0 {
		return &r, nil
	}
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
