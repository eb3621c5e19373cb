
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"accessiai/internal/analyzer"
)

func mcpCmd(root *rootOptions) *cobra.Command {
	var transport string
	var port int
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyzer as a Model Context Protocol tool",
		Long: `Start an MCP server exposing one tool, analyze_accessibility(url, patch?),
which returns the analysis result as JSON.

Supported transports:
  stdio             Standard I/O (default)
  streamable-http   Streamable HTTP transport`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeFn, err := analyzer.FromConfig(root.cfg, root.log)
			if err != nil {
				return err
			}
			defer closeFn()
			s := newMCPServer(a)
			switch transport {
			case "stdio":
				return mcpserver.ServeStdio(s)
			case "streamable-http":
				return mcpserver.NewStreamableHTTPServer(s).Start(fmt.Sprintf(":%d", port))
			default:
				return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
			}
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "transport: stdio, streamable-http")
	cmd.Flags().IntVar(&port, "port", 8090, "HTTP port for streamable-http transport")
	return cmd
}

type analyzeTool struct {
	a *analyzer.Analyzer
}

func newMCPServer(a *analyzer.Analyzer) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("accessiai", Version)
	t := &analyzeTool{a: a}
	s.AddTool(
		mcp.NewTool("analyze_accessibility",
			mcp.WithDescription("Analyze a web page for missing alt text, low color contrast and unlabeled interactive elements. Returns a JSON report with suggested fixes."),
			mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL of the page")),
			mcp.WithBoolean("patch", mcp.Description("Also return the page markup with fixes applied")),
		),
		t.handle,
	)
	return s
}

// handle reports analysis failures as tool errors so the client sees the
// message rather than a protocol fault.
func (t *analyzeTool) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := req.GetArguments()
	url, _ := params["url"].(string)
	patch, _ := params["patch"].(bool)

	res := t.a.Analyze(ctx, url, analyzer.Options{Patch: patch})
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Success {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
