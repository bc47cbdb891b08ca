// Package mcpserver exposes the hoisting transform as a Model Context
// Protocol tool, so an external agent can ask "what would scope-hoisting
// do to this module" without shelling out to the CLI.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bernharduw/parcel/internal/asset"
	"github.com/bernharduw/parcel/internal/diag"
	"github.com/bernharduw/parcel/internal/hoist"
	"github.com/bernharduw/parcel/internal/parsebridge"
)

const serverVersion = "0.1.0"

// Server wraps an *server.MCPServer exposing the hoist_module tool.
type Server struct {
	mcpServer *server.MCPServer
	bridge    *parsebridge.Bridge
	log       *diag.Log
}

// NewServer builds a Server. log may be nil to disable diagnostic
// reporting of hoist failures.
func NewServer(log *diag.Log) *Server {
	s := &Server{bridge: parsebridge.NewBridge(), log: log}

	s.mcpServer = server.NewMCPServer("parcel-hoist", serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: hoistModuleTool(), Handler: s.handleHoistModule},
	)

	return s
}

func hoistModuleTool() mcp.Tool {
	return mcp.NewTool("hoist_module",
		mcp.WithDescription("Runs the scope-hoisting transform over one module's source and returns the rewritten source plus its exported symbol names and metadata."),
		mcp.WithString("source", mcp.Required(), mcp.Description("The module's JavaScript or TypeScript source text.")),
		mcp.WithString("language", mcp.Description(`One of "js", "ts", "tsx". Defaults to "js".`)),
		mcp.WithString("assetID", mcp.Required(), mcp.Description("A stable identifier for this module, used to derive generated binding names.")),
		mcp.WithBoolean("node", mcp.Description("Whether the module runs under Node (gates the module.require rewrite).")),
		mcp.WithArray("dependencies", mcp.Description("Module specifiers this asset is allowed to depend on; each becomes a Dependency the hoister can resolve imports/requires against.")),
	)
}

// hoistModuleResult is the tool's JSON response shape.
type hoistModuleResult struct {
	Source  string         `json:"source"`
	Symbols []string       `json:"symbols"`
	Meta    map[string]any `json:"meta"`
}

func (s *Server) handleHoistModule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	source, _ := args["source"].(string)
	assetID, _ := args["assetID"].(string)
	if source == "" || assetID == "" {
		return mcp.NewToolResultError("source and assetID are required"), nil
	}

	lang := parsebridge.LanguageJavaScript
	switch langStr, _ := args["language"].(string); langStr {
	case "ts":
		lang = parsebridge.LanguageTypeScript
	case "tsx":
		lang = parsebridge.LanguageTSX
	}

	node, _ := args["node"].(bool)

	tree, err := s.bridge.Parse(assetID, []byte(source), lang)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("parsing source", err), nil
	}

	a := asset.NewAsset(assetID, assetID, tree)
	a.Env = asset.Env{Node: node}

	if deps, ok := args["dependencies"].([]any); ok {
		for _, d := range deps {
			spec, ok := d.(string)
			if !ok {
				continue
			}
			a.AddDependency(asset.NewDependency(spec, false))
		}
	}

	if hoistErr := hoist.Hoist(a); hoistErr != nil {
		if he, ok := hoistErr.(*hoist.Error); ok {
			if s.log != nil {
				s.log.ReportHoistError(assetID, he.Kind, he.Msg)
			}
			data, _ := json.Marshal(map[string]string{"kind": he.Kind.String(), "message": he.Msg})
			result := mcp.NewToolResultError(he.Error())
			result.Content = append(result.Content, mcp.TextContent{Type: "text", Text: string(data)})
			return result, nil
		}
		return mcp.NewToolResultErrorFromErr("hoisting module", hoistErr), nil
	}

	out := hoistModuleResult{
		Source:  parsebridge.Unparse(a.Tree),
		Symbols: symbolNames(a),
		Meta:    map[string]any(a.Meta),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encoding result", err), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

func symbolNames(a *asset.Asset) []string {
	if a.Symbols == nil {
		return nil
	}
	return a.Symbols.ExportSymbols()
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close releases the underlying parse bridge's tree-sitter parsers.
func (s *Server) Close() error {
	s.bridge.Close()
	return nil
}
