package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServer creates an MCP server with the converter tools registered.
func (s *Server) NewMCPServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "listenconv", Version: version}, nil)
	s.RegisterMCP(srv)
	return srv
}

// RegisterMCP registers the converter tools on an MCP server.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerConvertTextTool(srv)
	s.registerClassifyTool(srv)
	s.registerConvertFileTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// registerTool adapts a typed endpoint into an MCP tool handler. Decode and
// endpoint errors become tool errors rather than protocol errors.
func registerTool[Req any](srv *mcp.Server, tool *mcp.Tool, endpoint func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		resp, err := endpoint(ctx, &args)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// --- listening_convert_text ---

type convertTextReq struct {
	Text  string `json:"text"`
	Gates bool   `json:"gates"`
}

func (s *Server) registerConvertTextTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "listening_convert_text",
		Description: "Convert extracted listening-test text into structured sections and questions.",
		InputSchema: inputSchema(map[string]any{
			"text":  map[string]any{"type": "string", "description": "Extracted test text, one line per line"},
			"gates": map[string]any{"type": "boolean", "description": "Also run validation gates"},
		}, []string{"text"}),
	}

	registerTool(srv, tool, func(_ context.Context, req *convertTextReq) (any, error) {
		if req.Text == "" {
			return nil, errors.New("text is required")
		}
		start := time.Now()
		doc := s.converter.Convert(req.Text)
		if !req.Gates {
			return doc, nil
		}
		return convertResponse{Document: doc, Report: runGates(req.Text, doc, time.Since(start))}, nil
	})
}

// --- listening_classify ---

type classifyReq struct {
	Lines []string `json:"lines"`
	Text  string   `json:"text"`
}

func (s *Server) registerClassifyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "listening_classify",
		Description: "Classify lines as gap-fill, multiple-choice, matching, multi-select, table or text.",
		InputSchema: inputSchema(map[string]any{
			"lines": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Lines to classify"},
			"text":  map[string]any{"type": "string", "description": "Text to split into lines when lines is empty"},
		}, nil),
	}

	registerTool(srv, tool, func(_ context.Context, req *classifyReq) (any, error) {
		return map[string]any{"results": classifyLines(req.Lines, req.Text)}, nil
	})
}

// --- listening_convert_file ---

type convertFileReq struct {
	Path string `json:"path"`
}

func (s *Server) registerConvertFileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "listening_convert_file",
		Description: "Extract text from a .pdf or .txt file and convert it into a listening test.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to convert"},
		}, []string{"path"}),
	}

	registerTool(srv, tool, func(ctx context.Context, req *convertFileReq) (any, error) {
		if req.Path == "" {
			return nil, errors.New("path is required")
		}
		result, err := s.extractor.Extract(ctx, req.Path)
		if err != nil {
			return nil, err
		}
		doc := s.converter.Convert(result.Text)
		return map[string]any{
			"document": doc,
			"format":   result.Format,
			"pages":    len(result.Pages),
			"quality":  result.Quality,
		}, nil
	})
}
