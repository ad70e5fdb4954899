package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lvillar/docgen"
	"github.com/lvillar/docgen/extract"
)

// RegisterTools adds the document tools, all backed by the given engine.
func RegisterTools(s *Server, engine *docgen.Engine) {
	s.AddTool(renderDocumentTool(engine))
	s.AddTool(extractTextTool())
}

func renderDocumentTool(engine *docgen.Engine) Tool {
	return Tool{
		Name: "create_pdf",
		Description: "Render a document descriptor into a PDF. The descriptor supports headings, " +
			"paragraphs, bullet lists, key/value blocks, spacers, images (base64, remote URL or " +
			"sandboxed local path) and static form previews, plus interactive form-field widgets " +
			"placed at absolute coordinates. Returns the PDF as base64 together with the widget " +
			"diagnostics (supported/injected/skipped).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"descriptor": map[string]any{
					"type":        "object",
					"description": "Document descriptor with filename, title, content_blocks, options and widgets",
				},
				"outputPath": map[string]any{
					"type":        "string",
					"description": "Optional file path to save the PDF. If omitted, the PDF is returned as base64.",
				},
			},
			"required": []string{"descriptor"},
		},
		Handler: func(args json.RawMessage) (ToolResult, error) {
			var params struct {
				Descriptor json.RawMessage `json:"descriptor"`
				OutputPath string          `json:"outputPath"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return ToolResult{}, fmt.Errorf("decoding arguments: %w", err)
			}
			if len(params.Descriptor) == 0 {
				return ToolResult{}, fmt.Errorf("missing 'descriptor' argument")
			}

			res, err := engine.Render(context.Background(), params.Descriptor)
			if err != nil {
				return ToolResult{}, err
			}

			summary := fmt.Sprintf("Rendered %d page(s); widgets supported=%d injected=%d skipped=%d",
				res.Pages, res.Widgets.Supported, res.Widgets.Injected, res.Widgets.Skipped)

			if params.OutputPath != "" {
				if err := os.WriteFile(params.OutputPath, res.PDF, 0644); err != nil {
					return ToolResult{}, fmt.Errorf("writing %s: %w", params.OutputPath, err)
				}
				return ToolResult{Content: []Content{{
					Type: "text",
					Text: fmt.Sprintf("%s; saved to %s (%d bytes)", summary, params.OutputPath, len(res.PDF)),
				}}}, nil
			}

			return ToolResult{Content: []Content{
				{Type: "text", Text: summary},
				{
					Type:     "resource",
					MIMEType: "application/pdf",
					Data:     base64.StdEncoding.EncodeToString(res.PDF),
				},
			}}, nil
		},
	}
}

func extractTextTool() Tool {
	return Tool{
		Name: "extract_text",
		Description: "Extract plain text from a PDF, DOCX, XLSX or TXT file. Pass either a file " +
			"path or base64 data plus a filename for the format hint.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path of the file to extract",
				},
				"data": map[string]any{
					"type":        "string",
					"description": "Base64 file contents, used when no path is given",
				},
				"filename": map[string]any{
					"type":        "string",
					"description": "Filename whose extension selects the parser when passing 'data'",
				},
			},
		},
		Handler: func(args json.RawMessage) (ToolResult, error) {
			var params struct {
				Path     string `json:"path"`
				Data     string `json:"data"`
				Filename string `json:"filename"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return ToolResult{}, fmt.Errorf("decoding arguments: %w", err)
			}

			var (
				name string
				data []byte
			)
			switch {
			case params.Path != "":
				raw, err := os.ReadFile(params.Path)
				if err != nil {
					return ToolResult{}, fmt.Errorf("reading %s: %w", params.Path, err)
				}
				name, data = params.Path, raw
			case params.Data != "":
				raw, err := base64.StdEncoding.DecodeString(params.Data)
				if err != nil {
					return ToolResult{}, fmt.Errorf("decoding 'data': %w", err)
				}
				name, data = params.Filename, raw
			default:
				return ToolResult{}, fmt.Errorf("either 'path' or 'data' is required")
			}

			if int64(len(data)) > extract.MaxUploadBytes {
				return ToolResult{}, fmt.Errorf("file exceeds the %d MB extraction limit",
					extract.MaxUploadBytes/(1<<20))
			}

			text, err := extract.Text(name, "", data)
			if err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Content: []Content{{Type: "text", Text: text}}}, nil
		},
	}
}
