package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lvillar/docgen"
)

func newTestMCPServer(t *testing.T) *Server {
	t.Helper()
	s := NewServerWithIO(nil, nil)
	RegisterTools(s, docgen.NewEngine())
	return s
}

func sendRequest(t *testing.T, s *Server, method string, id int, params any) jsonrpcResponse {
	t.Helper()

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}

	reqBytes, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	reqBytes = append(reqBytes, '\n')

	var output bytes.Buffer
	s.input = bytes.NewReader(reqBytes)
	s.output = &output

	if err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response %q: %v", output.String(), err)
	}
	return resp
}

func TestServerInitialize(t *testing.T) {
	s := newTestMCPServer(t)

	resp := sendRequest(t, s, "initialize", 1, map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatal("result is not a map")
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}
	serverInfo, ok := result["serverInfo"].(map[string]any)
	if !ok {
		t.Fatal("missing serverInfo")
	}
	if serverInfo["name"] != "docgen-mcp" {
		t.Fatalf("unexpected server name: %v", serverInfo["name"])
	}
}

func TestServerToolsList(t *testing.T) {
	s := newTestMCPServer(t)

	resp := sendRequest(t, s, "tools/list", 2, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	result := resp.Result.(map[string]any)
	tools, ok := result["tools"].([]any)
	if !ok {
		t.Fatal("tools is not an array")
	}

	names := make(map[string]bool)
	for _, tool := range tools {
		tm := tool.(map[string]any)
		names[tm["name"].(string)] = true
	}
	for _, want := range []string{"create_pdf", "extract_text"} {
		if !names[want] {
			t.Errorf("tool %s not listed", want)
		}
	}
}

func TestToolCreatePDF(t *testing.T) {
	s := newTestMCPServer(t)

	resp := sendRequest(t, s, "tools/call", 3, map[string]any{
		"name": "create_pdf",
		"arguments": map[string]any{
			"descriptor": map[string]any{
				"filename": "note",
				"title":    "Note",
				"content_blocks": []map[string]any{
					{"type": "paragraph", "content": "hello"},
				},
			},
		},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	blob, _ := json.Marshal(resp.Result)
	var result ToolResult
	if err := json.Unmarshal(blob, &result); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool reported an error: %+v", result.Content)
	}
	if len(result.Content) != 2 {
		t.Fatalf("expected summary + resource, got %d parts", len(result.Content))
	}
	if !strings.Contains(result.Content[0].Text, "Rendered 1 page(s)") {
		t.Errorf("unexpected summary: %q", result.Content[0].Text)
	}
	pdf, err := base64.StdEncoding.DecodeString(result.Content[1].Data)
	if err != nil {
		t.Fatalf("decoding pdf payload: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Error("payload is not a PDF")
	}
}

func TestToolCreatePDFToFile(t *testing.T) {
	s := newTestMCPServer(t)
	out := filepath.Join(t.TempDir(), "out.pdf")

	resp := sendRequest(t, s, "tools/call", 4, map[string]any{
		"name": "create_pdf",
		"arguments": map[string]any{
			"descriptor": map[string]any{
				"filename": "note", "title": "Note",
				"content_blocks": []map[string]any{},
			},
			"outputPath": out,
		},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("written file is not a PDF")
	}
}

func TestToolCreatePDFBadDescriptor(t *testing.T) {
	s := newTestMCPServer(t)

	resp := sendRequest(t, s, "tools/call", 5, map[string]any{
		"name": "create_pdf",
		"arguments": map[string]any{
			"descriptor": map[string]any{"title": "no filename"},
		},
	})
	if resp.Error != nil {
		t.Fatalf("transport error instead of tool error: %v", resp.Error.Message)
	}

	blob, _ := json.Marshal(resp.Result)
	var result ToolResult
	if err := json.Unmarshal(blob, &result); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if !result.IsError {
		t.Fatal("invalid descriptor must surface as a tool error")
	}
}

func TestToolExtractText(t *testing.T) {
	s := newTestMCPServer(t)

	resp := sendRequest(t, s, "tools/call", 6, map[string]any{
		"name": "extract_text",
		"arguments": map[string]any{
			"data":     base64.StdEncoding.EncodeToString([]byte("some text body")),
			"filename": "upload.txt",
		},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	blob, _ := json.Marshal(resp.Result)
	var result ToolResult
	if err := json.Unmarshal(blob, &result); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if result.IsError || len(result.Content) != 1 || result.Content[0].Text != "some text body" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestResourceManual(t *testing.T) {
	s := NewServerWithIO(nil, nil)
	manual := filepath.Join(t.TempDir(), "manual.md")
	if err := os.WriteFile(manual, []byte("# Manual\nbody"), 0o644); err != nil {
		t.Fatal(err)
	}
	RegisterResources(s, manual)

	resp := sendRequest(t, s, "resources/list", 7, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	result := resp.Result.(map[string]any)
	resources := result["resources"].([]any)
	if len(resources) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(resources))
	}

	resp = sendRequest(t, s, "resources/read", 8, map[string]any{"uri": "docgen://manual"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	blob, _ := json.Marshal(resp.Result)
	if !bytes.Contains(blob, []byte("# Manual")) {
		t.Errorf("manual text missing from %s", blob)
	}
}

func TestUnknownMethod(t *testing.T) {
	s := newTestMCPServer(t)
	resp := sendRequest(t, s, "nope/really", 9, nil)
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected -32601, got %+v", resp.Error)
	}
}
