// Command docgen-mcp is an MCP (Model Context Protocol) server exposing the
// document rendering engine to AI assistants.
//
// # Configuration for Claude Desktop
//
// Add to ~/.config/claude/claude_desktop_config.json:
//
//	{
//	  "mcpServers": {
//	    "docgen": {
//	      "command": "docgen-mcp"
//	    }
//	  }
//	}
//
// # Available Tools
//
//   - create_pdf: render a document descriptor into a PDF
//   - extract_text: extract text from PDF/DOCX/XLSX/TXT files
//
// # Available Resources
//
//   - docgen://manual : the service manual in markdown
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lvillar/docgen"
	"github.com/lvillar/docgen/mcp"
)

func main() {
	var (
		fonts  = flag.String("fonts", "fonts", "directory holding the DejaVu font pair")
		assets = flag.String("assets", "assets", "sandbox directory for local image paths")
		manual = flag.String("manual", "manual.md", "markdown manual exposed as a resource")
	)
	flag.Parse()

	engine := docgen.NewEngine(
		docgen.WithFontDir(*fonts),
		docgen.WithAssetDir(*assets),
	)

	server := mcp.NewServer()
	mcp.RegisterTools(server, engine)
	mcp.RegisterResources(server, *manual)

	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "docgen-mcp: %v\n", err)
		os.Exit(1)
	}
}
