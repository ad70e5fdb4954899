package mcp

import (
	"fmt"
	"os"
)

// RegisterResources adds the static resources: the service manual.
func RegisterResources(s *Server, manualPath string) {
	s.AddResource(Resource{
		URI:         "docgen://manual",
		Name:        "Document Service Manual",
		Description: "Markdown manual describing the descriptor schema and limits",
		MIMEType:    "text/markdown",
		Handler: func(uri string) ([]ResourceContent, error) {
			data, err := os.ReadFile(manualPath)
			if err != nil {
				return nil, fmt.Errorf("manual not available: %w", err)
			}
			return []ResourceContent{{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     string(data),
			}}, nil
		},
	})
}
