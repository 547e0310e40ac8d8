package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// shinsa://models/catalog — every configured model backend.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"shinsa://models/catalog",
			"Model Catalog",
			mcplib.WithResourceDescription("Every configured model backend with provider, cost level, and context window"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleModelCatalog,
	)

	// shinsa://evaluations/recent — recent evaluation decisions.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"shinsa://evaluations/recent",
			"Recent Evaluations",
			mcplib.WithResourceDescription("Recent evaluation decisions across all content, newest first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleEvaluationsRecent,
	)

	// shinsa://content/{fingerprint}/history — one piece of content over time.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"shinsa://content/{fingerprint}/history",
			"Content History",
			mcplib.WithTemplateDescription("Evaluation history for one piece of content, identified by its fingerprint"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleContentHistory,
	)
}

func (s *Server) handleModelCatalog(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(s.router.Models(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal catalog: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "shinsa://models/catalog",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleEvaluationsRecent(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.hist == nil {
		return nil, fmt.Errorf("mcp: evaluation history is disabled")
	}

	entries, err := s.hist.Recent(ctx, 20)
	if err != nil {
		return nil, fmt.Errorf("mcp: recent evaluations: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal evaluations: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "shinsa://evaluations/recent",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleContentHistory(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.hist == nil {
		return nil, fmt.Errorf("mcp: evaluation history is disabled")
	}

	uri := request.Params.URI
	fp, err := parseContentHistoryURI(uri)
	if err != nil {
		return nil, err
	}

	entries, err := s.hist.ByFingerprint(ctx, fp, 20)
	if err != nil {
		return nil, fmt.Errorf("mcp: content history: %w", err)
	}

	data, err := json.MarshalIndent(map[string]any{
		"fingerprint": fp,
		"evaluations": entries,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal history: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// parseContentHistoryURI extracts the fingerprint from a
// shinsa://content/{fingerprint}/history URI.
func parseContentHistoryURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "shinsa://content/")
	if !ok {
		return "", fmt.Errorf("mcp: invalid content history URI: %s", uri)
	}
	fp, ok := strings.CutSuffix(rest, "/history")
	if !ok {
		return "", fmt.Errorf("mcp: invalid content history URI: %s", uri)
	}
	if fp == "" {
		return "", fmt.Errorf("mcp: empty fingerprint in URI: %s", uri)
	}
	if strings.Contains(fp, "/") {
		return "", fmt.Errorf("mcp: invalid fingerprint in URI: %s", uri)
	}
	return fp, nil
}
