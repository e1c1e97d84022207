package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workast-mcp/internal/server"
)

const (
	MeURI     = "workast://me"
	SpacesURI = "workast://spaces"
)

// RegisterWorkastResources registers the account resources.
func RegisterWorkastResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("server and context are required")
	}

	meResource := mcp.NewResource(
		MeURI,
		"Current Workast User",
		mcp.WithResourceDescription("Profile of the user the Workast API token belongs to"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(meResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleMe(ctx, request, sc)
	})

	spacesResource := mcp.NewResource(
		SpacesURI,
		"Searchable Spaces",
		mcp.WithResourceDescription("Non-archived spaces the user participates in; workast_list_tasks searches these when no space_id is given"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(spacesResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSpaces(ctx, request, sc)
	})

	return nil
}

func handleMe(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	ctx, cancel := context.WithTimeout(ctx, sc.Timeout())
	defer cancel()

	me, err := sc.Client().GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return jsonContents(request.Params.URI, me)
}

func handleSpaces(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	ctx, cancel := context.WithTimeout(ctx, sc.Timeout())
	defer cancel()

	if err := sc.Client().CheckCredentials(); err != nil {
		return nil, err
	}
	scope, err := sc.Searcher().ResolveScope(ctx, "")
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, scope)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
