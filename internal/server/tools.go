package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"guide/internal/usecase"
)

// GuidelinesForFileTool handles the guidelines_for_file MCP tool.
type GuidelinesForFileTool struct {
	engine *usecase.Engine
}

func NewGuidelinesForFileTool(engine *usecase.Engine) *GuidelinesForFileTool {
	return &GuidelinesForFileTool{engine: engine}
}

// Definition returns the MCP tool definition for guidelines_for_file.
func (t *GuidelinesForFileTool) Definition() mcp.Tool {
	return mcp.NewTool("guidelines_for_file",
		mcp.WithDescription(
			"Return the coding guidelines that apply to a file, merged into one ordered list of "+
				"sections. More specific guidance comes first; sections that disagree between "+
				"documents are marked with conflicts_with.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Repository-relative file path, e.g. src/app/app.component.ts"),
		),
	)
}

// Handle processes the guidelines_for_file tool call.
func (t *GuidelinesForFileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}

	data, err := json.MarshalIndent(t.engine.Query(path), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ListGuidelinesTool handles the list_guidelines MCP tool.
type ListGuidelinesTool struct {
	engine *usecase.Engine
}

func NewListGuidelinesTool(engine *usecase.Engine) *ListGuidelinesTool {
	return &ListGuidelinesTool{engine: engine}
}

func (t *ListGuidelinesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_guidelines",
		mcp.WithDescription("List every loaded guideline document with its scope patterns, effective precedence and section titles."),
	)
}

func (t *ListGuidelinesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalog := t.engine.Catalog()
	if len(catalog) == 0 {
		return mcp.NewToolResultText("[]"), nil
	}
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding catalog: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
