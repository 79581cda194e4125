package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/permitflow/internal/intake"
	"github.com/kalambet/permitflow/internal/permit"
	"github.com/kalambet/permitflow/internal/storage"
	"github.com/kalambet/permitflow/internal/validate"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *intake.Service
	Version string
}

// NewMCPServer creates an MCP server with all permitflow tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	s := server.NewMCPServer(
		"permitflow",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("permitflow classifies planned construction work into permit review tiers and stores one questionnaire per project."),
		server.WithRecovery(),
	)

	scopeArgs := []mcp.ToolOption{
		mcp.WithArray("work_types",
			mcp.Description("Selected work types: interior, exterior, property_additions"),
			mcp.Required(),
			mcp.WithStringItems(),
		),
		mcp.WithArray("interior_work",
			mcp.Description("Interior work items; required when work_types includes interior"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("exterior_work",
			mcp.Description("Exterior work items; required when work_types includes exterior"),
			mcp.WithStringItems(),
		),
		mcp.WithString("property_addition",
			mcp.Description("Kind of addition; required when work_types includes property_additions"),
		),
	}

	// Tools
	s.AddTool(
		mcp.NewTool("classify_scope",
			append([]mcp.ToolOption{
				mcp.WithDescription("Classify a scope of work into in_house_review, otc_review or no_permit without storing anything."),
			}, scopeArgs...)...,
		),
		mcpClassifyScope(),
	)

	s.AddTool(
		mcp.NewTool("create_project",
			mcp.WithDescription("Create a project that questionnaires can be submitted for."),
			mcp.WithString("name", mcp.Description("Project name"), mcp.Required()),
			mcp.WithString("location", mcp.Description("Project location, e.g. city and state"), mcp.Required()),
		),
		mcpCreateProject(deps),
	)

	s.AddTool(
		mcp.NewTool("list_projects",
			mcp.WithDescription("List all projects, oldest first."),
		),
		mcpListProjects(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_questionnaire",
			append([]mcp.ToolOption{
				mcp.WithDescription("Submit the scope-of-work questionnaire for a project. Replaces any earlier submission for that project."),
				mcp.WithString("project_id", mcp.Description("Project ID"), mcp.Required()),
			}, scopeArgs...)...,
		),
		mcpSubmitQuestionnaire(deps),
	)

	s.AddTool(
		mcp.NewTool("get_questionnaire",
			mcp.WithDescription("Return the stored questionnaire of a project, or null when none was submitted."),
			mcp.WithString("project_id", mcp.Description("Project ID"), mcp.Required()),
		),
		mcpGetQuestionnaire(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"permitflow://questionnaires",
			"Questionnaires",
			mcp.WithResourceDescription("All stored questionnaires as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceQuestionnaires(deps),
	)

	return s
}

// payloadFromArgs reads the scope arguments shared by classify_scope and
// submit_questionnaire.
func payloadFromArgs(req mcp.CallToolRequest) permit.Payload {
	var p permit.Payload
	for _, v := range req.GetStringSlice("work_types", nil) {
		p.WorkTypes = append(p.WorkTypes, permit.WorkType(v))
	}
	for _, v := range req.GetStringSlice("interior_work", nil) {
		p.InteriorWork = append(p.InteriorWork, permit.InteriorWork(v))
	}
	for _, v := range req.GetStringSlice("exterior_work", nil) {
		p.ExteriorWork = append(p.ExteriorWork, permit.ExteriorWork(v))
	}
	p.PropertyAddition = permit.PropertyAddition(req.GetString("property_addition", ""))
	return p
}

func mcpClassifyScope() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r, err := payloadFromArgs(req).Response()
		if err != nil {
			return mcpError(err.Error()), nil
		}
		d := permit.Explain(r)
		return mcpJSON(ClassifyResponse{Decision: d, Details: d.Requirement.Details()})
	}
}

func mcpCreateProject(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		location, err := req.RequireString("location")
		if err != nil {
			return mcpError("location is required"), nil
		}

		p, err := deps.Service.CreateProject(intake.ProjectInput{Name: name, Location: location})
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(p)
	}
}

func mcpListProjects(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projects, err := deps.Service.Projects()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list projects: %v", err)), nil
		}
		if projects == nil {
			projects = []storage.Project{}
		}
		return mcpJSON(projects)
	}
}

func mcpSubmitQuestionnaire(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := req.RequireString("project_id")
		if err != nil {
			return mcpError("project_id is required"), nil
		}

		sub, err := deps.Service.SubmitPayload(projectID, payloadFromArgs(req))
		var verr *validate.Error
		switch {
		case errors.As(err, &verr):
			return mcpError(verr.Error()), nil
		case errors.Is(err, storage.ErrNotFound):
			return mcpError(fmt.Sprintf("project %s not found", projectID)), nil
		case err != nil:
			return mcpError(fmt.Sprintf("submit failed: %v", err)), nil
		}
		return mcpJSON(sub.Questionnaire)
	}
}

func mcpGetQuestionnaire(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := req.RequireString("project_id")
		if err != nil {
			return mcpError("project_id is required"), nil
		}

		q, err := deps.Service.Questionnaire(projectID)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("project %s not found", projectID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}
		return mcpJSON(q)
	}
}

func mcpResourceQuestionnaires(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		qs, err := deps.Service.Questionnaires()
		if err != nil {
			return nil, fmt.Errorf("failed to list questionnaires: %w", err)
		}
		if qs == nil {
			qs = []storage.Questionnaire{}
		}

		b, err := json.Marshal(qs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal questionnaires: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
