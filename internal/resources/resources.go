package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/tickmcp/internal/rpc"
	"github.com/teemow/tickmcp/internal/server"
)

// Resource URIs.
const (
	ProjectsURI   = "tickrb://projects"
	TasksURI      = "tickrb://tasks"
	ServerInfoURI = "tickrb://server/info"
)

// RegisterResources registers the read-only resources with the registry.
// Failures inside these handlers surface as internal errors; resources have
// no failure payload.
func RegisterResources(reg *rpc.Registry, sc *server.ServerContext) error {
	projectsResource := mcp.NewResource(
		ProjectsURI,
		"projects",
		mcp.WithResourceDescription("All TickTick projects of the authenticated user"),
		mcp.WithMIMEType("application/json"),
	)
	if err := reg.AddResource(projectsResource, func(ctx context.Context) (string, error) {
		return handleProjects(ctx, sc)
	}); err != nil {
		return fmt.Errorf("failed to register projects resource: %w", err)
	}

	tasksResource := mcp.NewResource(
		TasksURI,
		"tasks",
		mcp.WithResourceDescription("All TickTick tasks, grouped by project order"),
		mcp.WithMIMEType("application/json"),
	)
	if err := reg.AddResource(tasksResource, func(ctx context.Context) (string, error) {
		return handleTasks(ctx, sc)
	}); err != nil {
		return fmt.Errorf("failed to register tasks resource: %w", err)
	}

	infoResource := mcp.NewResource(
		ServerInfoURI,
		"server-info",
		mcp.WithResourceDescription("Name, version and protocol of this server"),
	)
	if err := reg.AddResource(infoResource, func(context.Context) (string, error) {
		return handleServerInfo(sc), nil
	}); err != nil {
		return fmt.Errorf("failed to register server-info resource: %w", err)
	}

	return nil
}

func handleProjects(ctx context.Context, sc *server.ServerContext) (string, error) {
	client, err := sc.Client()
	if err != nil {
		return "", err
	}

	projects, err := client.GetProjects(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get projects: %w", err)
	}

	jsonData, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal projects: %w", err)
	}
	return string(jsonData), nil
}

func handleTasks(ctx context.Context, sc *server.ServerContext) (string, error) {
	client, err := sc.Client()
	if err != nil {
		return "", err
	}

	tasks, err := client.GetTasks(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get tasks: %w", err)
	}

	jsonData, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal tasks: %w", err)
	}
	return string(jsonData), nil
}

func handleServerInfo(sc *server.ServerContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Server: %s\n", rpc.ServerName)
	fmt.Fprintf(&b, "Version: %s\n", sc.Version())
	fmt.Fprintf(&b, "Protocol: %s\n", rpc.ProtocolVersion)
	fmt.Fprintf(&b, "Upstream: TickTick Open API\n")
	return b.String()
}
