package tasks_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/tickmcp/internal/logging"
	"github.com/teemow/tickmcp/internal/rpc"
	"github.com/teemow/tickmcp/internal/server"
	"github.com/teemow/tickmcp/internal/ticktick"
	"github.com/teemow/tickmcp/internal/tools/common"
)

// DefaultPingMessage is echoed by ping when no message is given.
const DefaultPingMessage = "Hello from TickRb MCP Server"

// RegisterTasksTools registers all task tools with the registry, in the
// order tools/list reports them.
func RegisterTasksTools(reg *rpc.Registry, sc *server.ServerContext) error {
	tools := []struct {
		tool    mcp.Tool
		handler rpc.ToolHandler
	}{
		{
			tool: mcp.NewTool("ping",
				mcp.WithDescription("Check that the server is responding"),
				mcp.WithString("message",
					mcp.Description("Message to echo back"),
				),
			),
			handler: handlePing,
		},
		{
			tool: mcp.NewTool("list_tasks",
				mcp.WithDescription("List all tasks across all projects"),
			),
			handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return listTasks(ctx, sc), nil
			},
		},
		{
			tool: mcp.NewTool("create_task",
				mcp.WithDescription("Create a new task"),
				mcp.WithString("title",
					mcp.Required(),
					mcp.Description("Title of the task"),
				),
				mcp.WithString("content",
					mcp.Description("Notes or description of the task"),
				),
				mcp.WithString("project_id",
					mcp.Description("Project to create the task in (default: Inbox)"),
				),
			),
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				return createTask(ctx, sc, args), nil
			},
		},
		{
			tool: mcp.NewTool("complete_task",
				mcp.WithDescription("Mark a task as completed"),
				mcp.WithString("task_id",
					mcp.Required(),
					mcp.Description("ID of the task to complete"),
				),
				mcp.WithString("project_id",
					mcp.Required(),
					mcp.Description("ID of the project containing the task"),
				),
			),
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				return completeTask(ctx, sc, args), nil
			},
		},
		{
			tool: mcp.NewTool("delete_task",
				mcp.WithDescription("Delete a task"),
				mcp.WithString("task_id",
					mcp.Required(),
					mcp.Description("ID of the task to delete"),
				),
				mcp.WithString("project_id",
					mcp.Required(),
					mcp.Description("ID of the project containing the task"),
				),
			),
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				return deleteTask(ctx, sc, args), nil
			},
		},
		{
			tool: mcp.NewTool("list_projects",
				mcp.WithDescription("List all projects"),
			),
			handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return listProjects(ctx, sc), nil
			},
		},
	}

	for _, t := range tools {
		if err := reg.AddTool(t.tool, common.InstrumentedToolHandler(t.tool.Name, sc, t.handler)); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", t.tool.Name, err)
		}
	}
	return nil
}

// handlePing has no failure result. A message that is not a string is
// reported as an error.
func handlePing(_ context.Context, args map[string]any) (any, error) {
	message := DefaultPingMessage
	if value, ok := args["message"]; ok && value != nil {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("message must be a string, got %T", value)
		}
		message = s
	}
	return pingResult{Message: "Pong! " + message}, nil
}

func listTasks(ctx context.Context, sc *server.ServerContext) listTasksResult {
	client, err := sc.Client()
	if err != nil {
		return listTasksResult{Error: err.Error(), Tasks: []taskSummary{}}
	}

	tasks, err := client.GetTasks(ctx)
	if err != nil {
		sc.Logger().Warn("listing tasks failed", logging.Tool("list_tasks"), logging.Err(err))
		return listTasksResult{Error: err.Error(), Tasks: []taskSummary{}}
	}

	summaries := make([]taskSummary, 0, len(tasks))
	for _, task := range tasks {
		summaries = append(summaries, toTaskSummary(task))
	}
	return listTasksResult{Success: true, Tasks: summaries, Count: len(summaries)}
}

func createTask(ctx context.Context, sc *server.ServerContext, args map[string]any) createTaskResult {
	title, err := common.StringArg(args, "title")
	if err != nil {
		return createTaskResult{Error: err.Error()}
	}
	content, err := common.OptionalStringArg(args, "content")
	if err != nil {
		return createTaskResult{Error: err.Error()}
	}
	projectID, err := common.OptionalStringArg(args, "project_id")
	if err != nil {
		return createTaskResult{Error: err.Error()}
	}

	client, err := sc.Client()
	if err != nil {
		return createTaskResult{Error: err.Error()}
	}

	task, err := client.CreateTask(ctx, ticktick.TaskInput{
		Title:     title,
		Content:   content,
		ProjectID: projectID,
	})
	if err != nil {
		sc.Logger().Warn("creating task failed", logging.Tool("create_task"), logging.Err(err))
		return createTaskResult{Error: err.Error()}
	}
	return createTaskResult{Success: true, Task: toCreatedTask(task)}
}

// taskAction validates the ids shared by complete_task and delete_task and
// runs action with them.
func taskAction(
	ctx context.Context,
	sc *server.ServerContext,
	tool string,
	args map[string]any,
	successMessage string,
	action func(ctx context.Context, client server.TaskClient, taskID, projectID string) error,
) taskActionResult {
	taskID, _ := args["task_id"].(string)

	if _, err := common.StringArg(args, "task_id"); err != nil {
		return taskActionResult{Error: err.Error(), TaskID: taskID}
	}
	projectID, err := common.StringArg(args, "project_id")
	if err != nil {
		return taskActionResult{Error: err.Error(), TaskID: taskID}
	}

	client, err := sc.Client()
	if err != nil {
		return taskActionResult{Error: err.Error(), TaskID: taskID}
	}

	if err := action(ctx, client, taskID, projectID); err != nil {
		sc.Logger().Warn("task action failed", logging.Tool(tool), logging.Project(projectID), logging.Err(err))
		return taskActionResult{Error: err.Error(), TaskID: taskID}
	}
	return taskActionResult{Success: true, Message: successMessage, TaskID: taskID}
}

func completeTask(ctx context.Context, sc *server.ServerContext, args map[string]any) taskActionResult {
	return taskAction(ctx, sc, "complete_task", args, "Task marked as completed",
		func(ctx context.Context, client server.TaskClient, taskID, projectID string) error {
			_, err := client.CompleteTask(ctx, taskID, projectID)
			return err
		})
}

func deleteTask(ctx context.Context, sc *server.ServerContext, args map[string]any) taskActionResult {
	return taskAction(ctx, sc, "delete_task", args, "Task deleted successfully",
		func(ctx context.Context, client server.TaskClient, taskID, projectID string) error {
			_, err := client.DeleteTask(ctx, taskID, projectID)
			return err
		})
}

func listProjects(ctx context.Context, sc *server.ServerContext) listProjectsResult {
	client, err := sc.Client()
	if err != nil {
		return listProjectsResult{Error: err.Error(), Projects: []projectSummary{}}
	}

	projects, err := client.GetProjects(ctx)
	if err != nil {
		sc.Logger().Warn("listing projects failed", logging.Tool("list_projects"), logging.Err(err))
		return listProjectsResult{Error: err.Error(), Projects: []projectSummary{}}
	}

	summaries := make([]projectSummary, 0, len(projects))
	for _, project := range projects {
		summaries = append(summaries, projectSummary{ID: project.ID, Name: project.Name})
	}
	return listProjectsResult{Success: true, Projects: summaries, Count: len(summaries)}
}
