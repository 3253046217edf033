// Package tasks_tools provides the MCP tools for managing TickTick tasks.
//
// # Available Tools
//
//   - ping: Connectivity check, echoes a message
//   - list_tasks: List the tasks of every project
//   - create_task: Create a new task
//   - complete_task: Mark a task as completed
//   - delete_task: Delete a task
//   - list_projects: List all projects
//
// # Failures
//
// Upstream failures, a missing access token and missing arguments are not
// protocol errors. They come back as a regular tool result with success set
// to false and an error message, shaped like the success result with empty
// defaults.
package tasks_tools
