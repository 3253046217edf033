// Package resources provides the MCP resources of the tickmcp server.
//
// # Available Resources
//
//   - tickrb://projects: JSON list of all projects
//   - tickrb://tasks: JSON list of all tasks
//   - tickrb://server/info: plain-text server description
//
// Project and task data come from the shared TickTick client, so reads go
// through its cache.
package resources
