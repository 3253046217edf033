// Package cmd implements the command-line interface for tickmcp.
//
// This package provides the following commands:
//   - serve: Run the MCP server on standard input/output
//   - auth: Authorize tickmcp against TickTick and store the access token
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools and resources
//
// The serve command is the default command when no subcommand is specified.
package cmd
