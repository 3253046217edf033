package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/tickmcp/internal/rpc"
	"github.com/teemow/tickmcp/internal/server"
	"github.com/teemow/tickmcp/internal/ticktick"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools and resources.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			markdown, err := generateDocs()
			if err != nil {
				return err
			}

			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), markdown)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func generateDocs() (string, error) {
	// Documentation needs the registrations only, never a client
	factory := func() (server.TaskClient, error) { return nil, ticktick.ErrNoToken }
	serverContext := server.NewServerContext(context.Background(), factory, server.WithVersion(version))
	defer func() {
		_ = serverContext.Shutdown()
	}()

	registry, err := buildRegistry(serverContext)
	if err != nil {
		return "", err
	}
	return generateMarkdown(registry.Tools(), registry.Resources()), nil
}

func generateMarkdown(tools []mcp.Tool, resources []mcp.Resource) string {
	var sb strings.Builder

	sb.WriteString("# MCP Reference\n\n")
	sb.WriteString("This document lists the tools and resources available when running tickmcp as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	sb.WriteString("- [Tools](#tools)\n")
	sb.WriteString("- [Resources](#resources)\n\n")

	sb.WriteString("## Tools\n\n")
	for _, tool := range tools {
		sb.WriteString(generateToolMarkdown(tool))
		sb.WriteString("\n")
	}

	sb.WriteString("## Resources\n\n")
	sb.WriteString("| URI | Name | MIME type | Description |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, res := range resources {
		mimeType := res.MIMEType
		if mimeType == "" {
			mimeType = rpc.DefaultMIMEType
		}
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s |\n", res.URI, res.Name, mimeType, res.Description))
	}

	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			prop := tool.InputSchema.Properties[name]

			requiredStr := "optional"
			if contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}

			sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr))
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", getPropertyType(propMap)))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No arguments.\n\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
