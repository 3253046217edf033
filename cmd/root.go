package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/tickmcp/internal/config"
)

// rootCmd represents the base command for the tickmcp application
var rootCmd = newRootCmd()

// version will be set by main
var version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickmcp",
		Short: "MCP server for TickTick tasks",
		Long: `tickmcp exposes your TickTick projects and tasks to AI assistants through
the Model Context Protocol (MCP).

The server speaks line-delimited JSON-RPC 2.0 on standard input and output.
Run 'tickmcp auth' once to authorize access to your TickTick account.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Config file (default "+config.DefaultConfigFile+"). Can also use "+config.EnvPrefix+"_CONFIG_FILE env var.")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error. Logs always go to stderr.")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newGenerateDocsCmd())
	return cmd
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tickmcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tickmcp version %s\n", version)
		},
	}
}
