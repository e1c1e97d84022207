package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "workast-mcp",
	Short: "MCP server for the Workast task manager",
	Long: `workast-mcp exposes the Workast REST API to AI assistants over the
Model Context Protocol (MCP).

It lists, searches and manages Workast spaces and tasks, including a
cross-space task search with optional subtask expansion.`,
	SilenceUsage: true,
}

// version is set by main from the build-time value.
var version = "dev"

func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the CLI and exits non-zero on error. Without arguments it
// runs serve.
func Execute() {
	if len(os.Args) < 2 {
		rootCmd.SetArgs([]string{"serve"})
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`{{printf "workast-mcp version %s\n" .Version}}`)
	rootCmd.AddCommand(
		newServeCmd(),
		newVersionCmd(),
		newGenerateDocsCmd(),
	)
}
