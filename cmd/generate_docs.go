package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/workast-mcp/internal/server"
	"github.com/teemow/workast-mcp/internal/workast"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate a markdown reference of every MCP tool the server registers,
read from the tool definitions themselves. Tools that are only available
with --yolo are marked as write tools.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := buildToolsMarkdown()
			if err != nil {
				return err
			}
			if outputFile == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// toolCategories are matched in order against the tool name; the first
// matching category wins.
var toolCategories = []struct {
	name    string
	matches func(tool string) bool
}{
	{"Space Tools", func(n string) bool { return strings.Contains(n, "space") }},
	{"Tag Tools", func(n string) bool { return strings.Contains(n, "tag") }},
	{"User Tools", func(n string) bool { return strings.Contains(n, "user") || n == "workast_get_me" }},
	{"Task Tools", func(n string) bool { return strings.Contains(n, "task") || strings.Contains(n, "comment") }},
}

const otherCategory = "Other"

func getCategoryFromToolName(name string) string {
	if !strings.HasPrefix(name, "workast_") {
		return otherCategory
	}
	for _, c := range toolCategories {
		if c.matches(name) {
			return c.name
		}
	}
	return otherCategory
}

// buildToolsMarkdown renders every tool, write tools included. Tools are
// registered against a placeholder token; no upstream call is made.
func buildToolsMarkdown() (string, error) {
	readOnly, err := listTools(true)
	if err != nil {
		return "", err
	}
	all, err := listTools(false)
	if err != nil {
		return "", err
	}

	writeOnly := make(map[string]bool)
	for name := range all {
		if _, ok := readOnly[name]; !ok {
			writeOnly[name] = true
		}
	}
	return generateToolsMarkdown(slices.Collect(maps.Values(all)), writeOnly), nil
}

func listTools(readOnly bool) (map[string]mcp.Tool, error) {
	cfg := workast.DefaultConfig()
	cfg.Token = "docs-placeholder"

	sc, err := server.NewServerContext(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	mcpSrv := newMCPServer()
	if err := registerAll(mcpSrv, sc, readOnly); err != nil {
		return nil, err
	}

	tools := make(map[string]mcp.Tool)
	for name, st := range mcpSrv.ListTools() {
		tools[name] = st.Tool
	}
	return tools, nil
}

func generateToolsMarkdown(tools []mcp.Tool, writeOnly map[string]bool) string {
	byCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		c := getCategoryFromToolName(tool.Name)
		byCategory[c] = append(byCategory[c], tool)
	}
	categories := slices.Sorted(maps.Keys(byCategory))

	var sb strings.Builder
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Every tool workast-mcp exposes over MCP, generated from the tool definitions.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	for _, c := range categories {
		fmt.Fprintf(&sb, "- [%s](#%s)\n", c, strings.ToLower(strings.ReplaceAll(c, " ", "-")))
	}

	sb.WriteString("\n## Read-Only Mode\n\n")
	sb.WriteString("By default the server starts in read-only mode. Tools marked **write** below are only registered with `--yolo`.\n\n")

	for _, c := range categories {
		fmt.Fprintf(&sb, "## %s\n\n", c)
		group := byCategory[c]
		slices.SortFunc(group, func(a, b mcp.Tool) int { return strings.Compare(a.Name, b.Name) })
		for _, tool := range group {
			sb.WriteString(generateToolMarkdown(tool, writeOnly[tool.Name]))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool, write bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if write {
		sb.WriteString("**write**\n\n")
	}
	if tool.Description != "" {
		sb.WriteString(tool.Description + "\n\n")
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")
	for _, name := range slices.Sorted(maps.Keys(props)) {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		sb.WriteString(argumentLine(name, prop, slices.Contains(tool.InputSchema.Required, name)))
	}
	sb.WriteString("\n")
	return sb.String()
}

// argumentLine renders one schema property as "- `name` (required): description".
// Properties without a description fall back to their JSON type.
func argumentLine(name string, prop map[string]any, required bool) string {
	presence := "optional"
	if required {
		presence = "required"
	}
	desc, _ := prop["description"].(string)
	if desc == "" {
		typ, ok := prop["type"].(string)
		if !ok {
			typ = "any"
		}
		desc = typ + " parameter"
	}
	return fmt.Sprintf("- `%s` (%s): %s\n", name, presence, desc)
}
