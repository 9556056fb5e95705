package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SetupCmd writes MCP client configuration that launches `notegraph mcp`.
type SetupCmd struct {
	Qwen     bool   `help:"Configure for Qwen CLI"`
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Local    bool   `help:"Create project-local configuration"`
	Global   bool   `help:"Create global configuration"`
	Format   string `help:"Output format (json|text)" enum:"json,text" default:"json"`
	FilePath string `help:"Custom directory for the local configuration file"`
}

// mcpClient describes where one MCP client looks for its configuration.
type mcpClient struct {
	name      string
	label     string
	dir       string
	localFile string
}

var mcpClients = []mcpClient{
	{name: "qwen", label: "Qwen", dir: ".qwen", localFile: "mcp.json"},
	{name: "claude", label: "Claude", dir: ".claude", localFile: "settings.json"},
	{name: "cursor", label: "Cursor", dir: ".cursor", localFile: "mcp.json"},
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("invalid format: %s (must be json or text)", c.Format)
	}

	selected := map[string]bool{"qwen": c.Qwen, "claude": c.Claude, "cursor": c.Cursor}
	if !c.Qwen && !c.Claude && !c.Cursor {
		return c.outputDefaultConfig(g)
	}

	if !c.Local && !c.Global {
		c.Local = true
	}

	for _, client := range mcpClients {
		if !selected[client.name] {
			continue
		}
		if err := c.setupClient(g, client); err != nil {
			return err
		}
	}
	return nil
}

func (c *SetupCmd) setupClient(g *Globals, client mcpClient) error {
	config := generateMCPConfig()

	if c.Global {
		globalPath := getGlobalConfigPath(client.dir)
		if err := writeConfig(globalPath, config, c.Format); err != nil {
			return err
		}
		g.success("✓ Created global %s MCP config at %s", client.label, globalPath)
	}

	if c.Local {
		localPath := filepath.Join(".", client.dir, "mcp.json")
		if c.FilePath != "" {
			localPath = filepath.Join(c.FilePath, client.localFile)
		}
		if err := writeConfig(localPath, config, c.Format); err != nil {
			return err
		}
		g.success("✓ Created local %s MCP config at %s", client.label, localPath)
	}
	return nil
}

func (c *SetupCmd) outputDefaultConfig(g *Globals) error {
	content, err := encodeConfig(generateMCPConfig(), c.Format)
	if err != nil {
		return err
	}
	if c.Format == "text" {
		fmt.Fprintln(g.Stdout, "# Add this to your MCP client configuration:")
		fmt.Fprintln(g.Stdout)
	}
	_, err = g.Stdout.Write(content)
	return err
}

func generateMCPConfig() map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"notegraph": map[string]any{
				"command": "notegraph",
				"args":    []string{"mcp"},
			},
		},
	}
}

func getGlobalConfigPath(clientDir string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}
	return filepath.Join(homeDir, clientDir, "global", "mcp.json")
}

func encodeConfig(config map[string]any, format string) ([]byte, error) {
	if format == "json" {
		content, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(content, '\n'), nil
	}

	var sb strings.Builder
	for key, value := range config {
		raw, _ := json.Marshal(value)
		fmt.Fprintf(&sb, "%s: %s\n", key, raw)
	}
	return []byte(sb.String()), nil
}

func writeConfig(configPath string, config map[string]any, format string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	content, err := encodeConfig(config, format)
	if err != nil {
		return err
	}
	if format == "text" {
		content = append([]byte("# MCP configuration for notegraph\n# Generated by notegraph setup\n\n"), content...)
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
