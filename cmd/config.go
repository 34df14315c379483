package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spigell/resume-match/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the resume-match configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")

		written, err := writeDefaultConfig(path, format, force)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", written)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().String("format", "yaml", "config format: yaml or toml")
	configInitCmd.Flags().String("path", "", "destination file (default is resume-match.<format> in current directory)")
	configInitCmd.Flags().BoolP("force", "f", false, "overwrite an existing file")
}

func writeDefaultConfig(path, format string, force bool) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	data, err := renderConfig(config.Default(), format)
	if err != nil {
		return "", err
	}

	if path = strings.TrimSpace(path); path == "" {
		path = app + "." + format
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}

func renderConfig(cfg *config.Config, format string) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("encode yaml config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case "toml":
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("encode toml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (expected yaml or toml)", format)
	}

	return buf.Bytes(), nil
}
