package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"launcher/internal/app"
	"launcher/internal/config"
	"launcher/internal/launcherconfig"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit launcher settings",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show launcher_config.json values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				cfg, err := a.Commands.GetLauncherConfig(c)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, cfg)
				}
				fields, err := flattenConfig(cfg)
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(fields))
				for k := range fields {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				rows := make([][]string, 0, len(keys))
				for _, k := range keys {
					rows = append(rows, []string{k, fields[k]})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
					headers: []string{"Setting", "Value"},
					rows:    rows,
					caption: a.Config.Path(),
				}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one launcher setting (use dotted keys for hooks, null to clear)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				current, err := a.Commands.GetLauncherConfig(c)
				if err != nil {
					return err
				}
				next, err := applySetting(current, args[0], args[1])
				if err != nil {
					return err
				}
				changes := launcherconfig.Diff(current, next)
				if _, err := a.Commands.SetLauncherConfig(c, next); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(changes) == 0 {
					fmt.Fprintln(out, "No changes")
					return nil
				}
				for _, ch := range changes {
					fmt.Fprintf(out, "%s: %s -> %s\n", ch.Field, ch.Old, ch.New)
				}
				return nil
			})
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample bootstrap configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Set api.token (or export LAUNCHER_API_TOKEN) to browse capes. Data lives in %s.\n", filepath.Clean(config.Default().Paths.DataDir))
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// flattenConfig renders every setting as dotted key -> JSON value.
func flattenConfig(cfg launcherconfig.LauncherConfig) (map[string]string, error) {
	tree, err := configTree(cfg)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(key, child)
				continue
			}
			raw, _ := json.Marshal(v)
			out[key] = string(raw)
		}
	}
	walk("", tree)
	return out, nil
}

// applySetting sets one dotted key on cfg. The value is parsed as JSON when
// possible and treated as a plain string otherwise.
func applySetting(cfg launcherconfig.LauncherConfig, key, raw string) (launcherconfig.LauncherConfig, error) {
	tree, err := configTree(cfg)
	if err != nil {
		return cfg, err
	}
	parts := strings.Split(strings.TrimSpace(key), ".")
	node := tree
	for i, part := range parts {
		v, ok := node[part]
		if !ok {
			return cfg, fmt.Errorf("unknown setting %q", key)
		}
		if i == len(parts)-1 {
			if _, isMap := v.(map[string]any); isMap {
				return cfg, fmt.Errorf("setting %q is a group; use %s.<field>", key, key)
			}
			node[part] = parseValue(raw)
			break
		}
		child, isMap := v.(map[string]any)
		if !isMap {
			return cfg, fmt.Errorf("unknown setting %q", key)
		}
		node = child
	}

	data, err := json.Marshal(tree)
	if err != nil {
		return cfg, err
	}
	next := launcherconfig.Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		return cfg, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return next, nil
}

func configTree(cfg launcherconfig.LauncherConfig) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
