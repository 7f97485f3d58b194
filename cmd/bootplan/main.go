package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/bootplan/internal"
	"github.com/starford/bootplan/internal/executor"
	pkgconfig "github.com/starford/bootplan/pkg/config"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// loadConfig reads the config file and applies command-line overrides.
// The default config path may be absent; an explicit one must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if root := cmd.String("root"); root != "" {
		cfg.Boot.Root = root
	}
	if env := cmd.String("env"); env != "" {
		cfg.Boot.Env = env
	}
	return cfg, nil
}

func appOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case formatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, formatJSON, formatYAML)
	}
}

func compileCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := appOptions(cmd)
	if err != nil {
		return err
	}
	plan, err := internal.Compile(ctx, opts...)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	return encode(os.Stdout, cmd.String("format"), plan)
}

func dryRunCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := appOptions(cmd)
	if err != nil {
		return err
	}
	plan, err := internal.Compile(ctx, opts...)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	rec := executor.NewRecorder(cmd.StringSlice("builtin")...)
	if err := executor.Execute(ctx, rec, plan, rec.Loader(), executor.Options{Logger: slog.Default()}); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	return encode(os.Stdout, cmd.String("format"), rec.Steps())
}

func serveCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := appOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, append(opts, internal.WithLogOutput(os.Stdout))...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcpCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := appOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json or yaml",
		Value:   formatJSON,
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "bootplan",
		Usage: "Compile an application layout into an ordered boot plan",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Application root directory (overrides boot.root)",
				Sources: cli.EnvVars("APP_ROOT"),
			},
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Environment name (overrides boot.env)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "compile",
				Usage:  "Compile the layout and print the plan",
				Flags:  []cli.Flag{formatFlag()},
				Action: compileCmd,
			},
			{
				Name:  "dry-run",
				Usage: "Compile the layout and print the steps an executor would take",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringSliceFlag{
						Name:  "builtin",
						Usage: "Model the host registry already provides (repeatable)",
					},
				},
				Action: dryRunCmd,
			},
			{
				Name:   "serve",
				Usage:  "Serve the plan API, recompiling on layout changes",
				Action: serveCmd,
			},
			{
				Name:   "mcp",
				Usage:  "Serve plan tools over MCP stdio",
				Action: mcpCmd,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
