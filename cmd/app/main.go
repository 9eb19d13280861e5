package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/amsel/raido/internal"
	"github.com/amsel/raido/internal/catalog"
	"github.com/amsel/raido/internal/mcpserver"
	"github.com/amsel/raido/internal/media"
	pkgconfig "github.com/amsel/raido/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if mediaPath := cmd.String("media"); mediaPath != "" {
		cfg.Media.Path = mediaPath
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// runMCP serves the catalog tools over MCP stdio for LLM integration.
func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := media.NewFS(cfg.Media.Path)
	if err != nil {
		return fmt.Errorf("init media store: %w", err)
	}
	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	return mcpserver.New(db, store).ServeStdio()
}

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "media",
			Usage:   "Override the media directory from the config file",
			Sources: cli.EnvVars("RAIDO_MEDIA_PATH"),
		},
	}

	cmd := &cli.Command{
		Name:   "raido",
		Usage:  "Tour and audio-guide content platform: hierarchical nodes, media repositories, and access codes",
		Action: runServe,
		Flags:  flags,
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve catalog tools over MCP stdio",
				Action: runMCP,
				Flags:  flags,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
