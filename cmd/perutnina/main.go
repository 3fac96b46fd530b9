// Command perutnina runs the fowl registry server and its maintenance tasks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/erazemk/perutnina/internal/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "perutnina",
		Usage: "Fowl registry with verified ownership transfers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "path to a .env file (default: .env if present)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "SQLite database path (overrides PERUTNINA_DB)",
			},
			&cli.StringFlag{
				Name:    "log",
				Aliases: []string{"l"},
				Usage:   "log file path (overrides PERUTNINA_LOG)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the analytics export schedule",
				Action: serve,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "listen address (overrides PERUTNINA_ADDR)",
					},
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "admin username when the database is created",
					},
				},
			},
			{
				Name:   "init",
				Usage:  "create a new database with an admin account",
				Action: initCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "admin username (overrides PERUTNINA_ADMIN_USER)",
					},
				},
			},
			{
				Name:   "export-analytics",
				Usage:  "export buffered analytics events of one day now",
				Action: exportAnalytics,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "day",
						Usage: "day to export as YYYY-MM-DD (default: yesterday, UTC)",
					},
				},
			},
			{
				Name:   "keygen",
				Usage:  "generate a proof signing key pair",
				Action: keygen,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "uid",
						Usage: "register the public key for this user",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides and installs the
// logger. The returned cleanup closes the log file.
func setup(ctx context.Context, cmd *cli.Command) (*config.Config, func(), error) {
	cfg, err := config.Load(ctx, cmd.String("env"))
	if err != nil {
		return nil, nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"db", &cfg.DBPath},
		{"log", &cfg.LogPath},
		{"addr", &cfg.Addr},
		{"user", &cfg.AdminUser},
	}
	for _, o := range overrides {
		if v := cmd.String(o.flag); v != "" {
			*o.dst = v
		}
	}

	cleanup, err := setupLogger(cfg.LogPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cleanup, nil
}

func printKeyPair(priv, pub string) {
	fmt.Println("Private key (keep secret):")
	fmt.Printf("  %s\n", priv)
	fmt.Println("Public key:")
	fmt.Printf("  %s\n", pub)
}
