// Package cli implements the chatrelay command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/urfave/cli/v2"
)

const defaultEnvFile = ".env"

// NewApp builds the chatrelay application.
func NewApp(version string) *cli.App {
	return &cli.App{
		Name:    "chatrelay",
		Usage:   "Relay chat messages to a text generation backend",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "config-file",
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: defaultEnvFile,
				Usage: "Path to a .env file loaded before configuration",
			},
		},
		Before: before,
		Commands: []*cli.Command{
			ServeCommand(),
			LambdaCommand(),
			SendCommand(),
			ConfigCommand(),
		},
	}
}

func before(ctx *cli.Context) error {
	if err := loadEnvFile(ctx.String("env-file")); err != nil {
		return err
	}

	log := logger.NewLogger(logger.Config{
		Level:   logger.ParseLevel(ctx.String("log-level")),
		Format:  ctx.String("log-format"),
		Service: "chat-relay",
		Output:  ctx.App.ErrWriter,
	})

	ctx.App.Metadata = map[string]interface{}{
		"logger": log,
	}
	return nil
}

// loadEnvFile never overrides variables already set in the environment.
// A missing file is only an error when it was named explicitly.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}
