package cli

import (
	"fmt"

	appconfig "github.com/lewisedginton/chat_relay/internal/config"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/urfave/cli/v2"
)

// getLogger retrieves the logger from the CLI context metadata
func getLogger(ctx *cli.Context) logger.Logger {
	if ctx.App.Metadata != nil {
		if log, ok := ctx.App.Metadata["logger"].(logger.Logger); ok {
			return log
		}
	}

	return logger.NewLogger(logger.Config{
		Level:   logger.InfoLevel,
		Format:  "json",
		Service: "chat-relay",
	})
}

// loadConfig reads and validates the application configuration.
func loadConfig(ctx *cli.Context) (*appconfig.AppConfig, error) {
	log := getLogger(ctx)

	cfg, err := appconfig.Load(ctx.String("config-file"))
	if err != nil {
		log.Error("Failed to load config", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.LogConfig(log)
	return cfg, nil
}
