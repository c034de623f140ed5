package cli

import (
	"fmt"

	"github.com/lewisedginton/chat_relay/internal/gateway"
	"github.com/lewisedginton/chat_relay/internal/server"
	"github.com/lewisedginton/chat_relay/pkg/logger"
	"github.com/urfave/cli/v2"
)

// LambdaCommand serves API Gateway proxy events inside AWS Lambda.
func LambdaCommand() *cli.Command {
	return &cli.Command{
		Name:   "lambda",
		Usage:  "Run as an AWS Lambda handler behind API Gateway",
		Action: lambdaAction,
	}
}

func lambdaAction(ctx *cli.Context) error {
	log := getLogger(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	r, err := server.BuildRelay(ctx.Context, cfg, log, nil)
	if err != nil {
		log.Error("Failed to create relay", logger.ErrorField(err))
		return fmt.Errorf("failed to create relay: %w", err)
	}

	log.Info("Starting Lambda handler")
	gateway.Start(gateway.NewHandler(r, log))
	return nil
}
