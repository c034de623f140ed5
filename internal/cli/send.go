package cli

import (
	"encoding/json"
	"fmt"

	"github.com/lewisedginton/chat_relay/internal/conversation"
	"github.com/lewisedginton/chat_relay/internal/relay"
	"github.com/lewisedginton/chat_relay/internal/server"
	"github.com/urfave/cli/v2"
)

// SendCommand relays a single message and prints the response envelope.
func SendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Relay one message through the configured backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "message",
				Aliases:  []string{"m"},
				Usage:    "Message to send",
				Required: true,
			},
			&cli.PathFlag{
				Name:  "history",
				Usage: "JSON file holding the prior conversation history",
			},
		},
		Action: sendAction,
	}
}

func sendAction(ctx *cli.Context) error {
	log := getLogger(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	var history conversation.History
	if path := ctx.Path("history"); path != "" {
		if history, err = conversation.LoadFile(path); err != nil {
			return err
		}
	}

	body, err := json.Marshal(map[string]any{
		"message":             ctx.String("message"),
		"conversationHistory": history,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	r, err := server.BuildRelay(ctx.Context, cfg, log, nil)
	if err != nil {
		return fmt.Errorf("failed to create relay: %w", err)
	}

	res := r.Handle(ctx.Context, relay.Invocation{Body: body})
	resp := relay.BuildResponse(res)
	if _, err := fmt.Fprintln(ctx.App.Writer, string(resp.Body)); err != nil {
		return err
	}
	if !res.OK() {
		return res.Err
	}
	return nil
}
