package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newBroadcastCommand() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "broadcast <event>",
		Short: "Broadcast an event to every open peer",
		Long: `Broadcast an application envelope through the node, e.g.
peermesh-cli broadcast chat.message --data '{"text":"hello"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcast(cmd, args[0], data)
		},
	}

	cmd.Flags().StringVar(&data, "data", "{}", "JSON payload for the envelope's data field")

	return cmd
}

func runBroadcast(cmd *cobra.Command, event, data string) error {
	if err := ensureAuthenticated(cmd); err != nil {
		return err
	}

	var payload json.RawMessage
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return fmt.Errorf("--data must be valid JSON: %w", err)
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	resp, err := client.Broadcast(ctx, event, payload)
	if err != nil {
		return fmt.Errorf("broadcast failed: %w", err)
	}

	fmt.Printf("✅ Broadcast %q sent toward %d peers\n", resp.Event, resp.Peers)
	return nil
}
