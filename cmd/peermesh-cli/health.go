package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check node health",
		Long:  "Check the health status of the peermesh node",
		RunE:  runHealth,
	}

	return cmd
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := contextWithTimeout()
	defer cancel()

	fmt.Printf("Checking health of %s...\n", serverURL)

	health, err := client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Healthy {
		fmt.Printf("✅ Node is healthy!\n")
	} else {
		fmt.Printf("❌ Node is not healthy!\n")
	}
	fmt.Printf("Overlay Address: %s\n", health.Address)
	fmt.Printf("Connected Peers: %d\n", health.Peers)

	return nil
}
