package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPeersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List the node's peer set",
		Long:  "List every outbound peer the node currently tracks, in discovery order",
		RunE:  runListPeers,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <address>",
		Short: "Connect the node to another node",
		Long: `Connect the node to another node's overlay address, e.g.
peermesh-cli peers add ws://10.0.0.6:4000/ws
One reachable peer is enough: gossip discovers the rest of the overlay.`,
		Args: cobra.ExactArgs(1),
		RunE: runAddPeer,
	})

	return cmd
}

func runListPeers(cmd *cobra.Command, args []string) error {
	if err := ensureAuthenticated(cmd); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	resp, err := client.ListPeers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list peers: %w", err)
	}

	if len(resp.Peers) == 0 {
		fmt.Println("No peers.")
		return nil
	}

	fmt.Printf("Peers (%d):\n", len(resp.Peers))
	for _, p := range resp.Peers {
		fmt.Printf("  %-12s %s\n", p.State, p.Address)
	}
	return nil
}

func runAddPeer(cmd *cobra.Command, args []string) error {
	if err := ensureAuthenticated(cmd); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	address := args[0]
	resp, err := client.AddPeer(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to add peer: %w", err)
	}

	fmt.Printf("✅ Added peer %s\n", address)
	fmt.Printf("Peer set now has %d entries\n", len(resp.Peers))
	return nil
}
