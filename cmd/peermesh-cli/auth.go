package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with a peermesh node",
		Long: `Authenticate with the peermesh node using your client ID.
This will generate a JWT token that can be used for subsequent requests.`,
		RunE: runAuth,
	}

	return cmd
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx, cancel := contextWithTimeout()
	defer cancel()

	fmt.Printf("Authenticating with node %s as client %s...\n", serverURL, clientID)

	if err := client.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Printf("✅ Authentication successful!\n")
	fmt.Printf("Token: %s\n", client.GetToken())
	fmt.Printf("\nSave this token for future use:\n")
	fmt.Printf("  export PEERMESH_TOKEN=\"%s\"\n", client.GetToken())
	fmt.Printf("  peermesh-cli --token \"$PEERMESH_TOKEN\" peers\n")

	return nil
}
