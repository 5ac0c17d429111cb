package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/peermesh/peermesh-go/pkg/httpclient"
)

var (
	// Global flags
	serverURL string
	clientID  string
	token     string
	timeout   time.Duration
	noAuth    bool

	// Global client instance
	client *httpclient.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "peermesh-cli",
		Short: "peermesh HTTP API command line interface",
		Long: `peermesh-cli is a command line interface for a peermesh node's HTTP API.
It provides commands for authentication, inspecting and growing the node's
peer set, and broadcasting application events across the overlay.`,
		PersistentPreRunE: initializeClient,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:4000", "peermesh node API URL")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "Client ID for authentication")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT token (if already authenticated)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&noAuth, "no-auth", false, "Skip authentication (for development with --no-auth nodes)")

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newHealthCommand())
	rootCmd.AddCommand(newPeersCommand())
	rootCmd.AddCommand(newBroadcastCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initializeClient sets up the HTTP client with global configuration
func initializeClient(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	if !noAuth && clientID == "" && token == "" {
		return fmt.Errorf("client-id is required (unless using --no-auth or --token)")
	}

	effectiveClientID := clientID
	if effectiveClientID == "" {
		effectiveClientID = "dev-client"
	}

	config := httpclient.Config{
		ServerURL: serverURL,
		ClientID:  effectiveClientID,
		Timeout:   timeout,
	}

	var err error
	client, err = httpclient.NewClient(config)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if token != "" {
		client.SetToken(token)
	}
	return nil
}

// ensureAuthenticated logs in with the client ID unless a token is already set
func ensureAuthenticated(cmd *cobra.Command) error {
	if noAuth || client.IsAuthenticated() {
		return nil
	}
	ctx, cancel := contextWithTimeout()
	defer cancel()
	return client.Authenticate(ctx)
}
