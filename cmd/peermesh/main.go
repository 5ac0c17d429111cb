package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peermesh/peermesh-go/internal/discovery"
	"github.com/peermesh/peermesh-go/internal/httpapi"
	"github.com/peermesh/peermesh-go/internal/overlaynode"
)

const (
	appName    = "peermesh"
	appVersion = "0.1.0"
)

func main() {
	var (
		listenAddr        = flag.String("listen", ":4000", "HTTP listen address (overlay upgrades at /ws, API under /api/v1)")
		advertiseAddr     = flag.String("advertise", "", "Externally reachable overlay address, e.g. ws://10.0.0.5:4000/ws (default: derived from -listen)")
		joinAddrs         = flag.String("join", "", "Comma-separated seed addresses to join through")
		discoveryInterval = flag.Duration("discovery-interval", 30*time.Second, "Interval between periodic peer-list requests (0 disables)")
		reconnectDelay    = flag.Duration("reconnect-delay", 5*time.Second, "Delay before redialing a lost peer")
		secretKey         = flag.String("secret-key", "", "Secret key for API tokens (default: insecure development key)")
		noAuth            = flag.Bool("no-auth", false, "Disable API authentication (development only)")
		showVersion       = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	logger := log.New(os.Stderr, "[peermesh] ", log.LstdFlags)

	advertise := *advertiseAddr
	if advertise == "" {
		advertise = deriveAdvertiseAddr(*listenAddr)
		logger.Printf("INFO no -advertise given, using %s", advertise)
	}

	config := overlaynode.NewConfig(advertise)
	config.ReconnectDelay = *reconnectDelay
	config.Logger = logger

	node, err := overlaynode.New(config)
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	defer func() {
		if err := node.Close(); err != nil {
			logger.Printf("WARN error closing node: %v", err)
		}
	}()

	server := httpapi.NewServer(node, httpapi.Config{
		Addr:      *listenAddr,
		SecretKey: *secretKey,
		NoAuth:    *noAuth,
		Logger:    logger,
	})

	go func() {
		logger.Printf("INFO %s v%s listening on %s, overlay address %s", appName, appVersion, *listenAddr, advertise)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Seed the overlay; gossip discovers the rest.
	if *joinAddrs != "" {
		seeds := discovery.NewStaticDiscovery(strings.Split(*joinAddrs, ","))
		addrs, _ := seeds.FindPeers(context.Background())
		for _, addr := range addrs {
			logger.Printf("INFO joining overlay via %s", addr)
			if err := node.AddPeer(addr); err != nil {
				logger.Printf("WARN could not join via %s: %v", addr, err)
			}
		}
	}

	if *discoveryInterval > 0 {
		if err := node.ListenForPeers(*discoveryInterval); err != nil {
			logger.Fatalf("could not start periodic discovery: %v", err)
		}
	}

	waitForShutdown(logger, server)
}

// deriveAdvertiseAddr builds a ws URL from the listen address and hostname.
func deriveAdvertiseAddr(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		port = "4000"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		if h, err := os.Hostname(); err == nil {
			host = h
		} else {
			host = "localhost"
		}
	}
	return fmt.Sprintf("ws://%s/ws", net.JoinHostPort(host, port))
}

// waitForShutdown blocks until a termination signal, then stops the HTTP
// server gracefully. The deferred node.Close in main tears down the overlay.
func waitForShutdown(logger *log.Logger, server *httpapi.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Printf("INFO received signal %v, shutting down", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Printf("WARN error stopping HTTP server: %v", err)
	}
}
