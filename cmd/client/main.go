package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/blackmichael/socialfeed-client/internal/clock"
	"github.com/blackmichael/socialfeed-client/internal/config"
	"github.com/blackmichael/socialfeed-client/internal/console"
	"github.com/blackmichael/socialfeed-client/internal/domain"
	"github.com/blackmichael/socialfeed-client/internal/httpserver"
	"github.com/blackmichael/socialfeed-client/internal/listener"
	"github.com/blackmichael/socialfeed-client/internal/logging"
	"github.com/blackmichael/socialfeed-client/internal/requestclient"
	"github.com/blackmichael/socialfeed-client/internal/session"
	"github.com/blackmichael/socialfeed-client/internal/sqlite"
	"github.com/blackmichael/socialfeed-client/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flag.StringVar(&cfg.UserID, "user", cfg.UserID, "User ID of this client (prompted for when empty)")
	flag.StringVar(&cfg.BrokerAddress, "broker", cfg.BrokerAddress, "Request/reply broker endpoint")
	flag.StringVar(&cfg.SubscriberAddress, "sub", cfg.SubscriberAddress, "Publisher endpoint for event frames")
	flag.StringVar(&cfg.SubscriberTransport, "transport", cfg.SubscriberTransport, "Subscriber transport: zmq or websocket")
	flag.StringVar(&cfg.GatewayURL, "gateway", cfg.GatewayURL, "WebSocket gateway URL")
	flag.StringVar(&cfg.ArchivePath, "archive", cfg.ArchivePath, "sqlite archive file (empty disables)")
	flag.IntVar(&cfg.StatusPort, "status-port", cfg.StatusPort, "Status server port (0 disables)")
	flag.Parse()

	if cfg.SubscriberTransport != config.TransportZMQ && cfg.SubscriberTransport != config.TransportWebSocket {
		return fmt.Errorf("invalid --transport %q", cfg.SubscriberTransport)
	}

	stdin := bufio.NewReader(os.Stdin)
	if cfg.UserID == "" {
		fmt.Print("Enter user ID: ")
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read user id: %w", err)
		}
		cfg.UserID = strings.TrimSpace(line)
	} else {
		fmt.Printf("Using provided user ID: %s\n", cfg.UserID)
	}
	if cfg.UserID == "" {
		return fmt.Errorf("user id is required (--user or CLIENT_USER_ID)")
	}

	logger, closeLog := logging.Open(cfg.LogDir, cfg.UserID, slog.LevelInfo, os.Stderr)
	defer closeLog()

	zctx, err := zmq.NewContext()
	if err != nil {
		return fmt.Errorf("create zmq context: %w", err)
	}
	defer zctx.Term()

	requester, err := transport.NewZMQRequester(zctx, cfg.BrokerAddress, cfg.RequestTimeout, logger)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer requester.Close()

	source, err := newSource(zctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connect subscriber: %w", err)
	}

	// The archive is optional: a failure to open it degrades to memory only.
	var (
		archive     domain.EventArchive
		httpArchive httpserver.Archive
	)
	if cfg.ArchivePath != "" {
		repo, err := sqlite.NewRepository(cfg.ArchivePath)
		if err != nil {
			logger.Warn("archive disabled", "path", cfg.ArchivePath, "error", err)
		} else {
			defer repo.Close()
			archive, httpArchive = repo, repo
			logger.Info("archive opened", "path", cfg.ArchivePath)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := listener.NewMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	clk := clock.New(time.Now(), logger)
	requests := requestclient.NewClient(cfg.UserID, requester, clk, logger)
	con := console.New(stdin, os.Stdout, logger)

	sess, err := session.New(ctx, session.Options{
		UserID:   cfg.UserID,
		Requests: requests,
		Source:   source,
		Clock:    clk,
		Archive:  archive,
		Notifier: con,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		source.Close()
		return fmt.Errorf("start session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Error("error closing session", "error", err)
		}
		fmt.Println("Client terminated")
	}()

	fmt.Printf("Client %s connected to broker at %s\n", cfg.UserID, cfg.BrokerAddress)
	fmt.Printf("Client logical clock: %s\n", clk.Display())

	if n, err := sess.LoadFollowing(ctx); err != nil {
		logger.Warn("could not load following", "error", err)
	} else if n > 0 {
		fmt.Printf("Loaded following list: %v\n", sess.Following())
	}

	if cfg.StatusPort > 0 {
		server := httpserver.NewServer(cfg.StatusPort, sess, httpArchive, registry, logger)
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("status server exited with error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("error shutting down status server", "error", err)
			}
		}()
	}

	logger.Info("client started",
		"broker", cfg.BrokerAddress,
		"subscriber", cfg.SubscriberAddress,
		"transport", cfg.SubscriberTransport,
		"status_port", cfg.StatusPort,
	)

	done := make(chan error, 1)
	go func() {
		done <- con.Run(ctx, sess)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("console input failed", "error", err)
		}
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	}
	cancel()

	return nil
}

func newSource(zctx *zmq.Context, cfg *config.Config, logger *slog.Logger) (domain.FrameSource, error) {
	if cfg.SubscriberTransport == config.TransportWebSocket {
		return transport.NewWebSocketSubscriber(cfg.GatewayURL, cfg.PollInterval, logger), nil
	}
	return transport.NewZMQSubscriber(zctx, cfg.SubscriberAddress, cfg.PollInterval, logger)
}
