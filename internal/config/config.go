package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Subscriber transports.
const (
	TransportZMQ       = "zmq"
	TransportWebSocket = "websocket"
)

// Config holds all configuration for the client.
type Config struct {
	// UserID is the client's identity. It may be empty here and supplied
	// interactively at startup.
	UserID string

	// BrokerAddress is the ZeroMQ endpoint for request/reply calls.
	BrokerAddress string

	// SubscriberAddress is the ZeroMQ endpoint publishing event frames.
	SubscriberAddress string

	// SubscriberTransport selects how event frames are received: "zmq" or
	// "websocket".
	SubscriberTransport string

	// GatewayURL is the WebSocket gateway used when SubscriberTransport is
	// "websocket".
	GatewayURL string

	// PollInterval bounds each wait for an event frame.
	PollInterval time.Duration

	// RequestTimeout bounds each request/reply call.
	RequestTimeout time.Duration

	// LogDir is the directory holding per-user log files.
	LogDir string

	// ArchivePath is the sqlite archive file. Empty disables the archive.
	ArchivePath string

	// StatusPort is the HTTP status server port. Zero disables the server.
	StatusPort int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	pollInterval, err := durationEnv("POLL_INTERVAL", 250*time.Millisecond)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := durationEnv("REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	statusPort := 0
	if p := os.Getenv("STATUS_PORT"); p != "" {
		statusPort, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid STATUS_PORT: %w", err)
		}
		if statusPort < 0 || statusPort > 65535 {
			return nil, fmt.Errorf("invalid STATUS_PORT: %d out of range", statusPort)
		}
	}

	transport := os.Getenv("SUBSCRIBER_TRANSPORT")
	if transport == "" {
		transport = TransportZMQ
	}
	if transport != TransportZMQ && transport != TransportWebSocket {
		return nil, fmt.Errorf("invalid SUBSCRIBER_TRANSPORT %q: want %q or %q", transport, TransportZMQ, TransportWebSocket)
	}

	brokerAddress := os.Getenv("BROKER_ADDRESS")
	if brokerAddress == "" {
		brokerAddress = "tcp://localhost:5555"
	}

	subscriberAddress := os.Getenv("SUBSCRIBER_ADDRESS")
	if subscriberAddress == "" {
		subscriberAddress = "tcp://localhost:5558"
	}

	gatewayURL := os.Getenv("GATEWAY_URL")
	if gatewayURL == "" {
		gatewayURL = "ws://localhost:8765/subscribe"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	return &Config{
		UserID:              os.Getenv("CLIENT_USER_ID"),
		BrokerAddress:       brokerAddress,
		SubscriberAddress:   subscriberAddress,
		SubscriberTransport: transport,
		GatewayURL:          gatewayURL,
		PollInterval:        pollInterval,
		RequestTimeout:      requestTimeout,
		LogDir:              logDir,
		ArchivePath:         os.Getenv("ARCHIVE_PATH"),
		StatusPort:          statusPort,
	}, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
