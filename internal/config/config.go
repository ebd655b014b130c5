// Package config handles configuration loading from environment variables and Kubernetes secrets.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"brink_bridge/internal/api"
)

// Config holds all configuration for the Brink bridge.
type Config struct {
	// Authentication credentials
	Username string
	Password string

	// Portal configuration
	APIURL         string
	RequestTimeout time.Duration
	ScanInterval   time.Duration

	// Server configuration
	ListenAddr string

	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json

	// MQTT configuration; an empty broker disables the Home Assistant bridge
	Mqtt Mqtt
}

// Mqtt holds the broker settings of the Home Assistant bridge.
type Mqtt struct {
	Broker          string
	Username        string
	Password        string
	ClientID        string
	TopicPrefix     string
	DiscoveryPrefix string
}

// LoadConfig loads configuration from environment variables and Kubernetes secrets.
// It tries Kubernetes secrets first, then falls back to environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Set defaults
		APIURL:         api.DefaultBaseURL,
		RequestTimeout: 20 * time.Second,
		ScanInterval:   30 * time.Second,
		ListenAddr:     ":9809",
		LogLevel:       "info",
		LogFormat:      "text",
		Mqtt: Mqtt{
			ClientID:        "brink-bridge",
			TopicPrefix:     "brink",
			DiscoveryPrefix: "homeassistant",
		},
	}

	// Try to load from Kubernetes secrets first
	username, password, err := tryLoadFromSecrets()
	if err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	if username != "" && password != "" {
		cfg.Username = username
		cfg.Password = password
	} else {
		// Fallback to environment variables
		cfg.Username = os.Getenv("BRINK_USERNAME")
		cfg.Password = os.Getenv("BRINK_PASSWORD")
	}

	// Override defaults from environment variables
	if addr := os.Getenv("BRINK_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	if url := os.Getenv("BRINK_API_URL"); url != "" {
		cfg.APIURL = url
	}
	if !strings.HasSuffix(cfg.APIURL, "/") {
		cfg.APIURL += "/"
	}

	if level := os.Getenv("BRINK_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if format := os.Getenv("BRINK_LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	if timeout := os.Getenv("BRINK_REQUEST_TIMEOUT"); timeout != "" {
		seconds, err := strconv.Atoi(timeout)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid BRINK_REQUEST_TIMEOUT %q", timeout)
		}
		cfg.RequestTimeout = time.Duration(seconds) * time.Second
	}

	if interval := os.Getenv("BRINK_SCAN_INTERVAL"); interval != "" {
		seconds, err := strconv.Atoi(interval)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid BRINK_SCAN_INTERVAL %q", interval)
		}
		cfg.ScanInterval = time.Duration(seconds) * time.Second
	}

	cfg.Mqtt.Broker = os.Getenv("BRINK_MQTT_BROKER")
	cfg.Mqtt.Username = os.Getenv("BRINK_MQTT_USERNAME")
	cfg.Mqtt.Password = os.Getenv("BRINK_MQTT_PASSWORD")
	if cfg.Mqtt.Password == "" {
		pw, err := readSecret(secretsDir(), mqttPasswordFile)
		if err != nil {
			return nil, fmt.Errorf("load mqtt secret: %w", err)
		}
		cfg.Mqtt.Password = pw
	}
	if prefix := os.Getenv("BRINK_MQTT_TOPIC_PREFIX"); prefix != "" {
		cfg.Mqtt.TopicPrefix = strings.TrimSuffix(prefix, "/")
	}
	if prefix := os.Getenv("BRINK_MQTT_DISCOVERY_PREFIX"); prefix != "" {
		cfg.Mqtt.DiscoveryPrefix = strings.TrimSuffix(prefix, "/")
	}
	if id := os.Getenv("BRINK_MQTT_CLIENT_ID"); id != "" {
		cfg.Mqtt.ClientID = id
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Username == "" {
		return errors.New("username is required (set BRINK_USERNAME or mount K8s secret)")
	}
	if c.Password == "" {
		return errors.New("password is required (set BRINK_PASSWORD or mount K8s secret)")
	}
	if c.RequestTimeout < 5*time.Second {
		return errors.New("request timeout must be at least 5 seconds")
	}
	if c.ScanInterval < 10*time.Second {
		return errors.New("scan interval must be at least 10 seconds")
	}
	return nil
}

// Enabled reports whether a broker is configured.
func (m *Mqtt) Enabled() bool {
	return m.Broker != ""
}

// ClientOptions builds the paho options for the configured broker.
// A broker without scheme or port is treated as tcp://host:1883.
func (m *Mqtt) ClientOptions(logger *slog.Logger) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(brokerURL(m.Broker)).
		SetClientID(m.ClientID).
		SetUsername(m.Username).
		SetPassword(m.Password).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", "error", err)
		}).
		SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
			logger.Info("MQTT reconnecting")
		})
}

func brokerURL(broker string) string {
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	hostPart := broker[strings.Index(broker, "://")+3:]
	if !strings.Contains(hostPart, ":") {
		broker += ":1883"
	}
	return broker
}
