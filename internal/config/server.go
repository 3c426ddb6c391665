package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/alamayub/omagle-clone/internal/metrics"
	"github.com/alamayub/omagle-clone/internal/signaling"
)

// ServerConfig holds the relay configuration.
type ServerConfig struct {
	Listen         string          `yaml:"listen"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	Signaling      SignalingConfig `yaml:"signaling"`
	Limits         LimitsConfig    `yaml:"limits"`
}

type SignalingConfig struct {
	MaxPendingCandidates int           `yaml:"max_pending_candidates"`
	SendQueue            int           `yaml:"send_queue"`
	RequeueOnHangUp      bool          `yaml:"requeue_on_hangup"`
	NegotiationTimeout   time.Duration `yaml:"negotiation_timeout"`
}

type LimitsConfig struct {
	MaxMessageSize    int64   `yaml:"max_message_size"`
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}

// ServerOptions carries `serve` flag overrides. Zero values mean "not set".
type ServerOptions struct {
	ConfigFile         string
	Listen             string
	AllowedOrigins     string
	NegotiationTimeout time.Duration
}

// DefaultServerConfig returns the built-in relay settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Listen: ":8080",
		Signaling: SignalingConfig{
			MaxPendingCandidates: signaling.DefaultMaxPendingCandidates,
			SendQueue:            signaling.DefaultSendQueue,
			RequeueOnHangUp:      true,
		},
		Limits: LimitsConfig{
			MaxMessageSize:    signaling.DefaultMaxMessageSize,
			MessagesPerSecond: 50,
			Burst:             100,
		},
	}
}

// LoadServer reads the relay configuration with the following priority:
// 1. CLI flags (passed via ServerOptions) - highest priority
// 2. Environment variables
// 3. YAML config file (flag or CONFIG_FILE)
// 4. Hardcoded defaults - lowest priority
func LoadServer(opts ServerOptions) (*ServerConfig, error) {
	cfg := DefaultServerConfig()

	path := firstNonEmpty(opts.ConfigFile, os.Getenv("CONFIG_FILE"))
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("NEGOTIATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid NEGOTIATION_TIMEOUT: %w", err)
		}
		cfg.Signaling.NegotiationTimeout = d
	}
	if v := os.Getenv("REQUEUE_ON_HANGUP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUEUE_ON_HANGUP: %w", err)
		}
		cfg.Signaling.RequeueOnHangUp = b
	}

	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	if opts.AllowedOrigins != "" {
		cfg.AllowedOrigins = splitList(opts.AllowedOrigins)
	}
	if opts.NegotiationTimeout != 0 {
		cfg.Signaling.NegotiationTimeout = opts.NegotiationTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the relay cannot run with.
func (c *ServerConfig) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.Signaling.MaxPendingCandidates < 0 {
		errs = append(errs, errors.New("signaling.max_pending_candidates must not be negative"))
	}
	if c.Signaling.SendQueue <= 0 {
		errs = append(errs, errors.New("signaling.send_queue must be positive"))
	}
	if c.Signaling.NegotiationTimeout < 0 {
		errs = append(errs, errors.New("signaling.negotiation_timeout must not be negative"))
	}
	if c.Limits.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("limits.max_message_size must be positive"))
	}
	if c.Limits.MessagesPerSecond < 0 || c.Limits.Burst < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// RelayOptions converts the configuration for signaling.NewHub.
func (c *ServerConfig) RelayOptions(log *zap.Logger, m *metrics.Metrics) signaling.Options {
	return signaling.Options{
		MaxPendingCandidates: c.Signaling.MaxPendingCandidates,
		RequeueOnHangUp:      c.Signaling.RequeueOnHangUp,
		NegotiationTimeout:   c.Signaling.NegotiationTimeout,
		Logger:               log,
		Metrics:              m,
	}
}

// ClientOptions converts the per-connection settings.
func (c *ServerConfig) ClientOptions() signaling.ClientOptions {
	return signaling.ClientOptions{
		SendQueue:         c.Signaling.SendQueue,
		MaxMessageSize:    c.Limits.MaxMessageSize,
		MessagesPerSecond: c.Limits.MessagesPerSecond,
		Burst:             c.Limits.Burst,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
