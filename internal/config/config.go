package config

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type UplinkMode string

const (
	UplinkModeOff       UplinkMode = "off"
	UplinkModeGRPC      UplinkMode = "grpc"
	UplinkModeWebSocket UplinkMode = "websocket"

	BridgeVersion = "0.3.0"
)

type Config struct {
	Hostname        string
	ListenAddr      string
	ProbeListenAddr string
	Token           string
	TokenGenerated  bool

	UpdateInterval      time.Duration
	MediaUpdateInterval time.Duration
	StaggerDelay        time.Duration
	ShutdownTimeout     time.Duration
	HealthInterval      time.Duration

	UplinkMode          UplinkMode
	UplinkGRPCAddr      string
	UplinkWSURL         string
	UplinkToken         string
	UplinkStreamMethod  string
	UplinkWriteTimeout  time.Duration
	UplinkPingInterval  time.Duration
	TLSEnabled          bool
	TLSSkipVerify       bool
	TLSCAPath           string
	TLSCertPath         string
	TLSKeyPath          string

	LogJSON  bool
	LogLevel string
}

func Load() (Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	cfg := Config{
		Hostname:        hostname,
		ListenAddr:      env("HOSTBRIDGE_LISTEN_ADDR", ":9170"),
		ProbeListenAddr: env("HOSTBRIDGE_PROBE_ADDR", "127.0.0.1:9171"),
		Token:           env("HOSTBRIDGE_TOKEN", ""),

		UpdateInterval:      envDuration("HOSTBRIDGE_UPDATE_INTERVAL", 30*time.Second),
		MediaUpdateInterval: envDuration("HOSTBRIDGE_MEDIA_UPDATE_INTERVAL", 20*time.Second),
		StaggerDelay:        envDuration("HOSTBRIDGE_STAGGER_DELAY", 1*time.Second),
		ShutdownTimeout:     envDuration("HOSTBRIDGE_SHUTDOWN_TIMEOUT", 20*time.Second),
		HealthInterval:      envDuration("HOSTBRIDGE_HEALTH_INTERVAL", 60*time.Second),

		UplinkMode:         UplinkMode(strings.ToLower(env("HOSTBRIDGE_UPLINK_MODE", string(UplinkModeOff)))),
		UplinkGRPCAddr:     env("HOSTBRIDGE_UPLINK_GRPC_ADDR", ""),
		UplinkWSURL:        env("HOSTBRIDGE_UPLINK_WS_URL", ""),
		UplinkToken:        env("HOSTBRIDGE_UPLINK_TOKEN", ""),
		UplinkStreamMethod: env("HOSTBRIDGE_UPLINK_STREAM_METHOD", "/hostbridge.telemetry.v1.BridgeService/StreamModuleUpdates"),
		UplinkWriteTimeout: envDuration("HOSTBRIDGE_UPLINK_WRITE_TIMEOUT", 5*time.Second),
		UplinkPingInterval: envDuration("HOSTBRIDGE_UPLINK_PING_INTERVAL", 10*time.Second),
		TLSEnabled:         envBool("HOSTBRIDGE_TLS_ENABLED", false),
		TLSSkipVerify:      envBool("HOSTBRIDGE_TLS_SKIP_VERIFY", false),
		TLSCAPath:          env("HOSTBRIDGE_TLS_CA_PATH", ""),
		TLSCertPath:        env("HOSTBRIDGE_TLS_CERT_PATH", ""),
		TLSKeyPath:         env("HOSTBRIDGE_TLS_KEY_PATH", ""),

		LogJSON:  envBool("HOSTBRIDGE_LOG_JSON", false),
		LogLevel: strings.ToLower(env("HOSTBRIDGE_LOG_LEVEL", "info")),
	}

	if cfg.Token == "" {
		token, err := generateToken()
		if err != nil {
			return Config{}, fmt.Errorf("generate token: %w", err)
		}
		cfg.Token = token
		cfg.TokenGenerated = true
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("HOSTBRIDGE_LISTEN_ADDR is required")
	}
	if c.Token == "" {
		return errors.New("token must not be empty")
	}
	if c.UpdateInterval <= 0 {
		return errors.New("HOSTBRIDGE_UPDATE_INTERVAL must be > 0")
	}
	if c.MediaUpdateInterval <= 0 {
		return errors.New("HOSTBRIDGE_MEDIA_UPDATE_INTERVAL must be > 0")
	}
	if c.StaggerDelay < 0 {
		return errors.New("HOSTBRIDGE_STAGGER_DELAY must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("HOSTBRIDGE_SHUTDOWN_TIMEOUT must be > 0")
	}
	switch c.UplinkMode {
	case UplinkModeOff, UplinkModeGRPC, UplinkModeWebSocket:
	default:
		return fmt.Errorf("unsupported uplink mode %q", c.UplinkMode)
	}
	if c.UplinkMode == UplinkModeGRPC {
		if c.UplinkGRPCAddr == "" {
			return errors.New("HOSTBRIDGE_UPLINK_GRPC_ADDR is required for grpc uplink")
		}
		if strings.TrimSpace(c.UplinkStreamMethod) == "" {
			return errors.New("HOSTBRIDGE_UPLINK_STREAM_METHOD is required for grpc uplink")
		}
	}
	if c.UplinkMode == UplinkModeWebSocket && c.UplinkWSURL == "" {
		return errors.New("HOSTBRIDGE_UPLINK_WS_URL is required for websocket uplink")
	}
	return nil
}

func (c Config) TLSConfig() (*tls.Config, error) {
	if !c.TLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSSkipVerify}
	if c.TLSCAPath != "" {
		caBytes, err := os.ReadFile(c.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	if c.TLSCertPath != "" || c.TLSKeyPath != "" {
		if c.TLSCertPath == "" || c.TLSKeyPath == "" {
			return nil, errors.New("both TLS cert and key are required")
		}
		crt, err := tls.LoadX509KeyPair(c.TLSCertPath, c.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load TLS cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
