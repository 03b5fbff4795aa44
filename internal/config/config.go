package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lsm/cloudwatch-stdf/internal/kafka"
)

// Environment keys for the envelope settings.
const (
	EnvSNSTopic            = "SNS_TOPIC"
	EnvMessageTitle        = "MESSAGE_TITLE"
	EnvMessageDescription  = "MESSAGE_DESCRIPTION"
	EnvSourceAccountNumber = "SOURCE_ACCOUNT_NUMBER"
	EnvSourceRegion        = "SOURCE_REGION"
	EnvAppName             = "APP_NAME"
)

// Environment keys for runtime settings.
const (
	EnvConfigFile      = "STDF_CONFIG_FILE"
	EnvTransport       = "STDF_TRANSPORT"
	EnvLogLevel        = "STDF_LOG_LEVEL"
	EnvListenAddr      = "STDF_LISTEN_ADDR"
	EnvMetricsAddr     = "STDF_METRICS_ADDR"
	EnvPublishRate     = "STDF_PUBLISH_RATE"
	EnvPublishBurst    = "STDF_PUBLISH_BURST"
	EnvKafkaBrokers    = "STDF_KAFKA_BROKERS"
	EnvNATSURL         = "STDF_NATS_URL"
	EnvPubSubProject   = "STDF_PUBSUB_PROJECT"
	EnvHTTPURL         = "STDF_HTTP_URL"
	EnvCloudEventsURL  = "STDF_CLOUDEVENTS_URL"
	EnvCloudEventsType = "STDF_CLOUDEVENTS_TYPE"
	EnvAWSRegion       = "AWS_REGION"
	EnvOTelEnabled     = "STDF_OTEL_ENABLED"
	EnvOTelEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Transport names.
const (
	TransportSNS         = "sns"
	TransportKafka       = "kafka"
	TransportNATS        = "nats"
	TransportPubSub      = "pubsub"
	TransportCloudEvents = "cloudevents"
	TransportHTTP        = "http"
	TransportStdout      = "stdout"
)

// LookupFunc resolves a key the way os.LookupEnv does.
type LookupFunc func(key string) (string, bool)

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	Settings    Settings            `yaml:"settings"`
	Transport   string              `yaml:"transport"`
	LogLevel    string              `yaml:"logLevel"`
	ListenAddr  string              `yaml:"listenAddr"`
	MetricsAddr string              `yaml:"metricsAddr"`
	RateLimit   RateLimitConfig     `yaml:"rateLimit"`
	Tracing     TracingConfig       `yaml:"tracing"`
	SNS         SNSConfig           `yaml:"sns"`
	Kafka       kafka.ClusterConfig `yaml:"kafka"`
	NATS        NATSConfig          `yaml:"nats"`
	PubSub      PubSubConfig        `yaml:"pubsub"`
	HTTP        HTTPConfig          `yaml:"http"`
	CloudEvents CloudEventsConfig   `yaml:"cloudevents"`
}

// RateLimitConfig throttles outbound publishes. Zero disables it.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"perSecond"`
	Burst     int     `yaml:"burst"`
}

// TracingConfig enables OTLP span export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // OTLP gRPC host:port
}

// SNSConfig configures the SNS transport.
type SNSConfig struct {
	Region string `yaml:"region"`
}

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	URL   string `yaml:"url"`
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
}

// PubSubConfig configures the Google Cloud Pub/Sub transport.
type PubSubConfig struct {
	ProjectID string `yaml:"projectID"`
}

// HTTPConfig configures the plain HTTP webhook transport.
type HTTPConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// CloudEventsConfig configures the CloudEvents HTTP transport.
type CloudEventsConfig struct {
	URL    string `yaml:"url"`
	Source string `yaml:"source"`
	Type   string `yaml:"type"`
}

// Load builds the configuration from an optional YAML file named by
// STDF_CONFIG_FILE, then applies environment overrides. Settings are not
// validated here; see Settings.Validate.
func Load(lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := &Config{}
	if path, ok := lookup(EnvConfigFile); ok && path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	cfg.Settings.applyEnv(lookup)

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	setString(EnvTransport, &c.Transport)
	setString(EnvLogLevel, &c.LogLevel)
	setString(EnvListenAddr, &c.ListenAddr)
	setString(EnvMetricsAddr, &c.MetricsAddr)
	setString(EnvAWSRegion, &c.SNS.Region)
	setString(EnvNATSURL, &c.NATS.URL)
	setString(EnvPubSubProject, &c.PubSub.ProjectID)
	setString(EnvHTTPURL, &c.HTTP.URL)
	setString(EnvCloudEventsURL, &c.CloudEvents.URL)
	setString(EnvCloudEventsType, &c.CloudEvents.Type)
	setString(EnvOTelEndpoint, &c.Tracing.Endpoint)

	if v, ok := lookup(EnvOTelEnabled); ok && v != "" {
		c.Tracing.Enabled = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	if v, ok := lookup(EnvKafkaBrokers); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}

	if v, ok := lookup(EnvPublishRate); ok && v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPublishRate, err)
		}
		c.RateLimit.PerSecond = rate
	}
	if v, ok := lookup(EnvPublishBurst); ok && v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPublishBurst, err)
		}
		c.RateLimit.Burst = burst
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Transport == "" {
		c.Transport = TransportSNS
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.NATS.Name == "" {
		c.NATS.Name = "cloudwatch-stdf"
	}
	if c.CloudEvents.Source == "" {
		c.CloudEvents.Source = "cloudwatch-stdf"
	}
	if c.CloudEvents.Type == "" {
		c.CloudEvents.Type = "stdf.v2"
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4317"
	}
	if c.RateLimit.PerSecond > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
