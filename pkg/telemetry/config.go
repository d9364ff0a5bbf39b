package telemetry

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config contains the telemetry configuration of mesonlint.
type Config struct {
	// ServiceName identifies the process in traces.
	ServiceName string `yaml:"service_name" json:"service_name" validate:"required"`

	// ServiceVersion is the version reported in traces.
	ServiceVersion string `yaml:"service_version" json:"service_version" validate:"required"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum level (trace, debug, info, warn, error, fatal).
	Level string `yaml:"level" json:"level" validate:"oneof=trace debug info warn error fatal"`

	// Format is console or json.
	Format string `yaml:"format" json:"format" validate:"oneof=console json"`

	// Output is stdout, stderr or a file path.
	Output string `yaml:"output" json:"output" validate:"required"`

	// EnableCaller adds file:line to every entry.
	EnableCaller bool `yaml:"enable_caller" json:"enable_caller"`

	// TimeFormat is unix, unixms, unixmicro or rfc3339.
	TimeFormat string `yaml:"time_format" json:"time_format"`
}

// TracingConfig configures tracing of lint runs.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Exporter is otlp, stdout or none.
	Exporter string `yaml:"exporter" json:"exporter" validate:"omitempty,oneof=otlp stdout none"`

	// Endpoint is the OTLP gRPC endpoint.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// SamplingRate is the ratio of sampled runs.
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate" validate:"gte=0,lte=1"`

	MaxExportBatchSize int               `yaml:"max_export_batch_size" json:"max_export_batch_size" validate:"gte=0"`
	ExportTimeout      time.Duration     `yaml:"export_timeout" json:"export_timeout"`
	Headers            map[string]string `yaml:"headers" json:"headers"`
	Insecure           bool              `yaml:"insecure" json:"insecure"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// ListenAddress is where watch mode serves the metrics endpoint.
	ListenAddress string `yaml:"listen_address" json:"listen_address" validate:"required_if=Enabled true"`

	// Path is the HTTP path of the endpoint.
	Path string `yaml:"path" json:"path"`

	Namespace string `yaml:"namespace" json:"namespace"`

	// DefaultHistogramBuckets are the duration buckets in seconds.
	DefaultHistogramBuckets []float64 `yaml:"buckets" json:"buckets"`
}

// DefaultConfig returns the configuration used when no file is given:
// console logging at info level, tracing and metrics off.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "mesonlint",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			TimeFormat: "rfc3339",
		},
		Tracing: TracingConfig{
			Enabled:            false,
			Exporter:           "none",
			SamplingRate:       1.0,
			MaxExportBatchSize: 512,
			ExportTimeout:      30 * time.Second,
			Headers:            make(map[string]string),
			Insecure:           true,
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":9090",
			Path:          "/metrics",
			Namespace:     "mesonlint",
			DefaultHistogramBuckets: []float64{
				0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5,
			},
		},
	}
}

// DevelopmentConfig returns DefaultConfig with debug logging and traces
// printed to stdout.
func DevelopmentConfig() *Config {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.EnableCaller = true
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "stdout"
	return cfg
}

var configValidator = validator.New()

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid telemetry config: %w", err)
	}
	return nil
}
