package tracing

import "time"

const (
	reconnectionPeriod = 30 * time.Second
	exportTimeout      = 30 * time.Second
	maxQueueSize       = 10000
	batchTimeout       = 5 * time.Second
	maxExportBatchSize = 1024
)

// Config holds the configuration for the tracing system.
type Config struct {
	// Disable installs a no-op tracer provider. No spans are collected or exported.
	Disable bool `yaml:"disable" default:"false"`

	// SampleRate is the fraction of root traces that are sampled, from 0 to 1.
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1" default:"1"`

	// ExporterHost is the hostname of the OTLP collector.
	ExporterHost string `yaml:"exporter_host" validate:"required_unless=Disable true"`

	// ExporterPort is the gRPC port of the OTLP collector.
	ExporterPort int `yaml:"exporter_port" validate:"required_unless=Disable true"`

	// Tags are added as resource attributes to all spans.
	Tags map[string]string `yaml:"tags"`
}
