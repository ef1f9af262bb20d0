package config

// OtelConfig holds OpenTelemetry settings. Tracing is off unless an OTLP
// endpoint is set.
type OtelConfig struct {
	// ExporterEndpoint is the OTLP HTTP endpoint, e.g. http://localhost:4318.
	ExporterEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	Insecure         bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName      string  `env:"OTEL_SERVICE_NAME"           envDefault:"typegraph"`
	SamplingRate     float64 `env:"OTEL_SAMPLING_RATE"          envDefault:"1.0"`
}

// Enabled returns true when an OTLP endpoint is configured.
func (c OtelConfig) Enabled() bool {
	return c.ExporterEndpoint != ""
}
