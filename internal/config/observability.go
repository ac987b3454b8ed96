package config

// TracingConfig holds OTLP trace export configuration.
//
// Traces follow Genkit's span pipeline to any OTLP/HTTP collector
// (Jaeger, Datadog Agent, Grafana Tempo). An empty Endpoint disables
// export entirely. See internal/observability for setup details.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector address, host:port (default: "" = disabled)
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// ServiceName is the service name attached to exported spans (default: sherpa)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
