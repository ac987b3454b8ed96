// Package observability wires OTLP trace export into Genkit's span
// pipeline.
//
// Genkit instruments every generate and embed call with OpenTelemetry
// spans. Setup attaches an OTLP/HTTP exporter to that pipeline so the
// spans reach a collector such as Jaeger, Grafana Tempo, or the Datadog
// Agent's OTLP receiver (enable the receiver in datadog.yaml under
// otlp_config, default endpoint localhost:4318).
//
// Tracing is never load-bearing: an empty endpoint disables export, and
// an exporter that cannot be constructed degrades to a no-op instead of
// failing startup.
package observability

import (
	"context"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kavi0/sherpa/internal/log"
)

// Config for trace export.
type Config struct {
	// Endpoint is the OTLP/HTTP collector address as host:port.
	// Empty disables export.
	Endpoint string
	// ServiceName is the service name attached to exported spans.
	ServiceName string
	// Environment tags spans with the deployment environment.
	Environment string
}

// shutdownTimeout bounds the final span flush.
const shutdownTimeout = 5 * time.Second

// Setup attaches an OTLP/HTTP exporter to Genkit's TracerProvider and
// returns a shutdown function that flushes pending spans. Call it before
// genkit.Init so the resource attributes are in place when the provider
// starts. When export is disabled or the exporter cannot be constructed,
// the returned function is a no-op.
func Setup(ctx context.Context, cfg Config, logger log.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }

	if cfg.Endpoint == "" {
		logger.Debug("trace export disabled, no collector endpoint configured")
		return noop
	}

	// Genkit's TracerProvider picks the service identity up from the
	// standard OTEL environment variables.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter failed, tracing disabled", "error", err)
		return noop
	}

	tracing.TracerProvider().RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))
	logger.Info("trace export enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return tracing.TracerProvider().Shutdown(ctx)
	}
}
