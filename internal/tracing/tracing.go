// Package tracing initializes OpenTelemetry tracing for the ingestion engine.
//
// Every pipeline step (retrieve, parse, embed, persist) opens a span so a single
// document's path through the three worker pools can be followed in a trace
// backend without correlating log lines by hand.
package tracing

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Config holds OpenTelemetry configuration.
type Config struct {
	ServiceName string
	Version     string

	// OTLPEndpoint is the collector endpoint, e.g. http://localhost:4318.
	OTLPEndpoint string

	Enabled bool

	// SamplingRatio is between 0.0 and 1.0.
	SamplingRatio float64

	Environment string
}

// Provider wraps the OpenTelemetry TracerProvider.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Init initializes OpenTelemetry from environment variables:
//
//   - OTEL_ENABLED: enable/disable tracing (default: true)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP HTTP endpoint (default: http://localhost:4318)
//   - OTEL_SERVICE_NAME: overrides serviceName
//   - OTEL_SAMPLING_RATIO: sampling ratio 0.0-1.0 (default: 1.0)
//   - OTEL_ENVIRONMENT: deployment environment (default: development)
func Init(serviceName, version string) *Provider {
	config := Config{
		ServiceName: serviceName,
		Version:     version,
	}

	config.Enabled = os.Getenv("OTEL_ENABLED") != "false"
	if !config.Enabled {
		log.Println("tracing disabled via OTEL_ENABLED=false")
		return nil
	}

	config.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if config.OTLPEndpoint == "" {
		config.OTLPEndpoint = "http://localhost:4318"
	}

	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		config.ServiceName = name
	}

	config.SamplingRatio = 1.0
	if ratio := os.Getenv("OTEL_SAMPLING_RATIO"); ratio != "" {
		if _, err := fmt.Sscanf(ratio, "%f", &config.SamplingRatio); err != nil {
			log.Printf("invalid OTEL_SAMPLING_RATIO %q, using 1.0", ratio)
		}
	}

	config.Environment = os.Getenv("OTEL_ENVIRONMENT")
	if config.Environment == "" {
		config.Environment = "development"
	}

	provider, err := NewProvider(config)
	if err != nil {
		log.Printf("tracing initialization failed: %v", err)
		return nil
	}

	log.Printf("tracing initialized for %s (endpoint: %s, sampling: %.2f)",
		config.ServiceName, config.OTLPEndpoint, config.SamplingRatio)

	return provider
}

// NewProvider creates a new OpenTelemetry provider from an explicit Config.
func NewProvider(config Config) (*Provider, error) {
	ctx := context.Background()

	exporter, err := otlptrace.New(
		ctx,
		otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(stripProtocol(config.OTLPEndpoint)),
			otlptracehttp.WithInsecure(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.Version),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
		resource.WithProcess(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRatio >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SamplingRatio <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRatio)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp}, nil
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.tp.Shutdown(shutdownCtx)
}

func stripProtocol(endpoint string) string {
	if len(endpoint) > 7 && endpoint[:7] == "http://" {
		return endpoint[7:]
	}
	if len(endpoint) > 8 && endpoint[:8] == "https://" {
		return endpoint[8:]
	}
	return endpoint
}
