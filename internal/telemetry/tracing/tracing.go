package tracing

import (
	"context"

	"github.com/honeycombio/honeycomb-opentelemetry-go"
	"github.com/honeycombio/otel-config-go/otelconfig"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var GlobalTracer = otel.Tracer("blog-posts-backend")

// HoneycombSetup configures the OpenTelemetry SDK with the honeycomb distro.
// Exporter settings (API key, endpoint) come from the standard OTEL_* / HONEYCOMB_* env vars.
// When disabled, the global no-op tracer provider stays in place.
func HoneycombSetup(enabled bool, serviceName string) (func(), error) {
	if !enabled {
		log.Debugln("honeycomb tracing disabled")
		return func() {}, nil
	}

	bsp := honeycomb.NewBaggageSpanProcessor()
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
		otelconfig.WithSpanProcessor(bsp),
	)
	if err != nil {
		return nil, err
	}

	log.Debugf("honeycomb tracing enabled for service [%s]", serviceName)
	return otelShutdown, nil
}

// SpanError marks the span found in ctx as failed.
func SpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
