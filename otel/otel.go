// Package otel wires OpenTelemetry tracing into the request pipeline.
package otel

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/config"
)

// Setup installs a global tracer provider exporting over OTLP/HTTP.
// An empty endpoint leaves the global no-op provider in place.
// The returned shutdown flushes pending spans.
func Setup(ctx context.Context, cfg config.OTELConfig) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return noop, nil
	}

	var opts []otlptracehttp.Option
	if strings.Contains(endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noop, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "bugtracker"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer adapts an OpenTelemetry tracer to middleware.Trace.
type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracer uses the global provider and propagator.
func NewTracer(name string) *Tracer {
	return NewTracerWithProvider(otel.GetTracerProvider(), name)
}

// NewTracerWithProvider uses provider and the W3C trace context propagator.
func NewTracerWithProvider(provider trace.TracerProvider, name string) *Tracer {
	if name == "" {
		name = "bugtracker"
	}
	return &Tracer{tracer: provider.Tracer(name), propagator: propagation.TraceContext{}}
}

// Start opens a server span for the request, continuing any incoming
// trace context. The span is named after the matched route when known.
func (t *Tracer) Start(ctx *bugtracker.Context) (context.Context, func(status int, err error)) {
	if t == nil || ctx == nil || ctx.Request == nil {
		return context.Background(), func(int, error) {}
	}

	req := ctx.Request
	parent := t.propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))

	name := ctx.Route()
	if name == "" {
		name = req.Method + " " + req.URL.Path
	}
	spanCtx, span := t.tracer.Start(parent, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(req.Method),
			semconv.URLPath(req.URL.Path),
		),
	)
	if route := ctx.Route(); route != "" {
		span.SetAttributes(semconv.HTTPRoute(route))
	}
	if requestID := ctx.RequestID(); requestID != "" {
		span.SetAttributes(requestIDKey.String(requestID))
	}

	return spanCtx, func(status int, err error) {
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		if principal, ok := bugtracker.PrincipalFromContext(ctx); ok && principal != nil {
			span.SetAttributes(actorIDKey.String(principal.ID))
		}
		switch {
		case status >= http.StatusInternalServerError:
			if err != nil {
				span.RecordError(err)
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		case err != nil:
			span.RecordError(err)
		}
		span.End()
	}
}
