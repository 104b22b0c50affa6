// Package tracing provides OpenTelemetry instrumentation for the gate.
//
// It exposes a shared tracer and an HTTP middleware that starts a server
// span per request, propagates W3C trace context from incoming headers,
// and surfaces the trace ID to clients via the X-Trace-Id response header.
package tracing
