// Package otel binds authcore engine metrics to OpenTelemetry instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// cumulative bucket gauges per latency histogram. A single callback reads
// the engine snapshot on every collection cycle. Callers own the
// MeterProvider.
package otel
