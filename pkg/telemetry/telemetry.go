package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "pflow-workflow-runtime"

// Metric names
const (
	metricWorkflowExecutions = "workflow.executions.total"
	metricWorkflowDuration   = "workflow.execution.duration"
	metricWorkflowFailures   = "workflow.executions.failure.total"
	metricNodeExecutions     = "node.executions.total"
	metricNodeDuration       = "node.execution.duration"
	metricNodeFailures       = "node.executions.failure.total"
	metricShellCommands      = "shell.commands.total"
)

// Config holds telemetry configuration
type Config struct {
	ServiceVersion string
	Environment    string
}

// Provider manages the OpenTelemetry meter and its instruments. The zero
// value is unusable; build one with New. A nil *Provider is a no-op.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *promclient.Registry

	workflowExecutions metric.Int64Counter
	workflowDuration   metric.Float64Histogram
	workflowFailures   metric.Int64Counter
	nodeExecutions     metric.Int64Counter
	nodeDuration       metric.Float64Histogram
	nodeFailures       metric.Int64Counter
	shellCommands      metric.Int64Counter
}

// New builds a Provider backed by a dedicated Prometheus registry.
func New(cfg Config) (*Provider, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("environment", cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	meter := meterProvider.Meter(serviceName)

	p := &Provider{meterProvider: meterProvider, registry: registry}
	if p.workflowExecutions, err = meter.Int64Counter(metricWorkflowExecutions,
		metric.WithDescription("Total workflow executions started")); err != nil {
		return nil, err
	}
	if p.workflowDuration, err = meter.Float64Histogram(metricWorkflowDuration,
		metric.WithDescription("Workflow execution duration"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if p.workflowFailures, err = meter.Int64Counter(metricWorkflowFailures,
		metric.WithDescription("Total failed workflow executions")); err != nil {
		return nil, err
	}
	if p.nodeExecutions, err = meter.Int64Counter(metricNodeExecutions,
		metric.WithDescription("Total node executions")); err != nil {
		return nil, err
	}
	if p.nodeDuration, err = meter.Float64Histogram(metricNodeDuration,
		metric.WithDescription("Node execution duration"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if p.nodeFailures, err = meter.Int64Counter(metricNodeFailures,
		metric.WithDescription("Total failed node executions")); err != nil {
		return nil, err
	}
	if p.shellCommands, err = meter.Int64Counter(metricShellCommands,
		metric.WithDescription("Total shell commands executed")); err != nil {
		return nil, err
	}
	return p, nil
}

// Handler returns an HTTP handler exposing the Prometheus metrics.
func (p *Provider) Handler() http.Handler {
	if p == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}

// WorkflowStarted records the start of a workflow run.
func (p *Provider) WorkflowStarted(ctx context.Context) {
	if p == nil {
		return
	}
	p.workflowExecutions.Add(ctx, 1)
}

// WorkflowFinished records the end of a workflow run.
func (p *Provider) WorkflowFinished(ctx context.Context, success bool, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.workflowDuration.Record(ctx, elapsed.Seconds())
	if !success {
		p.workflowFailures.Add(ctx, 1)
	}
}

// NodeExecuted records one node execution.
func (p *Provider) NodeExecuted(ctx context.Context, nodeType string, success bool, elapsed time.Duration) {
	if p == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("node_type", nodeType))
	p.nodeExecutions.Add(ctx, 1, attrs)
	p.nodeDuration.Record(ctx, elapsed.Seconds(), attrs)
	if !success {
		p.nodeFailures.Add(ctx, 1, attrs)
	}
}

// ShellCommandExecuted records one shell subprocess run.
func (p *Provider) ShellCommandExecuted(ctx context.Context, exitCode int) {
	if p == nil {
		return
	}
	p.shellCommands.Add(ctx, 1, metric.WithAttributes(attribute.Int("exit_code", exitCode)))
}
