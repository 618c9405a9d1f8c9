// Package telemetry provides OpenTelemetry metrics for the workflow runtime
// with Prometheus export. Workflow and node executions, durations and shell
// command counts are recorded through a Provider; a nil Provider is a valid
// no-op so callers never need to guard.
package telemetry
