package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/gatepass/gatepass"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Hub metrics
	EventsPublishedTotal metric.Int64Counter
	EventsDeliveredTotal metric.Int64Counter
	EventsDroppedTotal   metric.Int64Counter

	// Registry metrics
	ActiveConnections  metric.Int64UpDownCounter
	SweepRemovalsTotal metric.Int64Counter
	RegistrationsTotal metric.Int64Counter

	// Lifecycle metrics
	DismissalsCreatedTotal   metric.Int64Counter
	DismissalsAdvancedTotal  metric.Int64Counter
	DismissalsConfirmedTotal metric.Int64Counter
	DismissalsCancelledTotal metric.Int64Counter
	LimitVetoesTotal         metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.EventsPublishedTotal, _ = meter.Int64Counter(
		"gatepass.events.published.total",
		metric.WithDescription("Total number of dismissal events published to the hub"),
		metric.WithUnit("{event}"),
	)

	m.EventsDeliveredTotal, _ = meter.Int64Counter(
		"gatepass.events.delivered.total",
		metric.WithDescription("Total number of event deliveries to live subscribers"),
		metric.WithUnit("{event}"),
	)

	m.EventsDroppedTotal, _ = meter.Int64Counter(
		"gatepass.events.dropped.total",
		metric.WithDescription("Total number of event deliveries dropped due to dead connections"),
		metric.WithUnit("{event}"),
	)

	m.ActiveConnections, _ = meter.Int64UpDownCounter(
		"gatepass.connections.active",
		metric.WithDescription("Number of live subscriber connections"),
		metric.WithUnit("{connection}"),
	)

	m.SweepRemovalsTotal, _ = meter.Int64Counter(
		"gatepass.connections.sweep_removals.total",
		metric.WithDescription("Total number of connections removed by the liveness sweep"),
		metric.WithUnit("{connection}"),
	)

	m.RegistrationsTotal, _ = meter.Int64Counter(
		"gatepass.connections.registrations.total",
		metric.WithDescription("Total number of subscriber registrations"),
		metric.WithUnit("{connection}"),
	)

	m.DismissalsCreatedTotal, _ = meter.Int64Counter(
		"gatepass.dismissals.created.total",
		metric.WithDescription("Total number of dismissal records created"),
		metric.WithUnit("{dismissal}"),
	)

	m.DismissalsAdvancedTotal, _ = meter.Int64Counter(
		"gatepass.dismissals.advanced.total",
		metric.WithDescription("Total number of dismissal lifecycle advances"),
		metric.WithUnit("{dismissal}"),
	)

	m.DismissalsConfirmedTotal, _ = meter.Int64Counter(
		"gatepass.dismissals.confirmed.total",
		metric.WithDescription("Total number of guardian confirmations"),
		metric.WithUnit("{dismissal}"),
	)

	m.DismissalsCancelledTotal, _ = meter.Int64Counter(
		"gatepass.dismissals.cancelled.total",
		metric.WithDescription("Total number of cancelled dismissals"),
		metric.WithUnit("{dismissal}"),
	)

	m.LimitVetoesTotal, _ = meter.Int64Counter(
		"gatepass.limits.vetoes.total",
		metric.WithDescription("Total number of creations vetoed by plan limits"),
		metric.WithUnit("{veto}"),
	)

	return m
}
