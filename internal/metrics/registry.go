package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the detection pipeline metrics.
type Registry struct {
	meter metric.Meter

	// Training
	TrainingDuration metric.Float64Histogram
	TrainingCounter  metric.Int64Counter
	UsersScored      metric.Int64ObservableGauge
	AnomaliesFlagged metric.Int64ObservableGauge
	ModelAge         metric.Float64ObservableGauge

	// Refresh and persistence
	RefreshCounter  metric.Int64Counter
	SnapshotCounter metric.Int64Counter

	// State for observable metrics
	mu            sync.RWMutex
	lastUsers     int64
	lastAnomalies int64
	lastTrainedAt time.Time
	now           func() time.Time
}

// NewRegistry creates a registry on the global meter provider.
func NewRegistry(meterName string) (*Registry, error) {
	return NewRegistryWithMeter(otel.Meter(meterName))
}

func NewRegistryWithMeter(meter metric.Meter) (*Registry, error) {
	r := &Registry{meter: meter, now: time.Now}

	if err := r.initTrainingMetrics(); err != nil {
		return nil, err
	}
	if err := r.initOperationalMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initTrainingMetrics() error {
	var err error

	r.TrainingDuration, err = r.meter.Float64Histogram(
		"itd.model.training_duration",
		metric.WithDescription("Duration of isolation forest fitting and scoring in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000),
	)
	if err != nil {
		return err
	}

	r.TrainingCounter, err = r.meter.Int64Counter(
		"itd.model.training_total",
		metric.WithDescription("Total number of completed training runs"),
	)
	if err != nil {
		return err
	}

	r.UsersScored, err = r.meter.Int64ObservableGauge(
		"itd.model.users_scored",
		metric.WithDescription("Users in the most recently scored feature matrix"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.lastUsers)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.AnomaliesFlagged, err = r.meter.Int64ObservableGauge(
		"itd.model.anomalies",
		metric.WithDescription("Users above the contamination threshold in the latest run"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.lastAnomalies)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.ModelAge, err = r.meter.Float64ObservableGauge(
		"itd.model.age",
		metric.WithDescription("Seconds since the serving model was trained"),
		metric.WithUnit("s"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			if !r.lastTrainedAt.IsZero() {
				o.Observe(r.now().Sub(r.lastTrainedAt).Seconds())
			}
			return nil
		}),
	)
	return err
}

func (r *Registry) initOperationalMetrics() error {
	var err error

	r.RefreshCounter, err = r.meter.Int64Counter(
		"itd.model.refresh_total",
		metric.WithDescription("Total number of refresh attempts"),
	)
	if err != nil {
		return err
	}

	r.SnapshotCounter, err = r.meter.Int64Counter(
		"itd.snapshot.operations_total",
		metric.WithDescription("Total number of snapshot loads and saves"),
	)
	return err
}

// RecordTraining records one completed fit.
func (r *Registry) RecordTraining(ctx context.Context, duration time.Duration, users, anomalies int) {
	r.TrainingDuration.Record(ctx, float64(duration.Microseconds())/1000)
	r.TrainingCounter.Add(ctx, 1)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUsers = int64(users)
	r.lastAnomalies = int64(anomalies)
	r.lastTrainedAt = r.now()
}

func (r *Registry) RecordSnapshot(ctx context.Context, op string, err error) {
	r.SnapshotCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.Bool("success", err == nil),
	))
}

func (r *Registry) RecordRefresh(ctx context.Context, err error) {
	r.RefreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}
