// Package coordinator keeps the latest reading of the tank up to date, it
// polls the portal on a schedule and on demand.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"myfuelportal-backend/internal/components/assert"
	"myfuelportal-backend/internal/components/chrono"
	"myfuelportal-backend/internal/components/telemetry"
	"myfuelportal-backend/internal/notify"
	"myfuelportal-backend/internal/scrapers/fuelportal"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_coordinator_refresh   = "coordinator.refresh"
	report_coordinator_scheduled = "coordinator.scheduled"
	report_coordinator_history   = "coordinator.history"
	report_coordinator_notify    = "coordinator.notify"
)

const DefaultSchedule = "@every 1h"

// Source is where readings come from, *fuelportal.Fetcher implements it.
type Source interface {
	FetchReading(ctx context.Context) (fuelportal.Reading, error)
}

// Recorder keeps past readings, history.Store implements it.
type Recorder interface {
	Push(ctx context.Context, reading fuelportal.Reading) error
}

type Status int

const (
	StatusUnknown Status = iota
	StatusOK
	// StatusUpdateFailed means the last refresh failed, the last good reading is kept.
	StatusUpdateFailed
	// StatusNeedsReconfiguration means the portal rejected the credentials,
	// scheduled refreshes stop until a manual refresh succeeds.
	StatusNeedsReconfiguration
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUpdateFailed:
		return "update failed"
	case StatusNeedsReconfiguration:
		return "needs reconfiguration"
	default:
		return "unknown"
	}
}

type Snapshot struct {
	// Reading is the last good reading, nil if there never was one.
	Reading *fuelportal.Reading
	// UpdatedAt is when Reading was taken.
	UpdatedAt time.Time
	Status    Status
	LastError error
}

type Options struct {
	// Schedule is a cron spec, DefaultSchedule when empty.
	Schedule string
	// LowLevel is the fill percentage under which a notification is sent, 0 disables it.
	LowLevel int
	// History and Notifier are optional.
	History  Recorder
	Notifier notify.Notifier
	Time     chrono.TimeAPI
}

type Coordinator struct {
	source Source
	opts   Options
	tel    telemetry.API
	// ctx is the context scheduled refreshes run in, set by Start.
	ctx context.Context

	// serializes refreshes
	refreshMutex sync.Mutex

	mutex    sync.RWMutex
	snapshot Snapshot
	low      bool
}

func New(source Source, opts Options, tel telemetry.API) (*Coordinator, error) {
	assert.NotNil(source, "source")
	assert.NotNil(tel, "tel")

	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if opts.Time == nil {
		opts.Time = chrono.StandardTime{}
	}

	c := &Coordinator{
		source: source,
		opts:   opts,
		tel:    telemetry.NewScopedAPI("fuelportal", tel),
	}
	err := c.registerMetrics()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Coordinator) registerMetrics() error {
	meter := otel.Meter("coordinator")

	_, err := meter.Int64ObservableGauge(
		"fuelportal.tank.level",
		metric.WithDescription("Fill level of the tank."),
		metric.WithUnit("%"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			snapshot := c.Snapshot()
			if snapshot.Reading != nil && snapshot.Reading.Level != nil {
				o.Observe(int64(*snapshot.Reading.Level))
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}

	_, err = meter.Int64ObservableGauge(
		"fuelportal.tank.fuel_remaining",
		metric.WithDescription("Fuel left in the tank."),
		metric.WithUnit("gal"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			snapshot := c.Snapshot()
			if snapshot.Reading != nil && snapshot.Reading.Tank.FuelRemaining != nil {
				o.Observe(int64(*snapshot.Reading.Tank.FuelRemaining))
			}
			return nil
		}),
	)
	return err
}

// Start schedules refreshes, it does not refresh immediately. Scheduled
// refreshes run in ctx and stop once it is done.
func (c *Coordinator) Start(ctx context.Context, cron chrono.CronAPI) error {
	assert.NotNil(cron, "cron")
	c.ctx = ctx
	err := cron.Cron(c.opts.Schedule, c.scheduled)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", c.opts.Schedule, err)
	}
	return nil
}

func (c *Coordinator) scheduled() {
	if c.ctx.Err() != nil {
		return
	}
	if c.Snapshot().Status == StatusNeedsReconfiguration {
		c.tel.ReportDebug(report_coordinator_scheduled, "skipped, credentials need to be reconfigured")
		return
	}
	_, _ = c.Refresh(c.ctx)
}

// Seed sets the reading shown before the first refresh (ex. the newest
// reading in history), it does nothing once a reading exists.
func (c *Coordinator) Seed(reading fuelportal.Reading) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.snapshot.Reading != nil {
		return
	}
	c.snapshot.Reading = &reading
	c.snapshot.UpdatedAt = reading.Time
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.snapshot
}

// Refresh fetches a reading now, it always runs regardless of the status.
func (c *Coordinator) Refresh(ctx context.Context) (Snapshot, error) {
	c.refreshMutex.Lock()
	defer c.refreshMutex.Unlock()

	reading, err := c.source.FetchReading(ctx)
	if err != nil {
		return c.failed(ctx, err), err
	}

	c.mutex.Lock()
	c.snapshot = Snapshot{
		Reading:   &reading,
		UpdatedAt: reading.Time,
		Status:    StatusOK,
	}
	snapshot := c.snapshot
	c.mutex.Unlock()

	if c.opts.History != nil {
		err := c.opts.History.Push(ctx, reading)
		if err != nil {
			c.tel.ReportBroken(report_coordinator_history, err)
		}
	}
	c.checkLevel(ctx, reading)

	return snapshot, nil
}

func (c *Coordinator) failed(ctx context.Context, err error) Snapshot {
	status := StatusUpdateFailed
	if errors.Is(err, fuelportal.ErrAuthentication) {
		status = StatusNeedsReconfiguration
	}
	c.tel.ReportWarning(report_coordinator_refresh, status.String(), err)

	c.mutex.Lock()
	previous := c.snapshot.Status
	c.snapshot.Status = status
	c.snapshot.LastError = err
	snapshot := c.snapshot
	c.mutex.Unlock()

	if status == StatusNeedsReconfiguration && previous != StatusNeedsReconfiguration {
		c.notify(ctx, notify.Message{
			Subject: "My Fuel Portal: credentials need attention",
			Body: fmt.Sprintf(
				"The portal did not accept the configured credentials, tank readings are paused until they are fixed.\n\n%v",
				err,
			),
		})
	}
	return snapshot
}

func (c *Coordinator) checkLevel(ctx context.Context, reading fuelportal.Reading) {
	if c.opts.LowLevel <= 0 || reading.Level == nil {
		return
	}
	level := *reading.Level
	low := level < c.opts.LowLevel

	c.mutex.Lock()
	wasLow := c.low
	c.low = low
	c.mutex.Unlock()

	if !low || wasLow {
		return
	}

	body := fmt.Sprintf("The tank is at %d%%, below the threshold of %d%%.", level, c.opts.LowLevel)
	if reading.Tank.FuelRemaining != nil {
		body += fmt.Sprintf("\nFuel remaining: %d gal.", *reading.Tank.FuelRemaining)
	}
	if reading.Tank.NextDelivery != nil {
		body += fmt.Sprintf("\nEstimated next delivery: %s", reading.Tank.NextDelivery.Format())
	}
	c.notify(ctx, notify.Message{
		Subject: fmt.Sprintf("My Fuel Portal: tank at %d%%", level),
		Body:    body,
	})
}

func (c *Coordinator) notify(ctx context.Context, msg notify.Message) {
	if c.opts.Notifier == nil {
		return
	}
	err := c.opts.Notifier.Notify(ctx, msg)
	if err != nil {
		c.tel.ReportWarning(report_coordinator_notify, err)
	}
}
