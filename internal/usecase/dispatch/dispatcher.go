// Package dispatch turns control intents into device commands, either
// synchronously or through a bounded worker pool.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/domain/intent"
	"github.com/kailas-cloud/voxhome/internal/metrics"
)

// Dispatcher resolves a room to devices and sends them the command.
type Dispatcher struct {
	devices   DeviceFinder
	commander Commander
	pool      *Pool
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher. Submit needs StartPool first.
func NewDispatcher(devices DeviceFinder, commander Commander, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{devices: devices, commander: commander, logger: logger}
}

// StartPool starts the worker pool behind Submit. The caller owns Close.
func (d *Dispatcher) StartPool(cfg PoolConfig) *Pool {
	d.pool = NewPool(cfg, func(ctx context.Context, job Job) {
		d.Resolve(ctx, job.Room, job.TurnOn)
	}, d.logger)
	return d.pool
}

// Targets returns the enabled devices for room; "all" in any case selects every enabled device.
func (d *Dispatcher) Targets(ctx context.Context, room string) ([]device.Device, error) {
	if intent.IsAll(room) {
		list, err := d.devices.FindAll(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("list enabled devices: %w", err)
		}
		return list, nil
	}
	list, err := d.devices.FindByRoom(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("list devices in %q: %w", room, err)
	}
	return list, nil
}

// Resolve sends the command to every target device and returns how many succeeded.
func (d *Dispatcher) Resolve(ctx context.Context, room string, turnOn bool) int {
	targets, err := d.Targets(ctx, room)
	if err != nil {
		d.logger.Warn("Device lookup failed", zap.String("room", room), zap.Error(err))
		return 0
	}
	if len(targets) == 0 {
		d.logger.Info("No devices for room", zap.String("room", room))
		return 0
	}
	ok := d.Deliver(ctx, targets, turnOn)
	d.logger.Info("Device dispatch finished",
		zap.String("room", room),
		zap.String("action", device.Action(turnOn)),
		zap.Int("succeeded", ok),
		zap.Int("targets", len(targets)),
	)
	return ok
}

// Deliver sends the command to each device in order. A failure affects only that device.
func (d *Dispatcher) Deliver(ctx context.Context, targets []device.Device, turnOn bool) int {
	ok := 0
	for _, t := range targets {
		if err := d.commander.Send(ctx, t, turnOn); err != nil {
			continue
		}
		ok++
	}
	return ok
}

// Submit queues a dispatch without waiting. It returns false when the job
// was dropped because the queue is full or the pool is closed.
func (d *Dispatcher) Submit(room string, turnOn bool) bool {
	if d.pool == nil {
		d.logger.Error("Dispatch pool not started, dropping job", zap.String("room", room))
		metrics.DispatchJobsTotal.WithLabelValues("dropped").Inc()
		return false
	}
	return d.pool.Submit(Job{Room: room, TurnOn: turnOn})
}
