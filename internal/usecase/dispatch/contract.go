package dispatch

import (
	"context"

	"github.com/kailas-cloud/voxhome/internal/domain/device"
)

// DeviceFinder reads the device directory.
type DeviceFinder interface {
	FindAll(ctx context.Context, enabledOnly bool) ([]device.Device, error)
	FindByRoom(ctx context.Context, room string) ([]device.Device, error)
}

// Commander delivers one command to one device.
type Commander interface {
	Send(ctx context.Context, d device.Device, turnOn bool) error
}
