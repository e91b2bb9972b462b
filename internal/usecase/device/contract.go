package device

import (
	"context"

	domdev "github.com/kailas-cloud/voxhome/internal/domain/device"
)

// Repository defines the storage contract for devices.
type Repository interface {
	Create(ctx context.Context, d domdev.Device) (domdev.Device, error)
	Update(ctx context.Context, d domdev.Device) (domdev.Device, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (domdev.Device, error)
	FindByDeviceID(ctx context.Context, deviceID string) (domdev.Device, error)
	FindAll(ctx context.Context, enabledOnly bool) ([]domdev.Device, error)
	FindByRoom(ctx context.Context, room string) ([]domdev.Device, error)
}

// Dispatcher delivers commands synchronously.
type Dispatcher interface {
	Resolve(ctx context.Context, room string, turnOn bool) int
	Deliver(ctx context.Context, targets []domdev.Device, turnOn bool) int
}

// Syncer refreshes the device documents of the knowledge base.
type Syncer interface {
	SyncFromDevices(ctx context.Context) (int, error)
}
