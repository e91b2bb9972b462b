// Package device manages the device directory and manual control.
package device

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	domdev "github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/domain/intent"
)

// ControlRequest targets either one device or a room; an empty room means all.
type ControlRequest struct {
	Room     string
	DeviceID string
	Action   string
}

// Service handles device CRUD. Every change re-syncs the knowledge base.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	syncer     Syncer
	logger     *zap.Logger
}

// New creates a device service.
func New(repo Repository, dispatcher Dispatcher, syncer Syncer, logger *zap.Logger) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, syncer: syncer, logger: logger}
}

// List returns enabled devices of room, or all devices when room is empty.
func (s *Service) List(ctx context.Context, room string, enabledOnly bool) ([]domdev.Device, error) {
	var (
		list []domdev.Device
		err  error
	)
	if room = strings.TrimSpace(room); room != "" {
		list, err = s.repo.FindByRoom(ctx, room)
	} else {
		list, err = s.repo.FindAll(ctx, enabledOnly)
	}
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return list, nil
}

// Get returns one device.
func (s *Service) Get(ctx context.Context, id int64) (domdev.Device, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domdev.Device{}, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

// Create validates and stores a new device.
func (s *Service) Create(ctx context.Context, d domdev.Device) (domdev.Device, error) {
	if err := normalize(&d); err != nil {
		return domdev.Device{}, err
	}
	saved, err := s.repo.Create(ctx, d)
	if err != nil {
		return domdev.Device{}, fmt.Errorf("create device: %w", err)
	}
	s.sync(ctx, "create")
	return saved, nil
}

// Update replaces device id.
func (s *Service) Update(ctx context.Context, id int64, d domdev.Device) (domdev.Device, error) {
	if err := normalize(&d); err != nil {
		return domdev.Device{}, err
	}
	d.ID = id
	saved, err := s.repo.Update(ctx, d)
	if err != nil {
		return domdev.Device{}, fmt.Errorf("update device: %w", err)
	}
	s.sync(ctx, "update")
	return saved, nil
}

// Delete removes device id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	s.sync(ctx, "delete")
	return nil
}

// Control sends the command synchronously and returns how many devices accepted it.
func (s *Service) Control(ctx context.Context, req ControlRequest) (int, error) {
	turnOn, err := domdev.ParseAction(req.Action)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	if id := strings.TrimSpace(req.DeviceID); id != "" {
		d, err := s.repo.FindByDeviceID(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("find device %s: %w", id, err)
		}
		return s.dispatcher.Deliver(ctx, []domdev.Device{d}, turnOn), nil
	}

	room := strings.TrimSpace(req.Room)
	if room == "" {
		room = intent.RoomAll
	}
	return s.dispatcher.Resolve(ctx, room, turnOn), nil
}

// sync is best-effort; the device change has already been stored.
func (s *Service) sync(ctx context.Context, op string) {
	added, err := s.syncer.SyncFromDevices(ctx)
	if err != nil {
		s.logger.Warn("Knowledge base sync failed", zap.String("op", op), zap.Error(err))
		return
	}
	s.logger.Info("Knowledge base synced", zap.String("op", op), zap.Int("documents", added))
}

func normalize(d *domdev.Device) error {
	d.DeviceID = strings.TrimSpace(d.DeviceID)
	d.Room = strings.TrimSpace(d.Room)
	m, err := domdev.ParseMethod(string(d.Method))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	d.Method = m
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}
