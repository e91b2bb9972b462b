package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/voxhome/internal/db"
	"github.com/kailas-cloud/voxhome/internal/domain"
	domdev "github.com/kailas-cloud/voxhome/internal/domain/device"
)

// store is the consumer interface for devices (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Incr(ctx context.Context, key string) (int64, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key, member string) error
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Repo implements usecase/device.Repository and the dispatcher's device directory.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates a device repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix, now: time.Now}
}

// Create assigns an id and stores d. The deviceId must be unique.
func (r *Repo) Create(ctx context.Context, d domdev.Device) (domdev.Device, error) {
	if _, err := r.lookupDeviceID(ctx, d.DeviceID); err == nil {
		return domdev.Device{}, domain.ErrDeviceExists
	} else if !errors.Is(err, domain.ErrDeviceNotFound) {
		return domdev.Device{}, err
	}

	id, err := r.store.Incr(ctx, r.seqKey())
	if err != nil {
		return domdev.Device{}, fmt.Errorf("allocate device id: %w", err)
	}

	now := r.now()
	d.ID = id
	d.CreatedAt = now
	d.UpdatedAt = now
	if err := r.write(ctx, d); err != nil {
		return domdev.Device{}, err
	}
	if err := r.store.ZAdd(ctx, r.indexKey(), float64(id), idString(id)); err != nil {
		return domdev.Device{}, fmt.Errorf("index device %d: %w", id, err)
	}
	return d, nil
}

// Update replaces the stored device with the same ID, keeping CreatedAt.
func (r *Repo) Update(ctx context.Context, d domdev.Device) (domdev.Device, error) {
	existing, err := r.FindByID(ctx, d.ID)
	if err != nil {
		return domdev.Device{}, err
	}
	if existing.DeviceID != d.DeviceID {
		if other, err := r.lookupDeviceID(ctx, d.DeviceID); err == nil && other != d.ID {
			return domdev.Device{}, domain.ErrDeviceExists
		}
		if err := r.store.Del(ctx, r.deviceIDKey(existing.DeviceID)); err != nil {
			return domdev.Device{}, fmt.Errorf("release deviceId %s: %w", existing.DeviceID, err)
		}
	}

	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = r.now()
	if err := r.write(ctx, d); err != nil {
		return domdev.Device{}, err
	}
	return d, nil
}

// Delete removes a device.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.Del(ctx, r.key(id), r.deviceIDKey(existing.DeviceID)); err != nil {
		return fmt.Errorf("del device %d: %w", id, err)
	}
	if err := r.store.ZRem(ctx, r.indexKey(), idString(id)); err != nil {
		return fmt.Errorf("unindex device %d: %w", id, err)
	}
	return nil
}

// FindByID returns one device.
func (r *Repo) FindByID(ctx context.Context, id int64) (domdev.Device, error) {
	m, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdev.Device{}, domain.ErrDeviceNotFound
		}
		return domdev.Device{}, fmt.Errorf("hgetall device %d: %w", id, err)
	}
	return parseHashFields(id, m), nil
}

// FindByDeviceID returns the device registered under deviceID.
func (r *Repo) FindByDeviceID(ctx context.Context, deviceID string) (domdev.Device, error) {
	id, err := r.lookupDeviceID(ctx, deviceID)
	if err != nil {
		return domdev.Device{}, err
	}
	return r.FindByID(ctx, id)
}

// FindAll lists devices in id order, optionally only the enabled ones.
func (r *Repo) FindAll(ctx context.Context, enabledOnly bool) ([]domdev.Device, error) {
	members, err := r.store.ZRange(ctx, r.indexKey(), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list device ids: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		keys = append(keys, r.key(id))
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}

	out := make([]domdev.Device, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		d := parseHashFields(ids[i], row)
		if enabledOnly && !d.Enabled {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// FindByRoom lists enabled devices whose room matches exactly.
func (r *Repo) FindByRoom(ctx context.Context, room string) ([]domdev.Device, error) {
	all, err := r.FindAll(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []domdev.Device
	for _, d := range all {
		if d.Room == room {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *Repo) write(ctx context.Context, d domdev.Device) error {
	if err := r.store.HSet(ctx, r.key(d.ID), buildHashFields(d)); err != nil {
		return fmt.Errorf("hset device %d: %w", d.ID, err)
	}
	if err := r.store.Set(ctx, r.deviceIDKey(d.DeviceID), []byte(idString(d.ID))); err != nil {
		return fmt.Errorf("map deviceId %s: %w", d.DeviceID, err)
	}
	return nil
}

func (r *Repo) lookupDeviceID(ctx context.Context, deviceID string) (int64, error) {
	raw, err := r.store.Get(ctx, r.deviceIDKey(deviceID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, domain.ErrDeviceNotFound
		}
		return 0, fmt.Errorf("get deviceId %s: %w", deviceID, err)
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse device id %q: %w", raw, err)
	}
	return id, nil
}

func (r *Repo) key(id int64) string { return r.prefix + "device:" + idString(id) }
func (r *Repo) deviceIDKey(did string) string { return r.prefix + "device_id:" + did }
func (r *Repo) indexKey() string { return r.prefix + "devices" }
func (r *Repo) seqKey() string { return r.prefix + "seq:device" }
func idString(id int64) string { return strconv.FormatInt(id, 10) }
