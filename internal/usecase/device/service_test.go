package device

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	domdev "github.com/kailas-cloud/voxhome/internal/domain/device"
)

// --- Mocks ---

type mockRepo struct {
	createFn       func(d domdev.Device) (domdev.Device, error)
	updateFn       func(d domdev.Device) (domdev.Device, error)
	deleteErr      error
	findByIDFn     func(id int64) (domdev.Device, error)
	byDeviceID     map[string]domdev.Device
	all            []domdev.Device
	byRoom         []domdev.Device
	gotEnabledOnly bool
	gotRoom        string
}

func (m *mockRepo) Create(_ context.Context, d domdev.Device) (domdev.Device, error) {
	if m.createFn != nil {
		return m.createFn(d)
	}
	d.ID = 1
	return d, nil
}

func (m *mockRepo) Update(_ context.Context, d domdev.Device) (domdev.Device, error) {
	if m.updateFn != nil {
		return m.updateFn(d)
	}
	return d, nil
}

func (m *mockRepo) Delete(_ context.Context, _ int64) error { return m.deleteErr }

func (m *mockRepo) FindByID(_ context.Context, id int64) (domdev.Device, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(id)
	}
	return domdev.Device{}, domain.ErrDeviceNotFound
}

func (m *mockRepo) FindByDeviceID(_ context.Context, deviceID string) (domdev.Device, error) {
	d, ok := m.byDeviceID[deviceID]
	if !ok {
		return domdev.Device{}, domain.ErrDeviceNotFound
	}
	return d, nil
}

func (m *mockRepo) FindAll(_ context.Context, enabledOnly bool) ([]domdev.Device, error) {
	m.gotEnabledOnly = enabledOnly
	return m.all, nil
}

func (m *mockRepo) FindByRoom(_ context.Context, room string) ([]domdev.Device, error) {
	m.gotRoom = room
	return m.byRoom, nil
}

type mockDispatcher struct {
	resolvedRoom string
	resolvedOn   bool
	resolveCount int
	delivered    []domdev.Device
}

func (m *mockDispatcher) Resolve(_ context.Context, room string, turnOn bool) int {
	m.resolvedRoom = room
	m.resolvedOn = turnOn
	return m.resolveCount
}

func (m *mockDispatcher) Deliver(_ context.Context, targets []domdev.Device, _ bool) int {
	m.delivered = append(m.delivered, targets...)
	return len(targets)
}

type mockSyncer struct {
	calls int
	err   error
}

func (m *mockSyncer) SyncFromDevices(_ context.Context) (int, error) {
	m.calls++
	return 3, m.err
}

func validDevice() domdev.Device {
	return domdev.Device{DeviceID: " lamp-1 ", Room: "客厅", Method: "get", Endpoint: "http://lamp", Enabled: true}
}

// --- Tests ---

func TestCreate_NormalizesAndSyncs(t *testing.T) {
	repo := &mockRepo{}
	syncer := &mockSyncer{}
	svc := New(repo, &mockDispatcher{}, syncer, zap.NewNop())

	d, err := svc.Create(context.Background(), validDevice())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.DeviceID != "lamp-1" || d.Method != domdev.MethodGET {
		t.Errorf("device not normalized: %+v", d)
	}
	if syncer.calls != 1 {
		t.Errorf("sync calls = %d, want 1", syncer.calls)
	}
}

func TestCreate_SyncFailureIsNotFatal(t *testing.T) {
	svc := New(&mockRepo{}, &mockDispatcher{}, &mockSyncer{err: errors.New("embed down")}, zap.NewNop())
	if _, err := svc.Create(context.Background(), validDevice()); err != nil {
		t.Fatalf("sync failure must not fail create: %v", err)
	}
}

func TestCreate_Invalid(t *testing.T) {
	syncer := &mockSyncer{}
	svc := New(&mockRepo{}, &mockDispatcher{}, syncer, zap.NewNop())

	tests := []domdev.Device{
		{Room: "客厅"},
		{DeviceID: "x"},
		{DeviceID: "x", Room: "客厅", Method: "PATCH"},
	}
	for _, d := range tests {
		if _, err := svc.Create(context.Background(), d); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Create(%+v): expected ErrInvalidInput, got %v", d, err)
		}
	}
	if syncer.calls != 0 {
		t.Error("invalid input must not trigger a sync")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo := &mockRepo{createFn: func(domdev.Device) (domdev.Device, error) {
		return domdev.Device{}, domain.ErrDeviceExists
	}}
	svc := New(repo, &mockDispatcher{}, &mockSyncer{}, zap.NewNop())
	if _, err := svc.Create(context.Background(), validDevice()); !errors.Is(err, domain.ErrDeviceExists) {
		t.Errorf("expected ErrDeviceExists, got %v", err)
	}
}

func TestUpdate_SetsID(t *testing.T) {
	var got domdev.Device
	repo := &mockRepo{updateFn: func(d domdev.Device) (domdev.Device, error) {
		got = d
		return d, nil
	}}
	syncer := &mockSyncer{}
	svc := New(repo, &mockDispatcher{}, syncer, zap.NewNop())

	if _, err := svc.Update(context.Background(), 7, validDevice()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 7 {
		t.Errorf("ID = %d, want 7", got.ID)
	}
	if syncer.calls != 1 {
		t.Errorf("sync calls = %d", syncer.calls)
	}
}

func TestDelete_NotFound(t *testing.T) {
	syncer := &mockSyncer{}
	svc := New(&mockRepo{deleteErr: domain.ErrDeviceNotFound}, &mockDispatcher{}, syncer, zap.NewNop())

	if err := svc.Delete(context.Background(), 9); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
	if syncer.calls != 0 {
		t.Error("failed delete must not sync")
	}
}

func TestList(t *testing.T) {
	repo := &mockRepo{all: []domdev.Device{{DeviceID: "a"}}, byRoom: []domdev.Device{{DeviceID: "b"}}}
	svc := New(repo, &mockDispatcher{}, &mockSyncer{}, zap.NewNop())

	list, _ := svc.List(context.Background(), "", true)
	if len(list) != 1 || list[0].DeviceID != "a" || !repo.gotEnabledOnly {
		t.Errorf("List(all) = %v, enabledOnly=%v", list, repo.gotEnabledOnly)
	}
	list, _ = svc.List(context.Background(), " 卧室 ", false)
	if len(list) != 1 || list[0].DeviceID != "b" || repo.gotRoom != "卧室" {
		t.Errorf("List(room) = %v, room=%q", list, repo.gotRoom)
	}
}

func TestControl_ByDeviceID(t *testing.T) {
	repo := &mockRepo{byDeviceID: map[string]domdev.Device{"lamp-1": {DeviceID: "lamp-1"}}}
	disp := &mockDispatcher{}
	svc := New(repo, disp, &mockSyncer{}, zap.NewNop())

	n, err := svc.Control(context.Background(), ControlRequest{DeviceID: "lamp-1", Action: "OFF"})
	if err != nil || n != 1 {
		t.Fatalf("Control() = %d, %v", n, err)
	}
	if len(disp.delivered) != 1 || disp.delivered[0].DeviceID != "lamp-1" {
		t.Errorf("delivered = %v", disp.delivered)
	}
}

func TestControl_UnknownDevice(t *testing.T) {
	svc := New(&mockRepo{}, &mockDispatcher{}, &mockSyncer{}, zap.NewNop())
	_, err := svc.Control(context.Background(), ControlRequest{DeviceID: "ghost", Action: "on"})
	if !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestControl_RoomDefaultsToAll(t *testing.T) {
	disp := &mockDispatcher{resolveCount: 2}
	svc := New(&mockRepo{}, disp, &mockSyncer{}, zap.NewNop())

	n, err := svc.Control(context.Background(), ControlRequest{Action: "on"})
	if err != nil || n != 2 {
		t.Fatalf("Control() = %d, %v", n, err)
	}
	if disp.resolvedRoom != "all" || !disp.resolvedOn {
		t.Errorf("resolved room=%q on=%v", disp.resolvedRoom, disp.resolvedOn)
	}
}

func TestControl_BadAction(t *testing.T) {
	svc := New(&mockRepo{}, &mockDispatcher{}, &mockSyncer{}, zap.NewNop())
	_, err := svc.Control(context.Background(), ControlRequest{Room: "客厅", Action: "toggle"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
