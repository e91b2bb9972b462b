package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain/audit"
	"github.com/kailas-cloud/voxhome/internal/domain/batch"
	domdev "github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
	deviceuc "github.com/kailas-cloud/voxhome/internal/usecase/device"
	healthuc "github.com/kailas-cloud/voxhome/internal/usecase/health"
	"github.com/kailas-cloud/voxhome/internal/usecase/knowledge"
	"github.com/kailas-cloud/voxhome/internal/usecase/pipeline"
)

// --- Mocks ---

type mockVoice struct {
	processFn    func(ctx context.Context, wav []byte) pipeline.Result
	synthesizeFn func(ctx context.Context, text string) (string, error)
	askFn        func(ctx context.Context, q string) (pipeline.TextResult, error)
	askAudioFn   func(ctx context.Context, wav []byte) (pipeline.TextResult, error)
	gotWAV       []byte
}

func (m *mockVoice) Process(ctx context.Context, wav []byte) pipeline.Result {
	m.gotWAV = wav
	return m.processFn(ctx, wav)
}

func (m *mockVoice) Synthesize(ctx context.Context, text string) (string, error) {
	return m.synthesizeFn(ctx, text)
}

func (m *mockVoice) Ask(ctx context.Context, q string) (pipeline.TextResult, error) {
	return m.askFn(ctx, q)
}

func (m *mockVoice) AskAudio(ctx context.Context, wav []byte) (pipeline.TextResult, error) {
	m.gotWAV = wav
	return m.askAudioFn(ctx, wav)
}

type mockKnowledge struct {
	addFn      func(ctx context.Context, text string, md map[string]string) (string, error)
	addBatchFn func(ctx context.Context, items []knowledge.Input) []batch.Result
	removeErr  error
	removedID  string
	bySourceN  int
	gotSource  string
	searchFn   func(ctx context.Context, q string, topK int) ([]vector.SearchResult, error)
	gotTopK    int
	stats      knowledge.Stats
	clearErr   error
	syncN      int
	syncErr    error
}

func (m *mockKnowledge) Add(ctx context.Context, text string, md map[string]string) (string, error) {
	return m.addFn(ctx, text, md)
}

func (m *mockKnowledge) AddBatch(ctx context.Context, items []knowledge.Input) []batch.Result {
	return m.addBatchFn(ctx, items)
}

func (m *mockKnowledge) Remove(_ context.Context, id string) error {
	m.removedID = id
	return m.removeErr
}

func (m *mockKnowledge) RemoveBySource(_ context.Context, source string) (int, error) {
	m.gotSource = source
	return m.bySourceN, nil
}

func (m *mockKnowledge) Search(ctx context.Context, q string, topK int) ([]vector.SearchResult, error) {
	m.gotTopK = topK
	return m.searchFn(ctx, q, topK)
}

func (m *mockKnowledge) Stats() knowledge.Stats { return m.stats }

func (m *mockKnowledge) Clear(context.Context) error { return m.clearErr }

func (m *mockKnowledge) SyncFromDevices(context.Context) (int, error) { return m.syncN, m.syncErr }

type mockDevices struct {
	list       []domdev.Device
	gotRoom    string
	gotEnabled bool
	getFn      func(ctx context.Context, id int64) (domdev.Device, error)
	createFn   func(ctx context.Context, d domdev.Device) (domdev.Device, error)
	updateFn   func(ctx context.Context, id int64, d domdev.Device) (domdev.Device, error)
	deleteErr  error
	controlFn  func(ctx context.Context, req deviceuc.ControlRequest) (int, error)
}

func (m *mockDevices) List(_ context.Context, room string, enabledOnly bool) ([]domdev.Device, error) {
	m.gotRoom, m.gotEnabled = room, enabledOnly
	return m.list, nil
}

func (m *mockDevices) Get(ctx context.Context, id int64) (domdev.Device, error) {
	return m.getFn(ctx, id)
}

func (m *mockDevices) Create(ctx context.Context, d domdev.Device) (domdev.Device, error) {
	return m.createFn(ctx, d)
}

func (m *mockDevices) Update(ctx context.Context, id int64, d domdev.Device) (domdev.Device, error) {
	return m.updateFn(ctx, id, d)
}

func (m *mockDevices) Delete(context.Context, int64) error { return m.deleteErr }

func (m *mockDevices) Control(ctx context.Context, req deviceuc.ControlRequest) (int, error) {
	return m.controlFn(ctx, req)
}

type mockChats struct {
	page    audit.Page
	gotPage int
	gotSize int
}

func (m *mockChats) History(_ context.Context, page, size int) (audit.Page, error) {
	m.gotPage, m.gotSize = page, size
	return m.page, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Fixture ---

type fixture struct {
	voice     *mockVoice
	knowledge *mockKnowledge
	devices   *mockDevices
	chats     *mockChats
	health    *mockHealth
	handler   http.Handler
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		voice:     &mockVoice{},
		knowledge: &mockKnowledge{},
		devices:   &mockDevices{},
		chats:     &mockChats{},
		health:    &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
	srv := NewServer(f.voice, f.knowledge, f.devices, f.chats, f.health, opts, zap.NewNop())
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}
