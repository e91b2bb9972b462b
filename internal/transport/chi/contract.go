package chi

import (
	"context"

	"github.com/kailas-cloud/voxhome/internal/domain/audit"
	"github.com/kailas-cloud/voxhome/internal/domain/batch"
	domdev "github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
	deviceuc "github.com/kailas-cloud/voxhome/internal/usecase/device"
	healthuc "github.com/kailas-cloud/voxhome/internal/usecase/health"
	"github.com/kailas-cloud/voxhome/internal/usecase/knowledge"
	"github.com/kailas-cloud/voxhome/internal/usecase/pipeline"
)

// VoicePipeline runs the voice and text flows.
type VoicePipeline interface {
	Process(ctx context.Context, wav []byte) pipeline.Result
	Synthesize(ctx context.Context, text string) (string, error)
	Ask(ctx context.Context, question string) (pipeline.TextResult, error)
	AskAudio(ctx context.Context, wav []byte) (pipeline.TextResult, error)
}

// Knowledge manages knowledge-base documents.
type Knowledge interface {
	Add(ctx context.Context, text string, metadata map[string]string) (string, error)
	AddBatch(ctx context.Context, items []knowledge.Input) []batch.Result
	Remove(ctx context.Context, id string) error
	RemoveBySource(ctx context.Context, source string) (int, error)
	Search(ctx context.Context, query string, topK int) ([]vector.SearchResult, error)
	Stats() knowledge.Stats
	Clear(ctx context.Context) error
	SyncFromDevices(ctx context.Context) (int, error)
}

// Devices manages the device directory.
type Devices interface {
	List(ctx context.Context, room string, enabledOnly bool) ([]domdev.Device, error)
	Get(ctx context.Context, id int64) (domdev.Device, error)
	Create(ctx context.Context, d domdev.Device) (domdev.Device, error)
	Update(ctx context.Context, id int64, d domdev.Device) (domdev.Device, error)
	Delete(ctx context.Context, id int64) error
	Control(ctx context.Context, req deviceuc.ControlRequest) (int, error)
}

// ChatHistory pages answered questions.
type ChatHistory interface {
	History(ctx context.Context, page, size int) (audit.Page, error)
}

// HealthChecker aggregates dependency checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
