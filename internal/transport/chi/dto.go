package chi

import (
	"time"

	"github.com/kailas-cloud/voxhome/internal/domain/audit"
	"github.com/kailas-cloud/voxhome/internal/domain/batch"
	domdev "github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
	healthuc "github.com/kailas-cloud/voxhome/internal/usecase/health"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks,omitempty"`
}

type voiceHealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Voice.

type voiceReplyResponse struct {
	Text     string `json:"text"`
	Reply    string `json:"reply"`
	AudioURL string `json:"audioUrl"`
	RAGUsed  bool   `json:"ragUsed"`
}

type voiceFailureResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

type ttsResponse struct {
	AudioURL string `json:"audioUrl"`
	Filename string `json:"filename"`
}

type askResponse struct {
	Question string `json:"question,omitempty"`
	Text     string `json:"text"`
	AudioURL string `json:"audioUrl,omitempty"`
}

// Vector.

type addDocumentRequest struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type addDocumentResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type batchRequest struct {
	Texts     []string             `json:"texts,omitempty"`
	Documents []addDocumentRequest `json:"documents,omitempty"`
}

type batchItemResponse struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type batchResponse struct {
	Items     []batchItemResponse `json:"items"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

type searchHit struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type searchResponse struct {
	Query   string      `json:"query"`
	Results []searchHit `json:"results"`
	Count   int         `json:"count"`
}

type statsResponse struct {
	Size      int    `json:"size"`
	StoreType string `json:"storeType"`
}

type removedResponse struct {
	Removed int `json:"removed"`
}

type syncResponse struct {
	Message        string `json:"message"`
	DocumentsAdded int    `json:"documentsAdded"`
}

// Device.

type deviceRequest struct {
	DeviceID   string `json:"deviceId"`
	Name       string `json:"name"`
	Room       string `json:"room"`
	RoomID     string `json:"roomId"`
	Type       string `json:"type"`
	Endpoint   string `json:"endpoint"`
	Method     string `json:"method"`
	OnCommand  string `json:"onCommand"`
	OffCommand string `json:"offCommand"`
	Status     string `json:"status"`
	Enabled    *bool  `json:"enabled"`
}

type deviceResponse struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"deviceId"`
	Name       string    `json:"name"`
	Room       string    `json:"room"`
	RoomID     string    `json:"roomId,omitempty"`
	Type       string    `json:"type"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	OnCommand  string    `json:"onCommand"`
	OffCommand string    `json:"offCommand"`
	Status     string    `json:"status,omitempty"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type controlRequest struct {
	Room     string `json:"room"`
	DeviceID string `json:"deviceId"`
	Action   string `json:"action"`
}

type controlResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// Chat.

type chatRecordResponse struct {
	ID           int64     `json:"id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	Mode         string    `json:"mode"`
	AnswerSource string    `json:"answerSource"`
	RAGUsed      bool      `json:"ragUsed"`
	RAGContext   string    `json:"ragContext,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type chatPageResponse struct {
	Items      []chatRecordResponse `json:"items"`
	Page       int                  `json:"page"`
	Size       int                  `json:"size"`
	Total      int64                `json:"total"`
	TotalPages int64                `json:"totalPages"`
}

// --- Converters ---

func toBatchResponse(results []batch.Result) batchResponse {
	items := make([]batchItemResponse, len(results))
	for i, r := range results {
		item := batchItemResponse{Index: r.Index(), ID: r.ID(), Status: string(r.Status())}
		if err := r.Err(); err != nil {
			item.Error = safeDomainMessage(err)
		}
		items[i] = item
	}
	ok, failed := batch.Count(results)
	return batchResponse{Items: items, Succeeded: ok, Failed: failed}
}

func toSearchResponse(query string, results []vector.SearchResult) searchResponse {
	hits := make([]searchHit, len(results))
	for i, r := range results {
		hits[i] = searchHit{
			ID:       r.Document.ID(),
			Text:     r.Document.Text(),
			Score:    r.Score,
			Metadata: r.Document.Metadata(),
		}
	}
	return searchResponse{Query: query, Results: hits, Count: len(hits)}
}

func (req deviceRequest) toDomain() domdev.Device {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return domdev.Device{
		DeviceID:   req.DeviceID,
		Name:       req.Name,
		Room:       req.Room,
		RoomID:     req.RoomID,
		Type:       req.Type,
		Endpoint:   req.Endpoint,
		Method:     domdev.Method(req.Method),
		OnCommand:  req.OnCommand,
		OffCommand: req.OffCommand,
		Status:     req.Status,
		Enabled:    enabled,
	}
}

func toDeviceResponse(d domdev.Device) deviceResponse {
	return deviceResponse{
		ID:         d.ID,
		DeviceID:   d.DeviceID,
		Name:       d.Name,
		Room:       d.Room,
		RoomID:     d.RoomID,
		Type:       d.Type,
		Endpoint:   d.Endpoint,
		Method:     string(d.Method),
		OnCommand:  d.OnCommand,
		OffCommand: d.OffCommand,
		Status:     d.Status,
		Enabled:    d.Enabled,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func toDeviceList(list []domdev.Device) []deviceResponse {
	out := make([]deviceResponse, len(list))
	for i, d := range list {
		out[i] = toDeviceResponse(d)
	}
	return out
}

func toChatPageResponse(p audit.Page) chatPageResponse {
	items := make([]chatRecordResponse, len(p.Items))
	for i, r := range p.Items {
		items[i] = chatRecordResponse{
			ID:           r.ID,
			Question:     r.Question,
			Answer:       r.Answer,
			Mode:         string(r.Mode),
			AnswerSource: r.AnswerSource,
			RAGUsed:      r.RAGUsed,
			RAGContext:   r.RAGContext,
			CreatedAt:    r.CreatedAt,
		}
	}
	return chatPageResponse{
		Items:      items,
		Page:       p.Page,
		Size:       p.Size,
		Total:      p.Total,
		TotalPages: p.TotalPages(),
	}
}
