package chi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/kailas-cloud/voxhome/internal/domain/audit"
)

func TestChatHistory(t *testing.T) {
	f := newFixture(t, Options{})
	f.chats.page = audit.Page{
		Items: []audit.Record{{
			ID: 1, Question: "开灯", Answer: "好的", Mode: audit.ModeVoiceLocal,
			AnswerSource: audit.SourceLLM, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}},
		Page:  1,
		Size:  1,
		Total: 3,
	}

	rr := f.do(http.MethodGet, "/api/chat/history?page=1&size=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.chats.gotPage != 1 || f.chats.gotSize != 1 {
		t.Errorf("page=%d size=%d", f.chats.gotPage, f.chats.gotSize)
	}

	var resp chatPageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || resp.TotalPages != 3 || len(resp.Items) != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Items[0].Mode != "voice-local" || resp.Items[0].AnswerSource != audit.SourceLLM {
		t.Errorf("item = %+v", resp.Items[0])
	}
}

func TestChatHistory_Defaults(t *testing.T) {
	f := newFixture(t, Options{})

	if rr := f.do(http.MethodGet, "/api/chat/history", ""); rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.chats.gotPage != 0 || f.chats.gotSize != 0 {
		t.Errorf("page=%d size=%d, want zero values for the service to clamp", f.chats.gotPage, f.chats.gotSize)
	}

	if rr := f.do(http.MethodGet, "/api/chat/history?page=x", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad page: status = %d", rr.Code)
	}
}
