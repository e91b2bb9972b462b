package chi

import (
	"net/http"
	"strconv"
	"strings"

	gochi "github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/voxhome/internal/usecase/knowledge"
)

const (
	msgCleared = "向量库已清空"
	msgSynced  = "已从设备表同步到知识库"
)

// AddDocument handles POST /api/vector/documents.
func (s *Server) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "text is required")
		return
	}

	id, err := s.knowledge.Add(r.Context(), req.Text, req.Metadata)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addDocumentResponse{ID: id, Text: req.Text})
}

// AddDocuments handles POST /api/vector/documents/batch.
// The body carries either plain texts or documents with metadata.
func (s *Server) AddDocuments(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	items := make([]knowledge.Input, 0, len(req.Texts)+len(req.Documents))
	for _, t := range req.Texts {
		items = append(items, knowledge.Input{Text: t})
	}
	for _, d := range req.Documents {
		items = append(items, knowledge.Input{Text: d.Text, Metadata: d.Metadata})
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "texts or documents are required")
		return
	}

	writeJSON(w, http.StatusOK, toBatchResponse(s.knowledge.AddBatch(r.Context(), items)))
}

// DeleteDocument handles DELETE /api/vector/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.knowledge.Remove(r.Context(), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDocumentsBySource handles DELETE /api/vector/documents?source=.
func (s *Server) DeleteDocumentsBySource(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "source is required")
		return
	}

	n, err := s.knowledge.RemoveBySource(r.Context(), source)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removedResponse{Removed: n})
}

// SearchGet handles GET /api/vector/search?query=&topK=.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topK := 0
	if raw := q.Get("topK"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "topK must be an integer")
			return
		}
		topK = n
	}
	s.search(w, r, q.Get("query"), topK)
}

// SearchPost handles POST /api/vector/search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	s.search(w, r, req.Query, req.TopK)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query string, topK int) {
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}

	results, err := s.knowledge.Search(r.Context(), query, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(query, results))
}

// Stats handles GET /api/vector/stats.
func (s *Server) Stats(w http.ResponseWriter, _ *http.Request) {
	st := s.knowledge.Stats()
	writeJSON(w, http.StatusOK, statsResponse{Size: st.Size, StoreType: st.StoreType})
}

// Clear handles POST /api/vector/clear.
func (s *Server) Clear(w http.ResponseWriter, r *http.Request) {
	if err := s.knowledge.Clear(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgCleared})
}

// SyncFromDevices handles POST /api/vector/sync-from-devices.
func (s *Server) SyncFromDevices(w http.ResponseWriter, r *http.Request) {
	n, err := s.knowledge.SyncFromDevices(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Message: msgSynced, DocumentsAdded: n})
}
