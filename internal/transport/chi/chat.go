package chi

import (
	"net/http"
	"strconv"
)

// ChatHistory handles GET /api/chat/history?page=&size=.
func (s *Server) ChatHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, ok := intParam(w, q.Get("page"), "page")
	if !ok {
		return
	}
	size, ok := intParam(w, q.Get("size"), "size")
	if !ok {
		return
	}

	p, err := s.chats.History(r.Context(), page, size)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatPageResponse(p))
}

// intParam parses an optional integer query value; empty yields 0.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, name+" must be an integer")
		return 0, false
	}
	return n, true
}
