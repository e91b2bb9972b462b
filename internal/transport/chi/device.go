package chi

import (
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"

	deviceuc "github.com/kailas-cloud/voxhome/internal/usecase/device"
)

// ListDevices handles GET /api/device?room=&enabled=.
func (s *Server) ListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	enabledOnly := false
	if raw := q.Get("enabled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "enabled must be a boolean")
			return
		}
		enabledOnly = v
	}

	list, err := s.devices.List(r.Context(), q.Get("room"), enabledOnly)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeviceList(list))
}

// GetDevice handles GET /api/device/{id}.
func (s *Server) GetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	d, err := s.devices.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeviceResponse(d))
}

// CreateDevice handles POST /api/device.
func (s *Server) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	saved, err := s.devices.Create(r.Context(), req.toDomain())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeviceResponse(saved))
}

// UpdateDevice handles PUT /api/device/{id}.
func (s *Server) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	var req deviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	saved, err := s.devices.Update(r.Context(), id, req.toDomain())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeviceResponse(saved))
}

// DeleteDevice handles DELETE /api/device/{id}.
func (s *Server) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	if err := s.devices.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ControlDevices handles POST /api/device/control.
func (s *Server) ControlDevices(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	n, err := s.devices.Control(r.Context(), deviceuc.ControlRequest{
		Room:     req.Room,
		DeviceID: req.DeviceID,
		Action:   req.Action,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, controlResponse{Success: n > 0, Count: n})
}

func deviceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(gochi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
