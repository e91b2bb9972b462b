package chi

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain/audio"
	"github.com/kailas-cloud/voxhome/internal/logger"
)

const (
	uploadField       = "file"
	msgUploadRequired = "请上传音频文件"
	msgTextRequired   = "text 不能为空"
	voiceServiceName  = "voice-assistant-api"
	multipartOverhead = 1 << 20
)

// VoiceHealth handles GET /api/voice/health.
func (s *Server) VoiceHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, voiceHealthResponse{Status: "ok", Service: voiceServiceName})
}

// UploadVoice handles POST /api/voice/upload.
func (s *Server) UploadVoice(w http.ResponseWriter, r *http.Request) {
	wav, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	res := s.voice.Process(r.Context(), wav)
	if res.Failed() {
		writeJSON(w, http.StatusUnprocessableEntity, voiceFailureResponse{Error: res.Reason, Stage: res.Stage})
		return
	}

	writeJSON(w, http.StatusOK, voiceReplyResponse{
		Text:     res.Text,
		Reply:    res.Reply,
		AudioURL: s.audioURL(r, res.AudioFile),
		RAGUsed:  res.RAGUsed,
	})
}

// SynthesizePost handles POST /api/voice/tts with a JSON body.
func (s *Server) SynthesizePost(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	s.synthesize(w, r, req.Text)
}

// SynthesizeGet handles GET /api/voice/tts?text=.
func (s *Server) SynthesizeGet(w http.ResponseWriter, r *http.Request) {
	s.synthesize(w, r, r.URL.Query().Get("text"))
}

func (s *Server) synthesize(w http.ResponseWriter, r *http.Request, text string) {
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, msgTextRequired)
		return
	}

	file, err := s.voice.Synthesize(r.Context(), text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ttsResponse{AudioURL: s.audioURL(r, file), Filename: file})
}

// AskText handles GET /api/voice/qwen?text=.
func (s *Server) AskText(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, msgTextRequired)
		return
	}

	res, err := s.voice.Ask(r.Context(), text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Text: res.Text, AudioURL: s.audioURL(r, res.AudioFile)})
}

// AskUpload handles POST /api/voice/qwen-asr-upload.
func (s *Server) AskUpload(w http.ResponseWriter, r *http.Request) {
	wav, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	res, err := s.voice.AskAudio(r.Context(), wav)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{
		Question: res.Question,
		Text:     res.Text,
		AudioURL: s.audioURL(r, res.AudioFile),
	})
}

// ServeAudio handles GET /tts/{file}.
func (s *Server) ServeAudio(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "file")
	if !validFileName(name) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid file name")
		return
	}

	f, err := os.Open(filepath.Join(s.opts.TTSDir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, CodeNotFound, "audio not found")
			return
		}
		s.handleDomainError(w, err)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, CodeNotFound, "audio not found")
		return
	}

	w.Header().Set("Content-Type", audio.MIMEWAV)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// readUpload reads the multipart audio file. It writes the error response itself when ok is false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := s.opts.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, msgUploadRequired)
		return nil, false
	}
	defer func() { _ = file.Close() }()

	if header.Size == 0 || header.Size > limit {
		writeError(w, http.StatusBadRequest, CodeBadRequest, msgUploadRequired)
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil || len(data) == 0 || int64(len(data)) > limit {
		writeError(w, http.StatusBadRequest, CodeBadRequest, msgUploadRequired)
		return nil, false
	}

	info := audio.Inspect(data)
	logger.FromContext(r.Context()).Info("Audio uploaded",
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(data)),
		zap.String("mime", info.MIME),
		zap.Duration("duration", info.Duration),
	)
	return data, true
}

// audioURL builds the public URL of a generated file, or "" when there is none.
func (s *Server) audioURL(r *http.Request, file string) string {
	if file == "" {
		return ""
	}
	base := strings.TrimRight(s.opts.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
			scheme = p
		}
		base = scheme + "://" + r.Host
	}
	return base + "/tts/" + file
}

func validFileName(name string) bool {
	return name != "" && !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}
