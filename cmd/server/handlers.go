//go:build !js && !wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/AudioLab/pkg/audiolab"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/waveform"
	"github.com/himanishpuri/AudioLab/pkg/logger"
	"github.com/himanishpuri/AudioLab/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service audiolab.Service
	config  *ServerConfig
	log     audiolab.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	AlignMethod    string
	WaveformWidth  int
	WaveformHeight int
	MaxUploadMB    int64
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service audiolab.Service, config *ServerConfig) *Server {
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = DefaultMaxUploadMB
	}
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "AudioLab API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":          "GET /health",
			"metrics":         "GET /api/health/metrics",
			"align":           "POST /api/align",
			"waveform":        "POST /api/waveform",
			"mix":             "POST /api/mix",
			"spectrogram":     "POST /api/spectrogram",
			"alignments":      "GET /api/alignments",
			"getAlignment":    "GET /api/alignments/{id}",
			"deleteAlignment": "DELETE /api/alignments/{id}",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to get stats: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:         "healthy",
		DatabasePath:   s.config.DBPath,
		TrackCount:     stats.Tracks,
		AlignmentCount: stats.Alignments,
		AlignMethod:    s.config.AlignMethod,
		SampleRate:     s.config.SampleRate,
	})
}

// parsePairRequest reads a multipart pair request. Uploaded files are saved
// under a per-request directory, which cleanup removes.
func (s *Server) parsePairRequest(r *http.Request) (*PairRequest, func(), error) {
	maxBytes := s.config.MaxUploadMB << 20
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, func() {}, fmt.Errorf("failed to parse form data: %w", err)
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		return nil, func() {}, err
	}
	dir, err := os.MkdirTemp(s.config.TempDir, "upload_*")
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	req := &PairRequest{Track: audiolab.TrackBoth, Mix: 50}
	for _, side := range []struct {
		field string
		dst   *string
	}{{"a", &req.SourceA}, {"b", &req.SourceB}} {
		src, err := saveUpload(r, side.field, filepath.Join(dir, side.field))
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		if src == "" {
			src = strings.TrimSpace(r.FormValue("url_" + side.field))
			if src != "" && !utils.IsRemoteURL(src) {
				cleanup()
				return nil, func() {}, fmt.Errorf("url_%s must be an http(s) URL", side.field)
			}
		}
		*side.dst = src
	}

	ints := []struct {
		field string
		dst   *int
	}{{"width", &req.Width}, {"height", &req.Height}, {"mix", &req.Mix}}
	for _, f := range ints {
		v := r.FormValue(f.field)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("invalid %s: %q", f.field, v)
		}
		*f.dst = n
	}
	if v := r.FormValue("track"); v != "" {
		req.Track = strings.ToLower(v)
	}

	if err := req.Validate(); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return req, cleanup, nil
}

// saveUpload stores form file field under dir, keeping its base name.
// It returns "" when the field is absent.
func saveUpload(r *http.Request, field, dir string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	if err := utils.MakeDir(dir); err != nil {
		return "", err
	}
	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = field + ".wav"
	}
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to save %s: %w", field, err)
	}
	return path, out.Close()
}

// loadPair parses the request and aligns the pair, writing an error
// response on failure.
func (s *Server) loadPair(w http.ResponseWriter, r *http.Request) (*audiolab.Pair, *PairRequest, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	req, cleanup, err := s.parsePairRequest(r)
	defer cleanup()
	if err != nil {
		s.log.Warnf("Bad pair request: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}

	pair, err := s.service.LoadPair(ctx, req.SourceA, req.SourceB)
	if err != nil {
		s.log.Errorf("Failed to align pair: %v", err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to align tracks: %v", err))
		return nil, nil, false
	}
	return pair, req, true
}

// handleAlign handles POST /api/align
func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	pair, req, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	resp := newAlignResponse(pair)
	if req.Width > 0 {
		resp.WaveformA, resp.WaveformB = s.service.Waveforms(pair, req.Width)
	}
	s.log.Infof("Aligned %s and %s: lag %+.3fs", pair.A.Name, pair.B.Name, pair.Alignment.LagSec)
	s.respondJSON(w, http.StatusOK, resp)
}

// handleWaveform handles POST /api/waveform
func (s *Server) handleWaveform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	pair, req, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	width, height := req.Width, req.Height
	if width == 0 {
		width = s.config.WaveformWidth
	}
	if height == 0 {
		height = s.config.WaveformHeight
		if req.Track == audiolab.TrackBoth {
			height *= 2
		}
	}

	var buf bytes.Buffer
	if err := s.service.WaveformPNG(pair, req.Track, req.Mix, width, height, &buf); err != nil {
		s.log.Errorf("Failed to draw waveform: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to draw waveform")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Alignment-Id", pair.RecordID)
	w.Header().Set("X-Lag-Seconds", strconv.FormatFloat(pair.Alignment.LagSec, 'f', 6, 64))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleMix handles POST /api/mix
func (s *Server) handleMix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	pair, req, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	// The WAV encoder seeks back to patch its header, so render to a file.
	tmp, err := os.CreateTemp(s.config.TempDir, "mix_*.wav")
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to render mix")
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := s.service.RenderMix(r.Context(), pair, req.Mix, tmp); err != nil {
		s.log.Errorf("Failed to render mix: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render mix: %v", err))
		return
	}
	info, err := tmp.Stat()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to render mix")
		return
	}
	s.log.Infof("Rendered mix %s (%s)", pair.RecordID, humanize.Bytes(uint64(info.Size())))

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", `attachment; filename="mix.wav"`)
	http.ServeContent(w, r, "mix.wav", time.Time{}, tmp)
}

// handleSpectrogram handles POST /api/spectrogram
func (s *Server) handleSpectrogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(s.config.MaxUploadMB << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form data: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	width, height := s.config.WaveformWidth, DefaultSpectrogramHeight
	for _, f := range []struct {
		field string
		dst   *int
	}{{"width", &width}, {"height", &height}} {
		v := r.FormValue(f.field)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > MaxImageSide {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", f.field, v))
			return
		}
		*f.dst = n
	}

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to prepare upload")
		return
	}
	dir, err := os.MkdirTemp(s.config.TempDir, "upload_*")
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to prepare upload")
		return
	}
	defer os.RemoveAll(dir)

	src, err := saveUpload(r, "file", dir)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if src == "" {
		src = strings.TrimSpace(r.FormValue("url"))
		if !utils.IsRemoteURL(src) {
			s.respondError(w, http.StatusBadRequest, "file or an http(s) url is required")
			return
		}
	}

	source, err := audio.Open(ctx, src, dir, audio.ConvertWAVConfig{SampleRate: s.config.SampleRate})
	if err != nil {
		s.log.Errorf("Failed to decode %s: %v", src, err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to decode audio: %v", err))
		return
	}
	defer source.Cleanup()

	var buf bytes.Buffer
	if err := waveform.WriteSpectrogramPNG(&buf, source.Buffer, width, height); err != nil {
		s.log.Errorf("Failed to draw spectrogram: %v", err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to draw spectrogram: %v", err))
		return
	}
	s.log.Infof("Drew %dx%d spectrogram of %s", width, height, source.Name)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleListAlignments handles GET /api/alignments
func (s *Server) handleListAlignments(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListAlignments()
	if err != nil {
		s.log.Errorf("Failed to list alignments: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve alignments")
		return
	}

	dtos := make([]AlignmentDTO, len(records))
	for i, rec := range records {
		dtos[i] = newAlignmentDTO(rec)
	}
	s.respondJSON(w, http.StatusOK, ListAlignmentsResponse{
		Alignments: dtos,
		Count:      len(dtos),
	})
}

// handleGetAlignment handles GET /api/alignments/{id}
func (s *Server) handleGetAlignment(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.service.GetAlignment(id)
	if errors.Is(err, audiolab.ErrNotFound) {
		s.log.Warnf("Alignment not found: %s", id)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Alignment with ID %s not found", id))
		return
	}
	if err != nil {
		s.log.Errorf("Failed to get alignment %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve alignment")
		return
	}
	s.respondJSON(w, http.StatusOK, newAlignmentDTO(*rec))
}

// handleDeleteAlignment handles DELETE /api/alignments/{id}
func (s *Server) handleDeleteAlignment(w http.ResponseWriter, r *http.Request, id string) {
	err := s.service.DeleteAlignment(id)
	if errors.Is(err, audiolab.ErrNotFound) {
		s.log.Warnf("Alignment not found for deletion: %s", id)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Alignment with ID %s not found", id))
		return
	}
	if err != nil {
		s.log.Errorf("Failed to delete alignment %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete alignment")
		return
	}

	s.respondJSON(w, http.StatusOK, DeleteAlignmentResponse{
		Message: "Alignment deleted successfully",
		ID:      id,
	})
}

// handleAlignments routes requests to /api/alignments
func (s *Server) handleAlignments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleListAlignments(w, r)
}

// handleAlignment routes requests to /api/alignments/{id}
func (s *Server) handleAlignment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/alignments/")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Alignment ID required")
		return
	}
	if !utils.IsUUID(id) {
		s.respondError(w, http.StatusBadRequest, "Invalid alignment ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetAlignment(w, r, id)
	case http.MethodDelete:
		s.handleDeleteAlignment(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
