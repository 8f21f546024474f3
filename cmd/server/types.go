//go:build !js && !wasm

package main

import (
	"fmt"
	"time"

	"github.com/himanishpuri/AudioLab/pkg/audiolab"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/waveform"
)

// Upload and image limits
const (
	// DefaultMaxUploadMB bounds the multipart body of a pair request
	DefaultMaxUploadMB = 100

	// MaxImageSide is the largest waveform width or height accepted
	MaxImageSide = 4096

	// DefaultSpectrogramHeight is the number of frequency rows drawn when
	// the request gives no height
	DefaultSpectrogramHeight = 256
)

// PairRequest is the parsed form of a two-track request. Each side is either
// an uploaded file (fields "a" and "b") or a URL (fields "url_a", "url_b").
type PairRequest struct {
	SourceA string
	SourceB string
	Width   int
	Height  int
	Mix     int
	Track   string
}

// Validate checks if the request is valid
func (r *PairRequest) Validate() error {
	if r.SourceA == "" || r.SourceB == "" {
		return fmt.Errorf("both tracks are required (files a and b, or url_a and url_b)")
	}
	if r.Width < 0 || r.Width > MaxImageSide || r.Height < 0 || r.Height > MaxImageSide {
		return fmt.Errorf("width and height must be between 0 and %d", MaxImageSide)
	}
	if r.Mix < 0 || r.Mix > 100 {
		return fmt.Errorf("mix must be between 0 and 100, got %d", r.Mix)
	}
	switch r.Track {
	case audiolab.TrackA, audiolab.TrackB, audiolab.TrackBoth:
	default:
		return fmt.Errorf("track must be a, b or both, got %q", r.Track)
	}
	return nil
}

// TrackDTO represents one side of a pair in API responses
type TrackDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	SampleRate  int     `json:"sample_rate"`
	Channels    int     `json:"channels"`
	DurationSec float64 `json:"duration_sec"`
}

// AlignResponse is the response for POST /api/align
type AlignResponse struct {
	ID                string           `json:"id"`
	Cached            bool             `json:"cached"`
	LagSec            float64          `json:"lag_sec"`
	LagSamples        int              `json:"lag_samples"`
	EnvelopeRate      float64          `json:"envelope_rate"`
	Score             float64          `json:"score"`
	OffsetA           float64          `json:"offset_a"`
	OffsetB           float64          `json:"offset_b"`
	CommonDurationSec float64          `json:"common_duration_sec"`
	TrackA            TrackDTO         `json:"track_a"`
	TrackB            TrackDTO         `json:"track_b"`
	WaveformA         []waveform.Point `json:"waveform_a,omitempty"`
	WaveformB         []waveform.Point `json:"waveform_b,omitempty"`
}

func newAlignResponse(pair *audiolab.Pair) AlignResponse {
	res := pair.Alignment
	return AlignResponse{
		ID:                pair.RecordID,
		Cached:            pair.Cached,
		LagSec:            res.LagSec,
		LagSamples:        res.LagSamples,
		EnvelopeRate:      res.EnvelopeRate,
		Score:             res.Score,
		OffsetA:           res.OffsetA(),
		OffsetB:           res.OffsetB(),
		CommonDurationSec: pair.CommonDuration,
		TrackA:            newTrackDTO(pair.A),
		TrackB:            newTrackDTO(pair.B),
	}
}

func newTrackDTO(t *audiolab.Track) TrackDTO {
	return TrackDTO{
		ID:          t.ID,
		Name:        t.Name,
		SampleRate:  t.Buffer.SampleRate,
		Channels:    t.Buffer.NumChannels(),
		DurationSec: t.Buffer.Duration(),
	}
}

// AlignmentDTO represents a stored alignment in API responses
type AlignmentDTO struct {
	ID                string    `json:"id"`
	TrackAID          string    `json:"track_a_id"`
	TrackBID          string    `json:"track_b_id"`
	TrackAName        string    `json:"track_a_name"`
	TrackBName        string    `json:"track_b_name"`
	LagSec            float64   `json:"lag_sec"`
	Score             float64   `json:"score"`
	CommonDurationSec float64   `json:"common_duration_sec"`
	Method            string    `json:"method"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newAlignmentDTO(rec audiolab.AlignmentRecord) AlignmentDTO {
	return AlignmentDTO{
		ID:                rec.ID,
		TrackAID:          rec.TrackAID,
		TrackBID:          rec.TrackBID,
		TrackAName:        rec.TrackAName,
		TrackBName:        rec.TrackBName,
		LagSec:            rec.LagSec,
		Score:             rec.Score,
		CommonDurationSec: rec.CommonDurationSec,
		Method:            rec.Method,
		UpdatedAt:         rec.UpdatedAt,
	}
}

// ListAlignmentsResponse is the response for GET /api/alignments
type ListAlignmentsResponse struct {
	Alignments []AlignmentDTO `json:"alignments"`
	Count      int            `json:"count"`
}

// DeleteAlignmentResponse is the response for DELETE /api/alignments/{id}
type DeleteAlignmentResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status         string `json:"status"`
	DatabasePath   string `json:"database_path"`
	TrackCount     int    `json:"track_count"`
	AlignmentCount int    `json:"alignment_count"`
	AlignMethod    string `json:"align_method"`
	SampleRate     int    `json:"sample_rate"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
